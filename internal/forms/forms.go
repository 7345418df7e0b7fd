// Package forms builds trade-aware work order submissions: per-trade field
// descriptors for the create form, and assembly of collected input into the
// payload the service accepts.
package forms

import (
	"encoding/json"
	"fmt"
	"strconv"

	"tradedesk/internal/domain"
	"tradedesk/internal/trades"
)

type FieldKind string

const (
	KindNumber FieldKind = "number"
	KindSelect FieldKind = "select"
	KindText   FieldKind = "text"
)

// Field describes one trade-specific input on the work order form.
type Field struct {
	Key     string    `json:"key"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Options []string  `json:"options,omitempty"`
}

// ValidationError reports a required universal field that was empty at
// submission time.
type ValidationError struct {
	Field string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("required field %q is empty", e.Field)
}

var fieldsByTrade = map[string][]Field{
	trades.HVAC: {
		{Key: "system_type", Label: "System type", Kind: KindSelect, Options: []string{"central_air", "heat_pump", "mini_split", "furnace", "boiler"}},
		{Key: "unit_age_years", Label: "Unit age (years)", Kind: KindNumber},
		{Key: "refrigerant_type", Label: "Refrigerant", Kind: KindSelect, Options: []string{"r410a", "r22", "r32", "unknown"}},
	},
	trades.Electrical: {
		{Key: "panel_amps", Label: "Panel amperage", Kind: KindSelect, Options: []string{"100", "150", "200", "400"}},
		{Key: "circuit_count", Label: "Circuits involved", Kind: KindNumber},
		{Key: "permit_number", Label: "Permit number", Kind: KindText},
	},
	trades.Plumbing: {
		{Key: "fixture_type", Label: "Fixture", Kind: KindSelect, Options: []string{"sink", "toilet", "water_heater", "shower", "main_line"}},
		{Key: "pipe_material", Label: "Pipe material", Kind: KindSelect, Options: []string{"copper", "pex", "pvc", "galvanized", "cast_iron"}},
		{Key: "shutoff_location", Label: "Shut-off location", Kind: KindText},
	},
	trades.Locksmith: {
		{Key: "lock_type", Label: "Lock type", Kind: KindSelect, Options: []string{"deadbolt", "knob", "smart", "commercial", "padlock"}},
		{Key: "door_count", Label: "Doors", Kind: KindNumber},
		{Key: "authorization_ref", Label: "Authorization reference", Kind: KindText},
	},
	trades.GeneralContractor: {
		{Key: "project_scope", Label: "Scope", Kind: KindSelect, Options: []string{"remodel", "repair", "new_construction", "punch_list"}},
		{Key: "square_footage", Label: "Square footage", Kind: KindNumber},
		{Key: "permit_number", Label: "Permit number", Kind: KindText},
	},
}

// FieldsFor returns the ordered trade-specific field descriptors for a trade.
// Unknown trades fall back to the default trade's fields.
func FieldsFor(tradeID string) []Field {
	cfg := trades.LookupOrDefault(tradeID)
	src := fieldsByTrade[cfg.ID]
	out := make([]Field, len(src))
	copy(out, src)
	return out
}

// Trade-specific data variants. Exactly one is set on a TradeData, selected
// by its Trade tag.

type HVACData struct {
	SystemType      string `json:"system_type,omitempty"`
	UnitAgeYears    int    `json:"unit_age_years,omitempty"`
	RefrigerantType string `json:"refrigerant_type,omitempty"`
}

type ElectricalData struct {
	PanelAmps    string `json:"panel_amps,omitempty"`
	CircuitCount int    `json:"circuit_count,omitempty"`
	PermitNumber string `json:"permit_number,omitempty"`
}

type PlumbingData struct {
	FixtureType     string `json:"fixture_type,omitempty"`
	PipeMaterial    string `json:"pipe_material,omitempty"`
	ShutoffLocation string `json:"shutoff_location,omitempty"`
}

type LocksmithData struct {
	LockType         string `json:"lock_type,omitempty"`
	DoorCount        int    `json:"door_count,omitempty"`
	AuthorizationRef string `json:"authorization_ref,omitempty"`
}

type ContractorData struct {
	ProjectScope  string `json:"project_scope,omitempty"`
	SquareFootage int    `json:"square_footage,omitempty"`
	PermitNumber  string `json:"permit_number,omitempty"`
}

// TradeData is the tagged union of per-trade field bags. The Trade tag names
// the populated variant; the others are nil.
type TradeData struct {
	Trade      string          `json:"trade"`
	HVAC       *HVACData       `json:"hvac,omitempty"`
	Electrical *ElectricalData `json:"electrical,omitempty"`
	Plumbing   *PlumbingData   `json:"plumbing,omitempty"`
	Locksmith  *LocksmithData  `json:"locksmith,omitempty"`
	Contractor *ContractorData `json:"general_contractor,omitempty"`
}

// IsZero reports whether no variant carries any data.
func (d TradeData) IsZero() bool {
	switch d.Trade {
	case trades.HVAC:
		return d.HVAC == nil || *d.HVAC == HVACData{}
	case trades.Electrical:
		return d.Electrical == nil || *d.Electrical == ElectricalData{}
	case trades.Plumbing:
		return d.Plumbing == nil || *d.Plumbing == PlumbingData{}
	case trades.Locksmith:
		return d.Locksmith == nil || *d.Locksmith == LocksmithData{}
	case trades.GeneralContractor:
		return d.Contractor == nil || *d.Contractor == ContractorData{}
	}
	return true
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// FoldTradeData turns raw form values into the typed variant for tradeID.
// Values for keys outside the trade's descriptors are ignored; numbers that
// fail to parse fold to zero. Trade fields are optional extras, so folding
// never fails.
func FoldTradeData(tradeID string, values map[string]string) TradeData {
	cfg := trades.LookupOrDefault(tradeID)
	d := TradeData{Trade: cfg.ID}
	switch cfg.ID {
	case trades.HVAC:
		d.HVAC = &HVACData{
			SystemType:      values["system_type"],
			UnitAgeYears:    atoiOrZero(values["unit_age_years"]),
			RefrigerantType: values["refrigerant_type"],
		}
	case trades.Electrical:
		d.Electrical = &ElectricalData{
			PanelAmps:    values["panel_amps"],
			CircuitCount: atoiOrZero(values["circuit_count"]),
			PermitNumber: values["permit_number"],
		}
	case trades.Plumbing:
		d.Plumbing = &PlumbingData{
			FixtureType:     values["fixture_type"],
			PipeMaterial:    values["pipe_material"],
			ShutoffLocation: values["shutoff_location"],
		}
	case trades.Locksmith:
		d.Locksmith = &LocksmithData{
			LockType:         values["lock_type"],
			DoorCount:        atoiOrZero(values["door_count"]),
			AuthorizationRef: values["authorization_ref"],
		}
	case trades.GeneralContractor:
		d.Contractor = &ContractorData{
			ProjectScope:  values["project_scope"],
			SquareFootage: atoiOrZero(values["square_footage"]),
			PermitNumber:  values["permit_number"],
		}
	}
	return d
}

func itoaOrEmpty(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// FlattenTradeData is the inverse of FoldTradeData: it spreads the populated
// variant back into raw form values. Zero-valued fields are dropped.
func FlattenTradeData(d TradeData) map[string]string {
	values := map[string]string{}
	put := func(key, v string) {
		if v != "" {
			values[key] = v
		}
	}
	switch {
	case d.HVAC != nil:
		put("system_type", d.HVAC.SystemType)
		put("unit_age_years", itoaOrEmpty(d.HVAC.UnitAgeYears))
		put("refrigerant_type", d.HVAC.RefrigerantType)
	case d.Electrical != nil:
		put("panel_amps", d.Electrical.PanelAmps)
		put("circuit_count", itoaOrEmpty(d.Electrical.CircuitCount))
		put("permit_number", d.Electrical.PermitNumber)
	case d.Plumbing != nil:
		put("fixture_type", d.Plumbing.FixtureType)
		put("pipe_material", d.Plumbing.PipeMaterial)
		put("shutoff_location", d.Plumbing.ShutoffLocation)
	case d.Locksmith != nil:
		put("lock_type", d.Locksmith.LockType)
		put("door_count", itoaOrEmpty(d.Locksmith.DoorCount))
		put("authorization_ref", d.Locksmith.AuthorizationRef)
	case d.Contractor != nil:
		put("project_scope", d.Contractor.ProjectScope)
		put("square_footage", itoaOrEmpty(d.Contractor.SquareFootage))
		put("permit_number", d.Contractor.PermitNumber)
	}
	return values
}

// BaseFields are the universal work order inputs collected on every form.
type BaseFields struct {
	CustomerID      string
	JobType         string
	Description     string
	Priority        string
	DurationMinutes int
	ScheduledFor    string
	Address         string
	Amount          float64
	Tags            []string
	AssigneeID      string
	OwnerID         string
}

// WorkOrderPayload is the flat submission body for work order creation.
type WorkOrderPayload struct {
	Customer        string     `json:"customer"`
	JobType         string     `json:"job_type"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	Tags            []string   `json:"tags"`
	ScheduledFor    string     `json:"scheduled_for"`
	AssignedTo      string     `json:"assigned_to,omitempty"`
	ProgressCurrent int        `json:"progress_current"`
	ProgressTotal   int        `json:"progress_total"`
	Amount          float64    `json:"amount"`
	Address         string     `json:"address"`
	PrimaryTrade    string     `json:"primary_trade"`
	Owner           string     `json:"owner,omitempty"`
	TradeData       *TradeData `json:"trade_data,omitempty"`
}

// Assemble merges universal fields with the folded trade-specific bag into a
// submission payload. Job type and description are required; everything
// trade-specific is optional. New submissions always start pending with a
// zero checklist progress counter.
func Assemble(tradeID string, base BaseFields, tradeValues map[string]string) (WorkOrderPayload, error) {
	if base.JobType == "" {
		return WorkOrderPayload{}, ValidationError{Field: "job_type"}
	}
	if base.Description == "" {
		return WorkOrderPayload{}, ValidationError{Field: "description"}
	}
	cfg := trades.LookupOrDefault(tradeID)
	priority := base.Priority
	if !domain.ValidPriority(priority) {
		priority = domain.PriorityMedium
	}
	tags := base.Tags
	if tags == nil {
		tags = []string{}
	}
	p := WorkOrderPayload{
		Customer:     base.CustomerID,
		JobType:      base.JobType,
		Description:  base.Description,
		Status:       domain.StatusPending,
		Priority:     priority,
		Tags:         tags,
		ScheduledFor: base.ScheduledFor,
		AssignedTo:   base.AssigneeID,
		Amount:       base.Amount,
		Address:      base.Address,
		PrimaryTrade: cfg.ID,
		Owner:        base.OwnerID,
	}
	if data := FoldTradeData(cfg.ID, tradeValues); !data.IsZero() {
		p.TradeData = &data
	}
	return p, nil
}

// EncodeTradeData serializes a trade data union for storage.
func EncodeTradeData(d TradeData) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode trade data: %w", err)
	}
	return string(b), nil
}

// DecodeTradeData restores a trade data union from its stored form.
func DecodeTradeData(s string) (TradeData, error) {
	var d TradeData
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return TradeData{}, fmt.Errorf("decode trade data: %w", err)
	}
	return d, nil
}
