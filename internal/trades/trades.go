// Package trades holds the static trade registry: per-trade vocabulary,
// defaults, checklist templates and quick line items. Entries are compiled
// in and never change at runtime.
package trades

import "fmt"

const (
	HVAC              = "hvac"
	Electrical        = "electrical"
	Plumbing          = "plumbing"
	Locksmith         = "locksmith"
	GeneralContractor = "general-contractor"
)

// DefaultTrade is the fallback callers use when an identifier cannot be
// resolved, matching the app's observed behavior.
const DefaultTrade = HVAC

type ChecklistTemplate struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

type QuickLineItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	UnitPrice   float64 `json:"unit_price"`
	Unit        string  `json:"unit"`
}

type TradeConfig struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	Icon                string              `json:"icon"`
	Color               string              `json:"color"`
	DefaultJobDuration  int                 `json:"default_job_duration"`
	JobTypes            []string            `json:"job_types"`
	InventoryCategories []string            `json:"inventory_categories"`
	ChecklistTemplates  []ChecklistTemplate `json:"checklist_templates"`
	QuickLineItems      []QuickLineItem     `json:"quick_line_items"`
}

// UnknownTradeError reports a lookup against an identifier outside the
// registry's closed set.
type UnknownTradeError struct {
	ID string
}

func (e UnknownTradeError) Error() string {
	return fmt.Sprintf("unknown trade %q", e.ID)
}

var order = []string{HVAC, Electrical, Plumbing, Locksmith, GeneralContractor}

var registry = map[string]TradeConfig{
	HVAC: {
		ID:                 HVAC,
		Name:               "HVAC",
		Icon:               "thermometer",
		Color:              "sky",
		DefaultJobDuration: 120,
		JobTypes: []string{
			"AC Repair", "AC Installation", "Furnace Repair", "Furnace Installation",
			"Duct Cleaning", "Seasonal Maintenance", "Thermostat Replacement", "Refrigerant Recharge",
		},
		InventoryCategories: []string{"Filters", "Refrigerant", "Thermostats", "Motors & Capacitors", "Ductwork"},
		ChecklistTemplates: []ChecklistTemplate{
			{ID: "hvac-maintenance", Name: "Seasonal Maintenance", Items: []string{
				"Inspect and replace air filter",
				"Check refrigerant levels",
				"Test thermostat calibration",
				"Clean condenser coils",
				"Inspect blower motor and belt",
				"Check electrical connections",
			}},
			{ID: "hvac-install", Name: "System Installation", Items: []string{
				"Verify unit sizing against load calculation",
				"Set and level outdoor unit",
				"Braze line set and pressure test",
				"Evacuate and charge system",
				"Commission and record readings",
			}},
		},
		QuickLineItems: []QuickLineItem{
			{ID: "hvac-filter", Description: "Standard air filter", Category: "Filters", UnitPrice: 24.99, Unit: "each"},
			{ID: "hvac-refrigerant", Description: "R-410A refrigerant", Category: "Refrigerant", UnitPrice: 85.00, Unit: "lb"},
			{ID: "hvac-capacitor", Description: "Dual run capacitor", Category: "Motors & Capacitors", UnitPrice: 45.00, Unit: "each"},
			{ID: "hvac-labor", Description: "HVAC service labor", Category: "Labor", UnitPrice: 125.00, Unit: "hour"},
		},
	},
	Electrical: {
		ID:                 Electrical,
		Name:               "Electrical",
		Icon:               "zap",
		Color:              "amber",
		DefaultJobDuration: 90,
		JobTypes: []string{
			"Panel Upgrade", "Outlet Installation", "Lighting Installation", "Wiring Repair",
			"EV Charger Installation", "Safety Inspection", "Generator Hookup",
		},
		InventoryCategories: []string{"Wire & Cable", "Breakers", "Outlets & Switches", "Fixtures", "Conduit"},
		ChecklistTemplates: []ChecklistTemplate{
			{ID: "elec-inspection", Name: "Safety Inspection", Items: []string{
				"Inspect service panel and breakers",
				"Test GFCI outlets",
				"Check grounding and bonding",
				"Scan for hot spots at panel",
				"Verify smoke detector circuits",
			}},
			{ID: "elec-panel", Name: "Panel Upgrade", Items: []string{
				"Pull permit and schedule utility disconnect",
				"Remove old panel",
				"Mount and wire new panel",
				"Label all circuits",
				"Schedule final inspection",
			}},
		},
		QuickLineItems: []QuickLineItem{
			{ID: "elec-wire", Description: "12/2 Romex cable", Category: "Wire & Cable", UnitPrice: 1.25, Unit: "ft"},
			{ID: "elec-breaker", Description: "20A single-pole breaker", Category: "Breakers", UnitPrice: 12.50, Unit: "each"},
			{ID: "elec-outlet", Description: "GFCI outlet", Category: "Outlets & Switches", UnitPrice: 22.00, Unit: "each"},
			{ID: "elec-labor", Description: "Electrical labor", Category: "Labor", UnitPrice: 110.00, Unit: "hour"},
		},
	},
	Plumbing: {
		ID:                 Plumbing,
		Name:               "Plumbing",
		Icon:               "droplet",
		Color:              "blue",
		DefaultJobDuration: 90,
		JobTypes: []string{
			"Leak Repair", "Drain Cleaning", "Water Heater Installation", "Water Heater Repair",
			"Fixture Installation", "Repiping", "Sewer Line Inspection",
		},
		InventoryCategories: []string{"Pipe & Fittings", "Valves", "Water Heaters", "Fixtures", "Seals & Gaskets"},
		ChecklistTemplates: []ChecklistTemplate{
			{ID: "plumb-heater", Name: "Water Heater Install", Items: []string{
				"Shut off water and power/gas",
				"Drain and remove old unit",
				"Set new unit and connect lines",
				"Install expansion tank if required",
				"Fill, purge air, and test for leaks",
			}},
			{ID: "plumb-drain", Name: "Drain Service", Items: []string{
				"Locate cleanout access",
				"Run auger or jetter",
				"Camera-verify clear line",
				"Test flow at fixtures",
			}},
		},
		QuickLineItems: []QuickLineItem{
			{ID: "plumb-pipe", Description: "3/4\" copper pipe", Category: "Pipe & Fittings", UnitPrice: 4.50, Unit: "ft"},
			{ID: "plumb-valve", Description: "Ball shut-off valve", Category: "Valves", UnitPrice: 18.00, Unit: "each"},
			{ID: "plumb-wax", Description: "Toilet wax ring", Category: "Seals & Gaskets", UnitPrice: 6.50, Unit: "each"},
			{ID: "plumb-labor", Description: "Plumbing labor", Category: "Labor", UnitPrice: 115.00, Unit: "hour"},
		},
	},
	Locksmith: {
		ID:                 Locksmith,
		Name:               "Locksmith",
		Icon:               "key",
		Color:              "slate",
		DefaultJobDuration: 60,
		JobTypes: []string{
			"Lockout Service", "Rekey", "Lock Installation", "Smart Lock Installation",
			"Safe Opening", "Key Duplication", "Security Audit",
		},
		InventoryCategories: []string{"Locks", "Cylinders & Pins", "Key Blanks", "Smart Hardware", "Tools"},
		ChecklistTemplates: []ChecklistTemplate{
			{ID: "lock-rekey", Name: "Rekey Service", Items: []string{
				"Verify ownership or authorization",
				"Remove cylinder and repin",
				"Cut new keys",
				"Test all keys in all locks",
			}},
			{ID: "lock-smart", Name: "Smart Lock Install", Items: []string{
				"Check door alignment and backset",
				"Install lock body and keypad",
				"Pair with app and set codes",
				"Walk customer through usage",
			}},
		},
		QuickLineItems: []QuickLineItem{
			{ID: "lock-deadbolt", Description: "Grade 2 deadbolt", Category: "Locks", UnitPrice: 35.00, Unit: "each"},
			{ID: "lock-blank", Description: "Key blank", Category: "Key Blanks", UnitPrice: 3.00, Unit: "each"},
			{ID: "lock-smartlock", Description: "Smart lock kit", Category: "Smart Hardware", UnitPrice: 189.00, Unit: "each"},
			{ID: "lock-labor", Description: "Locksmith labor", Category: "Labor", UnitPrice: 95.00, Unit: "hour"},
		},
	},
	GeneralContractor: {
		ID:                 GeneralContractor,
		Name:               "General Contractor",
		Icon:               "hammer",
		Color:              "orange",
		DefaultJobDuration: 240,
		JobTypes: []string{
			"Kitchen Remodel", "Bathroom Remodel", "Deck Construction", "Drywall Repair",
			"Flooring Installation", "Painting", "Framing", "Punch List",
		},
		InventoryCategories: []string{"Lumber", "Drywall & Mud", "Fasteners", "Paint & Supplies", "Flooring"},
		ChecklistTemplates: []ChecklistTemplate{
			{ID: "gc-remodel", Name: "Remodel Kickoff", Items: []string{
				"Confirm scope and selections with customer",
				"Pull permits",
				"Order materials and schedule subs",
				"Protect floors and set up containment",
				"Demo and haul away",
			}},
			{ID: "gc-punch", Name: "Punch List Walkthrough", Items: []string{
				"Walk site with customer",
				"Document open items with photos",
				"Complete and verify each item",
				"Collect sign-off",
			}},
		},
		QuickLineItems: []QuickLineItem{
			{ID: "gc-stud", Description: "2x4x8 stud", Category: "Lumber", UnitPrice: 4.25, Unit: "each"},
			{ID: "gc-drywall", Description: "1/2\" drywall sheet", Category: "Drywall & Mud", UnitPrice: 15.00, Unit: "sheet"},
			{ID: "gc-paint", Description: "Interior paint", Category: "Paint & Supplies", UnitPrice: 42.00, Unit: "gal"},
			{ID: "gc-labor", Description: "Contractor labor", Category: "Labor", UnitPrice: 85.00, Unit: "hour"},
		},
	},
}

// Lookup resolves a trade identifier. It is total over the five registered
// trades and returns UnknownTradeError for anything else.
func Lookup(id string) (TradeConfig, error) {
	cfg, ok := registry[id]
	if !ok {
		return TradeConfig{}, UnknownTradeError{ID: id}
	}
	return cfg, nil
}

// LookupOrDefault resolves a trade identifier, falling back to DefaultTrade
// when the identifier is not registered.
func LookupOrDefault(id string) TradeConfig {
	if cfg, ok := registry[id]; ok {
		return cfg
	}
	return registry[DefaultTrade]
}

// Known reports whether id names a registered trade.
func Known(id string) bool {
	_, ok := registry[id]
	return ok
}

// IDs returns trade identifiers in registry order.
func IDs() []string {
	out := make([]string, len(order))
	copy(out, order)
	return out
}

// All returns every trade config in registry order.
func All() []TradeConfig {
	out := make([]TradeConfig, 0, len(order))
	for _, id := range order {
		out = append(out, registry[id])
	}
	return out
}

// TemplateFor returns the checklist template matching a job type's trade, or
// the trade's first template when none is named. ok is false when the trade
// has no templates.
func TemplateFor(tradeID, templateID string) (ChecklistTemplate, bool) {
	cfg := LookupOrDefault(tradeID)
	if len(cfg.ChecklistTemplates) == 0 {
		return ChecklistTemplate{}, false
	}
	for _, tpl := range cfg.ChecklistTemplates {
		if tpl.ID == templateID {
			return tpl, true
		}
	}
	if templateID != "" {
		return ChecklistTemplate{}, false
	}
	return cfg.ChecklistTemplates[0], true
}
