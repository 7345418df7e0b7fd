package view

import (
	"fmt"

	"tradedesk/internal/trades"
)

const (
	BusinessSolo = "solo"
	BusinessTeam = "team"
)

// SetupResult is what a finished wizard emits to the caller.
type SetupResult struct {
	PrimaryTrade    string
	SecondaryTrades []string
	BusinessType    string
}

// Wizard is the 3-step trade setup flow: primary trade, optional secondary
// trades, business type. Step 1 gates everything else.
type Wizard struct {
	step         int
	primary      string
	secondaries  map[string]bool
	businessType string
}

func NewWizard() *Wizard {
	return &Wizard{step: 1, secondaries: map[string]bool{}, businessType: BusinessSolo}
}

func (w *Wizard) Step() int       { return w.step }
func (w *Wizard) Primary() string { return w.primary }

// Secondaries returns the selected secondary trades in registry order.
func (w *Wizard) Secondaries() []string {
	out := []string{}
	for _, id := range trades.IDs() {
		if w.secondaries[id] {
			out = append(out, id)
		}
	}
	return out
}

func (w *Wizard) BusinessType() string { return w.businessType }

// SelectPrimary sets the primary trade. Changing the primary drops it from
// the secondary selection if present.
func (w *Wizard) SelectPrimary(id string) error {
	if !trades.Known(id) {
		return trades.UnknownTradeError{ID: id}
	}
	w.primary = id
	delete(w.secondaries, id)
	return nil
}

// ToggleSecondary flips a secondary trade selection. Toggling the primary
// trade is a no-op.
func (w *Wizard) ToggleSecondary(id string) error {
	if !trades.Known(id) {
		return trades.UnknownTradeError{ID: id}
	}
	if id == w.primary {
		return nil
	}
	if w.secondaries[id] {
		delete(w.secondaries, id)
	} else {
		w.secondaries[id] = true
	}
	return nil
}

// SkipSecondaries clears the secondary selection and advances to step 3.
func (w *Wizard) SkipSecondaries() error {
	if w.step != 2 {
		return fmt.Errorf("skip only applies on step 2, at step %d", w.step)
	}
	w.secondaries = map[string]bool{}
	w.step = 3
	return nil
}

// SelectBusinessType records the solo/team choice.
func (w *Wizard) SelectBusinessType(t string) error {
	if t != BusinessSolo && t != BusinessTeam {
		return fmt.Errorf("unknown business type %q", t)
	}
	w.businessType = t
	return nil
}

// Next advances one step. Step 1 cannot be left without a primary trade.
func (w *Wizard) Next() error {
	if w.step == 1 && w.primary == "" {
		return fmt.Errorf("select a primary trade to continue")
	}
	if w.step >= 3 {
		return fmt.Errorf("already on the final step")
	}
	w.step++
	return nil
}

// Back returns to the previous step, keeping selections.
func (w *Wizard) Back() error {
	if w.step <= 1 {
		return fmt.Errorf("already on the first step")
	}
	w.step--
	return nil
}

// Complete finishes the wizard. A primary trade is required; the secondary
// set and business type carry whatever was chosen.
func (w *Wizard) Complete() (SetupResult, error) {
	if w.primary == "" {
		return SetupResult{}, fmt.Errorf("primary trade not selected")
	}
	return SetupResult{
		PrimaryTrade:    w.primary,
		SecondaryTrades: w.Secondaries(),
		BusinessType:    w.businessType,
	}, nil
}
