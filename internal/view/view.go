// Package view drives screen selection for a session: the outer state
// machine over landing, login, trade setup and the dashboard, plus the
// in-dashboard tab selector and the work order form lifecycle. All state is
// scoped to one Composer; nothing here is shared across sessions.
package view

import (
	"context"
	"fmt"

	"tradedesk/internal/domain"
	"tradedesk/internal/forms"
)

type Screen string

const (
	ScreenLanding    Screen = "landing"
	ScreenLogin      Screen = "login"
	ScreenTradeSetup Screen = "trade_setup"
	ScreenDashboard  Screen = "dashboard"
)

type Tab string

const (
	TabOverview  Tab = "overview"
	TabSchedule  Tab = "schedule"
	TabJobs      Tab = "jobs"
	TabCustomers Tab = "customers"
	TabEstimates Tab = "estimates"
	TabInventory Tab = "inventory"
	TabReports   Tab = "reports"
	TabMobile    Tab = "mobile"
	TabSettings  Tab = "settings"
)

var tabs = []Tab{
	TabOverview, TabSchedule, TabJobs, TabCustomers, TabEstimates,
	TabInventory, TabReports, TabMobile, TabSettings,
}

// Tabs returns the dashboard panels in display order.
func Tabs() []Tab {
	out := make([]Tab, len(tabs))
	copy(out, tabs)
	return out
}

func validTab(t Tab) bool {
	for _, v := range tabs {
		if v == t {
			return true
		}
	}
	return false
}

// Collaborator is the persistence service the composer reads from and
// submits to.
type Collaborator interface {
	ListWorkOrders(ctx context.Context) ([]domain.WorkOrder, error)
	CreateWorkOrder(ctx context.Context, payload forms.WorkOrderPayload) (domain.WorkOrder, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	ListTeamMembers(ctx context.Context) ([]domain.TeamMember, error)
}

// Form holds the in-progress work order inputs. It survives a failed
// submission so the user can correct and resubmit.
type Form struct {
	Trade       string
	Base        forms.BaseFields
	TradeValues map[string]string
	Err         error
}

// Composer is the per-session screen controller. Not safe for concurrent
// use; a session drives it from a single goroutine.
type Composer struct {
	collab        Collaborator
	screen        Screen
	tab           Tab
	setupComplete bool
	wizard        *Wizard
	form          Form
	busy          bool

	orders    []domain.WorkOrder
	customers []domain.Customer
	team      []domain.TeamMember
}

// NewComposer starts a session on the landing screen.
func NewComposer(collab Collaborator, setupComplete bool) *Composer {
	return &Composer{
		collab:        collab,
		screen:        ScreenLanding,
		tab:           TabOverview,
		setupComplete: setupComplete,
	}
}

func (c *Composer) Screen() Screen { return c.screen }
func (c *Composer) Tab() Tab       { return c.tab }
func (c *Composer) Busy() bool     { return c.busy }
func (c *Composer) Form() Form     { return c.form }

func (c *Composer) WorkOrders() []domain.WorkOrder { return c.orders }
func (c *Composer) Customers() []domain.Customer   { return c.customers }
func (c *Composer) TeamMembers() []domain.TeamMember {
	return c.team
}

// RequestLogin moves from landing to the login screen.
func (c *Composer) RequestLogin() error {
	if c.screen != ScreenLanding {
		return fmt.Errorf("cannot open login from %s", c.screen)
	}
	c.screen = ScreenLogin
	return nil
}

// RequestStart moves from landing into trade setup, or straight to the
// dashboard when setup already completed.
func (c *Composer) RequestStart() error {
	if c.screen != ScreenLanding {
		return fmt.Errorf("cannot start from %s", c.screen)
	}
	if c.setupComplete {
		c.screen = ScreenDashboard
		return nil
	}
	c.wizard = NewWizard()
	c.screen = ScreenTradeSetup
	return nil
}

// CompleteLogin lands the session on the dashboard. A completed login also
// marks setup complete.
func (c *Composer) CompleteLogin() error {
	if c.screen != ScreenLogin {
		return fmt.Errorf("no login in progress on %s", c.screen)
	}
	c.setupComplete = true
	c.screen = ScreenDashboard
	return nil
}

// Wizard returns the active setup wizard, or nil outside trade setup.
func (c *Composer) Wizard() *Wizard {
	if c.screen != ScreenTradeSetup {
		return nil
	}
	return c.wizard
}

// FinishSetup completes the wizard and returns to landing with setup marked
// complete.
func (c *Composer) FinishSetup() (SetupResult, error) {
	if c.screen != ScreenTradeSetup || c.wizard == nil {
		return SetupResult{}, fmt.Errorf("no setup in progress on %s", c.screen)
	}
	res, err := c.wizard.Complete()
	if err != nil {
		return SetupResult{}, err
	}
	c.setupComplete = true
	c.wizard = nil
	c.screen = ScreenLanding
	return res, nil
}

// SelectTab swaps the visible dashboard panel without leaving the dashboard.
func (c *Composer) SelectTab(t Tab) error {
	if c.screen != ScreenDashboard {
		return fmt.Errorf("tabs unavailable on %s", c.screen)
	}
	if !validTab(t) {
		return fmt.Errorf("unknown tab %q", t)
	}
	c.tab = t
	return nil
}

// Refresh re-fetches the dashboard's record snapshots.
func (c *Composer) Refresh(ctx context.Context) error {
	orders, err := c.collab.ListWorkOrders(ctx)
	if err != nil {
		return err
	}
	customers, err := c.collab.ListCustomers(ctx)
	if err != nil {
		return err
	}
	team, err := c.collab.ListTeamMembers(ctx)
	if err != nil {
		return err
	}
	c.orders, c.customers, c.team = orders, customers, team
	return nil
}

// EditForm replaces the in-progress work order inputs.
func (c *Composer) EditForm(trade string, base forms.BaseFields, tradeValues map[string]string) {
	c.form = Form{Trade: trade, Base: base, TradeValues: tradeValues}
}

// SubmitForm assembles and sends the current form. Validation failures and
// collaborator rejections both leave the form contents in place; only a
// successful create clears it and refreshes the list. While a submission is
// in flight the busy flag suppresses re-submission of the same form.
func (c *Composer) SubmitForm(ctx context.Context) error {
	if c.busy {
		return fmt.Errorf("submission already in progress")
	}
	payload, err := forms.Assemble(c.form.Trade, c.form.Base, c.form.TradeValues)
	if err != nil {
		c.form.Err = err
		return err
	}
	c.busy = true
	defer func() { c.busy = false }()
	if _, err := c.collab.CreateWorkOrder(ctx, payload); err != nil {
		c.form.Err = err
		return err
	}
	c.form = Form{}
	return c.Refresh(ctx)
}
