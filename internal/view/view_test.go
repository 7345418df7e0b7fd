package view

import (
	"context"
	"errors"
	"testing"

	"tradedesk/internal/domain"
	"tradedesk/internal/forms"
	"tradedesk/internal/trades"
)

type fakeCollab struct {
	orders      []domain.WorkOrder
	customers   []domain.Customer
	team        []domain.TeamMember
	createCalls int
	createErr   error
}

func (f *fakeCollab) ListWorkOrders(ctx context.Context) ([]domain.WorkOrder, error) {
	return f.orders, nil
}

func (f *fakeCollab) CreateWorkOrder(ctx context.Context, p forms.WorkOrderPayload) (domain.WorkOrder, error) {
	f.createCalls++
	if f.createErr != nil {
		return domain.WorkOrder{}, f.createErr
	}
	wo := domain.WorkOrder{ID: "wo-new", JobType: p.JobType, Status: p.Status}
	f.orders = append(f.orders, wo)
	return wo, nil
}

func (f *fakeCollab) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return f.customers, nil
}

func (f *fakeCollab) ListTeamMembers(ctx context.Context) ([]domain.TeamMember, error) {
	return f.team, nil
}

func TestInitialScreenIsLanding(t *testing.T) {
	c := NewComposer(&fakeCollab{}, false)
	if c.Screen() != ScreenLanding {
		t.Fatalf("initial screen = %s", c.Screen())
	}
}

func TestLandingToLoginToDashboard(t *testing.T) {
	c := NewComposer(&fakeCollab{}, false)
	if err := c.RequestLogin(); err != nil {
		t.Fatal(err)
	}
	if c.Screen() != ScreenLogin {
		t.Fatalf("screen = %s", c.Screen())
	}
	if err := c.CompleteLogin(); err != nil {
		t.Fatal(err)
	}
	if c.Screen() != ScreenDashboard {
		t.Fatalf("screen = %s", c.Screen())
	}
	// login marks setup complete: a fresh start goes straight to dashboard
	c2 := NewComposer(&fakeCollab{}, false)
	_ = c2.RequestLogin()
	_ = c2.CompleteLogin()
	if c2.Screen() != ScreenDashboard {
		t.Fatal("login did not complete setup")
	}
}

func TestStartBranchesOnSetupState(t *testing.T) {
	fresh := NewComposer(&fakeCollab{}, false)
	if err := fresh.RequestStart(); err != nil {
		t.Fatal(err)
	}
	if fresh.Screen() != ScreenTradeSetup {
		t.Fatalf("screen = %s", fresh.Screen())
	}
	done := NewComposer(&fakeCollab{}, true)
	if err := done.RequestStart(); err != nil {
		t.Fatal(err)
	}
	if done.Screen() != ScreenDashboard {
		t.Fatalf("screen = %s", done.Screen())
	}
}

func TestSetupCompletionReturnsToLanding(t *testing.T) {
	c := NewComposer(&fakeCollab{}, false)
	_ = c.RequestStart()
	w := c.Wizard()
	if w == nil {
		t.Fatal("no wizard during setup")
	}
	if err := w.SelectPrimary(trades.Electrical); err != nil {
		t.Fatal(err)
	}
	res, err := c.FinishSetup()
	if err != nil {
		t.Fatal(err)
	}
	if res.PrimaryTrade != trades.Electrical {
		t.Fatalf("result = %+v", res)
	}
	if c.Screen() != ScreenLanding {
		t.Fatalf("screen after setup = %s", c.Screen())
	}
	// setup is now complete
	if err := c.RequestStart(); err != nil {
		t.Fatal(err)
	}
	if c.Screen() != ScreenDashboard {
		t.Fatal("completed setup should land on dashboard")
	}
}

func TestTabSelectionStaysInDashboard(t *testing.T) {
	c := NewComposer(&fakeCollab{}, true)
	if err := c.SelectTab(TabJobs); err == nil {
		t.Fatal("tabs should be rejected off-dashboard")
	}
	_ = c.RequestStart()
	for _, tab := range Tabs() {
		if err := c.SelectTab(tab); err != nil {
			t.Fatalf("SelectTab(%s): %v", tab, err)
		}
		if c.Screen() != ScreenDashboard {
			t.Fatalf("tab %s left the dashboard", tab)
		}
	}
	if err := c.SelectTab("billing"); err == nil {
		t.Fatal("unknown tab accepted")
	}
	if c.Tab() != TabSettings {
		t.Fatalf("rejected tab changed selection to %s", c.Tab())
	}
}

func TestSubmitValidationSkipsCollaborator(t *testing.T) {
	fc := &fakeCollab{}
	c := NewComposer(fc, true)
	_ = c.RequestStart()
	c.EditForm(trades.HVAC, forms.BaseFields{JobType: "", Description: "x"}, nil)
	err := c.SubmitForm(context.Background())
	var ve forms.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("got %v", err)
	}
	if fc.createCalls != 0 {
		t.Fatal("collaborator called despite validation failure")
	}
	if c.Form().Base.Description != "x" {
		t.Fatal("form cleared on validation failure")
	}
}

func TestSubmitFailureKeepsForm(t *testing.T) {
	fc := &fakeCollab{createErr: errors.New("service unavailable")}
	c := NewComposer(fc, true)
	_ = c.RequestStart()
	c.EditForm(trades.HVAC, forms.BaseFields{JobType: "AC Repair", Description: "no cooling"}, nil)
	if err := c.SubmitForm(context.Background()); err == nil {
		t.Fatal("expected submission failure")
	}
	if fc.createCalls != 1 {
		t.Fatalf("createCalls = %d", fc.createCalls)
	}
	if c.Form().Base.JobType != "AC Repair" {
		t.Fatal("form cleared on submission failure")
	}
	if c.Busy() {
		t.Fatal("busy flag stuck after failure")
	}
}

func TestSubmitSuccessClearsFormAndRefreshes(t *testing.T) {
	fc := &fakeCollab{}
	c := NewComposer(fc, true)
	_ = c.RequestStart()
	c.EditForm(trades.Plumbing, forms.BaseFields{JobType: "Leak Repair", Description: "drip"}, nil)
	if err := c.SubmitForm(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Form().Base.JobType != "" {
		t.Fatal("form not cleared after success")
	}
	if len(c.WorkOrders()) != 1 {
		t.Fatalf("refresh did not pick up the new order: %d", len(c.WorkOrders()))
	}
}

func TestRefreshSnapshots(t *testing.T) {
	fc := &fakeCollab{
		orders:    []domain.WorkOrder{{ID: "wo-1"}},
		customers: []domain.Customer{{ID: "c-1"}, {ID: "c-2"}},
		team:      []domain.TeamMember{{ID: "t-1"}},
	}
	c := NewComposer(fc, true)
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(c.WorkOrders()) != 1 || len(c.Customers()) != 2 || len(c.TeamMembers()) != 1 {
		t.Fatal("snapshots not populated")
	}
}
