package engine_test

import (
	"context"
	"testing"
	"time"

	"tradedesk/internal/classify"
	"tradedesk/internal/config"
	"tradedesk/internal/db"
	"tradedesk/internal/domain"
	"tradedesk/internal/engine"
	"tradedesk/internal/forms"
	"tradedesk/internal/migrate"
	"tradedesk/internal/repo"
	"tradedesk/internal/trades"
)

type testEnv struct {
	Engine   engine.Engine
	Ctx      context.Context
	Business domain.Business
	Customer domain.Customer
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("Apex Climate", trades.HVAC)
	eng := engine.New(conn, cfg)
	clock := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	ctx := context.Background()
	b, err := eng.SetupBusiness(ctx, engine.SetupBusinessOptions{
		Name:         "Apex Climate",
		PrimaryTrade: trades.HVAC,
		BusinessType: "team",
		OwnerName:    "Sam Ruiz",
		OwnerEmail:   "sam@apexclimate.test",
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatalf("setup business: %v", err)
	}
	c, err := eng.CreateCustomer(ctx, engine.CustomerCreateOptions{
		BusinessID: b.ID,
		Name:       "Dana White",
		Address:    "12 Oak St",
		ActorID:    "tester",
	})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx, Business: b, Customer: c}
}

func (env testEnv) createWorkOrder(t *testing.T, jobType string) domain.WorkOrder {
	t.Helper()
	w, err := env.Engine.CreateWorkOrder(env.Ctx, engine.WorkOrderCreateOptions{
		BusinessID:   env.Business.ID,
		CustomerID:   env.Customer.ID,
		JobType:      jobType,
		Description:  "test job",
		ScheduledFor: "2026-03-03T09:00:00Z",
		Amount:       240,
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatalf("create work order: %v", err)
	}
	return w
}

func TestSetupBusinessRejectsBadTrades(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.SetupBusiness(env.Ctx, engine.SetupBusinessOptions{Name: "X", PrimaryTrade: "roofing"})
	if err == nil {
		t.Fatal("unknown primary trade accepted")
	}
	_, err = env.Engine.SetupBusiness(env.Ctx, engine.SetupBusinessOptions{
		Name: "X", PrimaryTrade: trades.HVAC, SecondaryTrades: []string{trades.HVAC},
	})
	if err == nil {
		t.Fatal("primary trade accepted as secondary")
	}
}

func TestCreateWorkOrderDefaults(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWorkOrder(t, "AC Repair")
	if w.Status != domain.StatusPending {
		t.Errorf("status = %q", w.Status)
	}
	if w.Priority != domain.PriorityMedium {
		t.Errorf("priority = %q", w.Priority)
	}
	if w.Trade != trades.HVAC {
		t.Errorf("trade = %q, want business primary", w.Trade)
	}
	hvac, _ := trades.Lookup(trades.HVAC)
	if w.DurationMinutes != hvac.DefaultJobDuration {
		t.Errorf("duration = %d, want trade default %d", w.DurationMinutes, hvac.DefaultJobDuration)
	}
	if len(w.Checklist) == 0 {
		t.Error("checklist not seeded from trade template")
	}
	got, err := env.Engine.Repo.GetWorkOrder(env.Ctx, w.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CustomerName != "Dana White" {
		t.Errorf("customer name not joined: %q", got.CustomerName)
	}
}

func TestCreateWorkOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateWorkOrder(env.Ctx, engine.WorkOrderCreateOptions{
		BusinessID: env.Business.ID, CustomerID: env.Customer.ID,
		Description: "x", ScheduledFor: "2026-03-03T09:00:00Z",
	})
	if _, ok := err.(forms.ValidationError); !ok {
		t.Fatalf("empty job_type: got %v", err)
	}
	_, err = env.Engine.CreateWorkOrder(env.Ctx, engine.WorkOrderCreateOptions{
		BusinessID: env.Business.ID, CustomerID: env.Customer.ID,
		JobType: "AC Repair", ScheduledFor: "2026-03-03T09:00:00Z",
	})
	if _, ok := err.(forms.ValidationError); !ok {
		t.Fatalf("empty description: got %v", err)
	}
}

func TestCreateWorkOrderTradeData(t *testing.T) {
	env := newTestEnv(t)
	w, err := env.Engine.CreateWorkOrder(env.Ctx, engine.WorkOrderCreateOptions{
		BusinessID:   env.Business.ID,
		CustomerID:   env.Customer.ID,
		JobType:      "AC Repair",
		Description:  "no cooling",
		ScheduledFor: "2026-03-03T09:00:00Z",
		TradeValues:  map[string]string{"system_type": "heat_pump", "unit_age_years": "8"},
		ActorID:      "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if w.TradeDataJSON == nil {
		t.Fatal("trade data not stored")
	}
	data, err := forms.DecodeTradeData(*w.TradeDataJSON)
	if err != nil {
		t.Fatal(err)
	}
	if data.Trade != trades.HVAC || data.HVAC == nil || data.HVAC.SystemType != "heat_pump" {
		t.Fatalf("decoded = %+v", data)
	}
}

func TestWorkOrderStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWorkOrder(t, "AC Repair")
	for _, status := range []string{
		domain.StatusConfirmed, domain.StatusEnRoute, domain.StatusInProgress, domain.StatusCompleted,
	} {
		var err error
		w, err = env.Engine.UpdateWorkOrderStatus(env.Ctx, w.ID, status, "tester")
		if err != nil {
			t.Fatalf("to %s: %v", status, err)
		}
		if w.Status != status {
			t.Fatalf("status = %q, want %q", w.Status, status)
		}
	}
	if w.CompletedAt == nil {
		t.Error("completed_at not stamped")
	}
	// completion rolls amount into customer stats
	c, err := env.Engine.Repo.GetCustomer(env.Ctx, env.Customer.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Revenue != 240 || c.JobCount != 1 {
		t.Errorf("customer stats: revenue=%v jobs=%d", c.Revenue, c.JobCount)
	}
	// terminal states reject further transitions
	if _, err := env.Engine.UpdateWorkOrderStatus(env.Ctx, w.ID, domain.StatusCancelled, "tester"); err == nil {
		t.Fatal("cancelled a completed order")
	}
	// skipping states is rejected
	w2 := env.createWorkOrder(t, "Duct Cleaning")
	if _, err := env.Engine.UpdateWorkOrderStatus(env.Ctx, w2.ID, domain.StatusCompleted, "tester"); err == nil {
		t.Fatal("pending -> completed accepted")
	}
	// cancel is allowed from any non-terminal state
	if _, err := env.Engine.UpdateWorkOrderStatus(env.Ctx, w2.ID, domain.StatusCancelled, "tester"); err != nil {
		t.Fatalf("pending -> cancelled: %v", err)
	}
}

func TestToggleChecklistItem(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWorkOrder(t, "Seasonal Maintenance")
	itemID := w.Checklist[0].ID
	w, err := env.Engine.ToggleChecklistItem(env.Ctx, w.ID, itemID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if !w.Checklist[0].Completed {
		t.Fatal("toggle did not complete item")
	}
	w, err = env.Engine.ToggleChecklistItem(env.Ctx, w.ID, itemID, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if w.Checklist[0].Completed {
		t.Fatal("second toggle did not clear item")
	}
	if _, err := env.Engine.ToggleChecklistItem(env.Ctx, w.ID, "missing-item", "tester"); err == nil {
		t.Fatal("unknown item accepted")
	}
}

func TestAdjustStockFloorsAndAlerts(t *testing.T) {
	env := newTestEnv(t)
	it, err := env.Engine.CreateInventoryItem(env.Ctx, engine.InventoryCreateOptions{
		BusinessID:       env.Business.ID,
		Name:             "Standard air filter",
		Category:         "Filters",
		StockLevel:       25,
		ReorderThreshold: 10,
		ActorID:          "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	it, err = env.Engine.AdjustStock(env.Ctx, it.ID, -16, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if it.StockLevel != 9 {
		t.Fatalf("stock = %d", it.StockLevel)
	}
	if got := classify.StockStatusFor(it.StockLevel, it.ReorderThreshold); got != classify.StockLow {
		t.Fatalf("status = %q", got)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, env.Business.ID, "inventory_item", it.ID)
	if err != nil {
		t.Fatal(err)
	}
	foundLow := false
	for _, e := range evts {
		if e.Action == "inventory.low_stock" {
			foundLow = true
		}
	}
	if !foundLow {
		t.Fatal("no low-stock event recorded")
	}
	// floors at zero
	it, err = env.Engine.AdjustStock(env.Ctx, it.ID, -100, "tester")
	if err != nil {
		t.Fatal(err)
	}
	if it.StockLevel != 0 {
		t.Fatalf("stock = %d, want 0", it.StockLevel)
	}
}

func TestUpdateBusiness(t *testing.T) {
	env := newTestEnv(t)
	b, err := env.Engine.UpdateBusiness(env.Ctx, engine.BusinessUpdateOptions{
		ID:              env.Business.ID,
		Name:            "Apex Climate & Plumbing",
		SecondaryTrades: []string{trades.Plumbing},
		BusinessType:    "solo",
		ActorID:         "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "Apex Climate & Plumbing" || b.BusinessType != "solo" {
		t.Errorf("update not applied: %+v", b)
	}
	if len(b.SecondaryTrades) != 1 || b.SecondaryTrades[0] != trades.Plumbing {
		t.Errorf("secondary trades = %v", b.SecondaryTrades)
	}

	stored, err := env.Engine.Repo.GetBusiness(env.Ctx, env.Business.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Name != b.Name || stored.BusinessType != "solo" {
		t.Errorf("update not persisted: %+v", stored)
	}

	if _, err := env.Engine.UpdateBusiness(env.Ctx, engine.BusinessUpdateOptions{
		ID: env.Business.ID, SecondaryTrades: []string{"roofing"},
	}); err == nil {
		t.Error("unknown secondary trade accepted")
	}
	if _, err := env.Engine.UpdateBusiness(env.Ctx, engine.BusinessUpdateOptions{
		ID: env.Business.ID, SecondaryTrades: []string{trades.HVAC},
	}); err == nil {
		t.Error("primary trade accepted as secondary")
	}
	if _, err := env.Engine.UpdateBusiness(env.Ctx, engine.BusinessUpdateOptions{
		ID: "missing", Name: "X",
	}); err == nil {
		t.Error("update of missing business accepted")
	}
}

func TestCreatesInSameSecondGetDistinctIDs(t *testing.T) {
	env := newTestEnv(t)
	frozen := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	env.Engine.Now = func() time.Time { return frozen }

	var orders [2]domain.WorkOrder
	for i := range orders {
		w, err := env.Engine.CreateWorkOrder(env.Ctx, engine.WorkOrderCreateOptions{
			BusinessID:   env.Business.ID,
			CustomerID:   env.Customer.ID,
			JobType:      "AC Repair",
			Description:  "Unit not cooling",
			ScheduledFor: "2026-03-03T09:00:00Z",
			ActorID:      "tester",
		})
		if err != nil {
			t.Fatalf("work order %d: %v", i+1, err)
		}
		orders[i] = w
	}
	if orders[0].ID == orders[1].ID {
		t.Fatalf("work orders share id %s", orders[0].ID)
	}

	var estimates [2]domain.Estimate
	for i := range estimates {
		est, err := env.Engine.CreateEstimate(env.Ctx, engine.EstimateCreateOptions{
			BusinessID: env.Business.ID,
			CustomerID: env.Customer.ID,
			Lines:      []engine.EstimateLineInput{{QuickItemID: "hvac-filter", Quantity: 1}},
			ActorID:    "tester",
		})
		if err != nil {
			t.Fatalf("estimate %d: %v", i+1, err)
		}
		estimates[i] = est
	}
	if estimates[0].ID == estimates[1].ID {
		t.Fatalf("estimates share id %s", estimates[0].ID)
	}
}

func TestCreateEstimateFromQuickLineItems(t *testing.T) {
	env := newTestEnv(t)
	est, err := env.Engine.CreateEstimate(env.Ctx, engine.EstimateCreateOptions{
		BusinessID: env.Business.ID,
		CustomerID: env.Customer.ID,
		Lines: []engine.EstimateLineInput{
			{QuickItemID: "hvac-filter", Quantity: 2},
			{QuickItemID: "hvac-labor", Quantity: 3},
			{Description: "Disposal fee", Quantity: 1, UnitPrice: 20},
		},
		ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	wantSubtotal := 2*24.99 + 3*125.00 + 20
	if est.Subtotal != wantSubtotal {
		t.Errorf("subtotal = %v, want %v", est.Subtotal, wantSubtotal)
	}
	if est.TaxRate != 0.08 {
		t.Errorf("tax rate = %v", est.TaxRate)
	}
	if est.Status != "draft" {
		t.Errorf("status = %q", est.Status)
	}
	// lifecycle
	est, err = env.Engine.UpdateEstimateStatus(env.Ctx, est.ID, "sent", "tester")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.UpdateEstimateStatus(env.Ctx, est.ID, "draft", "tester"); err == nil {
		t.Fatal("sent -> draft accepted")
	}
	est, err = env.Engine.UpdateEstimateStatus(env.Ctx, est.ID, "accepted", "tester")
	if err != nil || est.Status != "accepted" {
		t.Fatalf("sent -> accepted: %v", err)
	}
	// unknown quick item
	_, err = env.Engine.CreateEstimate(env.Ctx, engine.EstimateCreateOptions{
		BusinessID: env.Business.ID,
		CustomerID: env.Customer.ID,
		Lines:      []engine.EstimateLineInput{{QuickItemID: "elec-breaker"}},
	})
	if err == nil {
		t.Fatal("foreign trade quick item accepted")
	}
}

func TestDaySchedule(t *testing.T) {
	env := newTestEnv(t)
	mk := func(jobType, at string) {
		t.Helper()
		if _, err := env.Engine.CreateWorkOrder(env.Ctx, engine.WorkOrderCreateOptions{
			BusinessID: env.Business.ID, CustomerID: env.Customer.ID,
			JobType: jobType, Description: "d", ScheduledFor: at, ActorID: "tester",
		}); err != nil {
			t.Fatal(err)
		}
	}
	mk("AC Repair", "2026-03-03T13:00:00Z")
	mk("Duct Cleaning", "2026-03-03T09:00:00Z")
	mk("Furnace Repair", "2026-03-04T09:00:00Z")
	day, err := env.Engine.DaySchedule(env.Ctx, env.Business.ID, time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(day) != 2 {
		t.Fatalf("got %d jobs", len(day))
	}
	if day[0].JobType != "Duct Cleaning" || day[1].JobType != "AC Repair" {
		t.Fatalf("order: %s, %s", day[0].JobType, day[1].JobType)
	}
}

func TestAddTeamMemberSoloGuard(t *testing.T) {
	env := newTestEnv(t)
	solo, err := env.Engine.SetupBusiness(env.Ctx, engine.SetupBusinessOptions{
		Name: "One Van Plumbing", PrimaryTrade: trades.Plumbing, BusinessType: "solo", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.Engine.AddTeamMember(env.Ctx, engine.TeamMemberCreateOptions{
		BusinessID: solo.ID, Name: "Kim", Email: "kim@test", Role: "technician",
	})
	if err == nil {
		t.Fatal("solo business accepted a technician")
	}
	m, err := env.Engine.AddTeamMember(env.Ctx, engine.TeamMemberCreateOptions{
		BusinessID: env.Business.ID, Name: "Kim", Email: "kim@test", Role: "dispatcher", ActorID: "tester",
	})
	if err != nil {
		t.Fatal(err)
	}
	if m.Role != "dispatcher" {
		t.Fatalf("role = %q", m.Role)
	}
}

func TestSummary(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWorkOrder(t, "AC Repair")
	if _, err := env.Engine.UpdateWorkOrderStatus(env.Ctx, w.ID, domain.StatusConfirmed, "tester"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CreateInventoryItem(env.Ctx, engine.InventoryCreateOptions{
		BusinessID: env.Business.ID, Name: "R-410A refrigerant", Category: "Refrigerant",
		StockLevel: 2, ReorderThreshold: 5, ActorID: "tester",
	}); err != nil {
		t.Fatal(err)
	}
	s, err := env.Engine.Summary(env.Ctx, env.Business.ID)
	if err != nil {
		t.Fatal(err)
	}
	if s.WorkOrdersByStatus[domain.StatusConfirmed] != 1 {
		t.Errorf("by status = %v", s.WorkOrdersByStatus)
	}
	if s.LowStockItems != 1 {
		t.Errorf("low stock = %d", s.LowStockItems)
	}
}

func TestRepoNotFound(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Repo.GetWorkOrder(env.Ctx, "nope"); err != repo.ErrNotFound {
		t.Fatalf("got %v", err)
	}
	if _, err := env.Engine.Repo.GetCustomer(env.Ctx, "nope"); err != repo.ErrNotFound {
		t.Fatalf("got %v", err)
	}
}
