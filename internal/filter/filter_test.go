package filter

import (
	"reflect"
	"testing"

	"tradedesk/internal/domain"
)

func sampleOrders() []domain.WorkOrder {
	return []domain.WorkOrder{
		{ID: "wo-1", JobType: "AC Repair", Description: "Unit not cooling", Status: domain.StatusPending, Priority: domain.PriorityHigh, CustomerName: "Dana White", Trade: "hvac"},
		{ID: "wo-2", JobType: "Panel Upgrade", Description: "200A service", Status: domain.StatusConfirmed, Priority: domain.PriorityMedium, CustomerName: "Ray Ortiz", Trade: "electrical"},
		{ID: "wo-3", JobType: "Leak Repair", Description: "Kitchen sink drip", Status: domain.StatusPending, Priority: domain.PriorityUrgent, CustomerName: "Dana White", Trade: "plumbing"},
		{ID: "wo-4", JobType: "AC Installation", Description: "New condenser", Status: domain.StatusCompleted, Priority: domain.PriorityLow, CustomerName: "Mia Chen", Trade: "hvac"},
	}
}

func orderIDs(in []domain.WorkOrder) []string {
	out := make([]string, len(in))
	for i, wo := range in {
		out[i] = wo.ID
	}
	return out
}

func TestWorkOrdersEmptyCriteria(t *testing.T) {
	in := sampleOrders()
	got := WorkOrders(in, WorkOrderCriteria{})
	if !reflect.DeepEqual(orderIDs(got), orderIDs(in)) {
		t.Fatalf("empty criteria changed result: %v", orderIDs(got))
	}
}

func TestWorkOrdersConjunction(t *testing.T) {
	got := WorkOrders(sampleOrders(), WorkOrderCriteria{Status: domain.StatusPending, Priority: domain.PriorityUrgent})
	if want := []string{"wo-3"}; !reflect.DeepEqual(orderIDs(got), want) {
		t.Fatalf("got %v, want %v", orderIDs(got), want)
	}
}

func TestWorkOrdersSearchCaseInsensitive(t *testing.T) {
	got := WorkOrders(sampleOrders(), WorkOrderCriteria{Search: "dana"})
	if want := []string{"wo-1", "wo-3"}; !reflect.DeepEqual(orderIDs(got), want) {
		t.Fatalf("got %v, want %v", orderIDs(got), want)
	}
	got = WorkOrders(sampleOrders(), WorkOrderCriteria{Search: "AC"})
	if want := []string{"wo-1", "wo-4"}; !reflect.DeepEqual(orderIDs(got), want) {
		t.Fatalf("got %v, want %v", orderIDs(got), want)
	}
}

func TestWorkOrdersIdempotent(t *testing.T) {
	c := WorkOrderCriteria{Trade: "hvac"}
	once := WorkOrders(sampleOrders(), c)
	twice := WorkOrders(once, c)
	if !reflect.DeepEqual(orderIDs(once), orderIDs(twice)) {
		t.Fatalf("not idempotent: %v vs %v", orderIDs(once), orderIDs(twice))
	}
}

func TestWorkOrdersEmptyInput(t *testing.T) {
	got := WorkOrders(nil, WorkOrderCriteria{Search: "anything"})
	if got == nil || len(got) != 0 {
		t.Fatalf("want empty non-nil slice, got %#v", got)
	}
}

func TestCustomersTagAndProperty(t *testing.T) {
	in := []domain.Customer{
		{ID: "c-1", Name: "Dana White", Tags: []string{"vip", "commercial"}, PropertyType: "commercial"},
		{ID: "c-2", Name: "Ray Ortiz", Tags: []string{"residential"}, PropertyType: "residential"},
		{ID: "c-3", Name: "Mia Chen", Tags: []string{"vip"}, PropertyType: "residential"},
	}
	got := Customers(in, CustomerCriteria{Tag: "vip", PropertyType: "residential"})
	if len(got) != 1 || got[0].ID != "c-3" {
		t.Fatalf("got %+v", got)
	}
	got = Customers(in, CustomerCriteria{Search: "ORTIZ"})
	if len(got) != 1 || got[0].ID != "c-2" {
		t.Fatalf("search got %+v", got)
	}
}

func TestInventoryTriState(t *testing.T) {
	in := []domain.InventoryItem{
		{ID: "i-1", Name: "R-410A refrigerant", Category: "Refrigerant", TradeSpecific: true},
		{ID: "i-2", Name: "Shop towels", Category: "Supplies", TradeSpecific: false},
		{ID: "i-3", Name: "Dual run capacitor", Category: "Motors & Capacitors", TradeSpecific: true},
	}
	if got := Inventory(in, InventoryCriteria{}); len(got) != 3 {
		t.Fatalf("any: got %d items", len(got))
	}
	yes, no := true, false
	if got := Inventory(in, InventoryCriteria{TradeSpecific: &yes}); len(got) != 2 {
		t.Fatalf("trade-specific: got %d items", len(got))
	}
	got := Inventory(in, InventoryCriteria{TradeSpecific: &no})
	if len(got) != 1 || got[0].ID != "i-2" {
		t.Fatalf("generic: got %+v", got)
	}
	got = Inventory(in, InventoryCriteria{Search: "capacitor", Category: "Motors & Capacitors"})
	if len(got) != 1 || got[0].ID != "i-3" {
		t.Fatalf("conjunction: got %+v", got)
	}
}
