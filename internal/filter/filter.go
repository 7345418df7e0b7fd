// Package filter selects subsets of work order, customer and inventory
// records. Criteria are conjunctions of independent predicates; a zero-value
// criteria matches everything. Filters preserve input order and never fail,
// including on empty input.
package filter

import (
	"strings"

	"tradedesk/internal/domain"
)

// matchesTerm reports whether any of the fields contains term,
// case-insensitively. An empty term matches.
func matchesTerm(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// WorkOrderCriteria narrows a work order list. Empty fields are ignored.
type WorkOrderCriteria struct {
	Search   string
	Status   string
	Priority string
	JobType  string
	Trade    string
}

func (c WorkOrderCriteria) matches(wo domain.WorkOrder) bool {
	if !matchesTerm(c.Search, wo.JobType, wo.Description, wo.Address, wo.CustomerName) {
		return false
	}
	if c.Status != "" && wo.Status != c.Status {
		return false
	}
	if c.Priority != "" && wo.Priority != c.Priority {
		return false
	}
	if c.JobType != "" && wo.JobType != c.JobType {
		return false
	}
	if c.Trade != "" && wo.Trade != c.Trade {
		return false
	}
	return true
}

// WorkOrders returns the work orders matching c, in input order.
func WorkOrders(records []domain.WorkOrder, c WorkOrderCriteria) []domain.WorkOrder {
	out := make([]domain.WorkOrder, 0, len(records))
	for _, wo := range records {
		if c.matches(wo) {
			out = append(out, wo)
		}
	}
	return out
}

// CustomerCriteria narrows a customer list. Empty fields are ignored.
type CustomerCriteria struct {
	Search       string
	Tag          string
	PropertyType string
}

func (c CustomerCriteria) matches(cu domain.Customer) bool {
	if !matchesTerm(c.Search, cu.Name, cu.Email, cu.Phone, cu.Address) {
		return false
	}
	if c.Tag != "" {
		found := false
		for _, t := range cu.Tags {
			if t == c.Tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.PropertyType != "" && cu.PropertyType != c.PropertyType {
		return false
	}
	return true
}

// Customers returns the customers matching c, in input order.
func Customers(records []domain.Customer, c CustomerCriteria) []domain.Customer {
	out := make([]domain.Customer, 0, len(records))
	for _, cu := range records {
		if c.matches(cu) {
			out = append(out, cu)
		}
	}
	return out
}

// InventoryCriteria narrows an inventory list. TradeSpecific is tri-state:
// nil means any.
type InventoryCriteria struct {
	Search        string
	Category      string
	TradeSpecific *bool
}

func (c InventoryCriteria) matches(it domain.InventoryItem) bool {
	if !matchesTerm(c.Search, it.Name, it.SKU, it.Supplier) {
		return false
	}
	if c.Category != "" && it.Category != c.Category {
		return false
	}
	if c.TradeSpecific != nil && it.TradeSpecific != *c.TradeSpecific {
		return false
	}
	return true
}

// Inventory returns the inventory items matching c, in input order.
func Inventory(records []domain.InventoryItem, c InventoryCriteria) []domain.InventoryItem {
	out := make([]domain.InventoryItem, 0, len(records))
	for _, it := range records {
		if c.matches(it) {
			out = append(out, it)
		}
	}
	return out
}
