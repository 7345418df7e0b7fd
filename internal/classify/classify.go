// Package classify maps raw record values onto display tiers: stock health
// bands, status colors and priority colors. Functions here are pure and keep
// their boundary rules in one place so list views and detail views agree.
package classify

import "tradedesk/internal/domain"

type StockStatus string

const (
	StockLow     StockStatus = "low"
	StockWarning StockStatus = "warning"
	StockGood    StockStatus = "good"
)

// StockStatusFor bands a stock level against its reorder threshold. At or
// below the threshold is low; within half a threshold above it is warning;
// everything else is good. Both boundaries are inclusive.
func StockStatusFor(stockLevel, reorderThreshold int) StockStatus {
	if stockLevel <= reorderThreshold {
		return StockLow
	}
	if float64(stockLevel) <= float64(reorderThreshold)*1.5 {
		return StockWarning
	}
	return StockGood
}

// StatusColor returns the display color token for a work order status.
// Unknown statuses map to the neutral token.
func StatusColor(status string) string {
	switch status {
	case domain.StatusPending:
		return "yellow"
	case domain.StatusConfirmed:
		return "blue"
	case domain.StatusEnRoute:
		return "purple"
	case domain.StatusInProgress:
		return "orange"
	case domain.StatusCompleted:
		return "green"
	case domain.StatusCancelled:
		return "red"
	default:
		return "gray"
	}
}

// PriorityColor returns the display color token for a priority tier.
// Unknown priorities map to the neutral token.
func PriorityColor(priority string) string {
	switch priority {
	case domain.PriorityUrgent:
		return "red"
	case domain.PriorityHigh:
		return "orange"
	case domain.PriorityMedium:
		return "yellow"
	case domain.PriorityLow:
		return "green"
	default:
		return "gray"
	}
}
