package classify

import (
	"testing"

	"tradedesk/internal/domain"
)

func TestStockStatusBoundaries(t *testing.T) {
	cases := []struct {
		level, threshold int
		want             StockStatus
	}{
		{0, 10, StockLow},
		{10, 10, StockLow},
		{11, 10, StockWarning},
		{15, 10, StockWarning},
		{16, 10, StockGood},
		{100, 10, StockGood},
		{3, 2, StockWarning},
		{4, 2, StockGood},
		{0, 0, StockLow},
		{1, 0, StockGood},
	}
	for _, c := range cases {
		if got := StockStatusFor(c.level, c.threshold); got != c.want {
			t.Errorf("StockStatusFor(%d, %d) = %q, want %q", c.level, c.threshold, got, c.want)
		}
	}
}

func TestStatusColor(t *testing.T) {
	cases := map[string]string{
		domain.StatusPending:    "yellow",
		domain.StatusConfirmed:  "blue",
		domain.StatusEnRoute:    "purple",
		domain.StatusInProgress: "orange",
		domain.StatusCompleted:  "green",
		domain.StatusCancelled:  "red",
		"archived":              "gray",
		"":                      "gray",
	}
	for status, want := range cases {
		if got := StatusColor(status); got != want {
			t.Errorf("StatusColor(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestPriorityColor(t *testing.T) {
	cases := map[string]string{
		domain.PriorityUrgent: "red",
		domain.PriorityHigh:   "orange",
		domain.PriorityMedium: "yellow",
		domain.PriorityLow:    "green",
		"whenever":            "gray",
	}
	for priority, want := range cases {
		if got := PriorityColor(priority); got != want {
			t.Errorf("PriorityColor(%q) = %q, want %q", priority, got, want)
		}
	}
}
