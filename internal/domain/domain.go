package domain

// Work order statuses and priorities are closed sets; anything else is
// rejected at the API boundary.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusEnRoute    = "en_route"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusEnRoute, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Business struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	PrimaryTrade    string   `json:"primary_trade"`
	SecondaryTrades []string `json:"secondary_trades,omitempty"`
	BusinessType    string   `json:"business_type" enum:"solo,team"`
	SetupComplete   bool     `json:"setup_complete"`
	CreatedAt       string   `json:"created_at" format:"date-time"`
	UpdatedAt       string   `json:"updated_at" format:"date-time"`
}

type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type WorkOrder struct {
	ID              string          `json:"id"`
	BusinessID      string          `json:"business_id"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name,omitempty"`
	AssigneeID      *string         `json:"assignee_id,omitempty"`
	JobType         string          `json:"job_type"`
	Description     string          `json:"description"`
	Status          string          `json:"status" enum:"pending,confirmed,en_route,in_progress,completed,cancelled"`
	Priority        string          `json:"priority" enum:"low,medium,high,urgent"`
	ScheduledFor    string          `json:"scheduled_for" format:"date-time"`
	DurationMinutes int             `json:"duration_minutes"`
	Address         string          `json:"address,omitempty"`
	Amount          float64         `json:"amount"`
	Tags            []string        `json:"tags,omitempty"`
	Checklist       []ChecklistItem `json:"checklist,omitempty"`
	Trade           string          `json:"trade"`
	TradeDataJSON   *string         `json:"trade_data_json,omitempty"`
	CreatedAt       string          `json:"created_at" format:"date-time"`
	UpdatedAt       string          `json:"updated_at" format:"date-time"`
	CompletedAt     *string         `json:"completed_at,omitempty" format:"date-time"`
}

type Customer struct {
	ID           string   `json:"id"`
	BusinessID   string   `json:"business_id"`
	Name         string   `json:"name"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Address      string   `json:"address,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Revenue      float64  `json:"revenue"`
	JobCount     int      `json:"job_count"`
	LastContact  *string  `json:"last_contact,omitempty" format:"date-time"`
	CreatedAt    string   `json:"created_at" format:"date-time"`
}

type InventoryItem struct {
	ID               string  `json:"id"`
	BusinessID       string  `json:"business_id"`
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	SKU              string  `json:"sku,omitempty"`
	StockLevel       int     `json:"stock_level"`
	ReorderThreshold int     `json:"reorder_threshold"`
	CostPerUnit      float64 `json:"cost_per_unit"`
	Supplier         string  `json:"supplier,omitempty"`
	TradeSpecific    bool    `json:"trade_specific"`
	UpdatedAt        string  `json:"updated_at" format:"date-time"`
}

type EstimateLine struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Unit        string  `json:"unit,omitempty"`
}

type Estimate struct {
	ID          string         `json:"id"`
	BusinessID  string         `json:"business_id"`
	CustomerID  string         `json:"customer_id"`
	WorkOrderID *string        `json:"work_order_id,omitempty"`
	Status      string         `json:"status" enum:"draft,sent,accepted,declined"`
	Lines       []EstimateLine `json:"lines"`
	Subtotal    float64        `json:"subtotal"`
	TaxRate     float64        `json:"tax_rate"`
	Total       float64        `json:"total"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   string         `json:"created_at" format:"date-time"`
	UpdatedAt   string         `json:"updated_at" format:"date-time"`
}

type TeamMember struct {
	ID         string `json:"id"`
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role" enum:"owner,technician,dispatcher"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	BusinessID string `json:"business_id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id,omitempty"`
	Action     string `json:"action"`
	Actor      string `json:"actor,omitempty"`
	Payload    string `json:"payload,omitempty"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID         string  `json:"id"`
	BusinessID string  `json:"business_id"`
	Name       string  `json:"name,omitempty"`
	KeyHash    string  `json:"key_hash"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	LastUsedAt *string `json:"last_used_at,omitempty" format:"date-time"`
}
