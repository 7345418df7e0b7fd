package server

import (
	"encoding/json"

	"tradedesk/internal/classify"
	"tradedesk/internal/config"
	"tradedesk/internal/domain"
	"tradedesk/internal/forms"
	"tradedesk/internal/trades"
)

// Request payloads

type SetupBusinessRequest struct {
	Name            string   `json:"name"`
	PrimaryTrade    string   `json:"primary_trade" enum:"hvac,electrical,plumbing,locksmith,general-contractor"`
	SecondaryTrades []string `json:"secondary_trades,omitempty"`
	BusinessType    string   `json:"business_type,omitempty" enum:"solo,team"`
	OwnerName       string   `json:"owner_name,omitempty"`
	OwnerEmail      string   `json:"owner_email,omitempty"`
}

type CreateCustomerRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Address      string   `json:"address,omitempty"`
	PropertyType string   `json:"property_type,omitempty" enum:"residential,commercial"`
	Tags         []string `json:"tags,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

type CreateWorkOrderRequest struct {
	CustomerID          string            `json:"customer_id"`
	AssigneeID          *string           `json:"assignee_id,omitempty"`
	JobType             string            `json:"job_type"`
	Description         string            `json:"description"`
	Priority            string            `json:"priority,omitempty" enum:"low,medium,high,urgent"`
	ScheduledFor        string            `json:"scheduled_for" format:"date-time"`
	DurationMinutes     int               `json:"duration_minutes,omitempty"`
	Address             string            `json:"address,omitempty"`
	Amount              float64           `json:"amount,omitempty"`
	Tags                []string          `json:"tags,omitempty"`
	Trade               string            `json:"trade,omitempty"`
	TradeData           map[string]string `json:"trade_data,omitempty"`
	ChecklistTemplateID string            `json:"checklist_template_id,omitempty"`
}

type UpdateWorkOrderStatusRequest struct {
	Status string `json:"status" enum:"pending,confirmed,en_route,in_progress,completed,cancelled"`
}

type AssignWorkOrderRequest struct {
	AssigneeID string `json:"assignee_id"`
}

type CreateInventoryItemRequest struct {
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	SKU              string  `json:"sku,omitempty"`
	StockLevel       int     `json:"stock_level"`
	ReorderThreshold int     `json:"reorder_threshold"`
	CostPerUnit      float64 `json:"cost_per_unit,omitempty"`
	Supplier         string  `json:"supplier,omitempty"`
	TradeSpecific    bool    `json:"trade_specific,omitempty"`
}

type AdjustStockRequest struct {
	Delta int `json:"delta"`
}

type EstimateLineRequest struct {
	QuickItemID string  `json:"quick_item_id,omitempty"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity,omitempty"`
	UnitPrice   float64 `json:"unit_price,omitempty"`
	Unit        string  `json:"unit,omitempty"`
}

type CreateEstimateRequest struct {
	CustomerID  string                `json:"customer_id"`
	WorkOrderID string                `json:"work_order_id,omitempty"`
	Trade       string                `json:"trade,omitempty"`
	Lines       []EstimateLineRequest `json:"lines"`
	Notes       string                `json:"notes,omitempty"`
}

type UpdateEstimateStatusRequest struct {
	Status string `json:"status" enum:"draft,sent,accepted,declined"`
}

type AddTeamMemberRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty" enum:"owner,technician,dispatcher"`
}

type DevLoginRequest struct {
	ActorID    string   `json:"actor_id"`
	BusinessID string   `json:"business_id"`
	Roles      []string `json:"roles,omitempty"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// Response payloads

type BusinessResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	PrimaryTrade    string   `json:"primary_trade"`
	SecondaryTrades []string `json:"secondary_trades"`
	BusinessType    string   `json:"business_type" enum:"solo,team"`
	SetupComplete   bool     `json:"setup_complete"`
	CreatedAt       string   `json:"created_at" format:"date-time"`
	UpdatedAt       string   `json:"updated_at" format:"date-time"`
}

type UpdateBusinessRequest struct {
	Name            string   `json:"name,omitempty"`
	SecondaryTrades []string `json:"secondary_trades,omitempty"`
	BusinessType    string   `json:"business_type,omitempty" enum:"solo,team"`
}

type BusinessConfigResponse struct {
	Business   businessConfigSection   `json:"business"`
	Scheduling schedulingConfigSection `json:"scheduling"`
	Estimates  estimatesConfigSection  `json:"estimates"`
	Inventory  inventoryConfigSection  `json:"inventory"`
}

type businessConfigSection struct {
	Name            string   `json:"name"`
	PrimaryTrade    string   `json:"primary_trade"`
	SecondaryTrades []string `json:"secondary_trades"`
	Type            string   `json:"type"`
}

type schedulingConfigSection struct {
	DayStart        string `json:"day_start"`
	DayEnd          string `json:"day_end"`
	SlotMinutes     int    `json:"slot_minutes"`
	DefaultDuration int    `json:"default_duration"`
}

type estimatesConfigSection struct {
	TaxRate      float64 `json:"tax_rate"`
	ValidityDays int     `json:"validity_days"`
}

type inventoryConfigSection struct {
	LowStockAlerts bool `json:"low_stock_alerts"`
}

type UpdateBusinessConfigRequest struct {
	Business   businessConfigSection   `json:"business"`
	Scheduling schedulingConfigSection `json:"scheduling"`
	Estimates  estimatesConfigSection  `json:"estimates"`
	Inventory  inventoryConfigSection  `json:"inventory"`
}

type WorkOrderResponse struct {
	ID              string                 `json:"id"`
	BusinessID      string                 `json:"business_id"`
	CustomerID      string                 `json:"customer_id"`
	CustomerName    string                 `json:"customer_name,omitempty"`
	AssigneeID      *string                `json:"assignee_id,omitempty"`
	JobType         string                 `json:"job_type"`
	Description     string                 `json:"description"`
	Status          string                 `json:"status" enum:"pending,confirmed,en_route,in_progress,completed,cancelled"`
	StatusColor     string                 `json:"status_color"`
	Priority        string                 `json:"priority" enum:"low,medium,high,urgent"`
	PriorityColor   string                 `json:"priority_color"`
	ScheduledFor    string                 `json:"scheduled_for" format:"date-time"`
	DurationMinutes int                    `json:"duration_minutes"`
	Address         string                 `json:"address,omitempty"`
	Amount          float64                `json:"amount"`
	Tags            []string               `json:"tags"`
	Checklist       []domain.ChecklistItem `json:"checklist"`
	Trade           string                 `json:"trade"`
	TradeData       *forms.TradeData       `json:"trade_data,omitempty"`
	CreatedAt       string                 `json:"created_at" format:"date-time"`
	UpdatedAt       string                 `json:"updated_at" format:"date-time"`
	CompletedAt     *string                `json:"completed_at,omitempty" format:"date-time"`
}

type CustomerResponse struct {
	ID           string   `json:"id"`
	BusinessID   string   `json:"business_id"`
	Name         string   `json:"name"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Address      string   `json:"address,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	Tags         []string `json:"tags"`
	Notes        string   `json:"notes,omitempty"`
	Revenue      float64  `json:"revenue"`
	JobCount     int      `json:"job_count"`
	LastContact  *string  `json:"last_contact,omitempty" format:"date-time"`
	CreatedAt    string   `json:"created_at" format:"date-time"`
}

type InventoryItemResponse struct {
	ID               string `json:"id"`
	BusinessID       string `json:"business_id"`
	Name             string `json:"name"`
	Category         string `json:"category"`
	SKU              string `json:"sku,omitempty"`
	StockLevel       int    `json:"stock_level"`
	ReorderThreshold int    `json:"reorder_threshold"`
	StockStatus      string `json:"stock_status" enum:"low,warning,good"`
	CostPerUnit      float64 `json:"cost_per_unit"`
	Supplier         string `json:"supplier,omitempty"`
	TradeSpecific    bool   `json:"trade_specific"`
	UpdatedAt        string `json:"updated_at" format:"date-time"`
}

type EstimateResponse struct {
	ID          string                `json:"id"`
	BusinessID  string                `json:"business_id"`
	CustomerID  string                `json:"customer_id"`
	WorkOrderID *string               `json:"work_order_id,omitempty"`
	Status      string                `json:"status" enum:"draft,sent,accepted,declined"`
	Lines       []domain.EstimateLine `json:"lines"`
	Subtotal    float64               `json:"subtotal"`
	TaxRate     float64               `json:"tax_rate"`
	Total       float64               `json:"total"`
	Notes       string                `json:"notes,omitempty"`
	CreatedAt   string                `json:"created_at" format:"date-time"`
	UpdatedAt   string                `json:"updated_at" format:"date-time"`
}

type TeamMemberResponse struct {
	ID         string `json:"id"`
	BusinessID string `json:"business_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role" enum:"owner,technician,dispatcher"`
	CreatedAt  string `json:"created_at" format:"date-time"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	BusinessID string         `json:"business_id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor,omitempty"`
	Payload    map[string]any `json:"payload"`
	CreatedAt  string         `json:"created_at" format:"date-time"`
}

type TradeResponse struct {
	ID                  string                     `json:"id"`
	Name                string                     `json:"name"`
	Icon                string                     `json:"icon"`
	Color               string                     `json:"color"`
	DefaultJobDuration  int                        `json:"default_job_duration"`
	JobTypes            []string                   `json:"job_types"`
	InventoryCategories []string                   `json:"inventory_categories"`
	ChecklistTemplates  []trades.ChecklistTemplate `json:"checklist_templates"`
	QuickLineItems      []trades.QuickLineItem     `json:"quick_line_items"`
}

type WhoAmIResponse struct {
	ActorID    string   `json:"actor_id"`
	BusinessID string   `json:"business_id,omitempty"`
	Roles      []string `json:"roles"`
	Source     string   `json:"source"`
}

type paginatedWorkOrders struct {
	Items      []WorkOrderResponse `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

type paginatedCustomers struct {
	Items      []CustomerResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type paginatedEstimates struct {
	Items      []EstimateResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// Conversion helpers

func businessResponse(b domain.Business) BusinessResponse {
	return BusinessResponse{
		ID:              b.ID,
		Name:            b.Name,
		PrimaryTrade:    b.PrimaryTrade,
		SecondaryTrades: nonNilSlice(b.SecondaryTrades),
		BusinessType:    b.BusinessType,
		SetupComplete:   b.SetupComplete,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func configResponse(cfg *config.Config) BusinessConfigResponse {
	return BusinessConfigResponse{
		Business: businessConfigSection{
			Name:            cfg.Business.Name,
			PrimaryTrade:    cfg.Business.PrimaryTrade,
			SecondaryTrades: nonNilSlice(cfg.Business.SecondaryTrades),
			Type:            cfg.Business.Type,
		},
		Scheduling: schedulingConfigSection{
			DayStart:        cfg.Scheduling.DayStart,
			DayEnd:          cfg.Scheduling.DayEnd,
			SlotMinutes:     cfg.Scheduling.SlotMinutes,
			DefaultDuration: cfg.Scheduling.DefaultDuration,
		},
		Estimates: estimatesConfigSection{
			TaxRate:      cfg.Estimates.TaxRate,
			ValidityDays: cfg.Estimates.ValidityDays,
		},
		Inventory: inventoryConfigSection{
			LowStockAlerts: cfg.Inventory.LowStockAlerts,
		},
	}
}

func configFromRequest(req UpdateBusinessConfigRequest) *config.Config {
	var cfg config.Config
	cfg.Business.Name = req.Business.Name
	cfg.Business.PrimaryTrade = req.Business.PrimaryTrade
	cfg.Business.SecondaryTrades = req.Business.SecondaryTrades
	cfg.Business.Type = req.Business.Type
	cfg.Scheduling.DayStart = req.Scheduling.DayStart
	cfg.Scheduling.DayEnd = req.Scheduling.DayEnd
	cfg.Scheduling.SlotMinutes = req.Scheduling.SlotMinutes
	cfg.Scheduling.DefaultDuration = req.Scheduling.DefaultDuration
	cfg.Estimates.TaxRate = req.Estimates.TaxRate
	cfg.Estimates.ValidityDays = req.Estimates.ValidityDays
	cfg.Inventory.LowStockAlerts = req.Inventory.LowStockAlerts
	return &cfg
}

func workOrderResponse(w domain.WorkOrder) WorkOrderResponse {
	var tradeData *forms.TradeData
	if w.TradeDataJSON != nil && *w.TradeDataJSON != "" {
		if decoded, err := forms.DecodeTradeData(*w.TradeDataJSON); err == nil && !decoded.IsZero() {
			tradeData = &decoded
		}
	}
	return WorkOrderResponse{
		ID:              w.ID,
		BusinessID:      w.BusinessID,
		CustomerID:      w.CustomerID,
		CustomerName:    w.CustomerName,
		AssigneeID:      w.AssigneeID,
		JobType:         w.JobType,
		Description:     w.Description,
		Status:          w.Status,
		StatusColor:     classify.StatusColor(w.Status),
		Priority:        w.Priority,
		PriorityColor:   classify.PriorityColor(w.Priority),
		ScheduledFor:    w.ScheduledFor,
		DurationMinutes: w.DurationMinutes,
		Address:         w.Address,
		Amount:          w.Amount,
		Tags:            nonNilSlice(w.Tags),
		Checklist:       nonNilSlice(w.Checklist),
		Trade:           w.Trade,
		TradeData:       tradeData,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
		CompletedAt:     w.CompletedAt,
	}
}

func customerResponse(c domain.Customer) CustomerResponse {
	return CustomerResponse{
		ID:           c.ID,
		BusinessID:   c.BusinessID,
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		Address:      c.Address,
		PropertyType: c.PropertyType,
		Tags:         nonNilSlice(c.Tags),
		Notes:        c.Notes,
		Revenue:      c.Revenue,
		JobCount:     c.JobCount,
		LastContact:  c.LastContact,
		CreatedAt:    c.CreatedAt,
	}
}

func inventoryItemResponse(it domain.InventoryItem) InventoryItemResponse {
	return InventoryItemResponse{
		ID:               it.ID,
		BusinessID:       it.BusinessID,
		Name:             it.Name,
		Category:         it.Category,
		SKU:              it.SKU,
		StockLevel:       it.StockLevel,
		ReorderThreshold: it.ReorderThreshold,
		StockStatus:      string(classify.StockStatusFor(it.StockLevel, it.ReorderThreshold)),
		CostPerUnit:      it.CostPerUnit,
		Supplier:         it.Supplier,
		TradeSpecific:    it.TradeSpecific,
		UpdatedAt:        it.UpdatedAt,
	}
}

func estimateResponse(e domain.Estimate) EstimateResponse {
	return EstimateResponse{
		ID:          e.ID,
		BusinessID:  e.BusinessID,
		CustomerID:  e.CustomerID,
		WorkOrderID: e.WorkOrderID,
		Status:      e.Status,
		Lines:       nonNilSlice(e.Lines),
		Subtotal:    e.Subtotal,
		TaxRate:     e.TaxRate,
		Total:       e.Total,
		Notes:       e.Notes,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func teamMemberResponse(m domain.TeamMember) TeamMemberResponse {
	return TeamMemberResponse(m)
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		BusinessID: e.BusinessID,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		Actor:      e.Actor,
		Payload:    decodeJSONMap(e.Payload),
		CreatedAt:  e.CreatedAt,
	}
}

func tradeResponse(t trades.TradeConfig) TradeResponse {
	return TradeResponse(t)
}

func mapWorkOrders(items []domain.WorkOrder) []WorkOrderResponse {
	res := make([]WorkOrderResponse, 0, len(items))
	for _, w := range items {
		res = append(res, workOrderResponse(w))
	}
	return res
}

func mapCustomers(items []domain.Customer) []CustomerResponse {
	res := make([]CustomerResponse, 0, len(items))
	for _, c := range items {
		res = append(res, customerResponse(c))
	}
	return res
}

func mapInventory(items []domain.InventoryItem) []InventoryItemResponse {
	res := make([]InventoryItemResponse, 0, len(items))
	for _, it := range items {
		res = append(res, inventoryItemResponse(it))
	}
	return res
}

func mapEstimates(items []domain.Estimate) []EstimateResponse {
	res := make([]EstimateResponse, 0, len(items))
	for _, e := range items {
		res = append(res, estimateResponse(e))
	}
	return res
}

func mapTeamMembers(items []domain.TeamMember) []TeamMemberResponse {
	res := make([]TeamMemberResponse, 0, len(items))
	for _, m := range items {
		res = append(res, teamMemberResponse(m))
	}
	return res
}

// JSON helpers

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var tmp any
	if err := json.Unmarshal([]byte(raw), &tmp); err != nil {
		return nil
	}
	if obj, ok := tmp.(map[string]any); ok {
		return obj
	}
	return nil
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
