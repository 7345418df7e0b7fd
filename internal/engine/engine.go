package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradedesk/internal/classify"
	"tradedesk/internal/config"
	"tradedesk/internal/domain"
	"tradedesk/internal/events"
	"tradedesk/internal/forms"
	"tradedesk/internal/repo"
	"tradedesk/internal/trades"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// SetupBusinessOptions carry the trade setup wizard's output.
type SetupBusinessOptions struct {
	Name            string
	PrimaryTrade    string
	SecondaryTrades []string
	BusinessType    string
	OwnerName       string
	OwnerEmail      string
	ActorID         string
}

// SetupBusiness creates a business from a completed trade setup, seeds its
// default config and registers the owner as the first team member.
func (e Engine) SetupBusiness(ctx context.Context, opts SetupBusinessOptions) (domain.Business, error) {
	if opts.Name == "" {
		return domain.Business{}, errors.New("business name is required")
	}
	if !trades.Known(opts.PrimaryTrade) {
		return domain.Business{}, trades.UnknownTradeError{ID: opts.PrimaryTrade}
	}
	for _, t := range opts.SecondaryTrades {
		if !trades.Known(t) {
			return domain.Business{}, trades.UnknownTradeError{ID: t}
		}
		if t == opts.PrimaryTrade {
			return domain.Business{}, errors.New("secondary trades may not include the primary trade")
		}
	}
	if opts.BusinessType == "" {
		opts.BusinessType = "solo"
	}
	if opts.BusinessType != "solo" && opts.BusinessType != "team" {
		return domain.Business{}, fmt.Errorf("invalid business type %q", opts.BusinessType)
	}
	now := e.nowRFC3339()
	b := domain.Business{
		ID:              uuid.NewString(),
		Name:            opts.Name,
		PrimaryTrade:    opts.PrimaryTrade,
		SecondaryTrades: opts.SecondaryTrades,
		BusinessType:    opts.BusinessType,
		SetupComplete:   true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Business{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertBusiness(ctx, tx, b); err != nil {
		return domain.Business{}, fmt.Errorf("insert business: %w", err)
	}
	cfg := config.Default(b.Name, b.PrimaryTrade)
	cfg.Business.SecondaryTrades = b.SecondaryTrades
	cfg.Business.Type = b.BusinessType
	if err := e.Repo.UpsertBusinessConfigTx(ctx, tx, b.ID, cfg); err != nil {
		return domain.Business{}, fmt.Errorf("insert business config: %w", err)
	}
	if opts.OwnerEmail != "" {
		owner := domain.TeamMember{
			ID:         uuid.NewString(),
			BusinessID: b.ID,
			Name:       opts.OwnerName,
			Email:      opts.OwnerEmail,
			Role:       "owner",
			CreatedAt:  now,
		}
		if owner.Name == "" {
			owner.Name = opts.OwnerEmail
		}
		if err := e.Repo.InsertTeamMember(ctx, tx, owner); err != nil {
			return domain.Business{}, fmt.Errorf("insert owner: %w", err)
		}
	}
	if err := e.Events.Append(ctx, tx, b.ID, "business", b.ID, "business.setup", opts.ActorID, events.EventPayload{
		"primary_trade":    b.PrimaryTrade,
		"secondary_trades": b.SecondaryTrades,
		"business_type":    b.BusinessType,
	}); err != nil {
		return domain.Business{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Business{}, err
	}
	return b, nil
}

// BusinessUpdateOptions carry the fields of a business update; zero values
// leave the stored value unchanged.
type BusinessUpdateOptions struct {
	ID              string
	Name            string
	SecondaryTrades []string
	BusinessType    string
	ActorID         string
}

// UpdateBusiness renames a business or changes its secondary trades and type.
// The primary trade is fixed at setup.
func (e Engine) UpdateBusiness(ctx context.Context, opts BusinessUpdateOptions) (domain.Business, error) {
	b, err := e.Repo.GetBusiness(ctx, opts.ID)
	if err != nil {
		return domain.Business{}, err
	}
	if opts.Name != "" {
		b.Name = opts.Name
	}
	if opts.SecondaryTrades != nil {
		for _, t := range opts.SecondaryTrades {
			if !trades.Known(t) {
				return domain.Business{}, trades.UnknownTradeError{ID: t}
			}
			if t == b.PrimaryTrade {
				return domain.Business{}, errors.New("secondary trades may not include the primary trade")
			}
		}
		b.SecondaryTrades = opts.SecondaryTrades
	}
	if opts.BusinessType != "" {
		if opts.BusinessType != "solo" && opts.BusinessType != "team" {
			return domain.Business{}, fmt.Errorf("invalid business type %q", opts.BusinessType)
		}
		b.BusinessType = opts.BusinessType
	}
	b.UpdatedAt = e.nowRFC3339()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Business{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateBusinessSetup(ctx, tx, b); err != nil {
		return domain.Business{}, err
	}
	if err := e.Events.Append(ctx, tx, b.ID, "business", b.ID, "business.updated", opts.ActorID, events.EventPayload{
		"name":             b.Name,
		"secondary_trades": b.SecondaryTrades,
		"business_type":    b.BusinessType,
	}); err != nil {
		return domain.Business{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Business{}, err
	}
	return b, nil
}

// CustomerCreateOptions are parameters for creating a customer.
type CustomerCreateOptions struct {
	BusinessID   string
	Name         string
	Email        string
	Phone        string
	Address      string
	PropertyType string
	Tags         []string
	Notes        string
	ActorID      string
}

func (e Engine) CreateCustomer(ctx context.Context, opts CustomerCreateOptions) (domain.Customer, error) {
	if opts.Name == "" {
		return domain.Customer{}, errors.New("customer name is required")
	}
	if opts.BusinessID == "" {
		return domain.Customer{}, errors.New("business is required")
	}
	if _, err := e.Repo.GetBusiness(ctx, opts.BusinessID); err != nil {
		return domain.Customer{}, err
	}
	now := e.nowRFC3339()
	c := domain.Customer{
		ID:           uuid.NewString(),
		BusinessID:   opts.BusinessID,
		Name:         opts.Name,
		Email:        opts.Email,
		Phone:        opts.Phone,
		Address:      opts.Address,
		PropertyType: opts.PropertyType,
		Tags:         opts.Tags,
		Notes:        opts.Notes,
		CreatedAt:    now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Customer{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertCustomer(ctx, tx, c); err != nil {
		return domain.Customer{}, err
	}
	if err := e.Events.Append(ctx, tx, c.BusinessID, "customer", c.ID, "customer.created", opts.ActorID, events.EventPayload{"name": c.Name}); err != nil {
		return domain.Customer{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

// WorkOrderCreateOptions are parameters for creating a work order.
type WorkOrderCreateOptions struct {
	BusinessID          string
	CustomerID          string
	AssigneeID          string
	JobType             string
	Description         string
	Priority            string
	ScheduledFor        string
	DurationMinutes     int
	Address             string
	Amount              float64
	Tags                []string
	Trade               string
	TradeValues         map[string]string
	ChecklistTemplateID string
	ActorID             string
}

func (e Engine) CreateWorkOrder(ctx context.Context, opts WorkOrderCreateOptions) (domain.WorkOrder, error) {
	if opts.BusinessID == "" {
		return domain.WorkOrder{}, errors.New("business is required")
	}
	if opts.JobType == "" {
		return domain.WorkOrder{}, forms.ValidationError{Field: "job_type"}
	}
	if opts.Description == "" {
		return domain.WorkOrder{}, forms.ValidationError{Field: "description"}
	}
	b, err := e.Repo.GetBusiness(ctx, opts.BusinessID)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	c, err := e.Repo.GetCustomer(ctx, opts.CustomerID)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	if c.BusinessID != opts.BusinessID {
		return domain.WorkOrder{}, fmt.Errorf("customer %s not in business %s", opts.CustomerID, opts.BusinessID)
	}
	if opts.AssigneeID != "" {
		m, err := e.Repo.GetTeamMember(ctx, opts.AssigneeID)
		if err != nil {
			return domain.WorkOrder{}, err
		}
		if m.BusinessID != opts.BusinessID {
			return domain.WorkOrder{}, fmt.Errorf("assignee %s not in business %s", opts.AssigneeID, opts.BusinessID)
		}
	}
	tradeID := opts.Trade
	if tradeID == "" {
		tradeID = b.PrimaryTrade
	}
	tradeCfg, err := trades.Lookup(tradeID)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(opts.Priority) {
		return domain.WorkOrder{}, fmt.Errorf("invalid priority %q", opts.Priority)
	}
	duration := opts.DurationMinutes
	if duration <= 0 {
		duration = tradeCfg.DefaultJobDuration
	}
	if opts.ScheduledFor == "" {
		return domain.WorkOrder{}, forms.ValidationError{Field: "scheduled_for"}
	}
	if _, err := time.Parse(time.RFC3339, opts.ScheduledFor); err != nil {
		return domain.WorkOrder{}, fmt.Errorf("invalid scheduled_for: %w", err)
	}
	now := e.nowRFC3339()
	w := domain.WorkOrder{
		ID:              uuid.NewString(),
		BusinessID:      opts.BusinessID,
		CustomerID:      opts.CustomerID,
		CustomerName:    c.Name,
		AssigneeID:      optionalString(opts.AssigneeID),
		JobType:         opts.JobType,
		Description:     opts.Description,
		Status:          domain.StatusPending,
		Priority:        opts.Priority,
		ScheduledFor:    opts.ScheduledFor,
		DurationMinutes: duration,
		Address:         opts.Address,
		Amount:          opts.Amount,
		Tags:            opts.Tags,
		Trade:           tradeCfg.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if tpl, ok := trades.TemplateFor(tradeCfg.ID, opts.ChecklistTemplateID); ok {
		for i, item := range tpl.Items {
			w.Checklist = append(w.Checklist, domain.ChecklistItem{
				ID:   fmt.Sprintf("%s-%d", tpl.ID, i+1),
				Text: item,
			})
		}
	} else if opts.ChecklistTemplateID != "" {
		return domain.WorkOrder{}, fmt.Errorf("checklist template %q not found for trade %s", opts.ChecklistTemplateID, tradeCfg.ID)
	}
	if data := forms.FoldTradeData(tradeCfg.ID, opts.TradeValues); !data.IsZero() {
		encoded, err := forms.EncodeTradeData(data)
		if err != nil {
			return domain.WorkOrder{}, err
		}
		w.TradeDataJSON = &encoded
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertWorkOrder(ctx, tx, w); err != nil {
		return domain.WorkOrder{}, err
	}
	if err := e.Events.Append(ctx, tx, w.BusinessID, "work_order", w.ID, "work_order.created", opts.ActorID, events.EventPayload{
		"job_type": w.JobType,
		"status":   w.Status,
		"trade":    w.Trade,
	}); err != nil {
		return domain.WorkOrder{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkOrder{}, err
	}
	return w, nil
}

func ensureStatusTransition(oldStatus, newStatus string) error {
	if newStatus == domain.StatusCancelled {
		if oldStatus == domain.StatusCompleted || oldStatus == domain.StatusCancelled {
			return fmt.Errorf("invalid status transition %s -> %s", oldStatus, newStatus)
		}
		return nil
	}
	switch oldStatus {
	case domain.StatusPending:
		if newStatus == domain.StatusConfirmed {
			return nil
		}
	case domain.StatusConfirmed:
		if newStatus == domain.StatusEnRoute {
			return nil
		}
	case domain.StatusEnRoute:
		if newStatus == domain.StatusInProgress {
			return nil
		}
	case domain.StatusInProgress:
		if newStatus == domain.StatusCompleted {
			return nil
		}
	}
	return fmt.Errorf("invalid status transition %s -> %s", oldStatus, newStatus)
}

// UpdateWorkOrderStatus advances a work order along its lifecycle. Completing
// an order stamps its completion time and rolls its amount into the
// customer's stats.
func (e Engine) UpdateWorkOrderStatus(ctx context.Context, id, newStatus, actorID string) (domain.WorkOrder, error) {
	if !domain.ValidStatus(newStatus) {
		return domain.WorkOrder{}, fmt.Errorf("invalid status %q", newStatus)
	}
	w, err := e.Repo.GetWorkOrder(ctx, id)
	if err != nil {
		return w, err
	}
	if err := ensureStatusTransition(w.Status, newStatus); err != nil {
		return w, err
	}
	oldStatus := w.Status
	now := e.nowRFC3339()
	w.Status = newStatus
	w.UpdatedAt = now
	if newStatus == domain.StatusCompleted {
		w.CompletedAt = &now
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return w, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateWorkOrder(ctx, tx, w); err != nil {
		return w, err
	}
	if newStatus == domain.StatusCompleted {
		if err := e.Repo.BumpCustomerStats(ctx, tx, w.CustomerID, w.Amount, 1, now); err != nil {
			return w, err
		}
	}
	if err := e.Events.Append(ctx, tx, w.BusinessID, "work_order", w.ID, "work_order.status", actorID, events.EventPayload{
		"from_status": oldStatus,
		"to_status":   newStatus,
	}); err != nil {
		return w, err
	}
	if err := tx.Commit(); err != nil {
		return w, err
	}
	return w, nil
}

// AssignWorkOrder sets or clears the assignee.
func (e Engine) AssignWorkOrder(ctx context.Context, id, assigneeID, actorID string) (domain.WorkOrder, error) {
	w, err := e.Repo.GetWorkOrder(ctx, id)
	if err != nil {
		return w, err
	}
	if assigneeID != "" {
		m, err := e.Repo.GetTeamMember(ctx, assigneeID)
		if err != nil {
			return w, err
		}
		if m.BusinessID != w.BusinessID {
			return w, fmt.Errorf("assignee %s not in business %s", assigneeID, w.BusinessID)
		}
	}
	w.AssigneeID = optionalString(assigneeID)
	w.UpdatedAt = e.nowRFC3339()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return w, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateWorkOrder(ctx, tx, w); err != nil {
		return w, err
	}
	if err := e.Events.Append(ctx, tx, w.BusinessID, "work_order", w.ID, "work_order.assigned", actorID, events.EventPayload{"assignee_id": assigneeID}); err != nil {
		return w, err
	}
	if err := tx.Commit(); err != nil {
		return w, err
	}
	return w, nil
}

// ToggleChecklistItem flips one checklist item's completed flag.
func (e Engine) ToggleChecklistItem(ctx context.Context, workOrderID, itemID, actorID string) (domain.WorkOrder, error) {
	w, err := e.Repo.GetWorkOrder(ctx, workOrderID)
	if err != nil {
		return w, err
	}
	found := false
	for i := range w.Checklist {
		if w.Checklist[i].ID == itemID {
			w.Checklist[i].Completed = !w.Checklist[i].Completed
			found = true
			break
		}
	}
	if !found {
		return w, fmt.Errorf("checklist item %s: %w", itemID, repo.ErrNotFound)
	}
	w.UpdatedAt = e.nowRFC3339()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return w, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateWorkOrder(ctx, tx, w); err != nil {
		return w, err
	}
	if err := e.Events.Append(ctx, tx, w.BusinessID, "work_order", w.ID, "work_order.checklist", actorID, events.EventPayload{"item_id": itemID}); err != nil {
		return w, err
	}
	if err := tx.Commit(); err != nil {
		return w, err
	}
	return w, nil
}

// InventoryCreateOptions are parameters for adding an inventory item.
type InventoryCreateOptions struct {
	BusinessID       string
	Name             string
	Category         string
	SKU              string
	StockLevel       int
	ReorderThreshold int
	CostPerUnit      float64
	Supplier         string
	TradeSpecific    bool
	ActorID          string
}

func (e Engine) CreateInventoryItem(ctx context.Context, opts InventoryCreateOptions) (domain.InventoryItem, error) {
	if opts.Name == "" {
		return domain.InventoryItem{}, errors.New("item name is required")
	}
	if opts.Category == "" {
		return domain.InventoryItem{}, errors.New("category is required")
	}
	if opts.StockLevel < 0 || opts.ReorderThreshold < 0 {
		return domain.InventoryItem{}, errors.New("stock level and reorder threshold must be non-negative")
	}
	if _, err := e.Repo.GetBusiness(ctx, opts.BusinessID); err != nil {
		return domain.InventoryItem{}, err
	}
	now := e.nowRFC3339()
	it := domain.InventoryItem{
		ID:               uuid.NewString(),
		BusinessID:       opts.BusinessID,
		Name:             opts.Name,
		Category:         opts.Category,
		SKU:              opts.SKU,
		StockLevel:       opts.StockLevel,
		ReorderThreshold: opts.ReorderThreshold,
		CostPerUnit:      opts.CostPerUnit,
		Supplier:         opts.Supplier,
		TradeSpecific:    opts.TradeSpecific,
		UpdatedAt:        now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertInventoryItem(ctx, tx, it); err != nil {
		return domain.InventoryItem{}, err
	}
	if err := e.Events.Append(ctx, tx, it.BusinessID, "inventory_item", it.ID, "inventory.created", opts.ActorID, events.EventPayload{"name": it.Name, "stock_level": it.StockLevel}); err != nil {
		return domain.InventoryItem{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.InventoryItem{}, err
	}
	return it, nil
}

// AdjustStock applies a signed delta to an item's stock level, flooring at
// zero. Dropping into the low band records a low-stock event when alerts are
// enabled.
func (e Engine) AdjustStock(ctx context.Context, id string, delta int, actorID string) (domain.InventoryItem, error) {
	it, err := e.Repo.GetInventoryItem(ctx, id)
	if err != nil {
		return it, err
	}
	oldLevel := it.StockLevel
	newLevel := oldLevel + delta
	if newLevel < 0 {
		newLevel = 0
	}
	now := e.nowRFC3339()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return it, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateInventoryStock(ctx, tx, id, newLevel, now); err != nil {
		return it, err
	}
	if err := e.Events.Append(ctx, tx, it.BusinessID, "inventory_item", it.ID, "inventory.adjusted", actorID, events.EventPayload{
		"old_level": oldLevel,
		"new_level": newLevel,
		"delta":     delta,
	}); err != nil {
		return it, err
	}
	alerts := e.Config == nil || e.Config.Inventory.LowStockAlerts
	wasLow := classify.StockStatusFor(oldLevel, it.ReorderThreshold) == classify.StockLow
	isLow := classify.StockStatusFor(newLevel, it.ReorderThreshold) == classify.StockLow
	if alerts && isLow && !wasLow {
		if err := e.Events.Append(ctx, tx, it.BusinessID, "inventory_item", it.ID, "inventory.low_stock", actorID, events.EventPayload{
			"stock_level":       newLevel,
			"reorder_threshold": it.ReorderThreshold,
		}); err != nil {
			return it, err
		}
	}
	if err := tx.Commit(); err != nil {
		return it, err
	}
	it.StockLevel = newLevel
	it.UpdatedAt = now
	return it, nil
}

// EstimateLineInput is one requested line; quick line item IDs fill in
// description and pricing from the trade registry.
type EstimateLineInput struct {
	QuickItemID string
	Description string
	Quantity    int
	UnitPrice   float64
	Unit        string
}

// EstimateCreateOptions are parameters for creating an estimate.
type EstimateCreateOptions struct {
	BusinessID  string
	CustomerID  string
	WorkOrderID string
	Trade       string
	Lines       []EstimateLineInput
	Notes       string
	ActorID     string
}

func (e Engine) CreateEstimate(ctx context.Context, opts EstimateCreateOptions) (domain.Estimate, error) {
	if opts.BusinessID == "" {
		return domain.Estimate{}, errors.New("business is required")
	}
	if len(opts.Lines) == 0 {
		return domain.Estimate{}, errors.New("at least one line is required")
	}
	b, err := e.Repo.GetBusiness(ctx, opts.BusinessID)
	if err != nil {
		return domain.Estimate{}, err
	}
	c, err := e.Repo.GetCustomer(ctx, opts.CustomerID)
	if err != nil {
		return domain.Estimate{}, err
	}
	if c.BusinessID != opts.BusinessID {
		return domain.Estimate{}, fmt.Errorf("customer %s not in business %s", opts.CustomerID, opts.BusinessID)
	}
	if opts.WorkOrderID != "" {
		w, err := e.Repo.GetWorkOrder(ctx, opts.WorkOrderID)
		if err != nil {
			return domain.Estimate{}, err
		}
		if w.BusinessID != opts.BusinessID {
			return domain.Estimate{}, fmt.Errorf("work order %s not in business %s", opts.WorkOrderID, opts.BusinessID)
		}
	}
	tradeID := opts.Trade
	if tradeID == "" {
		tradeID = b.PrimaryTrade
	}
	tradeCfg, err := trades.Lookup(tradeID)
	if err != nil {
		return domain.Estimate{}, err
	}
	quick := map[string]trades.QuickLineItem{}
	for _, q := range tradeCfg.QuickLineItems {
		quick[q.ID] = q
	}
	var lines []domain.EstimateLine
	var subtotal float64
	for i, in := range opts.Lines {
		line := domain.EstimateLine{
			ID:          fmt.Sprintf("line-%d", i+1),
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Unit:        in.Unit,
		}
		if in.QuickItemID != "" {
			q, ok := quick[in.QuickItemID]
			if !ok {
				return domain.Estimate{}, fmt.Errorf("quick line item %q not found for trade %s", in.QuickItemID, tradeCfg.ID)
			}
			line.Description = q.Description
			line.UnitPrice = q.UnitPrice
			line.Unit = q.Unit
		}
		if line.Description == "" {
			return domain.Estimate{}, fmt.Errorf("line %d missing description", i+1)
		}
		if line.Quantity <= 0 {
			line.Quantity = 1
		}
		subtotal += float64(line.Quantity) * line.UnitPrice
		lines = append(lines, line)
	}
	taxRate := 0.0
	if e.Config != nil {
		taxRate = e.Config.Estimates.TaxRate
	}
	now := e.nowRFC3339()
	est := domain.Estimate{
		ID:          uuid.NewString(),
		BusinessID:  opts.BusinessID,
		CustomerID:  opts.CustomerID,
		WorkOrderID: optionalString(opts.WorkOrderID),
		Status:      "draft",
		Lines:       lines,
		Subtotal:    subtotal,
		TaxRate:     taxRate,
		Total:       subtotal * (1 + taxRate),
		Notes:       opts.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Estimate{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertEstimate(ctx, tx, est); err != nil {
		return domain.Estimate{}, err
	}
	if err := e.Events.Append(ctx, tx, est.BusinessID, "estimate", est.ID, "estimate.created", opts.ActorID, events.EventPayload{"total": est.Total}); err != nil {
		return domain.Estimate{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Estimate{}, err
	}
	return est, nil
}

func ensureEstimateTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case "draft":
		if newStatus == "sent" {
			return nil
		}
	case "sent":
		if newStatus == "accepted" || newStatus == "declined" {
			return nil
		}
	}
	return fmt.Errorf("invalid estimate status transition %s -> %s", oldStatus, newStatus)
}

func (e Engine) UpdateEstimateStatus(ctx context.Context, id, newStatus, actorID string) (domain.Estimate, error) {
	est, err := e.Repo.GetEstimate(ctx, id)
	if err != nil {
		return est, err
	}
	if err := ensureEstimateTransition(est.Status, newStatus); err != nil {
		return est, err
	}
	oldStatus := est.Status
	now := e.nowRFC3339()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return est, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateEstimateStatus(ctx, tx, id, newStatus, now); err != nil {
		return est, err
	}
	if err := e.Events.Append(ctx, tx, est.BusinessID, "estimate", est.ID, "estimate.status", actorID, events.EventPayload{
		"from_status": oldStatus,
		"to_status":   newStatus,
	}); err != nil {
		return est, err
	}
	if err := tx.Commit(); err != nil {
		return est, err
	}
	est.Status = newStatus
	est.UpdatedAt = now
	return est, nil
}

// TeamMemberCreateOptions are parameters for adding a team member.
type TeamMemberCreateOptions struct {
	BusinessID string
	Name       string
	Email      string
	Role       string
	ActorID    string
}

func (e Engine) AddTeamMember(ctx context.Context, opts TeamMemberCreateOptions) (domain.TeamMember, error) {
	if opts.Name == "" || opts.Email == "" {
		return domain.TeamMember{}, errors.New("name and email are required")
	}
	if opts.Role == "" {
		opts.Role = "technician"
	}
	if opts.Role != "owner" && opts.Role != "technician" && opts.Role != "dispatcher" {
		return domain.TeamMember{}, fmt.Errorf("invalid role %q", opts.Role)
	}
	b, err := e.Repo.GetBusiness(ctx, opts.BusinessID)
	if err != nil {
		return domain.TeamMember{}, err
	}
	if b.BusinessType == "solo" && opts.Role != "owner" {
		return domain.TeamMember{}, errors.New("solo businesses cannot add team members")
	}
	now := e.nowRFC3339()
	m := domain.TeamMember{
		ID:         uuid.NewString(),
		BusinessID: opts.BusinessID,
		Name:       opts.Name,
		Email:      opts.Email,
		Role:       opts.Role,
		CreatedAt:  now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TeamMember{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTeamMember(ctx, tx, m); err != nil {
		return domain.TeamMember{}, err
	}
	if err := e.Events.Append(ctx, tx, m.BusinessID, "team_member", m.ID, "team_member.added", opts.ActorID, events.EventPayload{"role": m.Role}); err != nil {
		return domain.TeamMember{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.TeamMember{}, err
	}
	return m, nil
}

// DaySchedule returns a business's work orders for the calendar day
// containing date, earliest first.
func (e Engine) DaySchedule(ctx context.Context, businessID string, date time.Time) ([]domain.WorkOrder, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	from := day.Format(time.RFC3339)
	to := day.Add(24 * time.Hour).Format(time.RFC3339)
	return e.Repo.ListScheduledWorkOrders(ctx, businessID, from, to)
}

// DashboardSummary aggregates the overview tab's counters.
type DashboardSummary struct {
	WorkOrdersByStatus map[string]int `json:"work_orders_by_status"`
	LowStockItems      int            `json:"low_stock_items"`
	OpenEstimates      int            `json:"open_estimates"`
	TodayJobs          int            `json:"today_jobs"`
}

func (e Engine) Summary(ctx context.Context, businessID string) (DashboardSummary, error) {
	var s DashboardSummary
	counts, err := e.Repo.CountWorkOrdersByStatus(ctx, businessID)
	if err != nil {
		return s, err
	}
	s.WorkOrdersByStatus = counts
	items, err := e.Repo.ListInventory(ctx, repo.InventoryFilters{BusinessID: businessID})
	if err != nil {
		return s, err
	}
	for _, it := range items {
		if classify.StockStatusFor(it.StockLevel, it.ReorderThreshold) == classify.StockLow {
			s.LowStockItems++
		}
	}
	drafts, err := e.Repo.ListEstimates(ctx, repo.EstimateFilters{BusinessID: businessID, Status: "draft"})
	if err != nil {
		return s, err
	}
	sent, err := e.Repo.ListEstimates(ctx, repo.EstimateFilters{BusinessID: businessID, Status: "sent"})
	if err != nil {
		return s, err
	}
	s.OpenEstimates = len(drafts) + len(sent)
	today, err := e.DaySchedule(ctx, businessID, e.now())
	if err != nil {
		return s, err
	}
	s.TodayJobs = len(today)
	return s, nil
}
