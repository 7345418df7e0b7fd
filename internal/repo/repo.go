package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tradedesk/internal/config"
	"tradedesk/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func encodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func (r Repo) InsertBusiness(ctx context.Context, tx *sql.Tx, b domain.Business) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO businesses(id,name,primary_trade,secondary_trades,business_type,setup_complete,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		b.ID, b.Name, b.PrimaryTrade, encodeJSON(b.SecondaryTrades), b.BusinessType, b.SetupComplete, b.CreatedAt, b.UpdatedAt)
	return err
}

func scanBusiness(row *sql.Row) (domain.Business, error) {
	var b domain.Business
	var secondaries string
	err := row.Scan(&b.ID, &b.Name, &b.PrimaryTrade, &secondaries, &b.BusinessType, &b.SetupComplete, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return b, ErrNotFound
	}
	if err != nil {
		return b, err
	}
	b.SecondaryTrades = decodeStrings(secondaries)
	return b, nil
}

func (r Repo) GetBusiness(ctx context.Context, id string) (domain.Business, error) {
	return scanBusiness(r.DB.QueryRowContext(ctx, `SELECT id,name,primary_trade,secondary_trades,business_type,setup_complete,created_at,updated_at FROM businesses WHERE id=?`, id))
}

func (r Repo) SingleBusiness(ctx context.Context) (domain.Business, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,primary_trade,secondary_trades,business_type,setup_complete,created_at,updated_at FROM businesses`)
	if err != nil {
		return domain.Business{}, err
	}
	defer rows.Close()
	var businesses []domain.Business
	for rows.Next() {
		var b domain.Business
		var secondaries string
		if err := rows.Scan(&b.ID, &b.Name, &b.PrimaryTrade, &secondaries, &b.BusinessType, &b.SetupComplete, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return domain.Business{}, err
		}
		b.SecondaryTrades = decodeStrings(secondaries)
		businesses = append(businesses, b)
	}
	if len(businesses) == 0 {
		return domain.Business{}, ErrNotFound
	}
	if len(businesses) > 1 {
		return domain.Business{}, fmt.Errorf("multiple businesses exist; specify --business")
	}
	return businesses[0], nil
}

func (r Repo) ListBusinesses(ctx context.Context) ([]domain.Business, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,primary_trade,secondary_trades,business_type,setup_complete,created_at,updated_at FROM businesses ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Business
	for rows.Next() {
		var b domain.Business
		var secondaries string
		if err := rows.Scan(&b.ID, &b.Name, &b.PrimaryTrade, &secondaries, &b.BusinessType, &b.SetupComplete, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.SecondaryTrades = decodeStrings(secondaries)
		res = append(res, b)
	}
	return res, nil
}

func (r Repo) UpdateBusinessSetup(ctx context.Context, tx *sql.Tx, b domain.Business) error {
	res, err := tx.ExecContext(ctx, `UPDATE businesses SET name=?, primary_trade=?, secondary_trades=?, business_type=?, setup_complete=?, updated_at=? WHERE id=?`,
		b.Name, b.PrimaryTrade, encodeJSON(b.SecondaryTrades), b.BusinessType, b.SetupComplete, b.UpdatedAt, b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) UpsertBusinessConfig(ctx context.Context, businessID string, cfg *config.Config) error {
	return upsertBusinessConfig(ctx, r.DB, nil, businessID, cfg)
}

func (r Repo) UpsertBusinessConfigTx(ctx context.Context, tx *sql.Tx, businessID string, cfg *config.Config) error {
	return upsertBusinessConfig(ctx, nil, tx, businessID, cfg)
}

func upsertBusinessConfig(ctx context.Context, db *sql.DB, tx *sql.Tx, businessID string, cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	payload, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	now := nowRFC3339()
	exec := func(query string, args ...any) (sql.Result, error) {
		if tx != nil {
			return tx.ExecContext(ctx, query, args...)
		}
		return db.ExecContext(ctx, query, args...)
	}
	_, err = exec(`INSERT INTO business_configs(business_id,yaml,updated_at) VALUES (?,?,?)
ON CONFLICT(business_id) DO UPDATE SET yaml=excluded.yaml, updated_at=excluded.updated_at`, businessID, string(payload), now)
	return err
}

func (r Repo) GetBusinessConfig(ctx context.Context, businessID string) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT yaml FROM business_configs WHERE business_id=?`, businessID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return config.FromYAML([]byte(payload))
}

func (r Repo) InsertCustomer(ctx context.Context, tx *sql.Tx, c domain.Customer) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO customers(id,business_id,name,email,phone,address,property_type,tags,notes,revenue,job_count,last_contact,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.BusinessID, c.Name, nullable(c.Email), nullable(c.Phone), nullable(c.Address), nullable(c.PropertyType),
		encodeJSON(c.Tags), nullable(c.Notes), c.Revenue, c.JobCount, nullableStringPtr(c.LastContact), c.CreatedAt)
	return err
}

func scanCustomerRow(scan func(dest ...any) error) (domain.Customer, error) {
	var c domain.Customer
	var email, phone, address, propertyType, notes, lastContact sql.NullString
	var tags string
	err := scan(&c.ID, &c.BusinessID, &c.Name, &email, &phone, &address, &propertyType, &tags, &notes, &c.Revenue, &c.JobCount, &lastContact, &c.CreatedAt)
	if err != nil {
		return c, err
	}
	c.Email = email.String
	c.Phone = phone.String
	c.Address = address.String
	c.PropertyType = propertyType.String
	c.Notes = notes.String
	c.Tags = decodeStrings(tags)
	if lastContact.Valid {
		c.LastContact = &lastContact.String
	}
	return c, nil
}

const customerCols = `id,business_id,name,email,phone,address,property_type,tags,notes,revenue,job_count,last_contact,created_at`

func (r Repo) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+customerCols+` FROM customers WHERE id=?`, id)
	c, err := scanCustomerRow(row.Scan)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) GetCustomerTx(ctx context.Context, tx *sql.Tx, id string) (domain.Customer, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+customerCols+` FROM customers WHERE id=?`, id)
	c, err := scanCustomerRow(row.Scan)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

type CustomerFilters struct {
	BusinessID      string
	PropertyType    string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListCustomers(ctx context.Context, f CustomerFilters) ([]domain.Customer, error) {
	var clauses []string
	var args []any
	if f.BusinessID != "" {
		clauses = append(clauses, "business_id=?")
		args = append(args, f.BusinessID)
	}
	if f.PropertyType != "" {
		clauses = append(clauses, "property_type=?")
		args = append(args, f.PropertyType)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + customerCols + ` FROM customers ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Customer
	for rows.Next() {
		c, err := scanCustomerRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

// BumpCustomerStats adjusts the denormalized revenue/job counters after a
// completed work order.
func (r Repo) BumpCustomerStats(ctx context.Context, tx *sql.Tx, customerID string, revenueDelta float64, jobDelta int, lastContact string) error {
	_, err := tx.ExecContext(ctx, `UPDATE customers SET revenue=revenue+?, job_count=job_count+?, last_contact=? WHERE id=?`,
		revenueDelta, jobDelta, lastContact, customerID)
	return err
}

const workOrderCols = `w.id,w.business_id,w.customer_id,c.name,w.assignee_id,w.job_type,w.description,w.status,w.priority,w.scheduled_for,w.duration_minutes,w.address,w.amount,w.tags,w.checklist,w.trade,w.trade_data,w.created_at,w.updated_at,w.completed_at`

func (r Repo) InsertWorkOrder(ctx context.Context, tx *sql.Tx, w domain.WorkOrder) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO work_orders(id,business_id,customer_id,assignee_id,job_type,description,status,priority,scheduled_for,duration_minutes,address,amount,tags,checklist,trade,trade_data,created_at,updated_at,completed_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		w.ID, w.BusinessID, w.CustomerID, nullableStringPtr(w.AssigneeID), w.JobType, w.Description, w.Status, w.Priority,
		w.ScheduledFor, w.DurationMinutes, nullable(w.Address), w.Amount, encodeJSON(w.Tags), encodeJSON(w.Checklist),
		w.Trade, nullableStringPtr(w.TradeDataJSON), w.CreatedAt, w.UpdatedAt, nullableStringPtr(w.CompletedAt))
	return err
}

func (r Repo) UpdateWorkOrder(ctx context.Context, tx *sql.Tx, w domain.WorkOrder) error {
	_, err := tx.ExecContext(ctx, `UPDATE work_orders SET assignee_id=?, job_type=?, description=?, status=?, priority=?, scheduled_for=?, duration_minutes=?, address=?, amount=?, tags=?, checklist=?, trade=?, trade_data=?, updated_at=?, completed_at=? WHERE id=?`,
		nullableStringPtr(w.AssigneeID), w.JobType, w.Description, w.Status, w.Priority, w.ScheduledFor, w.DurationMinutes,
		nullable(w.Address), w.Amount, encodeJSON(w.Tags), encodeJSON(w.Checklist), w.Trade, nullableStringPtr(w.TradeDataJSON),
		w.UpdatedAt, nullableStringPtr(w.CompletedAt), w.ID)
	return err
}

func scanWorkOrderRow(scan func(dest ...any) error) (domain.WorkOrder, error) {
	var w domain.WorkOrder
	var customerName, assigneeID, address, tradeData, completedAt sql.NullString
	var tags, checklist string
	err := scan(&w.ID, &w.BusinessID, &w.CustomerID, &customerName, &assigneeID, &w.JobType, &w.Description, &w.Status, &w.Priority,
		&w.ScheduledFor, &w.DurationMinutes, &address, &w.Amount, &tags, &checklist, &w.Trade, &tradeData, &w.CreatedAt, &w.UpdatedAt, &completedAt)
	if err != nil {
		return w, err
	}
	w.CustomerName = customerName.String
	w.Address = address.String
	if assigneeID.Valid {
		w.AssigneeID = &assigneeID.String
	}
	if tradeData.Valid {
		w.TradeDataJSON = &tradeData.String
	}
	if completedAt.Valid {
		w.CompletedAt = &completedAt.String
	}
	w.Tags = decodeStrings(tags)
	if checklist != "" {
		_ = json.Unmarshal([]byte(checklist), &w.Checklist)
	}
	return w, nil
}

func (r Repo) GetWorkOrder(ctx context.Context, id string) (domain.WorkOrder, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+workOrderCols+` FROM work_orders w JOIN customers c ON c.id=w.customer_id WHERE w.id=?`, id)
	w, err := scanWorkOrderRow(row.Scan)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	return w, err
}

func (r Repo) GetWorkOrderTx(ctx context.Context, tx *sql.Tx, id string) (domain.WorkOrder, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+workOrderCols+` FROM work_orders w JOIN customers c ON c.id=w.customer_id WHERE w.id=?`, id)
	w, err := scanWorkOrderRow(row.Scan)
	if err == sql.ErrNoRows {
		return w, ErrNotFound
	}
	return w, err
}

type WorkOrderFilters struct {
	BusinessID      string
	CustomerID      string
	AssigneeID      string
	Status          string
	Priority        string
	Trade           string
	ScheduledFrom   string
	ScheduledTo     string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListWorkOrders(ctx context.Context, f WorkOrderFilters) ([]domain.WorkOrder, error) {
	var clauses []string
	var args []any
	if f.BusinessID != "" {
		clauses = append(clauses, "w.business_id=?")
		args = append(args, f.BusinessID)
	}
	if f.CustomerID != "" {
		clauses = append(clauses, "w.customer_id=?")
		args = append(args, f.CustomerID)
	}
	if f.AssigneeID != "" {
		clauses = append(clauses, "w.assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	if f.Status != "" {
		clauses = append(clauses, "w.status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		clauses = append(clauses, "w.priority=?")
		args = append(args, f.Priority)
	}
	if f.Trade != "" {
		clauses = append(clauses, "w.trade=?")
		args = append(args, f.Trade)
	}
	if f.ScheduledFrom != "" {
		clauses = append(clauses, "w.scheduled_for>=?")
		args = append(args, f.ScheduledFrom)
	}
	if f.ScheduledTo != "" {
		clauses = append(clauses, "w.scheduled_for<?")
		args = append(args, f.ScheduledTo)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(w.created_at < ? OR (w.created_at = ? AND w.id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + workOrderCols + ` FROM work_orders w JOIN customers c ON c.id=w.customer_id ` + where + ` ORDER BY w.created_at DESC, w.id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkOrder
	for rows.Next() {
		w, err := scanWorkOrderRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, nil
}

// ListScheduledWorkOrders returns a day's work orders in visit order.
func (r Repo) ListScheduledWorkOrders(ctx context.Context, businessID, from, to string) ([]domain.WorkOrder, error) {
	query := `SELECT ` + workOrderCols + ` FROM work_orders w JOIN customers c ON c.id=w.customer_id
WHERE w.business_id=? AND w.scheduled_for>=? AND w.scheduled_for<? AND w.status NOT IN ('cancelled')
ORDER BY w.scheduled_for ASC, w.id ASC`
	rows, err := r.DB.QueryContext(ctx, query, businessID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkOrder
	for rows.Next() {
		w, err := scanWorkOrderRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, w)
	}
	return res, nil
}

func (r Repo) CountWorkOrdersByStatus(ctx context.Context, businessID string) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM work_orders WHERE business_id=? GROUP BY status`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, nil
}

func (r Repo) InsertInventoryItem(ctx context.Context, tx *sql.Tx, it domain.InventoryItem) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO inventory_items(id,business_id,name,category,sku,stock_level,reorder_threshold,cost_per_unit,supplier,trade_specific,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		it.ID, it.BusinessID, it.Name, it.Category, nullable(it.SKU), it.StockLevel, it.ReorderThreshold, it.CostPerUnit,
		nullable(it.Supplier), it.TradeSpecific, it.UpdatedAt)
	return err
}

func scanInventoryRow(scan func(dest ...any) error) (domain.InventoryItem, error) {
	var it domain.InventoryItem
	var skuV, supplier sql.NullString
	err := scan(&it.ID, &it.BusinessID, &it.Name, &it.Category, &skuV, &it.StockLevel, &it.ReorderThreshold, &it.CostPerUnit, &supplier, &it.TradeSpecific, &it.UpdatedAt)
	if err != nil {
		return it, err
	}
	it.SKU = skuV.String
	it.Supplier = supplier.String
	return it, nil
}

const inventoryCols = `id,business_id,name,category,sku,stock_level,reorder_threshold,cost_per_unit,supplier,trade_specific,updated_at`

func (r Repo) GetInventoryItem(ctx context.Context, id string) (domain.InventoryItem, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+inventoryCols+` FROM inventory_items WHERE id=?`, id)
	it, err := scanInventoryRow(row.Scan)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	return it, err
}

func (r Repo) GetInventoryItemTx(ctx context.Context, tx *sql.Tx, id string) (domain.InventoryItem, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+inventoryCols+` FROM inventory_items WHERE id=?`, id)
	it, err := scanInventoryRow(row.Scan)
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	return it, err
}

type InventoryFilters struct {
	BusinessID    string
	Category      string
	TradeSpecific *bool
	Limit         int
}

func (r Repo) ListInventory(ctx context.Context, f InventoryFilters) ([]domain.InventoryItem, error) {
	var clauses []string
	var args []any
	if f.BusinessID != "" {
		clauses = append(clauses, "business_id=?")
		args = append(args, f.BusinessID)
	}
	if f.Category != "" {
		clauses = append(clauses, "category=?")
		args = append(args, f.Category)
	}
	if f.TradeSpecific != nil {
		clauses = append(clauses, "trade_specific=?")
		args = append(args, *f.TradeSpecific)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + inventoryCols + ` FROM inventory_items ` + where + ` ORDER BY category ASC, name ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.InventoryItem
	for rows.Next() {
		it, err := scanInventoryRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, nil
}

func (r Repo) UpdateInventoryStock(ctx context.Context, tx *sql.Tx, id string, stockLevel int, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE inventory_items SET stock_level=?, updated_at=? WHERE id=?`, stockLevel, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertEstimate(ctx context.Context, tx *sql.Tx, e domain.Estimate) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO estimates(id,business_id,customer_id,work_order_id,status,lines,subtotal,tax_rate,total,notes,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.BusinessID, e.CustomerID, nullableStringPtr(e.WorkOrderID), e.Status, encodeJSON(e.Lines),
		e.Subtotal, e.TaxRate, e.Total, nullable(e.Notes), e.CreatedAt, e.UpdatedAt)
	return err
}

func scanEstimateRow(scan func(dest ...any) error) (domain.Estimate, error) {
	var e domain.Estimate
	var workOrderID, notes sql.NullString
	var lines string
	err := scan(&e.ID, &e.BusinessID, &e.CustomerID, &workOrderID, &e.Status, &lines, &e.Subtotal, &e.TaxRate, &e.Total, &notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return e, err
	}
	if workOrderID.Valid {
		e.WorkOrderID = &workOrderID.String
	}
	e.Notes = notes.String
	if lines != "" {
		_ = json.Unmarshal([]byte(lines), &e.Lines)
	}
	return e, nil
}

const estimateCols = `id,business_id,customer_id,work_order_id,status,lines,subtotal,tax_rate,total,notes,created_at,updated_at`

func (r Repo) GetEstimate(ctx context.Context, id string) (domain.Estimate, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+estimateCols+` FROM estimates WHERE id=?`, id)
	e, err := scanEstimateRow(row.Scan)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	return e, err
}

type EstimateFilters struct {
	BusinessID      string
	CustomerID      string
	Status          string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListEstimates(ctx context.Context, f EstimateFilters) ([]domain.Estimate, error) {
	var clauses []string
	var args []any
	if f.BusinessID != "" {
		clauses = append(clauses, "business_id=?")
		args = append(args, f.BusinessID)
	}
	if f.CustomerID != "" {
		clauses = append(clauses, "customer_id=?")
		args = append(args, f.CustomerID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + estimateCols + ` FROM estimates ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Estimate
	for rows.Next() {
		e, err := scanEstimateRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

func (r Repo) UpdateEstimateStatus(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE estimates SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertTeamMember(ctx context.Context, tx *sql.Tx, m domain.TeamMember) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO team_members(id,business_id,name,email,role,created_at) VALUES (?,?,?,?,?,?)`,
		m.ID, m.BusinessID, m.Name, m.Email, m.Role, m.CreatedAt)
	return err
}

func (r Repo) GetTeamMember(ctx context.Context, id string) (domain.TeamMember, error) {
	var m domain.TeamMember
	err := r.DB.QueryRowContext(ctx, `SELECT id,business_id,name,email,role,created_at FROM team_members WHERE id=?`, id).
		Scan(&m.ID, &m.BusinessID, &m.Name, &m.Email, &m.Role, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

func (r Repo) GetTeamMemberByEmail(ctx context.Context, businessID, email string) (domain.TeamMember, error) {
	var m domain.TeamMember
	err := r.DB.QueryRowContext(ctx, `SELECT id,business_id,name,email,role,created_at FROM team_members WHERE business_id=? AND email=?`, businessID, email).
		Scan(&m.ID, &m.BusinessID, &m.Name, &m.Email, &m.Role, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

func (r Repo) ListTeamMembers(ctx context.Context, businessID string) ([]domain.TeamMember, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,business_id,name,email,role,created_at FROM team_members WHERE business_id=? ORDER BY created_at ASC`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TeamMember
	for rows.Next() {
		var m domain.TeamMember
		if err := rows.Scan(&m.ID, &m.BusinessID, &m.Name, &m.Email, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, nil
}

func (r Repo) LatestEvents(ctx context.Context, limit int, businessID, entityType, entityID string) ([]domain.Event, error) {
	return r.LatestEventsFrom(ctx, limit, 0, businessID, entityType, entityID)
}

func (r Repo) LatestEventsFrom(ctx context.Context, limit int, cursor int64, businessID, entityType, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if businessID != "" {
		clauses = append(clauses, "business_id=?")
		args = append(args, businessID)
	}
	if entityType != "" {
		clauses = append(clauses, "entity_type=?")
		args = append(args, entityType)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,business_id,entity_type,entity_id,action,actor,payload,created_at FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEventRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64, businessID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"1=1"}
	var args []any
	if businessID != "" {
		clauses = append(clauses, "business_id=?")
		args = append(args, businessID)
	}
	if cursor > 0 {
		clauses = append(clauses, "id>?")
		args = append(args, cursor)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,business_id,entity_type,entity_id,action,actor,payload,created_at FROM events %s ORDER BY id ASC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEventRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, nil
}

func scanEventRow(scan func(dest ...any) error) (domain.Event, error) {
	var e domain.Event
	var entityID, actor, payload sql.NullString
	err := scan(&e.ID, &e.BusinessID, &e.EntityType, &entityID, &e.Action, &actor, &payload, &e.CreatedAt)
	if err != nil {
		return e, err
	}
	e.EntityID = entityID.String
	e.Actor = actor.String
	e.Payload = payload.String
	return e, nil
}

// LatestEventID returns the most recent event ID for a business.
func (r Repo) LatestEventID(ctx context.Context, businessID string) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events WHERE business_id=?`, businessID)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
