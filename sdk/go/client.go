package tradedesksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tradedesk/internal/domain"
	"tradedesk/internal/engine"
	"tradedesk/internal/forms"
	"tradedesk/internal/view"
)

// Client is a minimal Tradedesk HTTP API client. It satisfies
// view.Collaborator so the composer can run against a remote server.
type Client struct {
	BaseURL     string
	BusinessID  string
	APIKey      string
	BearerToken string
	ActorID     string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

var _ view.Collaborator = (*Client)(nil)

// New creates a client with sane defaults.
func New(baseURL, businessID string) *Client {
	return &Client{
		BaseURL:    baseURL,
		BusinessID: businessID,
		Timeout:    10 * time.Second,
	}
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// SubmissionError marks a rejected create so callers can keep the form
// contents around for another attempt.
type SubmissionError struct {
	Cause error
}

func (e *SubmissionError) Error() string { return "submission rejected: " + e.Cause.Error() }
func (e *SubmissionError) Unwrap() error { return e.Cause }

// Event represents an audit log entry.
type Event struct {
	ID         int64          `json:"id"`
	BusinessID string         `json:"business_id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	Payload    map[string]any `json:"payload"`
	CreatedAt  string         `json:"created_at"`
}

// PaginatedEvents wraps event listings with a cursor.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

type paginatedWorkOrders struct {
	Items      []domain.WorkOrder `json:"items"`
	NextCursor string             `json:"next_cursor"`
}

type paginatedCustomers struct {
	Items      []domain.Customer `json:"items"`
	NextCursor string            `json:"next_cursor"`
}

// ListWorkOrders returns the first page of work orders.
func (c *Client) ListWorkOrders(ctx context.Context) ([]domain.WorkOrder, error) {
	var resp paginatedWorkOrders
	err := c.do(ctx, http.MethodGet, c.businessPath("work-orders"), nil, &resp)
	return resp.Items, err
}

// CreateWorkOrder submits an assembled form payload.
func (c *Client) CreateWorkOrder(ctx context.Context, payload forms.WorkOrderPayload) (domain.WorkOrder, error) {
	body := map[string]any{
		"customer_id":   payload.Customer,
		"job_type":      payload.JobType,
		"description":   payload.Description,
		"priority":      payload.Priority,
		"scheduled_for": payload.ScheduledFor,
		"address":       payload.Address,
		"amount":        payload.Amount,
		"tags":          payload.Tags,
		"trade":         payload.PrimaryTrade,
	}
	if payload.AssignedTo != "" {
		body["assignee_id"] = payload.AssignedTo
	}
	if payload.TradeData != nil && !payload.TradeData.IsZero() {
		body["trade_data"] = forms.FlattenTradeData(*payload.TradeData)
	}
	var resp domain.WorkOrder
	if err := c.do(ctx, http.MethodPost, c.businessPath("work-orders"), body, &resp); err != nil {
		return domain.WorkOrder{}, &SubmissionError{Cause: err}
	}
	return resp, nil
}

// ListCustomers returns the first page of customers.
func (c *Client) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	var resp paginatedCustomers
	err := c.do(ctx, http.MethodGet, c.businessPath("customers"), nil, &resp)
	return resp.Items, err
}

// CreateCustomer creates a customer record.
func (c *Client) CreateCustomer(ctx context.Context, name, phone, propertyType string) (domain.Customer, error) {
	body := map[string]any{
		"name":          name,
		"phone":         phone,
		"property_type": propertyType,
	}
	var resp domain.Customer
	if err := c.do(ctx, http.MethodPost, c.businessPath("customers"), body, &resp); err != nil {
		return domain.Customer{}, &SubmissionError{Cause: err}
	}
	return resp, nil
}

// ListTeamMembers returns the business roster.
func (c *Client) ListTeamMembers(ctx context.Context) ([]domain.TeamMember, error) {
	var resp []domain.TeamMember
	err := c.do(ctx, http.MethodGet, c.businessPath("team"), nil, &resp)
	return resp, err
}

// Summary returns the dashboard rollup.
// ListInventory returns the business's inventory items.
func (c *Client) ListInventory(ctx context.Context) ([]domain.InventoryItem, error) {
	var resp struct {
		Items []domain.InventoryItem `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, c.businessPath("inventory"), nil, &resp)
	return resp.Items, err
}

// AdjustStock applies a signed delta to an inventory item.
func (c *Client) AdjustStock(ctx context.Context, itemID string, delta int) (domain.InventoryItem, error) {
	var resp domain.InventoryItem
	err := c.do(ctx, http.MethodPost, c.businessPath("inventory/"+url.PathEscape(itemID)+"/adjust"), map[string]any{"delta": delta}, &resp)
	return resp, err
}

// ListEstimates returns the first page of estimates.
func (c *Client) ListEstimates(ctx context.Context) ([]domain.Estimate, error) {
	var resp struct {
		Items []domain.Estimate `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, c.businessPath("estimates"), nil, &resp)
	return resp.Items, err
}

// EstimateLine is one requested estimate line; set QuickItemID to pull a
// trade's quick line item, or fill the free-form fields.
type EstimateLine struct {
	QuickItemID string  `json:"quick_item_id,omitempty"`
	Description string  `json:"description,omitempty"`
	Quantity    int     `json:"quantity,omitempty"`
	UnitPrice   float64 `json:"unit_price,omitempty"`
	Unit        string  `json:"unit,omitempty"`
}

// CreateEstimate builds an estimate from quick line items and free lines.
func (c *Client) CreateEstimate(ctx context.Context, customerID, workOrderID string, lines []EstimateLine) (domain.Estimate, error) {
	body := map[string]any{
		"customer_id": customerID,
		"lines":       lines,
	}
	if workOrderID != "" {
		body["work_order_id"] = workOrderID
	}
	var resp domain.Estimate
	if err := c.do(ctx, http.MethodPost, c.businessPath("estimates"), body, &resp); err != nil {
		return domain.Estimate{}, &SubmissionError{Cause: err}
	}
	return resp, nil
}

func (c *Client) Summary(ctx context.Context) (engine.DashboardSummary, error) {
	var resp engine.DashboardSummary
	err := c.do(ctx, http.MethodGet, c.businessPath("summary"), nil, &resp)
	return resp, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	endpoint := c.businessPath("events")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	if cursor != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint = fmt.Sprintf("%s%scursor=%s", endpoint, sep, url.QueryEscape(cursor))
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) businessPath(p string) string {
	business := url.PathEscape(c.BusinessID)
	return fmt.Sprintf("v0/businesses/%s/%s", business, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
