package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"tradedesk/internal/config"
	"tradedesk/internal/db"
	"tradedesk/internal/engine"
	"tradedesk/internal/migrate"
	"tradedesk/internal/trades"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default("Apex Climate", trades.HVAC))
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth: AuthConfig{
			JWTSecret:              "test-secret",
			AllowLegacyActorHeader: true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", "tester")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func setupBusiness(t *testing.T, srv *testServer) string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/businesses/setup", map[string]any{
		"name":             "Apex Climate",
		"primary_trade":    "hvac",
		"secondary_trades": []string{"plumbing"},
		"business_type":    "team",
		"owner_name":       "Sam Field",
		"owner_email":      "sam@apexclimate.test",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("setup business status %d: %s", res.StatusCode, string(data))
	}
	var created BusinessResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal business: %v", err)
	}
	if !created.SetupComplete {
		t.Fatalf("expected setup_complete after setup")
	}
	return created.ID
}

func createCustomer(t *testing.T, srv *testServer, businessID string) string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/businesses/"+businessID+"/customers", map[string]any{
		"name":          "Dana White",
		"phone":         "555-0100",
		"property_type": "residential",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create customer status %d: %s", res.StatusCode, string(data))
	}
	var created CustomerResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal customer: %v", err)
	}
	return created.ID
}

func TestWorkOrderLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	businessID := setupBusiness(t, srv)
	customerID := createCustomer(t, srv, businessID)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/businesses/"+businessID+"/work-orders", map[string]any{
		"customer_id":   customerID,
		"job_type":      "Repair",
		"description":   "Compressor not starting",
		"scheduled_for": "2026-03-02T09:00:00Z",
		"trade_data": map[string]string{
			"system_type":      "Central AC",
			"unit_age_years":   "7",
			"refrigerant_type": "R-410A",
		},
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create work order status %d: %s", res.StatusCode, string(data))
	}
	var created WorkOrderResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal work order: %v", err)
	}
	if created.Status != "pending" || created.StatusColor != "yellow" {
		t.Fatalf("expected pending/yellow, got %s/%s", created.Status, created.StatusColor)
	}
	if created.Trade != "hvac" {
		t.Fatalf("expected trade to default to hvac, got %s", created.Trade)
	}
	if created.TradeData == nil || created.TradeData.HVAC == nil || created.TradeData.HVAC.UnitAgeYears != 7 {
		t.Fatalf("expected decoded hvac trade data, got %+v", created.TradeData)
	}

	base := srv.URL + "/v0/businesses/" + businessID + "/work-orders/" + created.ID

	// pending -> in_progress skips confirmed, must conflict
	res, data = doJSON(t, client, http.MethodPatch, base+"/status", map[string]any{"status": "in_progress"}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict on skipped transition, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPatch, base+"/status", map[string]any{"status": "confirmed"}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("confirm status %d: %s", res.StatusCode, string(data))
	}

	if len(created.Checklist) == 0 {
		t.Fatalf("expected seeded checklist")
	}
	res, data = doJSON(t, client, http.MethodPost, base+"/checklist/"+created.Checklist[0].ID+"/toggle", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("toggle checklist status %d: %s", res.StatusCode, string(data))
	}
	var toggled WorkOrderResponse
	if err := json.Unmarshal(data, &toggled); err != nil {
		t.Fatalf("unmarshal toggled: %v", err)
	}
	if !toggled.Checklist[0].Completed {
		t.Fatalf("expected checklist item completed")
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/businesses/"+businessID+"/work-orders?search=compressor", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var page paginatedWorkOrders
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 match for search, got %d", len(page.Items))
	}
}

func TestWorkOrderValidationErrors(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	businessID := setupBusiness(t, srv)
	customerID := createCustomer(t, srv, businessID)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/businesses/"+businessID+"/work-orders", map[string]any{
		"customer_id":   customerID,
		"job_type":      "",
		"description":   "No job type given",
		"scheduled_for": "2026-03-02T09:00:00Z",
	}, nil)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for missing job_type, got %d: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %s", envelope.Error.Code)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/businesses/"+businessID+"/work-orders", map[string]any{
		"customer_id":   customerID,
		"job_type":      "Repair",
		"description":   "Bad trade",
		"scheduled_for": "2026-03-02T09:00:00Z",
		"trade":         "carpentry",
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown trade, got %d: %s", res.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "unknown_trade" {
		t.Fatalf("expected unknown_trade, got %s", envelope.Error.Code)
	}
}

func TestTradeRegistryEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/trades", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list trades status %d: %s", res.StatusCode, string(data))
	}
	var all []TradeResponse
	if err := json.Unmarshal(data, &all); err != nil {
		t.Fatalf("unmarshal trades: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 trades, got %d", len(all))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/trades/electrical/form-fields", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("form fields status %d: %s", res.StatusCode, string(data))
	}
	var fields []map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal fields: %v", err)
	}
	if len(fields) == 0 {
		t.Fatalf("expected electrical form fields")
	}

	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/trades/carpentry", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown trade, got %d", res.StatusCode)
	}
}

func TestEventLogPagingSeesEveryEvent(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	businessID := setupBusiness(t, srv)
	customerID := createCustomer(t, srv, businessID)
	for _, jobType := range []string{"AC Repair", "Seasonal Maintenance", "Duct Cleaning"} {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/businesses/"+businessID+"/work-orders", map[string]any{
			"customer_id":   customerID,
			"job_type":      jobType,
			"description":   "seed " + jobType,
			"scheduled_for": "2026-03-02T09:00:00Z",
		}, nil)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("create work order status %d: %s", res.StatusCode, string(data))
		}
	}

	eventsURL := srv.URL + "/v0/businesses/" + businessID + "/events"
	res, data := doJSON(t, client, http.MethodGet, eventsURL+"?limit=50", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list events status %d: %s", res.StatusCode, string(data))
	}
	var full paginatedEvents
	if err := json.Unmarshal(data, &full); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(full.Items) < 3 {
		t.Fatalf("expected several events after setup, got %d", len(full.Items))
	}

	want := map[int64]bool{}
	for _, evt := range full.Items {
		want[evt.ID] = true
	}

	seen := map[int64]bool{}
	cursor := ""
	for pages := 0; pages <= len(full.Items); pages++ {
		pageURL := eventsURL + "?limit=1"
		if cursor != "" {
			pageURL += "&cursor=" + cursor
		}
		res, data := doJSON(t, client, http.MethodGet, pageURL, nil, nil)
		if res.StatusCode != http.StatusOK {
			t.Fatalf("page status %d: %s", res.StatusCode, string(data))
		}
		var page paginatedEvents
		if err := json.Unmarshal(data, &page); err != nil {
			t.Fatalf("unmarshal page: %v", err)
		}
		for _, evt := range page.Items {
			if seen[evt.ID] {
				t.Fatalf("event %d returned twice", evt.ID)
			}
			seen[evt.ID] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	if len(seen) != len(want) {
		t.Fatalf("paged walk saw %d of %d events", len(seen), len(want))
	}
	for id := range want {
		if !seen[id] {
			t.Fatalf("paged walk missed event %d", id)
		}
	}
}

func TestSetupAcceptsEveryTrade(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	for _, id := range trades.IDs() {
		res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/businesses/setup", map[string]any{
			"name":          "Shop " + id,
			"primary_trade": id,
		}, nil)
		if res.StatusCode != http.StatusCreated {
			t.Fatalf("setup with trade %s status %d: %s", id, res.StatusCode, string(data))
		}
		var created BusinessResponse
		if err := json.Unmarshal(data, &created); err != nil {
			t.Fatalf("unmarshal business: %v", err)
		}
		if created.PrimaryTrade != id {
			t.Fatalf("expected primary trade %s, got %s", id, created.PrimaryTrade)
		}
	}
}

func TestUpdateBusinessOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	businessID := setupBusiness(t, srv)

	res, data := doJSON(t, client, http.MethodPatch, srv.URL+"/v0/businesses/"+businessID, map[string]any{
		"name":             "Apex Climate & Electric",
		"secondary_trades": []string{"electrical"},
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update business status %d: %s", res.StatusCode, string(data))
	}
	var updated BusinessResponse
	if err := json.Unmarshal(data, &updated); err != nil {
		t.Fatalf("unmarshal business: %v", err)
	}
	if updated.Name != "Apex Climate & Electric" {
		t.Errorf("name = %q", updated.Name)
	}
	if len(updated.SecondaryTrades) != 1 || updated.SecondaryTrades[0] != "electrical" {
		t.Errorf("secondary trades = %v", updated.SecondaryTrades)
	}

	res, _ = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/businesses/"+businessID, map[string]any{
		"secondary_trades": []string{"hvac"},
	}, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for primary as secondary, got %d", res.StatusCode)
	}
}

func TestBusinessConfigRoundTrip(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	businessID := setupBusiness(t, srv)

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v0/businesses/"+businessID+"/config", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get config status %d: %s", res.StatusCode, string(data))
	}
	var cfg BusinessConfigResponse
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	if cfg.Business.PrimaryTrade != "hvac" {
		t.Fatalf("expected hvac primary, got %q", cfg.Business.PrimaryTrade)
	}

	cfg.Estimates.TaxRate = 0.1
	cfg.Scheduling.SlotMinutes = 15
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/businesses/"+businessID+"/config", cfg, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("put config status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v0/businesses/"+businessID+"/config", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get config status %d: %s", res.StatusCode, string(data))
	}
	var updated BusinessConfigResponse
	if err := json.Unmarshal(data, &updated); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}
	if updated.Estimates.TaxRate != 0.1 || updated.Scheduling.SlotMinutes != 15 {
		t.Fatalf("config update not persisted: %+v", updated)
	}

	cfg.Business.PrimaryTrade = "carpentry"
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v0/businesses/"+businessID+"/config", cfg, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown primary trade, got %d: %s", res.StatusCode, string(data))
	}
}

func TestAuthFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	// No credentials at all: unauthorized.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v0/businesses", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", res.StatusCode)
	}

	businessID := setupBusiness(t, srv)

	loginRes, loginData := doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/dev/login", map[string]any{
		"actor_id":    "sam@apexclimate.test",
		"business_id": businessID,
	}, nil)
	if loginRes.StatusCode != http.StatusOK {
		t.Fatalf("dev login status %d: %s", loginRes.StatusCode, string(loginData))
	}
	var login DevLoginResponse
	if err := json.Unmarshal(loginData, &login); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}

	meRes, meData := doJSON(t, client, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{
		"Authorization": "Bearer " + login.Token,
	})
	if meRes.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", meRes.StatusCode, string(meData))
	}
	var me WhoAmIResponse
	if err := json.Unmarshal(meData, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.ActorID != "sam@apexclimate.test" || me.BusinessID != businessID || me.Source != "jwt" {
		t.Fatalf("unexpected principal: %+v", me)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	businessID := setupBusiness(t, srv)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/businesses/"+businessID+"/api-keys", map[string]any{
		"name": "dispatch-bot",
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create api key status %d: %s", res.StatusCode, string(data))
	}
	var created struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal key: %v", err)
	}
	if created.Key == "" {
		t.Fatalf("expected plaintext key in create response")
	}

	meRes, meData := doJSON(t, client, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{
		"X-Actor-Id": "",
		"X-Api-Key":  created.Key,
	})
	if meRes.StatusCode != http.StatusOK {
		t.Fatalf("me with api key status %d: %s", meRes.StatusCode, string(meData))
	}
	var me WhoAmIResponse
	if err := json.Unmarshal(meData, &me); err != nil {
		t.Fatalf("unmarshal me: %v", err)
	}
	if me.BusinessID != businessID || me.Source != "api_key" {
		t.Fatalf("unexpected principal: %+v", me)
	}

	badRes, _ := doJSON(t, client, http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{
		"X-Actor-Id": "",
		"X-Api-Key":  "tdk_not-a-key",
	})
	if badRes.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bogus key, got %d", badRes.StatusCode)
	}
}

func TestInventoryAndEstimatesOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	businessID := setupBusiness(t, srv)
	customerID := createCustomer(t, srv, businessID)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v0/businesses/"+businessID+"/inventory", map[string]any{
		"name":              "Air Filter 16x25",
		"category":          "Filters",
		"stock_level":       12,
		"reorder_threshold": 10,
		"trade_specific":    true,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create item status %d: %s", res.StatusCode, string(data))
	}
	var item InventoryItemResponse
	if err := json.Unmarshal(data, &item); err != nil {
		t.Fatalf("unmarshal item: %v", err)
	}
	if item.StockStatus != "warning" {
		t.Fatalf("expected warning at 12/10, got %s", item.StockStatus)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/businesses/"+businessID+"/inventory/"+item.ID+"/adjust", map[string]any{
		"delta": -4,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("adjust status %d: %s", res.StatusCode, string(data))
	}
	if err := json.Unmarshal(data, &item); err != nil {
		t.Fatalf("unmarshal adjusted: %v", err)
	}
	if item.StockLevel != 8 || item.StockStatus != "low" {
		t.Fatalf("expected 8/low after adjust, got %d/%s", item.StockLevel, item.StockStatus)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v0/businesses/"+businessID+"/estimates", map[string]any{
		"customer_id": customerID,
		"lines": []map[string]any{
			{"quick_item_id": "hvac-filter", "quantity": 2},
			{"description": "Diagnostic visit", "quantity": 1, "unit_price": 89},
		},
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create estimate status %d: %s", res.StatusCode, string(data))
	}
	var est EstimateResponse
	if err := json.Unmarshal(data, &est); err != nil {
		t.Fatalf("unmarshal estimate: %v", err)
	}
	if est.Status != "draft" || len(est.Lines) != 2 {
		t.Fatalf("unexpected estimate: %+v", est)
	}

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v0/businesses/"+businessID+"/estimates/"+est.ID+"/status", map[string]any{
		"status": "accepted",
	}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict for draft -> accepted, got %d: %s", res.StatusCode, string(data))
	}
}
