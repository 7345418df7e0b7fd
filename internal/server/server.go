package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tradedesk/internal/domain"
	"tradedesk/internal/engine"
	"tradedesk/internal/filter"
	"tradedesk/internal/forms"
	"tradedesk/internal/repo"
	"tradedesk/internal/trades"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"unknown_trade"`
	Message string         `json:"message" example:"unknown trade \"carpentry\""`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"trade\":\"carpentry\"}"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Tradedesk API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope above.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Tradedesk API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerTrades(group)
	registerBusinesses(group, cfg.Engine)
	registerWorkOrders(group, cfg.Engine)
	registerCustomers(group, cfg.Engine)
	registerInventory(group, cfg.Engine)
	registerEstimates(group, cfg.Engine)
	registerTeam(group, cfg.Engine)
	registerSchedule(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerAPIKeys(group, cfg.Engine)
	registerMe(group)
	registerDevAuth(group, cfg.Auth)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ute trades.UnknownTradeError
	if errors.As(err, &ute) {
		return newAPIError(http.StatusBadRequest, "unknown_trade", err.Error(), map[string]any{"trade": ute.ID})
	}
	var ve forms.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), map[string]any{"field": ve.Field})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "transition"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "already exists"), strings.Contains(lowered, "unique"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "not in business"):
		return newAPIError(http.StatusNotFound, "not_found", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") ||
		strings.Contains(lowered, "required") || strings.Contains(lowered, "may not"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	devLoginPath := path.Join(basePath, "auth/dev/login")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	if !strings.HasPrefix(devLoginPath, "/") {
		devLoginPath = "/" + devLoginPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath || route == devLoginPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Tradedesk API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerTrades(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-trades",
		Method:      http.MethodGet,
		Path:        "/trades",
		Summary:     "List supported trades",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []TradeResponse `json:"body"`
	}, error) {
		all := trades.All()
		res := make([]TradeResponse, 0, len(all))
		for _, t := range all {
			res = append(res, tradeResponse(t))
		}
		return &struct {
			Body []TradeResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-trade",
		Method:      http.MethodGet,
		Path:        "/trades/{trade_id}",
		Summary:     "Get trade configuration",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		TradeID string `path:"trade_id"`
	}) (*struct {
		Body TradeResponse `json:"body"`
	}, error) {
		t, err := trades.Lookup(input.TradeID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TradeResponse `json:"body"`
		}{Body: tradeResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "trade-form-fields",
		Method:      http.MethodGet,
		Path:        "/trades/{trade_id}/form-fields",
		Summary:     "Trade-specific work order form fields",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		TradeID string `path:"trade_id"`
	}) (*struct {
		Body []forms.Field `json:"body"`
	}, error) {
		if _, err := trades.Lookup(input.TradeID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []forms.Field `json:"body"`
		}{Body: forms.FieldsFor(input.TradeID)}, nil
	})
}

func registerBusinesses(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "setup-business",
		Method:        http.MethodPost,
		Path:          "/businesses/setup",
		Summary:       "Create a business from a completed trade setup",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body SetupBusinessRequest `json:"body"`
	}) (*struct {
		Body BusinessResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.SetupBusiness(ctx, engine.SetupBusinessOptions{
			Name:            input.Body.Name,
			PrimaryTrade:    input.Body.PrimaryTrade,
			SecondaryTrades: input.Body.SecondaryTrades,
			BusinessType:    input.Body.BusinessType,
			OwnerName:       input.Body.OwnerName,
			OwnerEmail:      input.Body.OwnerEmail,
			ActorID:         actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BusinessResponse `json:"body"`
		}{Body: businessResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-businesses",
		Method:      http.MethodGet,
		Path:        "/businesses",
		Summary:     "List businesses",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []BusinessResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListBusinesses(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]BusinessResponse, 0, len(items))
		for _, b := range items {
			res = append(res, businessResponse(b))
		}
		return &struct {
			Body []BusinessResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-business",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}",
		Summary:     "Get business",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
	}) (*struct {
		Body BusinessResponse `json:"body"`
	}, error) {
		b, err := e.Repo.GetBusiness(ctx, input.BusinessID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BusinessResponse `json:"body"`
		}{Body: businessResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-business",
		Method:      http.MethodPatch,
		Path:        "/businesses/{business_id}",
		Summary:     "Update business",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID string                `path:"business_id"`
		Body       UpdateBusinessRequest `json:"body"`
	}) (*struct {
		Body BusinessResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		b, err := e.UpdateBusiness(ctx, engine.BusinessUpdateOptions{
			ID:              input.BusinessID,
			Name:            input.Body.Name,
			SecondaryTrades: input.Body.SecondaryTrades,
			BusinessType:    input.Body.BusinessType,
			ActorID:         actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BusinessResponse `json:"body"`
		}{Body: businessResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "business-summary",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/summary",
		Summary:     "Dashboard summary",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
	}) (*struct {
		Body engine.DashboardSummary `json:"body"`
	}, error) {
		summary, err := e.Summary(ctx, input.BusinessID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.DashboardSummary `json:"body"`
		}{Body: summary}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-business-config",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/config",
		Summary:     "Get business config",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
	}) (*struct {
		Body BusinessConfigResponse `json:"body"`
	}, error) {
		if _, err := e.Repo.GetBusiness(ctx, input.BusinessID); err != nil {
			return nil, handleError(err)
		}
		cfg, err := e.Repo.GetBusinessConfig(ctx, input.BusinessID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BusinessConfigResponse `json:"body"`
		}{Body: configResponse(cfg)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-business-config",
		Method:      http.MethodPut,
		Path:        "/businesses/{business_id}/config",
		Summary:     "Replace business config",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID string                      `path:"business_id"`
		Body       UpdateBusinessConfigRequest `json:"body"`
	}) (*struct {
		Body BusinessConfigResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if _, err := e.Repo.GetBusiness(ctx, input.BusinessID); err != nil {
			return nil, handleError(err)
		}
		cfg := configFromRequest(input.Body)
		if err := cfg.Validate(); err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		if err := e.Repo.UpsertBusinessConfig(ctx, input.BusinessID, cfg); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body BusinessConfigResponse `json:"body"`
		}{Body: configResponse(cfg)}, nil
	})
}

func registerWorkOrders(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-work-order",
		Method:        http.MethodPost,
		Path:          "/businesses/{business_id}/work-orders",
		Summary:       "Create work order",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID string                 `path:"business_id"`
		Body       CreateWorkOrderRequest `json:"body"`
	}) (*struct {
		Body WorkOrderResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		assignee := ""
		if input.Body.AssigneeID != nil {
			assignee = *input.Body.AssigneeID
		}
		w, err := e.CreateWorkOrder(ctx, engine.WorkOrderCreateOptions{
			BusinessID:          input.BusinessID,
			CustomerID:          input.Body.CustomerID,
			AssigneeID:          assignee,
			JobType:             input.Body.JobType,
			Description:         input.Body.Description,
			Priority:            input.Body.Priority,
			ScheduledFor:        input.Body.ScheduledFor,
			DurationMinutes:     input.Body.DurationMinutes,
			Address:             input.Body.Address,
			Amount:              input.Body.Amount,
			Tags:                input.Body.Tags,
			Trade:               input.Body.Trade,
			TradeValues:         input.Body.TradeData,
			ChecklistTemplateID: input.Body.ChecklistTemplateID,
			ActorID:             actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkOrderResponse `json:"body"`
		}{Body: workOrderResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-work-orders",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/work-orders",
		Summary:     "List work orders",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
		Search     string `query:"search"`
		Status     string `query:"status" enum:",pending,confirmed,en_route,in_progress,completed,cancelled"`
		Priority   string `query:"priority" enum:",low,medium,high,urgent"`
		Trade      string `query:"trade"`
		JobType    string `query:"job_type"`
		CustomerID string `query:"customer_id"`
		AssigneeID string `query:"assignee_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedWorkOrders `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		cursorTS, cursorID, err := parseCompositeCursor(input.Cursor)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
		}
		items, err := e.Repo.ListWorkOrders(ctx, repo.WorkOrderFilters{
			BusinessID:      input.BusinessID,
			CustomerID:      input.CustomerID,
			AssigneeID:      input.AssigneeID,
			Status:          input.Status,
			Priority:        input.Priority,
			Trade:           input.Trade,
			Limit:           limit + 1,
			CursorCreatedAt: cursorTS,
			CursorID:        cursorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedWorkOrders{Items: []WorkOrderResponse{}}
		if len(items) > limit {
			last := items[limit-1]
			resp.NextCursor = composeCursor(last.CreatedAt, last.ID)
			items = items[:limit]
		}
		items = filter.WorkOrders(items, filter.WorkOrderCriteria{
			Search:  input.Search,
			JobType: input.JobType,
		})
		resp.Items = mapWorkOrders(items)
		return &struct {
			Body paginatedWorkOrders `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-work-order",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/work-orders/{work_order_id}",
		Summary:     "Get work order",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BusinessID  string `path:"business_id"`
		WorkOrderID string `path:"work_order_id"`
	}) (*struct {
		Body WorkOrderResponse `json:"body"`
	}, error) {
		w, err := e.Repo.GetWorkOrder(ctx, input.WorkOrderID)
		if err != nil {
			return nil, handleError(err)
		}
		if w.BusinessID != input.BusinessID {
			return nil, handleError(repo.ErrNotFound)
		}
		return &struct {
			Body WorkOrderResponse `json:"body"`
		}{Body: workOrderResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-work-order-status",
		Method:      http.MethodPatch,
		Path:        "/businesses/{business_id}/work-orders/{work_order_id}/status",
		Summary:     "Advance or cancel a work order",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID  string                       `path:"business_id"`
		WorkOrderID string                       `path:"work_order_id"`
		Body        UpdateWorkOrderStatusRequest `json:"body"`
	}) (*struct {
		Body WorkOrderResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.UpdateWorkOrderStatus(ctx, input.WorkOrderID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkOrderResponse `json:"body"`
		}{Body: workOrderResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-work-order",
		Method:      http.MethodPatch,
		Path:        "/businesses/{business_id}/work-orders/{work_order_id}/assign",
		Summary:     "Assign work order to a team member",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID  string                 `path:"business_id"`
		WorkOrderID string                 `path:"work_order_id"`
		Body        AssignWorkOrderRequest `json:"body"`
	}) (*struct {
		Body WorkOrderResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.AssignWorkOrder(ctx, input.WorkOrderID, input.Body.AssigneeID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkOrderResponse `json:"body"`
		}{Body: workOrderResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "toggle-checklist-item",
		Method:      http.MethodPost,
		Path:        "/businesses/{business_id}/work-orders/{work_order_id}/checklist/{item_id}/toggle",
		Summary:     "Toggle a checklist item",
		Errors: []int{
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID  string `path:"business_id"`
		WorkOrderID string `path:"work_order_id"`
		ItemID      string `path:"item_id"`
	}) (*struct {
		Body WorkOrderResponse `json:"body"`
	}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.ToggleChecklistItem(ctx, input.WorkOrderID, input.ItemID, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkOrderResponse `json:"body"`
		}{Body: workOrderResponse(w)}, nil
	})
}

func registerCustomers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-customer",
		Method:        http.MethodPost,
		Path:          "/businesses/{business_id}/customers",
		Summary:       "Create customer",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID string                `path:"business_id"`
		Body       CreateCustomerRequest `json:"body"`
	}) (*struct {
		Body CustomerResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CreateCustomer(ctx, engine.CustomerCreateOptions{
			BusinessID:   input.BusinessID,
			Name:         input.Body.Name,
			Email:        input.Body.Email,
			Phone:        input.Body.Phone,
			Address:      input.Body.Address,
			PropertyType: input.Body.PropertyType,
			Tags:         input.Body.Tags,
			Notes:        input.Body.Notes,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CustomerResponse `json:"body"`
		}{Body: customerResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-customers",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/customers",
		Summary:     "List customers",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		BusinessID   string `path:"business_id"`
		Search       string `query:"search"`
		Tag          string `query:"tag"`
		PropertyType string `query:"property_type" enum:",residential,commercial"`
		Limit        int    `query:"limit" default:"50"`
		Cursor       string `query:"cursor"`
	}) (*struct {
		Body paginatedCustomers `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		cursorTS, cursorID, err := parseCompositeCursor(input.Cursor)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
		}
		items, err := e.Repo.ListCustomers(ctx, repo.CustomerFilters{
			BusinessID:      input.BusinessID,
			PropertyType:    input.PropertyType,
			Limit:           limit + 1,
			CursorCreatedAt: cursorTS,
			CursorID:        cursorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedCustomers{Items: []CustomerResponse{}}
		if len(items) > limit {
			last := items[limit-1]
			resp.NextCursor = composeCursor(last.CreatedAt, last.ID)
			items = items[:limit]
		}
		items = filter.Customers(items, filter.CustomerCriteria{
			Search: input.Search,
			Tag:    input.Tag,
		})
		resp.Items = mapCustomers(items)
		return &struct {
			Body paginatedCustomers `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-customer",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/customers/{customer_id}",
		Summary:     "Get customer",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
		CustomerID string `path:"customer_id"`
	}) (*struct {
		Body CustomerResponse `json:"body"`
	}, error) {
		c, err := e.Repo.GetCustomer(ctx, input.CustomerID)
		if err != nil {
			return nil, handleError(err)
		}
		if c.BusinessID != input.BusinessID {
			return nil, handleError(repo.ErrNotFound)
		}
		return &struct {
			Body CustomerResponse `json:"body"`
		}{Body: customerResponse(c)}, nil
	})
}

func registerInventory(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-inventory-item",
		Method:        http.MethodPost,
		Path:          "/businesses/{business_id}/inventory",
		Summary:       "Create inventory item",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID string                     `path:"business_id"`
		Body       CreateInventoryItemRequest `json:"body"`
	}) (*struct {
		Body InventoryItemResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		it, err := e.CreateInventoryItem(ctx, engine.InventoryCreateOptions{
			BusinessID:       input.BusinessID,
			Name:             input.Body.Name,
			Category:         input.Body.Category,
			SKU:              input.Body.SKU,
			StockLevel:       input.Body.StockLevel,
			ReorderThreshold: input.Body.ReorderThreshold,
			CostPerUnit:      input.Body.CostPerUnit,
			Supplier:         input.Body.Supplier,
			TradeSpecific:    input.Body.TradeSpecific,
			ActorID:          actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InventoryItemResponse `json:"body"`
		}{Body: inventoryItemResponse(it)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-inventory",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/inventory",
		Summary:     "List inventory items",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		BusinessID    string `path:"business_id"`
		Search        string `query:"search"`
		Category      string `query:"category"`
		TradeSpecific string `query:"trade_specific" enum:",true,false"`
		Limit         int    `query:"limit" default:"50"`
	}) (*struct {
		Body []InventoryItemResponse `json:"body"`
	}, error) {
		filters := repo.InventoryFilters{
			BusinessID: input.BusinessID,
			Category:   input.Category,
			Limit:      normalizeLimit(input.Limit),
		}
		if input.TradeSpecific != "" {
			v := input.TradeSpecific == "true"
			filters.TradeSpecific = &v
		}
		items, err := e.Repo.ListInventory(ctx, filters)
		if err != nil {
			return nil, handleError(err)
		}
		items = filter.Inventory(items, filter.InventoryCriteria{Search: input.Search})
		return &struct {
			Body []InventoryItemResponse `json:"body"`
		}{Body: mapInventory(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "adjust-stock",
		Method:      http.MethodPost,
		Path:        "/businesses/{business_id}/inventory/{item_id}/adjust",
		Summary:     "Adjust stock level",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID string             `path:"business_id"`
		ItemID     string             `path:"item_id"`
		Body       AdjustStockRequest `json:"body"`
	}) (*struct {
		Body InventoryItemResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		it, err := e.AdjustStock(ctx, input.ItemID, input.Body.Delta, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InventoryItemResponse `json:"body"`
		}{Body: inventoryItemResponse(it)}, nil
	})
}

func registerEstimates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-estimate",
		Method:        http.MethodPost,
		Path:          "/businesses/{business_id}/estimates",
		Summary:       "Create estimate",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID string                `path:"business_id"`
		Body       CreateEstimateRequest `json:"body"`
	}) (*struct {
		Body EstimateResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		lines := make([]engine.EstimateLineInput, 0, len(input.Body.Lines))
		for _, l := range input.Body.Lines {
			lines = append(lines, engine.EstimateLineInput{
				QuickItemID: l.QuickItemID,
				Description: l.Description,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				Unit:        l.Unit,
			})
		}
		est, err := e.CreateEstimate(ctx, engine.EstimateCreateOptions{
			BusinessID:  input.BusinessID,
			CustomerID:  input.Body.CustomerID,
			WorkOrderID: input.Body.WorkOrderID,
			Trade:       input.Body.Trade,
			Lines:       lines,
			Notes:       input.Body.Notes,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EstimateResponse `json:"body"`
		}{Body: estimateResponse(est)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-estimates",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/estimates",
		Summary:     "List estimates",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
		CustomerID string `query:"customer_id"`
		Status     string `query:"status" enum:",draft,sent,accepted,declined"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEstimates `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		cursorTS, cursorID, err := parseCompositeCursor(input.Cursor)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
		}
		items, err := e.Repo.ListEstimates(ctx, repo.EstimateFilters{
			BusinessID:      input.BusinessID,
			CustomerID:      input.CustomerID,
			Status:          input.Status,
			Limit:           limit + 1,
			CursorCreatedAt: cursorTS,
			CursorID:        cursorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEstimates{Items: []EstimateResponse{}}
		if len(items) > limit {
			last := items[limit-1]
			resp.NextCursor = composeCursor(last.CreatedAt, last.ID)
			items = items[:limit]
		}
		resp.Items = mapEstimates(items)
		return &struct {
			Body paginatedEstimates `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-estimate",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/estimates/{estimate_id}",
		Summary:     "Get estimate",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
		EstimateID string `path:"estimate_id"`
	}) (*struct {
		Body EstimateResponse `json:"body"`
	}, error) {
		est, err := e.Repo.GetEstimate(ctx, input.EstimateID)
		if err != nil {
			return nil, handleError(err)
		}
		if est.BusinessID != input.BusinessID {
			return nil, handleError(repo.ErrNotFound)
		}
		return &struct {
			Body EstimateResponse `json:"body"`
		}{Body: estimateResponse(est)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-estimate-status",
		Method:      http.MethodPatch,
		Path:        "/businesses/{business_id}/estimates/{estimate_id}/status",
		Summary:     "Advance estimate lifecycle",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID string                      `path:"business_id"`
		EstimateID string                      `path:"estimate_id"`
		Body       UpdateEstimateStatusRequest `json:"body"`
	}) (*struct {
		Body EstimateResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		est, err := e.UpdateEstimateStatus(ctx, input.EstimateID, input.Body.Status, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body EstimateResponse `json:"body"`
		}{Body: estimateResponse(est)}, nil
	})
}

func registerTeam(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "add-team-member",
		Method:        http.MethodPost,
		Path:          "/businesses/{business_id}/team",
		Summary:       "Add team member",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID string               `path:"business_id"`
		Body       AddTeamMemberRequest `json:"body"`
	}) (*struct {
		Body TeamMemberResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.AddTeamMember(ctx, engine.TeamMemberCreateOptions{
			BusinessID: input.BusinessID,
			Name:       input.Body.Name,
			Email:      input.Body.Email,
			Role:       input.Body.Role,
			ActorID:    actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TeamMemberResponse `json:"body"`
		}{Body: teamMemberResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-team-members",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/team",
		Summary:     "List team members",
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
	}) (*struct {
		Body []TeamMemberResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListTeamMembers(ctx, input.BusinessID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []TeamMemberResponse `json:"body"`
		}{Body: mapTeamMembers(items)}, nil
	})
}

func registerSchedule(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "day-schedule",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/schedule",
		Summary:     "Work orders scheduled for a day",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
		Date       string `query:"date" format:"date"`
	}) (*struct {
		Body []WorkOrderResponse `json:"body"`
	}, error) {
		day := time.Now().UTC()
		if input.Date != "" {
			parsed, err := time.Parse("2006-01-02", input.Date)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid date, expected YYYY-MM-DD", map[string]any{"date": input.Date})
			}
			day = parsed
		}
		items, err := e.DaySchedule(ctx, input.BusinessID, day)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []WorkOrderResponse `json:"body"`
		}{Body: mapWorkOrders(items)}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
		EntityType string `query:"entity_type" enum:",business,customer,work_order,inventory_item,estimate,team_member"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := e.Repo.LatestEventsFrom(ctx, limit+1, cursorID, input.BusinessID, input.EntityType, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			resp.NextCursor = fmt.Sprintf("%d", items[limit-1].ID)
			items = items[:limit]
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/businesses/{business_id}/api-keys",
		Summary:       "Create API key",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
		Body       struct {
			Name string `json:"name"`
		} `json:"body"`
	}) (*struct {
		Body struct {
			ID  string `json:"id"`
			Key string `json:"key"`
		} `json:"body"`
	}, error) {
		if _, err := e.Repo.GetBusiness(ctx, input.BusinessID); err != nil {
			return nil, handleError(err)
		}
		// The plaintext key is returned once; only its hash is stored.
		plaintext := "tdk_" + uuid.NewString()
		key := domain.APIKey{
			ID:         uuid.NewString(),
			BusinessID: input.BusinessID,
			Name:       input.Body.Name,
			KeyHash:    repo.HashAPIKey(plaintext),
		}
		tx, err := e.DB.BeginTx(ctx, nil)
		if err != nil {
			return nil, handleError(err)
		}
		defer tx.Rollback()
		if err := e.Repo.InsertAPIKey(ctx, tx, key); err != nil {
			return nil, handleError(err)
		}
		if err := tx.Commit(); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body struct {
				ID  string `json:"id"`
				Key string `json:"key"`
			} `json:"body"`
		}{Body: struct {
			ID  string `json:"id"`
			Key string `json:"key"`
		}{ID: key.ID, Key: plaintext}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/businesses/{business_id}/api-keys",
		Summary:     "List API keys",
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
	}) (*struct {
		Body []domain.APIKey `json:"body"`
	}, error) {
		items, err := e.Repo.ListAPIKeys(ctx, input.BusinessID)
		if err != nil {
			return nil, handleError(err)
		}
		for i := range items {
			items[i].KeyHash = ""
		}
		return &struct {
			Body []domain.APIKey `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-api-key",
		Method:      http.MethodDelete,
		Path:        "/businesses/{business_id}/api-keys/{key_id}",
		Summary:     "Delete API key",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		BusinessID string `path:"business_id"`
		KeyID      string `path:"key_id"`
	}) (*struct{}, error) {
		if err := e.Repo.DeleteAPIKey(ctx, input.KeyID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerMe(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors: []int{
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WhoAmIResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body WhoAmIResponse `json:"body"`
		}{Body: WhoAmIResponse{
			ActorID:    principal.ActorID,
			BusinessID: principal.BusinessID,
			Roles:      nonNilSlice(principal.Roles),
			Source:     principal.Source,
		}}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor := strings.TrimSpace(input.Body.ActorID)
		if actor == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		token, err := signDevToken(authCfg.JWTSecret, actor, strings.TrimSpace(input.Body.BusinessID), input.Body.Roles)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}

func parseCompositeCursor(cursor string) (string, string, error) {
	if cursor == "" {
		return "", "", nil
	}
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid cursor")
	}
	return parts[0], parts[1], nil
}

func composeCursor(ts, id string) string {
	if ts == "" || id == "" {
		return ""
	}
	return ts + "|" + id
}
