package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"timecard/internal/domain"
	"timecard/internal/engine"
	"timecard/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"bad_request"`
	Message string         `json:"message" example:"unknown action \"lunch\""`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Timecard API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Timecard API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	// Handlers share one engine so a shift update is visible to
	// every later computation.
	e := &cfg.Engine

	registerDocs(router, basePath)
	registerHealth(group)
	registerDays(group, e)
	registerWeek(group, e)
	registerOverrides(group, e)
	registerShift(group, e)
	registerBackup(group, e)
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
	var ve domain.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"field": ve.Field})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
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
	case http.StatusForbidden:
		return "forbidden"
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
	security := []map[string][]string{
		{"bearerAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
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
    <title>Timecard API Docs</title>
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

type dayPath struct {
	Day string `path:"day" example:"2024-03-04"`
}

func registerDays(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "record-action",
		Method:      http.MethodPost,
		Path:        "/days/{day}/actions",
		Summary:     "Record an attendance action",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Day  string              `path:"day" example:"2024-03-04"`
		Body RecordActionRequest `json:"body"`
	}) (*struct {
		Body ActionResponse `json:"body"`
	}, error) {
		if input.Body.Action == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "action is required", nil)
		}
		var at time.Time
		if input.Body.At != nil {
			at = *input.Body.At
		}
		session, status, err := e.RecordAction(ctx, input.Day, domain.ActionType(input.Body.Action), at)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActionResponse `json:"body"`
		}{Body: ActionResponse{Session: session, Status: status}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-day",
		Method:      http.MethodGet,
		Path:        "/days/{day}",
		Summary:     "Day report",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *dayPath) (*struct {
		Body domain.DayReport `json:"body"`
	}, error) {
		report, err := e.DayStatus(ctx, input.Day)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DayReport `json:"body"`
		}{Body: report}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "next-action",
		Method:      http.MethodGet,
		Path:        "/days/{day}/next-action",
		Summary:     "Permitted next action",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *dayPath) (*struct {
		Body engine.NextStep `json:"body"`
	}, error) {
		step, err := e.NextAction(ctx, input.Day)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.NextStep `json:"body"`
		}{Body: step}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-day-events",
		Method:      http.MethodGet,
		Path:        "/days/{day}/events",
		Summary:     "Day event log",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *dayPath) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		evs, err := e.Repo.ListEventsForDay(ctx, input.Day)
		if err != nil {
			return nil, handleError(err)
		}
		if evs == nil {
			evs = []domain.Event{}
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: evs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reset-day",
		Method:      http.MethodDelete,
		Path:        "/days/{day}",
		Summary:     "Reset a day's event log",
		Errors:      []int{http.StatusUnauthorized, http.StatusInternalServerError},
	}, func(ctx context.Context, input *dayPath) (*struct {
		Body domain.Session `json:"body"`
	}, error) {
		session, err := e.ResetDay(ctx, input.Day)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Session `json:"body"`
		}{Body: session}, nil
	})
}

func registerWeek(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "week-status",
		Method:      http.MethodGet,
		Path:        "/week",
		Summary:     "Seven-day report",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		From string `query:"from" example:"2024-03-04"`
	}) (*struct {
		Body []domain.DayReport `json:"body"`
	}, error) {
		week, err := e.WeekStatus(ctx, input.From)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.DayReport `json:"body"`
		}{Body: week}, nil
	})
}

func registerOverrides(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "set-override",
		Method:      http.MethodPut,
		Path:        "/days/{day}/override",
		Summary:     "Set a manual day override",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Day  string          `path:"day" example:"2024-03-04"`
		Body OverrideRequest `json:"body"`
	}) (*struct {
		Body domain.DayReport `json:"body"`
	}, error) {
		if err := e.SetOverride(ctx, input.Day, domain.OverrideStatus(input.Body.Status)); err != nil {
			return nil, handleError(err)
		}
		report, err := e.DayStatus(ctx, input.Day)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DayReport `json:"body"`
		}{Body: report}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "clear-override",
		Method:      http.MethodDelete,
		Path:        "/days/{day}/override",
		Summary:     "Clear a manual day override",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *dayPath) (*struct {
		Body domain.DayReport `json:"body"`
	}, error) {
		if err := e.ClearOverride(ctx, input.Day); err != nil {
			return nil, handleError(err)
		}
		report, err := e.DayStatus(ctx, input.Day)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.DayReport `json:"body"`
		}{Body: report}, nil
	})
}

func registerShift(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-shift",
		Method:      http.MethodGet,
		Path:        "/shift",
		Summary:     "Active shift configuration",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.ShiftConfig `json:"body"`
	}, error) {
		return &struct {
			Body domain.ShiftConfig `json:"body"`
		}{Body: e.Shift}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-shift",
		Method:      http.MethodPut,
		Path:        "/shift",
		Summary:     "Replace the active shift configuration",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body domain.ShiftConfig `json:"body"`
	}) (*struct {
		Body domain.ShiftConfig `json:"body"`
	}, error) {
		if err := e.SetShift(ctx, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ShiftConfig `json:"body"`
		}{Body: e.Shift}, nil
	})
}

func registerBackup(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "export",
		Method:      http.MethodGet,
		Path:        "/export",
		Summary:     "Export the full event log",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.Backup `json:"body"`
	}, error) {
		backup, err := e.Export(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Backup `json:"body"`
		}{Body: backup}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "import",
		Method:      http.MethodPost,
		Path:        "/import",
		Summary:     "Import a previously exported log",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body engine.Backup `json:"body"`
	}) (*struct {
		Body map[string]int `json:"body"`
	}, error) {
		if err := e.Import(ctx, input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]int `json:"body"`
		}{Body: map[string]int{"events": len(input.Body.Events)}}, nil
	})
}
