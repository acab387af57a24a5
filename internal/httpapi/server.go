package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plugind/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Plugins() []types.PluginInfo
	Reload(ctx context.Context) error
	Suspended() bool
	ApplySuspended(ctx context.Context, raw any) error
	SetEnabled(id string, enabled bool) bool
	Enabled(id string) bool
	DispatchRequest(ctx context.Context, req types.DispatchRequest) types.DispatchResponse
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	pluginsResponse := func() types.PluginsResponse {
		return types.PluginsResponse{Plugins: svc.Plugins(), Suspended: svc.Suspended()}
	}

	r.Get("/plugins", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, pluginsResponse())
	})

	r.Post("/reload", func(w http.ResponseWriter, r *http.Request) {
		start, lvl := time.Now(), requestLogLevel(r)
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.Reload(ctx); err != nil {
			status := statusFor(err)
			writeJSONError(w, status, err.Error())
			logOp(r, lvl, "reload", status, start, err)
			return
		}
		writeJSON(w, pluginsResponse())
		logOp(r, lvl, "reload", http.StatusOK, start, nil)
	})

	r.Put("/suspend", func(w http.ResponseWriter, r *http.Request) {
		start, lvl := time.Now(), requestLogLevel(r)
		var req types.SuspendRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.ApplySuspended(ctx, req.Suspended); err != nil {
			status := statusFor(err)
			if status == http.StatusBadRequest {
				IncrementRejected("invalid_flag")
			}
			writeJSONError(w, status, err.Error())
			logOp(r, lvl, "suspend", status, start, err)
			return
		}
		writeJSON(w, pluginsResponse())
		logOp(r, lvl, "suspend", http.StatusOK, start, nil)
	})

	r.Put("/plugins/{id}/enabled", func(w http.ResponseWriter, r *http.Request) {
		start, lvl := time.Now(), requestLogLevel(r)
		id := chi.URLParam(r, "id")
		var req types.EnableRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		enabled, ok := req.Enabled.(bool)
		if !ok {
			IncrementRejected("invalid_flag")
			writeJSONError(w, http.StatusBadRequest, "enabled must be a boolean")
			return
		}
		known := svc.SetEnabled(id, enabled)
		writeJSON(w, types.EnableResponse{ID: id, Enabled: svc.Enabled(id), Known: known})
		logOp(r, lvl, "set enabled", http.StatusOK, start, nil)
	})

	r.Post("/dispatch", func(w http.ResponseWriter, r *http.Request) {
		start, lvl := time.Now(), requestLogLevel(r)
		var req types.DispatchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.EventType) == "" || strings.TrimSpace(req.Field) == "" {
			IncrementRejected("missing_event")
			writeJSONError(w, http.StatusBadRequest, "event_type and field are required")
			return
		}
		if lvl >= LevelDebug && zlog != nil {
			zlog.Debug().Str("event", req.EventType).Str("field", req.Field).Str("request_id", middleware.GetReqID(r.Context())).Msg("dispatch start")
		}
		// Join server base context with request context so shutdown cancels plugins too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp := svc.DispatchRequest(ctx, req)
		writeJSON(w, resp)
		logOp(r, lvl, "dispatch", http.StatusOK, start, nil)
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// decodeJSON enforces the JSON content type and body limit and decodes the
// body into v. It writes the error response and returns false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		IncrementRejected("media_type")
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Oversized bodies are reported as 400 as well to avoid leaking the limit.
		IncrementRejected("invalid_json")
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
