package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/live-dashboard/internal/dashboard"
	"github.com/kjstillabower/live-dashboard/internal/degraded"
	"github.com/kjstillabower/live-dashboard/internal/lifecycle"
	"github.com/kjstillabower/live-dashboard/internal/overload"
	"github.com/kjstillabower/live-dashboard/internal/render"
	"github.com/kjstillabower/live-dashboard/internal/validation"
)

// HealthConfig holds the health handler's inputs.
type HealthConfig struct {
	Upstreams *degraded.Monitor
	Overload  *overload.Monitor
	StartTime time.Time
	// CachePing, when set, is called to check cache reachability. Used for memcached and redis.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	sessions         *dashboard.SessionStore
	pages            map[string]dashboard.Controller
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler serving the given page controllers.
func NewHandler(
	sessions *dashboard.SessionStore,
	pages []dashboard.Controller,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	byName := make(map[string]dashboard.Controller, len(pages))
	for _, p := range pages {
		byName[p.Name()] = p
	}
	return &Handler{
		sessions:     sessions,
		pages:        byName,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// GetHome handles GET /.
func (h *Handler) GetHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.Home(w); err != nil {
		h.renderFailed(w, r, err)
	}
}

// GetPage returns the handler for GET /{page}. Refresh controls in the query update the
// session's page state before the cycle runs; a tick forces a fresh fetch.
func (h *Handler) GetPage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, ok := h.pages[name]
		if !ok {
			writeError(w, r, http.StatusNotFound, "UNKNOWN_PAGE", "unknown page: "+name)
			return
		}
		sess := sessionFromRequest(r)
		if sess == nil {
			sess, _ = h.sessions.Get("")
		}
		query := r.URL.Query()

		var (
			view     render.View
			parseErr error
		)
		sess.WithPage(name, func(st *dashboard.PageState) {
			next, err := validation.ParseRefreshControls(query, st.Refresh)
			if err != nil {
				parseErr = err
				return
			}
			st.Refresh = next
			view = ctrl.Cycle(r.Context(), st, validation.IsTick(query))
		})
		if parseErr != nil {
			writeError(w, r, http.StatusBadRequest, "INVALID_REFRESH", parseErr.Error())
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := render.Page(w, view); err != nil {
			h.renderFailed(w, r, err)
		}
	}
}

// PostClearHistory handles POST /weather/history/clear: empties the session's weather history
// and sends the browser back to the page, which reruns the cycle.
func (h *Handler) PostClearHistory(w http.ResponseWriter, r *http.Request) {
	if sess := sessionFromRequest(r); sess != nil {
		sess.WithPage(dashboard.PageWeather, func(st *dashboard.PageState) {
			if st.History != nil {
				st.History.Clear()
			}
		})
		if logger := loggerFromRequest(r); logger != nil {
			logger.Debug("weather history cleared", zap.String("session", sess.ID))
		}
	}
	http.Redirect(w, r, "/"+dashboard.PageWeather, http.StatusSeeOther)
}

func (h *Handler) renderFailed(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("render failed", zap.Error(err))
	writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "Unable to render page")
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if h.healthConfig != nil && h.healthConfig.Upstreams != nil {
		down := make(map[string]bool)
		for _, s := range h.healthConfig.Upstreams.Degraded() {
			down[s] = true
		}
		for _, s := range h.healthConfig.Upstreams.Sources() {
			if down[s] {
				checks[s] = "unhealthy"
			} else {
				checks[s] = "healthy"
			}
		}
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "live-dashboard",
		"version":   "dev",
		"checks":    checks,
		"sessions":  h.sessions.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil && !h.healthConfig.StartTime.IsZero() {
		resp["uptimeSeconds"] = int(time.Since(h.healthConfig.StartTime).Seconds())
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > starting > overloaded > degraded > healthy.
// Degraded upstreams keep 200 because pages still render sample data.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if !lifecycle.IsReady() {
		return healthResult{"starting", http.StatusServiceUnavailable, "warming"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if h.healthConfig.Overload.Overloaded() {
		return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
	}
	if h.healthConfig.Upstreams != nil {
		if down := h.healthConfig.Upstreams.Degraded(); len(down) > 0 {
			return healthResult{"degraded", http.StatusOK, "upstream_error_rate"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
// Sets Content-Type header to application/json and encodes the provided value.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}

func loggerFromRequest(r *http.Request) *zap.Logger {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok {
		return logger
	}
	return nil
}
