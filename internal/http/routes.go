package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/live-dashboard/internal/dashboard"
	"github.com/kjstillabower/live-dashboard/internal/observability"
	"github.com/kjstillabower/live-dashboard/internal/overload"
)

// RouterConfig holds the middleware settings for page routes.
type RouterConfig struct {
	RequestTimeout time.Duration
	Limiter        *rate.Limiter // nil disables rate limiting
	Overload       *overload.Monitor
}

// NewRouter wires the dashboard routes. Page routes carry sessions, rate limiting and a
// request deadline; /health and /metrics carry neither.
func NewRouter(h *Handler, store *dashboard.SessionStore, cfg RouterConfig, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	pages := router.NewRoute().Subrouter()
	pages.Use(RateLimitMiddleware(cfg.Limiter, cfg.Overload))
	if cfg.RequestTimeout > 0 {
		pages.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	pages.Use(SessionMiddleware(store))
	pages.HandleFunc("/", h.GetHome).Methods(http.MethodGet)
	pages.HandleFunc("/"+dashboard.PagePrices, h.GetPage(dashboard.PagePrices)).Methods(http.MethodGet)
	pages.HandleFunc("/"+dashboard.PageWeather, h.GetPage(dashboard.PageWeather)).Methods(http.MethodGet)
	pages.HandleFunc("/"+dashboard.PageWeather+"/history/clear", h.PostClearHistory).Methods(http.MethodPost)
	return router
}
