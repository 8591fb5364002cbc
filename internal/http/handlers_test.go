package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/live-dashboard/internal/dashboard"
	"github.com/kjstillabower/live-dashboard/internal/degraded"
	"github.com/kjstillabower/live-dashboard/internal/lifecycle"
	"github.com/kjstillabower/live-dashboard/internal/models"
	"github.com/kjstillabower/live-dashboard/internal/overload"
	"github.com/kjstillabower/live-dashboard/internal/traffic"
)

// mockSource serves a fixed outcome and counts fetches and invalidations.
type mockSource[T any] struct {
	mu            sync.Mutex
	outcome       models.Outcome[T]
	fetches       int
	invalidations int
}

func (m *mockSource[T]) Source() string { return "mock" }

func (m *mockSource[T]) GetOrFetch(ctx context.Context) models.Outcome[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	return m.outcome
}

func (m *mockSource[T]) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalidations++
	return nil
}

type fixture struct {
	router  http.Handler
	store   *dashboard.SessionStore
	prices  *mockSource[models.PriceQuote]
	weather *mockSource[models.WeatherReading]
}

func newFixture(t *testing.T, healthConfig *HealthConfig, cfg RouterConfig) *fixture {
	t.Helper()
	lifecycle.SetReady(true)
	t.Cleanup(func() { lifecycle.SetReady(false) })

	prices := &mockSource[models.PriceQuote]{outcome: models.Success([]models.PriceQuote{
		{Coin: "bitcoin", Currency: "usd", Price: decimal.NewFromInt(64000)},
		{Coin: "ethereum", Currency: "usd", Price: decimal.NewFromInt(3100)},
	})}
	weather := &mockSource[models.WeatherReading]{outcome: models.Success([]models.WeatherReading{
		{Timestamp: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), Temperature: 21, WindSpeed: 3},
	})}
	logger := zap.NewNop()
	store := dashboard.NewSessionStore(models.DefaultRefreshConfig(), 20)
	handler := NewHandler(store, []dashboard.Controller{
		dashboard.NewPricesPage(prices, "usd", logger),
		dashboard.NewWeatherPage(weather, true, logger),
	}, healthConfig, logger)
	return &fixture{
		router:  NewRouter(handler, store, cfg, logger),
		store:   store,
		prices:  prices,
		weather: weather,
	}
}

// do sends a request with the session cookie when sessionID is set.
func (f *fixture) do(method, target, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sessionID})
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			return c.Value
		}
	}
	t.Fatal("session cookie not set")
	return ""
}

// TestHandler_GetHome verifies the landing page renders and links both pages.
func TestHandler_GetHome(t *testing.T) {
	f := newFixture(t, nil, RouterConfig{})

	w := f.do("GET", "/", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `href="/prices"`) {
		t.Error("home page missing prices link")
	}
}

// TestHandler_GetPage_Prices verifies the prices page renders the table and sets a session cookie.
func TestHandler_GetPage_Prices(t *testing.T) {
	f := newFixture(t, nil, RouterConfig{})

	w := f.do("GET", "/prices", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"<th>coin</th>", "<th>usd</th>", "<td>bitcoin</td>", "<td>64000</td>", "Last refreshed at"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	_ = sessionCookie(t, w)
}

// TestHandler_GetPage_FallbackWarning verifies an upstream failure renders the sample rows and warning.
func TestHandler_GetPage_FallbackWarning(t *testing.T) {
	f := newFixture(t, nil, RouterConfig{})
	f.prices.outcome = models.Failure[models.PriceQuote]("429 Too Many Requests: try again after 5s")

	w := f.do("GET", "/prices", "")

	body := w.Body.String()
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	for _, want := range []string{"429 Too Many Requests: try again after 5s", "Showing sample data so the demo continues.", "<td>68000</td>"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

// TestHandler_GetPage_RefreshControls verifies submitted controls persist in the session and
// drive the auto-refresh tick.
func TestHandler_GetPage_RefreshControls(t *testing.T) {
	f := newFixture(t, nil, RouterConfig{})
	first := f.do("GET", "/prices", "")
	id := sessionCookie(t, first)

	w := f.do("GET", "/prices?submitted=1&interval=20&auto=on", id)
	if !strings.Contains(w.Body.String(), `content="20;url=/prices?auto=on&amp;interval=20&amp;tick=1"`) {
		t.Fatalf("auto-refresh meta missing:\n%s", w.Body.String())
	}

	// Plain navigation keeps the session's controls.
	w = f.do("GET", "/prices", id)
	if !strings.Contains(w.Body.String(), `http-equiv="refresh"`) {
		t.Error("auto-refresh lost on plain navigation")
	}

	// Unchecking the box turns it off.
	w = f.do("GET", "/prices?submitted=1&interval=20", id)
	if strings.Contains(w.Body.String(), `http-equiv="refresh"`) {
		t.Error("auto-refresh still on after form submitted without auto")
	}
}

// TestHandler_GetPage_TickInvalidates verifies a tick forces a fresh fetch and a plain request does not.
func TestHandler_GetPage_TickInvalidates(t *testing.T) {
	f := newFixture(t, nil, RouterConfig{})

	f.do("GET", "/prices", "")
	f.do("GET", "/prices?tick=1&interval=10&auto=on", "")

	if f.prices.invalidations != 1 {
		t.Errorf("invalidations = %d, want 1", f.prices.invalidations)
	}
	if f.prices.fetches != 2 {
		t.Errorf("fetches = %d, want 2", f.prices.fetches)
	}
}

// TestHandler_GetPage_InvalidInterval verifies out-of-range controls return 400 in the standard error body.
func TestHandler_GetPage_InvalidInterval(t *testing.T) {
	f := newFixture(t, nil, RouterConfig{})

	w := f.do("GET", "/weather?"+url.Values{"interval": {"5"}}.Encode(), "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body map[string]map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"]["code"] != "INVALID_REFRESH" {
		t.Errorf("code = %q, want INVALID_REFRESH", body["error"]["code"])
	}
	if f.weather.fetches != 0 {
		t.Errorf("fetches = %d, want 0 on invalid input", f.weather.fetches)
	}
}

// TestHandler_WeatherHistory verifies readings accumulate per session and clear-history empties them.
func TestHandler_WeatherHistory(t *testing.T) {
	f := newFixture(t, nil, RouterConfig{})
	id := sessionCookie(t, f.do("GET", "/weather", ""))

	f.weather.outcome = models.Success([]models.WeatherReading{
		{Timestamp: time.Date(2024, 6, 1, 10, 15, 0, 0, time.UTC), Temperature: 22, WindSpeed: 4},
	})
	w := f.do("GET", "/weather", id)
	if !strings.Contains(w.Body.String(), "Showing 2 data points") {
		t.Fatalf("history not accumulated:\n%s", w.Body.String())
	}

	// Another session starts empty.
	other := f.do("GET", "/weather", "")
	if !strings.Contains(other.Body.String(), "Showing 1 data points") {
		t.Error("history leaked across sessions")
	}

	clear := f.do("POST", "/weather/history/clear", id)
	if clear.Code != http.StatusSeeOther || clear.Header().Get("Location") != "/weather" {
		t.Fatalf("clear = %d %q, want 303 /weather", clear.Code, clear.Header().Get("Location"))
	}
	w = f.do("GET", "/weather", id)
	if !strings.Contains(w.Body.String(), "Showing 1 data points") {
		t.Error("history not cleared")
	}
}

// TestHandler_GetHealth verifies status and code for each health condition.
func TestHandler_GetHealth(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(cg *traffic.Tracker, om *traffic.Tracker, ov *overload.Monitor)
		shutdown   bool
		ready      bool
		wantStatus string
		wantCode   int
	}{
		{name: "healthy", ready: true, wantStatus: "healthy", wantCode: http.StatusOK},
		{name: "starting", ready: false, wantStatus: "starting", wantCode: http.StatusServiceUnavailable},
		{name: "shutting down", ready: true, shutdown: true, wantStatus: "shutting-down", wantCode: http.StatusServiceUnavailable},
		{
			name:  "degraded upstream",
			ready: true,
			setup: func(cg, om *traffic.Tracker, ov *overload.Monitor) {
				cg.RecordRateLimited()
				om.RecordSuccess()
			},
			wantStatus: "degraded",
			wantCode:   http.StatusOK,
		},
		{
			name:  "overloaded",
			ready: true,
			setup: func(cg, om *traffic.Tracker, ov *overload.Monitor) {
				for i := 0; i < 20; i++ {
					ov.RecordDenial()
				}
			},
			wantStatus: "overloaded",
			wantCode:   http.StatusServiceUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cg, om := traffic.NewTracker(), traffic.NewTracker()
			ov := overload.NewMonitor(10*time.Second, 1, 100)
			if tt.setup != nil {
				tt.setup(cg, om, ov)
			}
			healthConfig := &HealthConfig{
				Upstreams: degraded.NewMonitor(map[string]*traffic.Tracker{"coingecko": cg, "openmeteo": om}, time.Minute, 50),
				Overload:  ov,
				StartTime: time.Now(),
				CachePing: func() error { return nil },
			}
			store := dashboard.NewSessionStore(models.DefaultRefreshConfig(), 20)
			handler := NewHandler(store, nil, healthConfig, zap.NewNop())
			lifecycle.SetReady(tt.ready)
			lifecycle.SetShuttingDown(tt.shutdown)
			defer lifecycle.SetReady(false)
			defer lifecycle.SetShuttingDown(false)

			// Act
			w := httptest.NewRecorder()
			handler.GetHealth(w, httptest.NewRequest("GET", "/health", nil))

			// Assert
			if w.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", w.Code, tt.wantCode)
			}
			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			if body.Checks["cache"] != "healthy" {
				t.Errorf("checks.cache = %q, want healthy", body.Checks["cache"])
			}
			if tt.wantStatus == "degraded" && (body.Checks["coingecko"] != "unhealthy" || body.Checks["openmeteo"] != "healthy") {
				t.Errorf("checks = %v", body.Checks)
			}
		})
	}
}

// TestHandler_GetHealth_LogsTransition verifies a status change is logged once.
func TestHandler_GetHealth_LogsTransition(t *testing.T) {
	// Arrange
	core, logs := observer.New(zap.DebugLevel)
	cg := traffic.NewTracker()
	cg.RecordSuccess()
	healthConfig := &HealthConfig{
		Upstreams: degraded.NewMonitor(map[string]*traffic.Tracker{"coingecko": cg}, time.Minute, 50),
	}
	handler := NewHandler(dashboard.NewSessionStore(models.DefaultRefreshConfig(), 20), nil, healthConfig, zap.New(core))
	lifecycle.SetReady(true)
	defer lifecycle.SetReady(false)
	req := httptest.NewRequest("GET", "/health", nil)

	// Act: healthy, then two failures push the error rate to 66%.
	handler.GetHealth(httptest.NewRecorder(), req)
	cg.RecordFailure()
	cg.RecordFailure()
	handler.GetHealth(httptest.NewRecorder(), req)
	handler.GetHealth(httptest.NewRecorder(), req)

	// Assert
	entries := logs.FilterMessage("health status transition").All()
	if len(entries) != 1 {
		t.Fatalf("want 1 transition log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["previous_status"] != "healthy" || fields["current_status"] != "degraded" || fields["reason"] != "upstream_error_rate" {
		t.Errorf("transition fields = %v", fields)
	}
}
