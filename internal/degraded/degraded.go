package degraded

import (
	"sort"
	"time"

	"github.com/kjstillabower/live-dashboard/internal/traffic"
)

// Monitor decides which upstreams are degraded from their recent fetch outcomes.
type Monitor struct {
	trackers map[string]*traffic.Tracker
	window   time.Duration
	errorPct int
}

// NewMonitor watches trackers keyed by source name. A source is degraded when at least
// errorPct percent of its fetches within window failed.
func NewMonitor(trackers map[string]*traffic.Tracker, window time.Duration, errorPct int) *Monitor {
	return &Monitor{trackers: trackers, window: window, errorPct: errorPct}
}

// ErrorRate returns (errorCount, totalCount) for source within the window.
func (m *Monitor) ErrorRate(source string) (errors, total int) {
	t, ok := m.trackers[source]
	if !ok {
		return 0, 0
	}
	return t.ErrorRate(m.window)
}

// RateLimited returns how many fetches of source were answered 429 within the window.
func (m *Monitor) RateLimited(source string) int {
	t, ok := m.trackers[source]
	if !ok {
		return 0
	}
	return t.RateLimitedCount(m.window)
}

// Degraded returns the degraded sources in name order. Sources without fetches in the
// window are healthy.
func (m *Monitor) Degraded() []string {
	if m.window <= 0 || m.errorPct <= 0 {
		return nil
	}
	var out []string
	for name := range m.trackers {
		errors, total := m.ErrorRate(name)
		if total == 0 {
			continue
		}
		if errors*100 >= m.errorPct*total {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Sources returns the watched source names in order.
func (m *Monitor) Sources() []string {
	out := make([]string, 0, len(m.trackers))
	for name := range m.trackers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
