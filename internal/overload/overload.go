package overload

import (
	"time"

	"github.com/kjstillabower/live-dashboard/internal/traffic"
)

// Monitor counts page requests admitted and denied by the rate limiter.
type Monitor struct {
	tracker      *traffic.Tracker
	window       time.Duration
	rps          int
	thresholdPct int
}

// NewMonitor returns a Monitor. The service is overloaded when more than thresholdPct
// percent of rps*window requests arrived within window.
func NewMonitor(window time.Duration, rps, thresholdPct int) *Monitor {
	return &Monitor{tracker: traffic.NewTracker(), window: window, rps: rps, thresholdPct: thresholdPct}
}

// RecordAllowed records a request the limiter admitted.
func (m *Monitor) RecordAllowed() {
	m.tracker.RecordSuccess()
}

// RecordDenial records a rate-limit denial (429). Call from middleware when returning 429.
func (m *Monitor) RecordDenial() {
	m.tracker.RecordRateLimited()
}

// RequestCount returns the number of requests (admitted + denied) within the window.
func (m *Monitor) RequestCount() int {
	return m.tracker.FetchCount(m.window)
}

// DenialCount returns the number of denials within the window.
func (m *Monitor) DenialCount() int {
	return m.tracker.RateLimitedCount(m.window)
}

// Overloaded reports whether the request count exceeds the threshold. Always false when
// rate limiting is disabled.
func (m *Monitor) Overloaded() bool {
	if m == nil || m.rps <= 0 || m.thresholdPct <= 0 || m.window <= 0 {
		return false
	}
	threshold := float64(m.rps) * m.window.Seconds() * float64(m.thresholdPct) / 100
	return float64(m.RequestCount()) > threshold
}
