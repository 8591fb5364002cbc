package degraded

import (
	"testing"
	"time"

	"github.com/kjstillabower/live-dashboard/internal/traffic"
)

// TestMonitor_Degraded verifies sources cross into degraded at the configured error percentage.
func TestMonitor_Degraded(t *testing.T) {
	tests := []struct {
		name      string
		successes int
		failures  int
		want      bool
	}{
		{name: "no traffic", want: false},
		{name: "all success", successes: 4, want: false},
		{name: "below threshold", successes: 3, failures: 1, want: false},
		{name: "at threshold", successes: 1, failures: 1, want: true},
		{name: "all failures", failures: 2, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := traffic.NewTracker()
			for i := 0; i < tt.successes; i++ {
				tr.RecordSuccess()
			}
			for i := 0; i < tt.failures; i++ {
				tr.RecordFailure()
			}
			m := NewMonitor(map[string]*traffic.Tracker{"coingecko": tr}, time.Minute, 50)
			got := len(m.Degraded()) == 1
			if got != tt.want {
				t.Errorf("degraded = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestMonitor_ErrorRate verifies counts come from the named tracker and unknown sources are empty.
func TestMonitor_ErrorRate(t *testing.T) {
	tr := traffic.NewTracker()
	tr.RecordSuccess()
	tr.RecordRateLimited()
	m := NewMonitor(map[string]*traffic.Tracker{"openmeteo": tr}, time.Minute, 5)

	if errors, total := m.ErrorRate("openmeteo"); errors != 1 || total != 2 {
		t.Errorf("ErrorRate = (%d, %d), want (1, 2)", errors, total)
	}
	if m.RateLimited("openmeteo") != 1 {
		t.Errorf("RateLimited = %d, want 1", m.RateLimited("openmeteo"))
	}
	if errors, total := m.ErrorRate("missing"); errors != 0 || total != 0 {
		t.Errorf("ErrorRate(missing) = (%d, %d), want (0, 0)", errors, total)
	}
}

// TestMonitor_Disabled verifies a zero window or percentage disables degraded detection.
func TestMonitor_Disabled(t *testing.T) {
	tr := traffic.NewTracker()
	tr.RecordFailure()
	if got := NewMonitor(map[string]*traffic.Tracker{"x": tr}, 0, 5).Degraded(); len(got) != 0 {
		t.Errorf("Degraded = %v, want none", got)
	}
}
