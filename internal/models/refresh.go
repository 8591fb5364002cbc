package models

import "time"

// Refresh interval bounds and default.
const (
	MinRefreshInterval     = 10 * time.Second
	MaxRefreshInterval     = 120 * time.Second
	DefaultRefreshInterval = 30 * time.Second
)

// RefreshConfig controls auto-refresh for one page.
type RefreshConfig struct {
	Interval time.Duration
	Enabled  bool
}

// DefaultRefreshConfig returns a 30s interval with auto-refresh off.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{Interval: DefaultRefreshInterval}
}

// Seconds returns the interval in whole seconds.
func (r RefreshConfig) Seconds() int {
	return int(r.Interval / time.Second)
}
