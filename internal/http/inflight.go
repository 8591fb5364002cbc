package http

import (
	"context"
	"sync"
	"time"
)

// InFlightTracker counts requests that are still being rendered, keyed by route template.
// Shutdown waits on it so a page cycle that already fetched upstream data can finish writing.
type InFlightTracker struct {
	mu      sync.Mutex
	total   int64
	byRoute map[string]int64
}

// Begin marks one request on route as started and returns the func that ends it.
func (t *InFlightTracker) Begin(route string) func() {
	t.mu.Lock()
	if t.byRoute == nil {
		t.byRoute = make(map[string]int64)
	}
	t.total++
	t.byRoute[route]++
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.total--
			if t.byRoute[route]--; t.byRoute[route] <= 0 {
				delete(t.byRoute, route)
			}
		})
	}
}

// Count returns the number of requests currently in flight.
func (t *InFlightTracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Routes returns a copy of the per-route in-flight counts.
func (t *InFlightTracker) Routes() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.byRoute))
	for route, n := range t.byRoute {
		out[route] = n
	}
	return out
}

// WaitForZero blocks until nothing is in flight or ctx is done, polling every checkInterval.
func (t *InFlightTracker) WaitForZero(ctx context.Context, checkInterval time.Duration) error {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for t.Count() != 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

var globalInFlightTracker = &InFlightTracker{}

// InFlightCount returns the process-wide number of in-flight page requests.
func InFlightCount() int64 {
	return globalInFlightTracker.Count()
}

// InFlightRoutes returns the process-wide in-flight counts per route.
func InFlightRoutes() map[string]int64 {
	return globalInFlightTracker.Routes()
}

// WaitForInFlight blocks until in-flight requests drain or ctx is done.
func WaitForInFlight(ctx context.Context, checkInterval time.Duration) error {
	return globalInFlightTracker.WaitForZero(ctx, checkInterval)
}
