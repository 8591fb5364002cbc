package traffic

import (
	"sync"
	"time"
)

// maxAge bounds how long outcome timestamps are retained.
const maxAge = 5 * time.Minute

// Tracker maintains sliding windows of request outcomes: upstream fetches for one source,
// or page requests admitted and denied by the rate limiter.
// The zero value is ready to use.
type Tracker struct {
	mu               sync.Mutex
	now              func() time.Time
	successTimes     []time.Time
	failureTimes     []time.Time
	rateLimitedTimes []time.Time
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// RecordSuccess records a successful fetch.
func (t *Tracker) RecordSuccess() {
	t.recordOutcome(&t.successTimes)
}

// RecordFailure records a failed fetch (transport, status or parse failure).
func (t *Tracker) RecordFailure() {
	t.recordOutcome(&t.failureTimes)
}

// RecordRateLimited records a failed fetch caused by HTTP 429. It counts as a failure too.
func (t *Tracker) RecordRateLimited() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	t.failureTimes = append(t.failureTimes, now)
	t.rateLimitedTimes = append(t.rateLimitedTimes, now)
	t.pruneLocked(now)
}

// recordOutcome appends the current timestamp to the given slice and prunes old entries.
func (t *Tracker) recordOutcome(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// FetchCount returns the number of fetches (success + failure) within the window.
func (t *Tracker) FetchCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock().Add(-window)
	return countInWindow(t.successTimes, cutoff) + countInWindow(t.failureTimes, cutoff)
}

// RateLimitedCount returns the number of 429 responses within the window.
func (t *Tracker) RateLimitedCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countInWindow(t.rateLimitedTimes, t.clock().Add(-window))
}

// ErrorRate returns (failureCount, totalCount) within the window.
func (t *Tracker) ErrorRate(window time.Duration) (failures, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.clock().Add(-window)
	failCount := countInWindow(t.failureTimes, cutoff)
	return failCount, failCount + countInWindow(t.successTimes, cutoff)
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successTimes = nil
	t.failureTimes = nil
	t.rateLimitedTimes = nil
}

func (t *Tracker) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// countInWindow counts timestamps that are not before the cutoff time.
func countInWindow(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than maxAge. Must be called with mutex held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-maxAge)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successTimes)
	prune(&t.failureTimes)
	prune(&t.rateLimitedTimes)
}
