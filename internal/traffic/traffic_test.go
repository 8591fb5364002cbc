package traffic

import (
	"testing"
	"time"
)

// TestFetchCount_Empty verifies a fresh tracker reports no fetches.
func TestFetchCount_Empty(t *testing.T) {
	tr := NewTracker()
	if n := tr.FetchCount(time.Minute); n != 0 {
		t.Errorf("FetchCount() = %d, want 0", n)
	}
}

// TestErrorRate_SuccessAndFailure verifies failures and successes share one denominator.
func TestErrorRate_SuccessAndFailure(t *testing.T) {
	tr := NewTracker()
	tr.RecordSuccess()
	tr.RecordSuccess()
	tr.RecordFailure()
	failures, total := tr.ErrorRate(time.Minute)
	if failures != 1 || total != 3 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 3)", failures, total)
	}
}

// TestRecordRateLimited_CountsAsFailure verifies that a 429 is both a failure and a rate-limit hit.
func TestRecordRateLimited_CountsAsFailure(t *testing.T) {
	tr := NewTracker()
	tr.RecordSuccess()
	tr.RecordRateLimited()
	if n := tr.RateLimitedCount(time.Minute); n != 1 {
		t.Errorf("RateLimitedCount() = %d, want 1", n)
	}
	failures, total := tr.ErrorRate(time.Minute)
	if failures != 1 || total != 2 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 2)", failures, total)
	}
}

// TestWindow_ExcludesOldOutcomes verifies outcomes outside the window are not counted
// and outcomes older than the retention age are pruned.
func TestWindow_ExcludesOldOutcomes(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tr := &Tracker{now: func() time.Time { return now }}
	tr.RecordFailure()

	now = now.Add(2 * time.Minute)
	tr.RecordSuccess()
	if failures, total := tr.ErrorRate(time.Minute); failures != 0 || total != 1 {
		t.Errorf("ErrorRate(1m) = (%d, %d), want (0, 1)", failures, total)
	}

	now = now.Add(10 * time.Minute)
	tr.RecordSuccess()
	if n := tr.FetchCount(time.Hour); n != 1 {
		t.Errorf("FetchCount(1h) = %d, want 1 after pruning", n)
	}
}

// TestReset verifies Reset clears every window.
func TestReset(t *testing.T) {
	tr := NewTracker()
	tr.RecordSuccess()
	tr.RecordFailure()
	tr.RecordRateLimited()
	tr.Reset()
	if n := tr.FetchCount(time.Minute); n != 0 {
		t.Errorf("FetchCount() = %d, want 0", n)
	}
	if n := tr.RateLimitedCount(time.Minute); n != 0 {
		t.Errorf("RateLimitedCount() = %d, want 0", n)
	}
}
