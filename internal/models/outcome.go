package models

import "time"

// Outcome is the result of a single fetch attempt: either a record set or a failure reason.
// A failed outcome never carries records.
type Outcome[T any] struct {
	Records []T    `json:"records,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Failed  bool   `json:"failed,omitempty"`
}

// Success returns an outcome holding records.
func Success[T any](records []T) Outcome[T] {
	return Outcome[T]{Records: records}
}

// Failure returns a failed outcome. An empty reason is replaced with "unknown error".
func Failure[T any](reason string) Outcome[T] {
	if reason == "" {
		reason = "unknown error"
	}
	return Outcome[T]{Reason: reason, Failed: true}
}

// OK reports whether the outcome is a success.
func (o Outcome[T]) OK() bool {
	return !o.Failed
}

// CacheEntry is a memoised outcome together with the time it was computed.
type CacheEntry[T any] struct {
	Outcome    Outcome[T]    `json:"outcome"`
	ComputedAt time.Time     `json:"computedAt"`
	TTL        time.Duration `json:"ttl"`
}

// Stale reports whether more than TTL has elapsed since the entry was computed.
func (e CacheEntry[T]) Stale(now time.Time) bool {
	return now.Sub(e.ComputedAt) > e.TTL
}
