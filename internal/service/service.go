package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/live-dashboard/internal/cache"
	"github.com/kjstillabower/live-dashboard/internal/client"
	"github.com/kjstillabower/live-dashboard/internal/models"
	"github.com/kjstillabower/live-dashboard/internal/observability"
)

// CachedSource memoises one fetcher's outcome under a fixed key for a bounded TTL.
// Failed outcomes are memoised too, so a rate-limited upstream is not hammered.
type CachedSource[T any] struct {
	fetcher  client.Fetcher[T]
	cache    cache.Cache
	key      string
	ttl      time.Duration
	now      func() time.Time
	group    singleflight.Group
	stampede *stampedeTracker
}

// NewCachedSource creates a CachedSource over fetcher. key identifies the fixed query and
// ttl is the per-source time-to-live.
func NewCachedSource[T any](fetcher client.Fetcher[T], c cache.Cache, key string, ttl time.Duration) *CachedSource[T] {
	return &CachedSource[T]{
		fetcher:  fetcher,
		cache:    c,
		key:      key,
		ttl:      ttl,
		now:      time.Now,
		stampede: newStampedeTracker(),
	}
}

// SetClock replaces the clock used for staleness checks. For tests.
func (s *CachedSource[T]) SetClock(now func() time.Time) {
	s.now = now
}

// Source returns the upstream's name.
func (s *CachedSource[T]) Source() string {
	return s.fetcher.Source()
}

// TTL returns the configured time-to-live.
func (s *CachedSource[T]) TTL() time.Duration {
	return s.ttl
}

// loggerFromContext extracts a zap.Logger from request context if present.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// GetOrFetch returns the memoised outcome while it is younger than the TTL. Otherwise it
// fetches once, stores the new outcome with a fresh timestamp and returns it.
// Concurrent misses share a single fetch.
func (s *CachedSource[T]) GetOrFetch(ctx context.Context) models.Outcome[T] {
	source := s.fetcher.Source()
	logger := loggerFromContext(ctx)

	if entry, ok := s.lookup(ctx, logger); ok {
		observability.CacheHitsTotal.WithLabelValues(source).Inc()
		if logger != nil {
			logger.Debug("cache hit", zap.String("source", source), zap.Time("computed_at", entry.ComputedAt))
		}
		return entry.Outcome
	}
	observability.CacheMissesTotal.WithLabelValues(source).Inc()

	if n := s.stampede.RecordMiss(s.key); n > 1 {
		observability.CacheStampedeDetectedTotal.WithLabelValues(source).Inc()
	}
	defer s.stampede.RecordDone(s.key)

	v, _, _ := s.group.Do(s.key, func() (any, error) {
		// The fetch is shared, so it must outlive the caller that started it.
		// The client's own timeout still bounds it.
		fetchCtx := context.WithoutCancel(ctx)
		// A caller that missed just before the previous fetch landed finds it here.
		if entry, ok := s.lookup(fetchCtx, logger); ok {
			return entry.Outcome, nil
		}
		start := time.Now()
		outcome := s.fetcher.Fetch(fetchCtx)
		if logger != nil {
			logger.Debug("fetched upstream",
				zap.String("source", source),
				zap.Bool("ok", outcome.OK()),
				zap.String("reason", outcome.Reason),
				zap.Duration("duration", time.Since(start)))
		}
		s.store(fetchCtx, outcome, logger)
		return outcome, nil
	})
	return v.(models.Outcome[T])
}

// Invalidate drops the memoised outcome so the next GetOrFetch fetches.
func (s *CachedSource[T]) Invalidate(ctx context.Context) error {
	observability.CacheInvalidationsTotal.WithLabelValues(s.fetcher.Source()).Inc()
	if err := s.cache.Delete(ctx, s.key); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("delete", categorizeCacheError(err)).Inc()
		return err
	}
	return nil
}

// Prefetch fills the cache entry. Returns an error when the fetched outcome is a failure.
func (s *CachedSource[T]) Prefetch(ctx context.Context) error {
	outcome := s.GetOrFetch(ctx)
	if !outcome.OK() {
		return errors.New(outcome.Reason)
	}
	return nil
}

// lookup returns a fresh entry. Backend and decode errors are counted and treated as misses.
func (s *CachedSource[T]) lookup(ctx context.Context, logger *zap.Logger) (models.CacheEntry[T], bool) {
	getStart := time.Now()
	raw, ok, err := s.cache.Get(ctx, s.key)
	getDuration := time.Since(getStart).Seconds()
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "error").Observe(getDuration)
		if logger != nil {
			logger.Warn("cache get failed", zap.String("key", s.key), zap.Error(err))
		}
		return models.CacheEntry[T]{}, false
	}
	observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
	if !ok {
		return models.CacheEntry[T]{}, false
	}

	var entry models.CacheEntry[T]
	if err := json.Unmarshal(raw, &entry); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", "decode").Inc()
		if logger != nil {
			logger.Warn("cache entry undecodable", zap.String("key", s.key), zap.Error(err))
		}
		return models.CacheEntry[T]{}, false
	}
	if entry.Stale(s.now()) {
		return models.CacheEntry[T]{}, false
	}
	return entry, true
}

func (s *CachedSource[T]) store(ctx context.Context, outcome models.Outcome[T], logger *zap.Logger) {
	entry := models.CacheEntry[T]{Outcome: outcome, ComputedAt: s.now(), TTL: s.ttl}
	raw, err := json.Marshal(entry)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", "encode").Inc()
		return
	}
	setStart := time.Now()
	if setErr := s.cache.Set(ctx, s.key, raw, s.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(setErr)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "error").Observe(time.Since(setStart).Seconds())
		if logger != nil {
			logger.Warn("cache set failed", zap.String("key", s.key), zap.Error(setErr))
		}
		return
	}
	observability.CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(time.Since(setStart).Seconds())
}

// categorizeCacheError returns a stable label for cache error metrics (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return "connection"
	}
	return "unknown"
}
