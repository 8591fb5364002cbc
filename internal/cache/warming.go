package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Prefetcher fills its own cache entry. Implemented by the service layer so this package
// does not depend on it.
type Prefetcher interface {
	Source() string
	Prefetch(ctx context.Context) error
}

// CacheWarmer populates cache entries before the first page view.
type CacheWarmer struct {
	logger *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer. logger may be nil.
func NewCacheWarmer(logger *zap.Logger) *CacheWarmer {
	return &CacheWarmer{logger: logger}
}

// Warm prefetches every source concurrently. All sources are attempted; the returned error
// joins every failure.
func (w *CacheWarmer) Warm(ctx context.Context, sources ...Prefetcher) error {
	start := time.Now()
	if w.logger != nil {
		w.logger.Info("warming cache", zap.Int("sources", len(sources)))
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			if err := src.Prefetch(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("warm %s: %w", src.Source(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if w.logger != nil {
		w.logger.Info("cache warming complete",
			zap.Int("sources", len(sources)),
			zap.Int("errors", len(errs)),
			zap.Duration("duration", time.Since(start)))
	}
	if len(errs) > 0 {
		return fmt.Errorf("cache warming: %w", errors.Join(errs...))
	}
	return nil
}
