package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/live-dashboard/internal/cache"
	"github.com/kjstillabower/live-dashboard/internal/client"
	"github.com/kjstillabower/live-dashboard/internal/config"
	"github.com/kjstillabower/live-dashboard/internal/dashboard"
	"github.com/kjstillabower/live-dashboard/internal/degraded"
	httphandler "github.com/kjstillabower/live-dashboard/internal/http"
	"github.com/kjstillabower/live-dashboard/internal/lifecycle"
	"github.com/kjstillabower/live-dashboard/internal/models"
	"github.com/kjstillabower/live-dashboard/internal/observability"
	"github.com/kjstillabower/live-dashboard/internal/overload"
	"github.com/kjstillabower/live-dashboard/internal/render"
	"github.com/kjstillabower/live-dashboard/internal/service"
	"github.com/kjstillabower/live-dashboard/internal/traffic"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	priceClient, err := client.NewCoinGeckoClient(client.CoinGeckoConfig{
		URL:       cfg.CoinGeckoURL,
		Coins:     cfg.CoinGeckoCoins,
		Currency:  cfg.CoinGeckoCurrency,
		UserAgent: cfg.CoinGeckoUserAgent,
		Timeout:   cfg.CoinGeckoTimeout,
	})
	if err != nil {
		logger.Fatal("coingecko client", zap.Error(err))
	}
	weatherClient, err := client.NewOpenMeteoClient(client.OpenMeteoConfig{
		URL:       cfg.OpenMeteoURL,
		Latitude:  cfg.OpenMeteoLatitude,
		Longitude: cfg.OpenMeteoLongitude,
		Timeout:   cfg.OpenMeteoTimeout,
	})
	if err != nil {
		logger.Fatal("open-meteo client", zap.Error(err))
	}
	trackers := map[string]*traffic.Tracker{
		client.SourceCoinGecko: traffic.NewTracker(),
		client.SourceOpenMeteo: traffic.NewTracker(),
	}
	priceClient.SetTracker(trackers[client.SourceCoinGecko])
	weatherClient.SetTracker(trackers[client.SourceOpenMeteo])

	var (
		cacheSvc  cache.Cache
		cachePing func() error
		closer    func() error
	)
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		cacheSvc, cachePing, closer = mc, mc.Ping, mc.Close
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case "redis":
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rc, err := cache.NewRedisCache(pingCtx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Timeout:  cfg.RedisTimeout,
		})
		cancel()
		if err != nil {
			logger.Fatal("redis cache", zap.Error(err))
		}
		cacheSvc, cachePing, closer = rc, rc.Ping, rc.Close
		logger.Info("cache backend: redis", zap.String("addr", cfg.RedisAddr))
	default:
		cacheSvc = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	prices := service.NewCachedSource[models.PriceQuote](priceClient, cacheSvc, priceClient.CacheKey(), cfg.CoinGeckoTTL)
	weather := service.NewCachedSource[models.WeatherReading](weatherClient, cacheSvc, weatherClient.CacheKey(), cfg.OpenMeteoTTL)

	pages := []dashboard.Controller{
		dashboard.NewPricesPage(prices, priceClient.Currency(), logger),
		dashboard.NewWeatherPage(weather, cfg.HistoryEnabled, logger),
	}
	store := dashboard.NewSessionStore(cfg.RefreshDefault, cfg.HistoryCapacity)
	observability.RegisterSessionGauge(store.Len)

	if cfg.WarmOnStart {
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := cache.NewCacheWarmer(logger).Warm(warmCtx, prices, weather); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
	}
	lifecycle.SetReady(true)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	overloadMonitor := overload.NewMonitor(cfg.OverloadWindow, cfg.RateLimitRPS, cfg.OverloadThresholdPct)
	healthConfig := &httphandler.HealthConfig{
		Upstreams: degraded.NewMonitor(trackers, cfg.DegradedWindow, cfg.DegradedErrorPct),
		Overload:  overloadMonitor,
		StartTime: time.Now(),
		CachePing: cachePing,
	}
	handler := httphandler.NewHandler(store, pages, healthConfig, logger)
	router := httphandler.NewRouter(handler, store, httphandler.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
		Overload:       overloadMonitor,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return evictSessions(gctx, store, cfg.SessionIdleTimeout, logger)
	})

	if cfg.WatchEnabled {
		for _, ctrl := range pages {
			if !contains(cfg.WatchPages, ctrl.Name()) {
				continue
			}
			ctrl := ctrl
			g.Go(func() error {
				return watch(gctx, ctrl, store, cfg.RefreshDefault.Interval, logger)
			})
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("graceful shutdown triggered")
		lifecycle.SetShuttingDown(true)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", zap.Error(err))
		}
		logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
		if err := httphandler.WaitForInFlight(shutdownCtx, 100*time.Millisecond); err != nil {
			logger.Warn("in-flight requests not completed", zap.Error(err),
				zap.Int64("remaining", httphandler.InFlightCount()),
				zap.Any("routes", httphandler.InFlightRoutes()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("run", zap.Error(err))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	if closer != nil {
		if err := closer(); err != nil {
			logger.Error("cache close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}

// evictSessions drops idle sessions once a minute until ctx is done.
func evictSessions(ctx context.Context, store *dashboard.SessionStore, idle time.Duration, logger *zap.Logger) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := store.Evict(idle); n > 0 {
				logger.Debug("sessions evicted", zap.Int("count", n), zap.Int("remaining", store.Len()))
			}
		}
	}
}

// watch runs ctrl headless with auto-refresh on, logging every cycle.
func watch(ctx context.Context, ctrl dashboard.Controller, store *dashboard.SessionStore, interval time.Duration, logger *zap.Logger) error {
	var st *dashboard.PageState
	store.NewSession().WithPage(ctrl.Name(), func(s *dashboard.PageState) {
		s.Refresh = models.RefreshConfig{Interval: interval, Enabled: true}
		st = s
	})
	runner := dashboard.NewRunner(ctrl, logger)
	logger.Info("watch mode started", zap.String("page", ctrl.Name()), zap.Duration("interval", interval))

	err := runner.Run(ctx, st, func(v render.View) {
		logger.Info("watch cycle",
			zap.String("page", v.Page),
			zap.Int("rows", len(v.Table.Rows)),
			zap.Int("charts", len(v.Charts)),
			zap.String("warning", v.Warning),
			zap.String("refreshed_at", v.RefreshedAt))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
