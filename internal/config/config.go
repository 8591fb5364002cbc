package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/live-dashboard/internal/models"
)

// Config holds dashboard configuration loaded from .env, YAML and env.
type Config struct {
	Env string

	ServerPort      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    int
	RateLimitBurst  int
	LogLevel        string

	CacheBackend          string // "in_memory", "memcached" or "redis"
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RedisTimeout          time.Duration
	WarmOnStart           bool

	SessionIdleTimeout time.Duration

	CoinGeckoURL       string
	CoinGeckoTimeout   time.Duration
	CoinGeckoTTL       time.Duration
	CoinGeckoCoins     []string
	CoinGeckoCurrency  string
	CoinGeckoUserAgent string

	OpenMeteoURL       string
	OpenMeteoTimeout   time.Duration
	OpenMeteoTTL       time.Duration
	OpenMeteoLatitude  float64
	OpenMeteoLongitude float64

	HistoryEnabled  bool
	HistoryCapacity int

	RefreshDefault models.RefreshConfig

	WatchEnabled bool
	WatchPages   []string

	OverloadWindow       time.Duration
	OverloadThresholdPct int
	DegradedWindow       time.Duration
	DegradedErrorPct     int
}

type fileConfig struct {
	Server struct {
		Port           string `yaml:"port"`
		RequestTimeout string `yaml:"request_timeout"`
		RateLimitRPS   int    `yaml:"rate_limit_rps"`
		RateLimitBurst int    `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Cache struct {
		Backend     string `yaml:"backend"`
		WarmOnStart *bool  `yaml:"warm_on_start"`
		Memcached   struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Timeout  string `yaml:"timeout"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Session struct {
		IdleTimeout string `yaml:"idle_timeout"`
	} `yaml:"session"`

	Prices struct {
		URL       string   `yaml:"url"`
		Timeout   string   `yaml:"timeout"`
		TTL       string   `yaml:"ttl"`
		Coins     []string `yaml:"coins"`
		Currency  string   `yaml:"currency"`
		UserAgent string   `yaml:"user_agent"`
	} `yaml:"prices"`

	Weather struct {
		URL             string   `yaml:"url"`
		Timeout         string   `yaml:"timeout"`
		TTL             string   `yaml:"ttl"`
		Latitude        *float64 `yaml:"latitude"`
		Longitude       *float64 `yaml:"longitude"`
		HistoryEnabled  *bool    `yaml:"history_enabled"`
		HistoryCapacity int      `yaml:"history_capacity"`
	} `yaml:"weather"`

	Refresh struct {
		Interval string `yaml:"interval"`
		Enabled  bool   `yaml:"enabled"`
	} `yaml:"refresh"`

	Watch struct {
		Enabled bool     `yaml:"enabled"`
		Pages   []string `yaml:"pages"`
	} `yaml:"watch"`

	Shutdown struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"shutdown"`

	Health struct {
		OverloadWindow       string `yaml:"overload_window"`
		OverloadThresholdPct int    `yaml:"overload_threshold_pct"`
		DegradedWindow       string `yaml:"degraded_window"`
		DegradedErrorPct     int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`
}

// Load reads .env (optional), then config/{ENV_NAME}.yaml (default dev), then env overrides.
// A missing YAML file means built-in defaults. Call from project root.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")

	var fc fileConfig
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	case os.IsNotExist(err):
		// defaults
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := fromFile(fc)
	cfg.Env = env
	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fromFile applies defaults to every field the file leaves empty.
func fromFile(fc fileConfig) *Config {
	cfg := &Config{}

	cfg.ServerPort = orDefault(fc.Server.Port, "8080")
	cfg.RequestTimeout = parseDuration(fc.Server.RequestTimeout, 15*time.Second)
	cfg.RateLimitRPS = fc.Server.RateLimitRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	cfg.RateLimitBurst = fc.Server.RateLimitBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}
	cfg.LogLevel = orDefault(fc.Log.Level, "INFO")
	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 10*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.WarmOnStart = true
	if fc.Cache.WarmOnStart != nil {
		cfg.WarmOnStart = *fc.Cache.WarmOnStart
	}
	cfg.MemcachedAddrs = orDefault(fc.Cache.Memcached.Addrs, "localhost:11211")
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}
	cfg.RedisAddr = orDefault(fc.Cache.Redis.Addr, "localhost:6379")
	cfg.RedisPassword = fc.Cache.Redis.Password
	cfg.RedisDB = fc.Cache.Redis.DB
	cfg.RedisTimeout = parseDuration(fc.Cache.Redis.Timeout, 500*time.Millisecond)

	cfg.SessionIdleTimeout = parseDuration(fc.Session.IdleTimeout, 30*time.Minute)

	cfg.CoinGeckoURL = orDefault(fc.Prices.URL, "https://api.coingecko.com/api/v3/simple/price")
	cfg.CoinGeckoTimeout = parseDuration(fc.Prices.Timeout, 10*time.Second)
	cfg.CoinGeckoTTL = parseDurationOrZero(fc.Prices.TTL, 300*time.Second)
	cfg.CoinGeckoCoins = fc.Prices.Coins
	if len(cfg.CoinGeckoCoins) == 0 {
		cfg.CoinGeckoCoins = []string{"bitcoin", "ethereum"}
	}
	cfg.CoinGeckoCurrency = orDefault(fc.Prices.Currency, "usd")
	cfg.CoinGeckoUserAgent = orDefault(fc.Prices.UserAgent, "live-dashboard/1.0")

	cfg.OpenMeteoURL = orDefault(fc.Weather.URL, "https://api.open-meteo.com/v1/forecast")
	cfg.OpenMeteoTimeout = parseDuration(fc.Weather.Timeout, 10*time.Second)
	cfg.OpenMeteoTTL = parseDurationOrZero(fc.Weather.TTL, 30*time.Second)
	cfg.OpenMeteoLatitude = 39.7392
	if fc.Weather.Latitude != nil {
		cfg.OpenMeteoLatitude = *fc.Weather.Latitude
	}
	cfg.OpenMeteoLongitude = -104.9903
	if fc.Weather.Longitude != nil {
		cfg.OpenMeteoLongitude = *fc.Weather.Longitude
	}
	cfg.HistoryEnabled = true
	if fc.Weather.HistoryEnabled != nil {
		cfg.HistoryEnabled = *fc.Weather.HistoryEnabled
	}
	cfg.HistoryCapacity = fc.Weather.HistoryCapacity
	if cfg.HistoryCapacity == 0 {
		cfg.HistoryCapacity = 20
	}

	cfg.RefreshDefault = models.RefreshConfig{
		Interval: parseDurationOrZero(fc.Refresh.Interval, models.DefaultRefreshInterval),
		Enabled:  fc.Refresh.Enabled,
	}

	cfg.WatchEnabled = fc.Watch.Enabled
	cfg.WatchPages = fc.Watch.Pages
	if len(cfg.WatchPages) == 0 {
		cfg.WatchPages = []string{"prices", "weather"}
	}

	cfg.OverloadWindow = parseDuration(fc.Health.OverloadWindow, 60*time.Second)
	cfg.OverloadThresholdPct = fc.Health.OverloadThresholdPct
	if cfg.OverloadThresholdPct <= 0 {
		cfg.OverloadThresholdPct = 80
	}
	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 5*time.Minute)
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}
	return cfg
}

// applyEnv overrides deployment settings from the environment.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.ServerPort = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND"))); v != "" {
		cfg.CacheBackend = v
	}
	if v := strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS")); v != "" {
		cfg.MemcachedAddrs = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_ADDR")); v != "" {
		cfg.RedisAddr = v
	}
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
// Used for parsing duration fields from YAML config with safe fallback to defaults.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Returns zero or negative durations as-is (caller should handle fallback).
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
// TTLs and the default refresh interval are taken as written, so a bad value fails here
// instead of silently falling back. Auto-adjusts RequestTimeout to outlast upstream timeouts.
func validate(cfg *Config) error {
	switch cfg.CacheBackend {
	case "in_memory", "memcached", "redis":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory, memcached or redis, got %q", cfg.CacheBackend)
	}
	if cfg.CoinGeckoTTL <= 0 {
		return fmt.Errorf("prices.ttl must be positive")
	}
	if cfg.OpenMeteoTTL <= 0 {
		return fmt.Errorf("weather.ttl must be positive")
	}
	if cfg.HistoryCapacity < 1 {
		return fmt.Errorf("weather.history_capacity must be at least 1, got %d", cfg.HistoryCapacity)
	}
	if i := cfg.RefreshDefault.Interval; i < models.MinRefreshInterval || i > models.MaxRefreshInterval {
		return fmt.Errorf("refresh.interval must be between %s and %s, got %s",
			models.MinRefreshInterval, models.MaxRefreshInterval, i)
	}
	if cfg.OpenMeteoLatitude < -90 || cfg.OpenMeteoLatitude > 90 {
		return fmt.Errorf("weather.latitude out of range: %v", cfg.OpenMeteoLatitude)
	}
	if cfg.OpenMeteoLongitude < -180 || cfg.OpenMeteoLongitude > 180 {
		return fmt.Errorf("weather.longitude out of range: %v", cfg.OpenMeteoLongitude)
	}
	for _, p := range cfg.WatchPages {
		if p != "prices" && p != "weather" {
			return fmt.Errorf("watch.pages: unknown page %q", p)
		}
	}
	upstream := cfg.CoinGeckoTimeout
	if cfg.OpenMeteoTimeout > upstream {
		upstream = cfg.OpenMeteoTimeout
	}
	if cfg.RequestTimeout <= upstream {
		cfg.RequestTimeout = upstream + time.Second
	}
	return nil
}
