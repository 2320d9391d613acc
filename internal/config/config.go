package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"StockLens/internal/apperr"
	"StockLens/internal/calculator"
	"StockLens/internal/collector"
	"StockLens/internal/ratelimit"
)

// Config holds all application configuration.
type Config struct {
	Provider  Provider  `yaml:"provider" envPrefix:"POLYGON_"`
	RateLimit RateLimit `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	Cache     Cache     `yaml:"cache" envPrefix:"CACHE_"`
	Retry     Retry     `yaml:"retry" envPrefix:"RETRY_"`
	Analysis  Analysis  `yaml:"analysis" envPrefix:"ANALYSIS_"`
	Schedule  Schedule  `yaml:"schedule" envPrefix:"SCHEDULE_"`
	LogLevel  string    `yaml:"log_level" env:"LOG_LEVEL"`
	Proxy     string    `yaml:"proxy" env:"HTTPS_PROXY"`
}

// Provider selects and reaches the upstream market data API.
type Provider struct {
	Name     string        `yaml:"name" env:"PROVIDER"` // "polygon" or "stub"
	BaseURL  string        `yaml:"base_url" env:"BASE_URL"`
	APIKey   string        `yaml:"api_key" env:"API_KEY"`
	Timeout  time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Timezone string        `yaml:"timezone" env:"TIMEZONE"`
}

// RateLimit fields left unset take the limiter defaults; an explicit 0
// disables the spacing or the quota.
type RateLimit struct {
	MinDelay *time.Duration `yaml:"min_delay" env:"MIN_DELAY"`
	Window   time.Duration  `yaml:"window" env:"WINDOW"`
	Quota    *int           `yaml:"quota" env:"QUOTA"`
}

type Cache struct {
	PriceTTL   time.Duration `yaml:"price_ttl" env:"PRICE_TTL"`
	DailyTTL   time.Duration `yaml:"daily_ttl" env:"DAILY_TTL"`
	HistoryTTL time.Duration `yaml:"history_ttl" env:"HISTORY_TTL"`
}

type Retry struct {
	MaxRetries  *int          `yaml:"max_retries" env:"MAX"`
	BaseBackoff time.Duration `yaml:"base_backoff" env:"BASE_BACKOFF"`
	MaxBackoff  time.Duration `yaml:"max_backoff" env:"MAX_BACKOFF"`
}

type Analysis struct {
	HistoryDays      int   `yaml:"history_days" env:"HISTORY_DAYS"`
	MAWindows        []int `yaml:"ma_windows" env:"MA_WINDOWS" envSeparator:","`
	RSIWindow        int   `yaml:"rsi_window" env:"RSI_WINDOW"`
	VolumeWindow     int   `yaml:"volume_window" env:"VOLUME_WINDOW"`
	PatternWindow    int   `yaml:"pattern_window" env:"PATTERN_WINDOW"`
	VolatilityWindow int   `yaml:"volatility_window" env:"VOLATILITY_WINDOW"`
}

type Schedule struct {
	RefreshCron string   `yaml:"refresh_cron" env:"REFRESH_CRON"`
	SweepCron   string   `yaml:"sweep_cron" env:"SWEEP_CRON"`
	Watchlist   []string `yaml:"watchlist" env:"WATCHLIST" envSeparator:","`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides, then defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Provider.Name = strings.ToLower(strings.TrimSpace(c.Provider.Name))
	if c.Provider.Name == "" {
		c.Provider.Name = "polygon"
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = "https://api.polygon.io"
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 30 * time.Second
	}
	if c.Provider.Timezone == "" {
		c.Provider.Timezone = "America/New_York"
	}

	lim := ratelimit.DefaultConfig()
	if c.RateLimit.MinDelay == nil {
		c.RateLimit.MinDelay = &lim.MinDelay
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = lim.Window
	}
	if c.RateLimit.Quota == nil {
		c.RateLimit.Quota = &lim.Quota
	}

	cl := collector.DefaultConfig()
	if c.Cache.PriceTTL == 0 {
		c.Cache.PriceTTL = cl.PriceTTL
	}
	if c.Cache.DailyTTL == 0 {
		c.Cache.DailyTTL = cl.DailyTTL
	}
	if c.Cache.HistoryTTL == 0 {
		c.Cache.HistoryTTL = cl.HistoryTTL
	}
	if c.Retry.MaxRetries == nil {
		c.Retry.MaxRetries = &cl.MaxRetries
	}
	if c.Retry.BaseBackoff == 0 {
		c.Retry.BaseBackoff = cl.BaseBackoff
	}
	if c.Retry.MaxBackoff == 0 {
		c.Retry.MaxBackoff = cl.MaxBackoff
	}

	req := calculator.DefaultRequest()
	if c.Analysis.HistoryDays == 0 {
		c.Analysis.HistoryDays = 60
	}
	if len(c.Analysis.MAWindows) == 0 {
		c.Analysis.MAWindows = req.MAWindows
	}
	if c.Analysis.RSIWindow == 0 {
		c.Analysis.RSIWindow = req.RSIWindow
	}
	if c.Analysis.VolumeWindow == 0 {
		c.Analysis.VolumeWindow = req.VolumeWindow
	}
	if c.Analysis.PatternWindow == 0 {
		c.Analysis.PatternWindow = req.PatternWindow
	}
	if c.Analysis.VolatilityWindow == 0 {
		c.Analysis.VolatilityWindow = req.VolatilityWindow
	}

	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 30 16 * * 1-5"
	}
	if c.Schedule.SweepCron == "" {
		c.Schedule.SweepCron = "0 */10 * * * *"
	}
	if len(c.Schedule.Watchlist) == 0 {
		c.Schedule.Watchlist = []string{"AAPL"}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "polygon":
		if c.Provider.APIKey == "" {
			return apperr.Newf(apperr.MissingCredential, "config", "", "POLYGON_API_KEY (provider.api_key) is required")
		}
	case "stub":
	default:
		return fmt.Errorf("provider.name %q is not supported", c.Provider.Name)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	lim := c.LimiterConfig()
	if lim.Quota < 0 || lim.MinDelay < 0 || lim.Window <= 0 {
		return fmt.Errorf("rate_limit: min_delay and quota must be non-negative, window positive")
	}
	if deref(c.Retry.MaxRetries) < 0 {
		return fmt.Errorf("retry.max_retries must be non-negative")
	}
	if c.Analysis.HistoryDays <= 0 {
		return fmt.Errorf("analysis.history_days must be positive")
	}
	if need, have := c.Request().MinBars(), TradingDays(c.Analysis.HistoryDays); need > have {
		return fmt.Errorf("analysis.history_days %d yields about %d trading days, the indicators need %d bars",
			c.Analysis.HistoryDays, have, need)
	}
	if _, err := collector.ParseProxy(c.Proxy); err != nil {
		return fmt.Errorf("proxy: %w", err)
	}
	return nil
}

// TradingDays estimates the daily bars in a span of calendar days, at 252
// sessions a year.
func TradingDays(calendarDays int) int {
	return calendarDays * 252 / 365
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// Location loads the exchange timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Provider.Timezone)
	if err != nil {
		return nil, fmt.Errorf("provider.timezone: %w", err)
	}
	return loc, nil
}

// LimiterConfig returns the rate limiter policy.
func (c *Config) LimiterConfig() ratelimit.Config {
	return ratelimit.Config{
		MinDelay: deref(c.RateLimit.MinDelay),
		Window:   c.RateLimit.Window,
		Quota:    deref(c.RateLimit.Quota),
	}
}

// ClientConfig returns the market data client settings.
func (c *Config) ClientConfig() (collector.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return collector.Config{}, err
	}
	return collector.Config{
		PriceTTL:    c.Cache.PriceTTL,
		DailyTTL:    c.Cache.DailyTTL,
		HistoryTTL:  c.Cache.HistoryTTL,
		MaxRetries:  deref(c.Retry.MaxRetries),
		BaseBackoff: c.Retry.BaseBackoff,
		MaxBackoff:  c.Retry.MaxBackoff,
		Location:    loc,
	}, nil
}

// Request returns the indicator request.
func (c *Config) Request() calculator.Request {
	return calculator.Request{
		MAWindows:        append([]int(nil), c.Analysis.MAWindows...),
		RSIWindow:        c.Analysis.RSIWindow,
		VolumeWindow:     c.Analysis.VolumeWindow,
		PatternWindow:    c.Analysis.PatternWindow,
		VolatilityWindow: c.Analysis.VolatilityWindow,
		PriceChange:      true,
	}
}
