package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"StockLens/internal/apperr"
	"StockLens/internal/cache"
	"StockLens/internal/model"
)

const (
	opCurrentPrice = "current_price"
	opDailyBar     = "daily_bar"
	opHistory      = "history"
)

var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,11}$`)

// Limiter gates every upstream attempt.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Config tunes caching and retries of the Client.
type Config struct {
	PriceTTL    time.Duration
	DailyTTL    time.Duration
	HistoryTTL  time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Location    *time.Location // exchange timezone for bar timestamps
}

// DefaultConfig returns the client defaults.
func DefaultConfig() Config {
	return Config{
		PriceTTL:    time.Minute,
		DailyTTL:    24 * time.Hour,
		HistoryTTL:  15 * time.Minute,
		MaxRetries:  3,
		BaseBackoff: time.Second,
		MaxBackoff:  30 * time.Second,
		Location:    time.UTC,
	}
}

// Option customizes a Client.
type Option func(*Client)

// WithNow replaces the clock used for cache freshness and history ranges.
func WithNow(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client is the market data client: every operation goes through the cache,
// then the limiter, then the fetcher with bounded retries.
type Client struct {
	fetcher Fetcher
	limiter Limiter
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time

	prices  *cache.Store[model.Bar]
	daily   *cache.Store[model.DailySummary]
	history *cache.Store[model.Series]
	group   singleflight.Group
}

// NewClient creates a Client.
func NewClient(fetcher Fetcher, limiter Limiter, cfg Config, logger *zap.Logger, opts ...Option) *Client {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	c := &Client{
		fetcher: fetcher,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger.With(zap.String("provider", fetcher.Name())),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.prices = cache.New[model.Bar](cache.WithNow(c.now))
	c.daily = cache.New[model.DailySummary](cache.WithNow(c.now))
	c.history = cache.New[model.Series](cache.WithNow(c.now))
	return c
}

// CurrentPrice returns the latest completed daily bar for symbol.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (model.Bar, error) {
	sym, err := normalizeSymbol(opCurrentPrice, symbol)
	if err != nil {
		return model.Bar{}, err
	}
	key := cache.Key{Op: opCurrentPrice, Symbol: sym}

	return cached(c, c.prices, key, c.cfg.PriceTTL, func() (model.Bar, error) {
		endpoint := fmt.Sprintf("/v2/aggs/ticker/%s/prev", url.PathEscape(sym))
		body, err := c.fetch(ctx, key, endpoint, url.Values{"adjusted": {"true"}})
		if err != nil {
			return model.Bar{}, err
		}
		bar, ok, err := decodePrev(sym, body, c.cfg.Location)
		if err != nil {
			return model.Bar{}, apperr.Wrap(apperr.MalformedResponse, opCurrentPrice, sym, err)
		}
		if !ok {
			return model.Bar{}, apperr.Newf(apperr.InvalidRequest, opCurrentPrice, sym, "no data for symbol")
		}
		return bar, nil
	})
}

// DailyBar returns the open/close summary of symbol on date.
func (c *Client) DailyBar(ctx context.Context, symbol string, date time.Time) (model.DailySummary, error) {
	sym, err := normalizeSymbol(opDailyBar, symbol)
	if err != nil {
		return model.DailySummary{}, err
	}
	if date.IsZero() {
		return model.DailySummary{}, apperr.Newf(apperr.InvalidRequest, opDailyBar, sym, "date is required")
	}
	day := date.Format(dateLayout)
	key := cache.Key{Op: opDailyBar, Symbol: sym, Params: "date=" + day}

	return cached(c, c.daily, key, c.cfg.DailyTTL, func() (model.DailySummary, error) {
		endpoint := fmt.Sprintf("/v1/open-close/%s/%s", url.PathEscape(sym), day)
		body, err := c.fetch(ctx, key, endpoint, url.Values{"adjusted": {"true"}})
		if err != nil {
			return model.DailySummary{}, err
		}
		s, err := decodeOpenClose(sym, body, c.cfg.Location)
		if err != nil {
			return model.DailySummary{}, apperr.Wrap(apperr.MalformedResponse, opDailyBar, sym, err).WithParams("%s", key.Params)
		}
		return s, nil
	})
}

// History returns the daily bars of the last days calendar days, sorted and
// deduplicated by timestamp. The result is the caller's own copy.
func (c *Client) History(ctx context.Context, symbol string, days int) (model.Series, error) {
	sym, err := normalizeSymbol(opHistory, symbol)
	if err != nil {
		return model.Series{}, err
	}
	if days <= 0 {
		return model.Series{}, apperr.Newf(apperr.InvalidRequest, opHistory, sym, "days must be positive, got %d", days)
	}
	key := cache.Key{Op: opHistory, Symbol: sym, Params: fmt.Sprintf("days=%d", days)}

	series, err := cached(c, c.history, key, c.cfg.HistoryTTL, func() (model.Series, error) {
		to := c.now().In(c.cfg.Location)
		from := to.AddDate(0, 0, -days)
		endpoint := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
			url.PathEscape(sym), from.Format(dateLayout), to.Format(dateLayout))
		params := url.Values{"adjusted": {"true"}, "sort": {"asc"}, "limit": {"50000"}}

		body, err := c.fetch(ctx, key, endpoint, params)
		if err != nil {
			return model.Series{}, err
		}
		s, err := decodeRange(sym, body, c.cfg.Location)
		if err != nil {
			return model.Series{}, apperr.Wrap(apperr.MalformedResponse, opHistory, sym, err).WithParams("%s", key.Params)
		}
		return s, nil
	})
	if err != nil {
		return model.Series{}, err
	}
	return series.Clone(), nil
}

// Sweep evicts expired entries from every cache and returns the count.
func (c *Client) Sweep() int {
	return c.prices.Sweep() + c.daily.Sweep() + c.history.Sweep()
}

// Cached returns the number of entries held across all caches.
func (c *Client) Cached() int {
	return c.prices.Len() + c.daily.Len() + c.history.Len()
}

// Invalidate drops every cached entry of symbol.
func (c *Client) Invalidate(symbol string) int {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	return c.prices.DeleteSymbol(sym) + c.daily.DeleteSymbol(sym) + c.history.DeleteSymbol(sym)
}

// cached serves key from store or runs load once for all concurrent callers
// and stores its result. Failed loads leave the store untouched.
func cached[V any](c *Client, store *cache.Store[V], key cache.Key, ttl time.Duration, load func() (V, error)) (V, error) {
	if v, ok := store.Get(key); ok {
		c.logger.Debug("cache hit", zap.Stringer("key", key))
		return v, nil
	}
	v, err, shared := c.group.Do(key.String(), func() (any, error) {
		if v, ok := store.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		store.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	if shared {
		c.logger.Debug("coalesced upstream call", zap.Stringer("key", key))
	}
	return v.(V), nil
}

// fetch runs one upstream request through the limiter with retries on
// transient failures. It returns the body of a 200 response.
func (c *Client) fetch(ctx context.Context, key cache.Key, endpoint string, params url.Values) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BaseBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = c.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(c.cfg.MaxRetries, 0))), ctx)

	var (
		body     []byte
		attempts int
	)
	operation := func() error {
		attempts++
		if err := c.limiter.Acquire(ctx); err != nil {
			return backoff.Permanent(err)
		}
		status, raw, err := c.fetcher.Fetch(ctx, endpoint, params)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		switch {
		case status == http.StatusOK:
			body = raw
			return nil
		case status == http.StatusTooManyRequests:
			if len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw) {
				return backoff.Permanent(apperr.Newf(apperr.MalformedResponse, key.Op, key.Symbol,
					"status %d with undecodable body", status).WithParams("%s", key.Params))
			}
			return fmt.Errorf("status %d: rate limited", status)
		case status >= 500:
			return fmt.Errorf("status %d", status)
		case status >= 400:
			return backoff.Permanent(apperr.Newf(apperr.InvalidRequest, key.Op, key.Symbol,
				"status %d: %s", status, upstreamMessage(raw)).WithParams("%s", key.Params))
		default:
			return backoff.Permanent(apperr.Newf(apperr.MalformedResponse, key.Op, key.Symbol,
				"unexpected status %d", status).WithParams("%s", key.Params))
		}
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("upstream call failed, retrying",
			zap.Stringer("key", key),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	err := backoff.RetryNotify(operation, policy, notify)
	if err == nil {
		return body, nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return nil, err
	}
	c.logger.Error("upstream unavailable",
		zap.Stringer("key", key), zap.Int("attempts", attempts), zap.Error(err))
	detail := fmt.Sprintf("attempts=%d", attempts)
	if key.Params != "" {
		detail = key.Params + " " + detail
	}
	return nil, apperr.Wrap(apperr.UpstreamUnavailable, key.Op, key.Symbol, err).WithParams("%s", detail)
}

func normalizeSymbol(op, symbol string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(sym) {
		return "", apperr.Newf(apperr.InvalidRequest, op, sym, "invalid symbol %q", symbol)
	}
	return sym, nil
}

// upstreamMessage extracts the provider's error text from a body.
func upstreamMessage(body []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	const limit = 200
	if len(body) > limit {
		body = body[:limit]
	}
	return string(bytes.TrimSpace(body))
}
