// Package ratelimit throttles upstream calls to respect a provider quota.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Clock abstracts time so tests can run the limiter without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Observer is told about every pending wait before the limiter sleeps.
type Observer func(wait time.Duration)

// Config holds the quota policy.
type Config struct {
	MinDelay time.Duration // minimum spacing between permitted calls
	Window   time.Duration // quota window length
	Quota    int           // calls allowed per window; <= 0 disables the budget
}

// DefaultConfig matches a free-tier quota of 5 calls per minute.
func DefaultConfig() Config {
	return Config{MinDelay: 500 * time.Millisecond, Window: time.Minute, Quota: 5}
}

// Limiter enforces Config for every caller sharing the instance.
type Limiter struct {
	cfg      Config
	clock    Clock
	observer Observer

	mu          sync.Mutex
	last        time.Time
	windowStart time.Time
	calls       int
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(l *Limiter) { l.clock = c } }

// WithObserver registers a callback for pending waits.
func WithObserver(o Observer) Option { return func(l *Limiter) { l.observer = o } }

// New creates a Limiter.
func New(cfg Config, opts ...Option) *Limiter {
	l := &Limiter{cfg: cfg, clock: realClock{}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until one more upstream call is allowed and records it.
// The mutex is held across the wait, so concurrent callers queue up and the
// wait/record pair is atomic. The only error is the caller's context error.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.cfg.Window {
		l.windowStart = now
		l.calls = 0
	}

	var wait time.Duration
	if !l.last.IsZero() {
		if d := l.cfg.MinDelay - now.Sub(l.last); d > 0 {
			wait = d
		}
	}
	exhausted := l.cfg.Quota > 0 && l.calls >= l.cfg.Quota
	if exhausted {
		if d := l.windowStart.Add(l.cfg.Window).Sub(now); d > wait {
			wait = d
		}
	}

	if wait > 0 {
		if l.observer != nil {
			l.observer(wait)
		}
		if err := l.clock.Sleep(ctx, wait); err != nil {
			return err
		}
		now = l.clock.Now()
	}

	if exhausted || now.Sub(l.windowStart) >= l.cfg.Window {
		l.windowStart = now
		l.calls = 0
	}
	l.calls++
	l.last = now
	return nil
}

// State is a snapshot of the quota counters.
type State struct {
	WindowStart time.Time
	Calls       int
	LastCall    time.Time
}

// Snapshot returns the current counters.
func (l *Limiter) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{WindowStart: l.windowStart, Calls: l.calls, LastCall: l.last}
}
