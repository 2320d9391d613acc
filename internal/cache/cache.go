// Package cache is the in-process TTL store behind the market data client.
package cache

import (
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Key identifies one upstream query: the operation, the symbol and the
// normalized query parameters.
type Key struct {
	Op     string
	Symbol string
	Params string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Op, k.Symbol, k.Params)
}

// Entry is an immutable cached value. Entries are replaced, never mutated.
type Entry[V any] struct {
	Value     V
	FetchedAt time.Time
	TTL       time.Duration
}

// Fresh reports whether the entry is younger than its TTL at now.
func (e Entry[V]) Fresh(now time.Time) bool {
	return now.Sub(e.FetchedAt) < e.TTL
}

type options struct {
	now func() time.Time
}

// Option customizes a Store.
type Option func(*options)

// WithNow replaces the time source used for freshness checks.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Store maps keys to entries on top of a ttlcache. Items never expire inside
// ttlcache itself: freshness is judged from the entry against the store's
// clock, so Sweep and DeleteSymbol see every entry.
type Store[V any] struct {
	items *ttlcache.Cache[Key, Entry[V]]
	now   func() time.Time
}

// New creates an empty Store.
func New[V any](opts ...Option) *Store[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[V]{
		items: ttlcache.New[Key, Entry[V]](
			ttlcache.WithDisableTouchOnHit[Key, Entry[V]](),
		),
		now: o.now,
	}
}

// Get returns the cached value if a fresh entry exists.
func (s *Store[V]) Get(key Key) (V, bool) {
	item := s.items.Get(key)
	if item == nil || !item.Value().Fresh(s.now()) {
		var zero V
		return zero, false
	}
	return item.Value().Value, true
}

// Set stores v under key, replacing any previous entry.
func (s *Store[V]) Set(key Key, v V, ttl time.Duration) {
	s.items.Set(key, Entry[V]{Value: v, FetchedAt: s.now(), TTL: ttl}, ttlcache.NoTTL)
}

// DeleteSymbol drops every entry for symbol and returns how many were removed.
func (s *Store[V]) DeleteSymbol(symbol string) int {
	n := 0
	for _, key := range s.items.Keys() {
		if key.Symbol == symbol {
			s.items.Delete(key)
			n++
		}
	}
	return n
}

// Sweep evicts stale entries and returns how many were removed. An entry
// replaced while the sweep runs may be dropped too; the next read refetches.
func (s *Store[V]) Sweep() int {
	now := s.now()
	n := 0
	for key, item := range s.items.Items() {
		if !item.Value().Fresh(now) {
			s.items.Delete(key)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, fresh or not.
func (s *Store[V]) Len() int {
	return s.items.Len()
}
