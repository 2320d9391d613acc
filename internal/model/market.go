package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents one trading period for a single symbol.
type Bar struct {
	Symbol string
	Time   time.Time // exchange-local
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Validate checks the price and volume invariants of a bar.
func (b Bar) Validate() error {
	if b.Time.IsZero() {
		return fmt.Errorf("bar %s: missing timestamp", b.Symbol)
	}
	prices := [...]struct {
		name  string
		value decimal.Decimal
	}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}}
	for _, p := range prices {
		if !p.value.IsPositive() {
			return fmt.Errorf("bar %s %s: %s must be positive, got %s", b.Symbol, b.Time.Format(time.DateOnly), p.name, p.value)
		}
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s %s: negative volume %d", b.Symbol, b.Time.Format(time.DateOnly), b.Volume)
	}
	if b.Low.GreaterThan(b.Open) || b.Low.GreaterThan(b.Close) {
		return fmt.Errorf("bar %s %s: low %s above open/close", b.Symbol, b.Time.Format(time.DateOnly), b.Low)
	}
	if b.High.LessThan(b.Open) || b.High.LessThan(b.Close) {
		return fmt.Errorf("bar %s %s: high %s below open/close", b.Symbol, b.Time.Format(time.DateOnly), b.High)
	}
	return nil
}

// DailySummary is the open/close record of one session, including
// extended-hours prices when the provider reports them.
type DailySummary struct {
	Bar
	PreMarket  decimal.NullDecimal
	AfterHours decimal.NullDecimal
}

// Series holds the bars of one symbol in strictly increasing time order.
type Series struct {
	Symbol string
	Bars   []Bar
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Clone returns a copy that shares no backing array with s.
func (s Series) Clone() Series {
	bars := make([]Bar, len(s.Bars))
	copy(bars, s.Bars)
	return Series{Symbol: s.Symbol, Bars: bars}
}

// Closes extracts closing prices as float64 for indicator math.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close.InexactFloat64()
	}
	return out
}

// Volumes extracts volumes as float64 for indicator math.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// Validate checks every bar plus strict chronological order.
func (s Series) Validate() error {
	for i, b := range s.Bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			return fmt.Errorf("series %s: timestamp %s not after %s", s.Symbol,
				b.Time.Format(time.RFC3339), s.Bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}
