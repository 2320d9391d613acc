package calculator

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"StockLens/internal/apperr"
	"StockLens/internal/model"
)

// Request selects the indicators to compute. Zero windows are skipped.
type Request struct {
	MAWindows        []int
	RSIWindow        int
	VolumeWindow     int
	PatternWindow    int
	VolatilityWindow int
	PriceChange      bool
}

// DefaultRequest mirrors the indicator set of the daily report.
func DefaultRequest() Request {
	return Request{
		MAWindows:        []int{5, 10, 20},
		RSIWindow:        14,
		VolumeWindow:     10,
		PatternWindow:    10,
		VolatilityWindow: 10,
		PriceChange:      true,
	}
}

// MinBars returns the shortest series that satisfies every requested indicator.
func (r Request) MinBars() int {
	need := 1
	for _, w := range r.MAWindows {
		need = max(need, w)
	}
	if r.RSIWindow > 0 {
		need = max(need, r.RSIWindow+1)
	}
	need = max(need, r.VolumeWindow, r.PatternWindow, r.VolatilityWindow)
	if r.PriceChange {
		need = max(need, 2)
	}
	return need
}

// Set maps indicator names to computed values. Series are aligned with the
// input bars and padded with NaN where history is insufficient.
type Set struct {
	Series  map[string][]float64
	Flags   map[string][]bool
	Scalars map[string]float64
}

func newSet() Set {
	return Set{
		Series:  make(map[string][]float64),
		Flags:   make(map[string][]bool),
		Scalars: make(map[string]float64),
	}
}

// Clone returns a deep copy.
func (s Set) Clone() Set {
	c := newSet()
	for k, v := range s.Series {
		c.Series[k] = append([]float64(nil), v...)
	}
	for k, v := range s.Flags {
		c.Flags[k] = append([]bool(nil), v...)
	}
	for k, v := range s.Scalars {
		c.Scalars[k] = v
	}
	return c
}

// Names lists every indicator in the set, sorted.
func (s Set) Names() []string {
	names := make([]string, 0, len(s.Series)+len(s.Flags)+len(s.Scalars))
	for k := range s.Series {
		names = append(names, k)
	}
	for k := range s.Flags {
		names = append(names, k)
	}
	for k := range s.Scalars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Latest returns the last defined value of a series indicator.
func (s Set) Latest(name string) (float64, bool) {
	xs := s.Series[name]
	for i := len(xs) - 1; i >= 0; i-- {
		if IsDefined(xs[i]) {
			return xs[i], true
		}
	}
	return 0, false
}

// Indicator names.
func MAName(k int) string { return fmt.Sprintf("ma_%d", k) }
func RSIName(k int) string { return fmt.Sprintf("rsi_%d", k) }
func VolumeMeanName(w int) string { return fmt.Sprintf("volume_mean_%d", w) }
func VolumeStdName(w int) string { return fmt.Sprintf("volume_stddev_%d", w) }
func SpikeName(w int) string { return fmt.Sprintf("volume_spike_%d", w) }
func NewHighName(k int) string { return fmt.Sprintf("new_high_%d", k) }
func NewLowName(k int) string { return fmt.Sprintf("new_low_%d", k) }
func VolatilityName(k int) string { return fmt.Sprintf("volatility_%d", k) }

const (
	PriceChangeName  = "price_change"
	ChangeMeanName   = "price_change_mean"
	ChangeStdDevName = "price_change_stddev"
	ChangeBestName   = "price_change_best"
	ChangeWorstName  = "price_change_worst"
)

// Compute derives every requested indicator from series. It fails as a
// whole with InsufficientData when any indicator lacks history.
func Compute(series model.Series, req Request) (Set, error) {
	if series.Len() == 0 {
		return Set{}, apperr.Newf(apperr.InsufficientData, "compute", series.Symbol, "series has no bars")
	}
	if need := req.MinBars(); series.Len() < need {
		return Set{}, apperr.Newf(apperr.InsufficientData, "compute", series.Symbol,
			"need %d bars, got %d", need, series.Len())
	}

	closes := series.Closes()
	set := newSet()

	for _, k := range req.MAWindows {
		ma, err := MovingAverage(closes, k)
		if err != nil {
			return Set{}, withSymbol(err, series.Symbol)
		}
		set.Series[MAName(k)] = ma
	}

	if req.RSIWindow > 0 {
		rsi, err := RSI(closes, req.RSIWindow)
		if err != nil {
			return Set{}, withSymbol(err, series.Symbol)
		}
		set.Series[RSIName(req.RSIWindow)] = rsi
	}

	if w := req.VolumeWindow; w > 0 {
		vs, err := Volume(series.Volumes(), w)
		if err != nil {
			return Set{}, withSymbol(err, series.Symbol)
		}
		set.Series[VolumeMeanName(w)] = vs.Mean
		set.Series[VolumeStdName(w)] = vs.StdDev
		set.Flags[SpikeName(w)] = vs.Spike
	}

	if k := req.PatternWindow; k > 0 {
		highs, err := NewHighs(closes, k)
		if err != nil {
			return Set{}, withSymbol(err, series.Symbol)
		}
		lows, err := NewLows(closes, k)
		if err != nil {
			return Set{}, withSymbol(err, series.Symbol)
		}
		set.Flags[NewHighName(k)] = highs
		set.Flags[NewLowName(k)] = lows
	}

	if k := req.VolatilityWindow; k > 0 {
		vol, err := Volatility(closes, k)
		if err != nil {
			return Set{}, withSymbol(err, series.Symbol)
		}
		set.Series[VolatilityName(k)] = vol
	}

	if req.PriceChange {
		changes, err := PriceChanges(closes)
		if err != nil {
			return Set{}, withSymbol(err, series.Symbol)
		}
		set.Series[PriceChangeName] = changes
		d := Distribute(changes)
		set.Scalars[ChangeMeanName] = d.Mean
		set.Scalars[ChangeStdDevName] = d.StdDev
		set.Scalars[ChangeBestName] = d.Best
		set.Scalars[ChangeWorstName] = d.Worst
	}

	return set, nil
}

func withSymbol(err error, symbol string) error {
	var e *apperr.Error
	if errors.As(err, &e) && e.Symbol == "" {
		e.Symbol = symbol
	}
	return err
}
