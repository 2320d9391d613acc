// Package pattern reads a coarse market assessment off a series and its
// computed indicators.
package pattern

import (
	"github.com/markcheno/go-talib"

	"StockLens/internal/calculator"
	"StockLens/internal/model"
)

// Rules holds the thresholds of the assessment.
type Rules struct {
	Bars         int     // trailing bars inspected for trend and volume
	VolumeMA     int     // moving average the volume ratio is taken against
	HighVolume   float64 // mean ratio above this is high activity
	LowVolume    float64 // mean ratio below this is low activity
	Overbought   float64
	Oversold     float64
	RSIIndicator string // name of the RSI series in the indicator set
}

// DefaultRules returns the rules used by the daily report.
func DefaultRules() Rules {
	return Rules{
		Bars:         5,
		VolumeMA:     5,
		HighVolume:   1.5,
		LowVolume:    0.5,
		Overbought:   70,
		Oversold:     30,
		RSIIndicator: calculator.RSIName(14),
	}
}

// Assess applies DefaultRules.
func Assess(series model.Series, set calculator.Set) model.Assessment {
	return DefaultRules().Assess(series, set)
}

// Assess classifies trend, volume activity and RSI. A series shorter than
// r.Bars yields an empty assessment.
func (r Rules) Assess(series model.Series, set calculator.Set) model.Assessment {
	if series.Len() < r.Bars || r.Bars < 2 {
		return model.Assessment{}
	}
	return model.Assessment{
		Trend:          r.trend(series.Closes()),
		VolumeActivity: r.volume(series.Volumes()),
		RSISignal:      r.rsi(set),
	}
}

func (r Rules) trend(closes []float64) model.Trend {
	tail := closes[len(closes)-r.Bars:]
	up, down := true, true
	for i := 1; i < len(tail); i++ {
		if tail[i] < tail[i-1] {
			up = false
		}
		if tail[i] > tail[i-1] {
			down = false
		}
	}
	switch {
	case up && down:
		return model.TrendSideways
	case up:
		return model.TrendUpward
	case down:
		return model.TrendDownward
	default:
		return model.TrendSideways
	}
}

func (r Rules) volume(volumes []float64) model.VolumeActivity {
	if len(volumes) < r.VolumeMA || r.VolumeMA < 1 {
		return model.VolumeNormal
	}
	sma := talib.Sma(volumes, r.VolumeMA)

	// only bars with a full average and non-zero mean contribute
	var sum float64
	var n int
	for i := max(len(volumes)-r.Bars, r.VolumeMA-1); i < len(volumes); i++ {
		if sma[i] <= 0 {
			continue
		}
		sum += volumes[i] / sma[i]
		n++
	}
	if n == 0 {
		return model.VolumeNormal
	}

	ratio := sum / float64(n)
	switch {
	case ratio > r.HighVolume:
		return model.VolumeHigh
	case ratio < r.LowVolume:
		return model.VolumeLow
	default:
		return model.VolumeNormal
	}
}

func (r Rules) rsi(set calculator.Set) model.RSISignal {
	v, ok := set.Latest(r.RSIIndicator)
	switch {
	case !ok:
		return model.RSINeutral
	case v > r.Overbought:
		return model.RSIOverbought
	case v < r.Oversold:
		return model.RSIOversold
	default:
		return model.RSINeutral
	}
}
