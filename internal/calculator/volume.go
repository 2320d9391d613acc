package calculator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// VolumeStats holds rolling volume statistics aligned with the input.
type VolumeStats struct {
	Mean   []float64
	StdDev []float64 // population standard deviation
	Spike  []bool
}

// Volume computes the rolling mean and standard deviation of volumes over
// window. A bar is a spike when its volume exceeds mean + 2*stddev of the
// window that ends on the previous bar, so the bar never judges itself.
func Volume(volumes []float64, window int) (VolumeStats, error) {
	if err := checkWindow("volume", window, 2); err != nil {
		return VolumeStats{}, err
	}
	if err := checkLength("volume", len(volumes), window, window); err != nil {
		return VolumeStats{}, err
	}

	mean := talib.Sma(volumes, window)
	// talib leaves zeros in the lookback prefix
	for i := 0; i < window-1; i++ {
		mean[i] = math.NaN()
	}
	std := rollingStdDev(volumes, mean, window)

	spike := make([]bool, len(volumes))
	for i := window; i < len(volumes); i++ {
		spike[i] = volumes[i] > mean[i-1]+2*std[i-1]
	}
	return VolumeStats{Mean: mean, StdDev: std, Spike: spike}, nil
}

// Volatility is the rolling population standard deviation of closes.
func Volatility(closes []float64, window int) ([]float64, error) {
	if err := checkWindow("volatility", window, 2); err != nil {
		return nil, err
	}
	if err := checkLength("volatility", len(closes), window, window); err != nil {
		return nil, err
	}
	mean := talib.Sma(closes, window)
	return rollingStdDev(closes, mean, window), nil
}

// rollingStdDev is the population standard deviation of each window around
// its precomputed mean. Deviations are summed directly; the running
// E[x^2]-E[x]^2 form loses every digit on large, flat volumes.
func rollingStdDev(xs, mean []float64, window int) []float64 {
	out := undefined(len(xs))
	for i := window - 1; i < len(xs); i++ {
		var sum float64
		for _, x := range xs[i-window+1 : i+1] {
			d := x - mean[i]
			sum += d * d
		}
		out[i] = math.Sqrt(sum / float64(window))
	}
	return out
}
