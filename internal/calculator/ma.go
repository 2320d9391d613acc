package calculator

import (
	"math"

	"StockLens/internal/apperr"
)

// IsDefined reports whether v holds a computed value rather than padding.
func IsDefined(v float64) bool { return !math.IsNaN(v) }

// undefined returns n positions of NaN padding.
func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func checkWindow(op string, window, min int) error {
	if window < min {
		return apperr.Newf(apperr.InvalidRequest, op, "", "window must be >= %d, got %d", min, window)
	}
	return nil
}

func checkLength(op string, have, need, window int) error {
	if have < need {
		return apperr.Newf(apperr.InsufficientData, op, "", "need %d values, got %d", need, have).
			WithParams("window=%d", window)
	}
	return nil
}

// MovingAverage computes the simple moving average of closes over window.
// MA[i] is the mean of closes[i-window+1..i]; earlier positions are NaN.
func MovingAverage(closes []float64, window int) ([]float64, error) {
	if err := checkWindow("moving_average", window, 1); err != nil {
		return nil, err
	}
	if err := checkLength("moving_average", len(closes), window, window); err != nil {
		return nil, err
	}
	out := undefined(len(closes))
	for i := window - 1; i < len(closes); i++ {
		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += closes[j]
		}
		out[i] = sum / float64(window)
	}
	return out, nil
}
