package calculator

import "github.com/markcheno/go-talib"

// NewHighs flags positions whose close is the maximum of the trailing
// window ending at that position. Positions before window-1 are false.
func NewHighs(closes []float64, window int) ([]bool, error) {
	if err := checkWindow("new_high", window, 2); err != nil {
		return nil, err
	}
	if err := checkLength("new_high", len(closes), window, window); err != nil {
		return nil, err
	}
	return matchExtreme(closes, talib.Max(closes, window), window), nil
}

// NewLows flags positions whose close is the minimum of the trailing window.
func NewLows(closes []float64, window int) ([]bool, error) {
	if err := checkWindow("new_low", window, 2); err != nil {
		return nil, err
	}
	if err := checkLength("new_low", len(closes), window, window); err != nil {
		return nil, err
	}
	return matchExtreme(closes, talib.Min(closes, window), window), nil
}

func matchExtreme(closes, extreme []float64, window int) []bool {
	flags := make([]bool, len(closes))
	for i := window - 1; i < len(closes); i++ {
		flags[i] = closes[i] == extreme[i]
	}
	return flags
}
