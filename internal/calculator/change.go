package calculator

import "math"

// PriceChanges computes per-bar fractional change (c[i]-c[i-1])/c[i-1].
// Position 0 is NaN.
func PriceChanges(closes []float64) ([]float64, error) {
	if err := checkLength("price_change", len(closes), 2, 1); err != nil {
		return nil, err
	}
	out := undefined(len(closes))
	for i := 1; i < len(closes); i++ {
		out[i] = (closes[i] - closes[i-1]) / closes[i-1]
	}
	return out, nil
}

// Distribution summarizes the defined values of a series.
type Distribution struct {
	Count  int
	Mean   float64
	StdDev float64 // sample standard deviation, 0 below two values
	Best   float64
	Worst  float64
}

// Distribute computes the distribution of the defined values in xs.
func Distribute(xs []float64) Distribution {
	d := Distribution{Best: math.Inf(-1), Worst: math.Inf(1)}
	sum := 0.0
	for _, x := range xs {
		if !IsDefined(x) {
			continue
		}
		d.Count++
		sum += x
		d.Best = math.Max(d.Best, x)
		d.Worst = math.Min(d.Worst, x)
	}
	if d.Count == 0 {
		return Distribution{}
	}
	d.Mean = sum / float64(d.Count)
	d.StdDev = sampleStdDev(xs, d.Mean, d.Count)
	return d
}

func sampleStdDev(xs []float64, mean float64, count int) float64 {
	if count < 2 {
		return 0
	}
	ss := 0.0
	for _, x := range xs {
		if IsDefined(x) {
			ss += (x - mean) * (x - mean)
		}
	}
	return math.Sqrt(ss / float64(count-1))
}
