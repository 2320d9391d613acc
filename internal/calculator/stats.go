package calculator

import (
	"math"

	"StockLens/internal/apperr"
	"StockLens/internal/model"
)

// Describe computes descriptive statistics of a series.
func Describe(series model.Series) (model.Statistics, error) {
	if series.Len() == 0 {
		return model.Statistics{}, apperr.Newf(apperr.EmptySeries, "describe", series.Symbol, "no bars")
	}
	bars := series.Bars
	first, last := bars[0], bars[len(bars)-1]

	st := model.Statistics{
		Records:      len(bars),
		From:         first.Time,
		To:           last.Time,
		CurrentPrice: last.Close.InexactFloat64(),
		MaxPrice:     math.Inf(-1),
		MinPrice:     math.Inf(1),
		MaxVolume:    math.MinInt64,
		MinVolume:    math.MaxInt64,
	}

	closes := series.Closes()
	intraday := make([]float64, len(bars))
	var closeSum, volSum float64
	for i, b := range bars {
		st.MaxPrice = math.Max(st.MaxPrice, b.High.InexactFloat64())
		st.MinPrice = math.Min(st.MinPrice, b.Low.InexactFloat64())
		closeSum += closes[i]
		volSum += float64(b.Volume)
		st.MaxVolume = max(st.MaxVolume, b.Volume)
		st.MinVolume = min(st.MinVolume, b.Volume)

		open := b.Open.InexactFloat64()
		intraday[i] = (closes[i] - open) / open * 100
	}
	n := float64(len(bars))
	st.AvgPrice = closeSum / n
	st.AvgVolume = volSum / n
	st.PriceVolatility = sampleStdDev(closes, st.AvgPrice, len(closes))

	firstOpen := first.Open.InexactFloat64()
	st.TotalReturnPct = (st.CurrentPrice - firstOpen) / firstOpen * 100

	d := Distribute(intraday)
	st.BestDayPct = d.Best
	st.WorstDayPct = d.Worst
	st.AvgDailyChangePct = d.Mean
	return st, nil
}
