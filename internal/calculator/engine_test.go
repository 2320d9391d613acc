package calculator

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/apperr"
	"StockLens/internal/model"
)

func makeSeries(closes ...float64) model.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := model.Series{Symbol: "AAPL"}
	for i, c := range closes {
		p := decimal.NewFromFloat(c)
		s.Bars = append(s.Bars, model.Bar{
			Symbol: "AAPL",
			Time:   start.AddDate(0, 0, i),
			Open:   p,
			High:   p.Add(decimal.NewFromInt(1)),
			Low:    p.Sub(decimal.NewFromInt(1)),
			Close:  p,
			Volume: int64(1000 + i),
		})
	}
	return s
}

func rising(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 50 + float64(i)
	}
	return out
}

func TestCompute_DefaultRequest(t *testing.T) {
	series := makeSeries(rising(30)...)
	set, err := Compute(series, DefaultRequest())
	require.NoError(t, err)

	for _, name := range []string{"ma_5", "ma_10", "ma_20", "rsi_14", "volume_mean_10", "volume_stddev_10", "volatility_10", "price_change"} {
		require.Contains(t, set.Series, name)
		assert.Len(t, set.Series[name], 30, name)
	}
	for _, name := range []string{"volume_spike_10", "new_high_10", "new_low_10"} {
		require.Contains(t, set.Flags, name)
	}
	assert.Contains(t, set.Scalars, "price_change_mean")

	last, ok := set.Latest("ma_5")
	assert.True(t, ok)
	assert.InDelta(t, 77.0, last, 1e-9)

	rsi, _ := set.Latest("rsi_14")
	assert.Equal(t, 100.0, rsi)
	assert.True(t, set.Flags["new_high_10"][29])
	assert.False(t, set.Flags["new_low_10"][29])
}

func TestCompute_FailsWholeRequestOnShortSeries(t *testing.T) {
	series := makeSeries(rising(10)...)
	_, err := Compute(series, Request{MAWindows: []int{5}, RSIWindow: 14})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.InsufficientData))

	var e *apperr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "AAPL", e.Symbol)
}

func TestCompute_OnlyRequested(t *testing.T) {
	set, err := Compute(makeSeries(10, 12, 14, 16, 18), Request{MAWindows: []int{3}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ma_3"}, set.Names())
}

func TestRequest_MinBars(t *testing.T) {
	assert.Equal(t, 20, DefaultRequest().MinBars())
	assert.Equal(t, 15, Request{RSIWindow: 14}.MinBars())
	assert.Equal(t, 1, Request{}.MinBars())
}

func TestSet_CloneIsDeep(t *testing.T) {
	set, err := Compute(makeSeries(10, 12, 14, 16, 18), Request{MAWindows: []int{3}, PriceChange: true})
	require.NoError(t, err)

	c := set.Clone()
	c.Series["ma_3"][4] = 0
	c.Scalars[ChangeBestName] = 0

	assert.Equal(t, 16.0, set.Series["ma_3"][4])
	assert.NotEqual(t, 0.0, set.Scalars[ChangeBestName])
}

func TestDescribe(t *testing.T) {
	series := makeSeries(10, 12, 11)
	series.Bars[0].Open = decimal.NewFromInt(8)
	st, err := Describe(series)
	require.NoError(t, err)

	assert.Equal(t, 3, st.Records)
	assert.Equal(t, series.Bars[0].Time, st.From)
	assert.Equal(t, 11.0, st.CurrentPrice)
	assert.Equal(t, 13.0, st.MaxPrice)
	assert.Equal(t, 9.0, st.MinPrice)
	assert.InDelta(t, 11.0, st.AvgPrice, 1e-9)
	assert.InDelta(t, 1.0, st.PriceVolatility, 1e-9)
	assert.InDelta(t, 37.5, st.TotalReturnPct, 1e-9)
	assert.InDelta(t, 25.0, st.BestDayPct, 1e-9)
	assert.Equal(t, 0.0, st.WorstDayPct)
	assert.Equal(t, int64(1002), st.MaxVolume)
	assert.Equal(t, int64(1000), st.MinVolume)
}

func TestDescribe_Empty(t *testing.T) {
	_, err := Describe(model.Series{Symbol: "AAPL"})
	assert.True(t, errors.Is(err, apperr.EmptySeries))
}
