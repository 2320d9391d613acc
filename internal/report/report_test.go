package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"StockLens/internal/analysis"
	"StockLens/internal/model"
)

func testSeries(n int) model.Series {
	s := model.Series{Symbol: "AMD"}
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p := decimal.NewFromInt(int64(150 + i))
		s.Bars = append(s.Bars, model.Bar{
			Symbol: "AMD",
			Time:   start.AddDate(0, 0, i),
			Open:   p,
			High:   p.Add(decimal.NewFromInt(2)),
			Low:    p.Sub(decimal.NewFromInt(1)),
			Close:  p.Add(decimal.NewFromInt(1)),
			Volume: int64(2_000_000 + i*1000),
		})
	}
	return s
}

func testRecord(t *testing.T) *analysis.Record {
	t.Helper()
	rec, err := analysis.New(nil, zaptest.NewLogger(t)).Build(testSeries(30))
	require.NoError(t, err)
	return rec
}

func TestFormatQuote(t *testing.T) {
	out := FormatQuote(testSeries(1).Bars[0])
	assert.Contains(t, out, "AMD | 2024-04-01")
	assert.Contains(t, out, "Close:  151.00 (+0.67% vs open)")
	assert.Contains(t, out, "Range:  149.00 - 152.00")
}

func TestFormatDaily_ExtendedHours(t *testing.T) {
	s := model.DailySummary{
		Bar:       testSeries(1).Bars[0],
		PreMarket: decimal.NewNullDecimal(decimal.RequireFromString("149.5")),
	}
	out := FormatDaily(s)
	assert.Contains(t, out, "Pre-market:  149.50")
	assert.NotContains(t, out, "After hours")
}

func TestFormatHistory(t *testing.T) {
	out := FormatHistory(testSeries(3))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5, "title, header and three rows")
	assert.Contains(t, lines[1], "change%")
	assert.Contains(t, lines[4], "2024-04-03")

	assert.Equal(t, "AMD: no data\n", FormatHistory(model.Series{Symbol: "AMD"}))
}

func TestFormatRecord(t *testing.T) {
	out := FormatRecord(testRecord(t))
	for _, want := range []string{"AMD analysis", "MA_5: 178.00", "MA_20", "RSI_14: 100.00", "trend: upward", "rsi: overbought", "Total return:"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "MA_5"), strings.Index(out, "MA_10"), "windows in numeric order")
}

func TestTextSummarizer(t *testing.T) {
	text, err := TextSummarizer{}.Summarize(context.Background(), testRecord(t))
	require.NoError(t, err)
	assert.Contains(t, text, "AMD closed at 180.00 on 2024-04-30")
	assert.Contains(t, text, "upward")
	assert.Contains(t, text, "overbought")
	assert.Contains(t, text, "above its MA_20")
	assert.Contains(t, text, "new 10-bar high")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = TextSummarizer{}.Summarize(ctx, testRecord(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTableVisualizer(t *testing.T) {
	var buf bytes.Buffer
	err := TableVisualizer{W: &buf, Rows: 5}.Render(context.Background(), testRecord(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "ma_5")
	assert.Contains(t, lines[0], "rsi_14")
	assert.Contains(t, lines[5], "2024-04-30")
	assert.Contains(t, lines[5], "new_high_10")
}

func TestFormatWait(t *testing.T) {
	assert.Equal(t, "rate limit: waiting 58s", FormatWait(58*time.Second))
}
