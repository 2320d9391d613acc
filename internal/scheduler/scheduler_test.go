package scheduler

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"StockLens/internal/analysis"
	"StockLens/internal/apperr"
	"StockLens/internal/model"
	"StockLens/internal/report"
)

type fakeData struct{}

func (fakeData) History(_ context.Context, symbol string, days int) (model.Series, error) {
	if symbol == "BAD" {
		return model.Series{}, apperr.Newf(apperr.InvalidRequest, "history", symbol, "status 404")
	}
	s := model.Series{Symbol: symbol}
	start := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		p := decimal.NewFromInt(int64(200 - i))
		s.Bars = append(s.Bars, model.Bar{
			Symbol: symbol, Time: start.AddDate(0, 0, i),
			Open: p, High: p.Add(decimal.NewFromInt(1)), Low: p.Sub(decimal.NewFromInt(2)), Close: p.Sub(decimal.NewFromInt(1)),
			Volume: 500_000,
		})
	}
	return s, nil
}

type countingSweeper struct{ n atomic.Int32 }

func (c *countingSweeper) Sweep() int {
	c.n.Add(1)
	return 2
}

func (c *countingSweeper) Cached() int { return 7 }

func newTestScheduler(t *testing.T, watchlist ...string) (*Scheduler, *countingSweeper) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	facade := analysis.New(fakeData{}, logger, analysis.WithSummarizer(report.TextSummarizer{}))
	sw := &countingSweeper{}
	return NewScheduler(context.Background(), facade, sw, watchlist, 60, logger), sw
}

func TestRunRefreshNow_ContinuesPastFailures(t *testing.T) {
	s, _ := newTestScheduler(t, "AAPL", "BAD", "MSFT")

	assert.Equal(t, 2, s.RunRefreshNow())

	rec, ok := s.Latest("aapl")
	require.True(t, ok)
	assert.Equal(t, model.TrendDownward, rec.Assessment().Trend)
	_, ok = s.Latest("BAD")
	assert.False(t, ok)
}

func TestRegisterAll(t *testing.T) {
	s, _ := newTestScheduler(t, "AAPL")
	require.NoError(t, s.RegisterAll("0 30 16 * * 1-5", "*/5 * * * * *"))
	assert.Len(t, s.Cron.Entries(), 2)

	bad, _ := newTestScheduler(t, "AAPL")
	assert.Error(t, bad.RegisterAll("not a cron", "* * * * * *"))
}

func TestSweepRunsOnSchedule(t *testing.T) {
	s, sw := newTestScheduler(t)
	require.NoError(t, s.RegisterAll("0 0 0 1 1 *", "* * * * * *"))
	s.Start()
	time.Sleep(1100 * time.Millisecond)
	s.Stop()
	assert.GreaterOrEqual(t, sw.n.Load(), int32(1))
}

func TestHandleCommand(t *testing.T) {
	s, sw := newTestScheduler(t, "AAPL", "NVDA")

	assert.Equal(t, "no analysis yet", s.HandleCommand("status"))
	assert.Equal(t, "no analysis for AAPL yet", s.HandleCommand("report aapl"))
	assert.Equal(t, "refreshed 2 of 2 symbols", s.HandleCommand("refresh"))

	status := s.HandleCommand("/status")
	assert.Contains(t, status, "AAPL")
	assert.Contains(t, status, "trend=downward")
	assert.Less(t, strings.Index(status, "AAPL"), strings.Index(status, "NVDA"))

	assert.Contains(t, s.HandleCommand("report NVDA"), "NVDA analysis")
	assert.Contains(t, s.HandleCommand("summary NVDA"), "NVDA closed at")
	assert.Equal(t, "evicted 2 cache entries, 7 remaining", s.HandleCommand("sweep"))
	assert.EqualValues(t, 1, sw.n.Load())
	assert.Contains(t, s.HandleCommand("help"), "commands:")
	assert.Equal(t, "", s.HandleCommand("   "))
}

func TestRefresh_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	logger := zaptest.NewLogger(t)
	s := NewScheduler(ctx, analysis.New(fakeData{}, logger), &countingSweeper{}, []string{"AAPL"}, 60, logger)
	assert.Equal(t, 0, s.RunRefreshNow())
}
