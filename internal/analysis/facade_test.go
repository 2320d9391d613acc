package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"StockLens/internal/apperr"
	"StockLens/internal/calculator"
	"StockLens/internal/model"
)

type fakeData struct {
	series model.Series
	err    error
	calls  []string
}

func (d *fakeData) History(_ context.Context, symbol string, days int) (model.Series, error) {
	d.calls = append(d.calls, symbol)
	return d.series.Clone(), d.err
}

func risingSeries(n int) model.Series {
	s := model.Series{Symbol: "NVDA"}
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p := decimal.NewFromInt(int64(100 + i))
		s.Bars = append(s.Bars, model.Bar{
			Symbol: "NVDA",
			Time:   start.AddDate(0, 0, i),
			Open:   p,
			High:   p.Add(decimal.NewFromInt(2)),
			Low:    p.Sub(decimal.NewFromInt(1)),
			Close:  p.Add(decimal.NewFromInt(1)),
			Volume: 1_000_000,
		})
	}
	return s
}

type recordingVisualizer struct {
	err     error
	symbols []string
}

func (v *recordingVisualizer) Render(_ context.Context, rec *Record) error {
	v.symbols = append(v.symbols, rec.Symbol())
	return v.err
}

func TestAnalyze_BuildsRecord(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	data := &fakeData{series: risingSeries(30)}
	f := New(data, zaptest.NewLogger(t), WithNow(func() time.Time { return created }))

	rec, err := f.Analyze(context.Background(), "NVDA", 60)
	require.NoError(t, err)

	assert.Equal(t, []string{"NVDA"}, data.calls)
	assert.Equal(t, "NVDA", rec.Symbol())
	assert.Equal(t, 30, rec.Len())
	assert.Equal(t, created, rec.CreatedAt())
	assert.NotEqual(t, [16]byte{}, [16]byte(rec.ID()))
	assert.Equal(t, model.TrendUpward, rec.Assessment().Trend)
	assert.Equal(t, model.RSIOverbought, rec.Assessment().RSISignal)
	assert.Equal(t, 30, rec.Statistics().Records)

	ma, ok := rec.Indicators().Latest(calculator.MAName(20))
	assert.True(t, ok)
	assert.InDelta(t, 120.5, ma, 1e-9)
}

func TestRecord_AccessorsReturnCopies(t *testing.T) {
	f := New(&fakeData{series: risingSeries(25)}, zaptest.NewLogger(t))
	rec, err := f.Analyze(context.Background(), "NVDA", 60)
	require.NoError(t, err)

	s := rec.Series()
	s.Bars[0].Volume = 0
	set := rec.Indicators()
	set.Series[calculator.MAName(5)][24] = -1

	assert.Equal(t, int64(1_000_000), rec.Series().Bars[0].Volume)
	last, _ := rec.Indicators().Latest(calculator.MAName(5))
	assert.NotEqual(t, -1.0, last)
}

func TestAnalyze_Failures(t *testing.T) {
	upstream := apperr.Newf(apperr.UpstreamUnavailable, "history", "NVDA", "status 503")
	tests := []struct {
		name string
		data *fakeData
		kind apperr.Kind
	}{
		{"empty series", &fakeData{series: model.Series{Symbol: "NVDA"}}, apperr.EmptySeries},
		{"too short", &fakeData{series: risingSeries(10)}, apperr.InsufficientData},
		{"upstream error", &fakeData{err: upstream}, apperr.UpstreamUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.data, zaptest.NewLogger(t))
			rec, err := f.Analyze(context.Background(), "NVDA", 30)
			assert.Nil(t, rec)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestNewRecord_RejectsEmptySeries(t *testing.T) {
	_, err := NewRecord(model.Series{Symbol: "X"}, calculator.Set{}, model.Statistics{}, model.Assessment{}, time.Now())
	assert.True(t, errors.Is(err, apperr.EmptySeries))
}

func TestSummarize(t *testing.T) {
	data := &fakeData{series: risingSeries(30)}
	ctx := context.Background()

	ok := New(data, zaptest.NewLogger(t), WithSummarizer(SummarizerFunc(func(_ context.Context, rec *Record) (string, error) {
		return rec.Symbol() + " is up", nil
	})))
	rec, err := ok.Analyze(ctx, "NVDA", 60)
	require.NoError(t, err)
	text, err := ok.Summarize(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "NVDA is up", text)

	failing := New(data, zaptest.NewLogger(t), WithSummarizer(SummarizerFunc(func(context.Context, *Record) (string, error) {
		return "", errors.New("model offline")
	})))
	_, err = failing.Summarize(ctx, rec)
	assert.True(t, errors.Is(err, apperr.SummarizerUnavailable))
	assert.Contains(t, err.Error(), "model offline")
	assert.Equal(t, 30, rec.Len(), "record survives a summarizer failure")

	_, err = New(data, zaptest.NewLogger(t)).Summarize(ctx, rec)
	assert.True(t, errors.Is(err, apperr.SummarizerUnavailable))
}

func TestRender_LogsVisualizerErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	good := &recordingVisualizer{}
	bad := &recordingVisualizer{err: errors.New("terminal closed")}
	f := New(&fakeData{series: risingSeries(30)}, zap.New(core), WithVisualizers(bad, good))

	rec, err := f.Analyze(context.Background(), "NVDA", 60)
	require.NoError(t, err)
	f.Render(context.Background(), rec)

	assert.Equal(t, []string{"NVDA"}, good.symbols, "a failing visualizer does not stop the others")
	assert.Equal(t, 1, logs.FilterMessage("render failed").Len())
}

func TestNew_RulesFollowRSIWindow(t *testing.T) {
	req := calculator.DefaultRequest()
	req.RSIWindow = 7
	f := New(&fakeData{}, zaptest.NewLogger(t), WithRequest(req))
	assert.Equal(t, calculator.RSIName(7), f.rules.RSIIndicator)
	assert.Equal(t, req, f.Request())
}
