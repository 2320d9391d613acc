// Package analysis composes market data and indicators into records and
// hands them to summarizers and visualizers.
package analysis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"StockLens/internal/apperr"
	"StockLens/internal/calculator"
	"StockLens/internal/model"
	"StockLens/internal/pattern"
)

// MarketData is the part of the market data client the facade needs.
type MarketData interface {
	History(ctx context.Context, symbol string, days int) (model.Series, error)
}

// Summarizer turns a record into free text.
type Summarizer interface {
	Summarize(ctx context.Context, rec *Record) (string, error)
}

// SummarizerFunc adapts a function to Summarizer.
type SummarizerFunc func(ctx context.Context, rec *Record) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, rec *Record) (string, error) {
	return f(ctx, rec)
}

// Visualizer renders a record somewhere; the facade ignores its output.
type Visualizer interface {
	Render(ctx context.Context, rec *Record) error
}

// Facade runs the fetch, compute and assess chain for one symbol.
type Facade struct {
	data        MarketData
	request     calculator.Request
	rules       pattern.Rules
	summarizer  Summarizer
	visualizers []Visualizer
	logger      *zap.Logger
	now         func() time.Time
}

// Option customizes a Facade.
type Option func(*Facade)

func WithRequest(req calculator.Request) Option { return func(f *Facade) { f.request = req } }
func WithRules(r pattern.Rules) Option { return func(f *Facade) { f.rules = r } }
func WithSummarizer(s Summarizer) Option { return func(f *Facade) { f.summarizer = s } }
func WithVisualizers(v ...Visualizer) Option {
	return func(f *Facade) { f.visualizers = append(f.visualizers, v...) }
}
func WithNow(now func() time.Time) Option { return func(f *Facade) { f.now = now } }

// New creates a Facade over data.
func New(data MarketData, logger *zap.Logger, opts ...Option) *Facade {
	f := &Facade{
		data:    data,
		request: calculator.DefaultRequest(),
		rules:   pattern.DefaultRules(),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.request.RSIWindow > 0 {
		f.rules.RSIIndicator = calculator.RSIName(f.request.RSIWindow)
	}
	return f
}

// Request returns the indicator request used by Analyze.
func (f *Facade) Request() calculator.Request { return f.request }

// Analyze fetches days of history for symbol and builds a record from it.
func (f *Facade) Analyze(ctx context.Context, symbol string, days int) (*Record, error) {
	series, err := f.data.History(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	return f.Build(series)
}

// Build derives indicators, statistics and the assessment of series.
func (f *Facade) Build(series model.Series) (*Record, error) {
	if series.Len() == 0 {
		return nil, apperr.Newf(apperr.EmptySeries, "analyze", series.Symbol, "no bars returned")
	}
	set, err := calculator.Compute(series, f.request)
	if err != nil {
		return nil, err
	}
	stats, err := calculator.Describe(series)
	if err != nil {
		return nil, err
	}
	rec, err := NewRecord(series, set, stats, f.rules.Assess(series, set), f.now())
	if err != nil {
		return nil, err
	}
	f.logger.Debug("analysis record built",
		zap.String("symbol", rec.Symbol()),
		zap.Stringer("id", rec.ID()),
		zap.Int("bars", rec.Len()))
	return rec, nil
}

// Summarize asks the summarizer for a text summary. Any failure is reported
// as SummarizerUnavailable; the record stays valid.
func (f *Facade) Summarize(ctx context.Context, rec *Record) (string, error) {
	if f.summarizer == nil {
		return "", apperr.Newf(apperr.SummarizerUnavailable, "summarize", rec.Symbol(), "no summarizer configured")
	}
	text, err := f.summarizer.Summarize(ctx, rec)
	if err != nil {
		return "", apperr.Wrap(apperr.SummarizerUnavailable, "summarize", rec.Symbol(), err)
	}
	return text, nil
}

// Render passes rec to every visualizer. Failures are logged only.
func (f *Facade) Render(ctx context.Context, rec *Record) {
	for _, v := range f.visualizers {
		if err := v.Render(ctx, rec); err != nil {
			f.logger.Warn("render failed", zap.String("symbol", rec.Symbol()), zap.Error(err))
		}
	}
}
