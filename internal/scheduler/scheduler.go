package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"StockLens/internal/analysis"
	"StockLens/internal/report"
)

// Analyzer is the part of the analysis facade the scheduler drives.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string, days int) (*analysis.Record, error)
	Summarize(ctx context.Context, rec *analysis.Record) (string, error)
	Render(ctx context.Context, rec *analysis.Record)
}

// Sweeper evicts expired cache entries.
type Sweeper interface {
	Sweep() int
	Cached() int
}

// Scheduler manages the watchlist refresh and cache sweep cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Analyzer  Analyzer
	Sweeper   Sweeper
	Watchlist []string
	Days      int
	Ctx       context.Context
	Logger    *zap.Logger

	mu     sync.RWMutex
	latest map[string]*analysis.Record
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, a Analyzer, sw Sweeper, watchlist []string, days int, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Analyzer:  a,
		Sweeper:   sw,
		Watchlist: watchlist,
		Days:      days,
		Ctx:       ctx,
		Logger:    logger,
		latest:    make(map[string]*analysis.Record),
	}
}

// RegisterAll registers the refresh and sweep tasks.
func (s *Scheduler) RegisterAll(refreshCron, sweepCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(sweepCron, s.sweepTask); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started", zap.Strings("watchlist", s.Watchlist))
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// RunRefreshNow executes the refresh task immediately and returns how many
// symbols were analyzed.
func (s *Scheduler) RunRefreshNow() int {
	return s.refresh()
}

// Latest returns the most recent record of symbol, if any.
func (s *Scheduler) Latest(symbol string) (*analysis.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.latest[strings.ToUpper(symbol)]
	return rec, ok
}

func (s *Scheduler) refreshTask() {
	s.refresh()
}

func (s *Scheduler) refresh() int {
	s.Logger.Info("running watchlist refresh", zap.Int("symbols", len(s.Watchlist)))
	ok := 0
	for _, symbol := range s.Watchlist {
		if s.Ctx.Err() != nil {
			break
		}
		rec, err := s.Analyzer.Analyze(s.Ctx, symbol, s.Days)
		if err != nil {
			s.Logger.Error("refresh failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		s.mu.Lock()
		s.latest[rec.Symbol()] = rec
		s.mu.Unlock()
		ok++

		a := rec.Assessment()
		s.Logger.Info("refreshed",
			zap.String("symbol", rec.Symbol()),
			zap.String("close", rec.Latest().Close.StringFixed(2)),
			zap.String("trend", string(a.Trend)),
			zap.String("volume", string(a.VolumeActivity)),
			zap.String("rsi", string(a.RSISignal)))
		s.Analyzer.Render(s.Ctx, rec)
	}
	return ok
}

func (s *Scheduler) sweepTask() {
	if n := s.Sweeper.Sweep(); n > 0 {
		s.Logger.Debug("cache swept", zap.Int("evicted", n), zap.Int("remaining", s.Sweeper.Cached()))
	}
}

// HandleCommand processes an interactive command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	switch strings.ToLower(fields[0]) {
	case "status", "/status":
		return s.status()
	case "refresh", "/refresh":
		return fmt.Sprintf("refreshed %d of %d symbols", s.refresh(), len(s.Watchlist))
	case "report", "/report":
		if len(fields) < 2 {
			return "usage: report SYMBOL"
		}
		rec, ok := s.Latest(fields[1])
		if !ok {
			return fmt.Sprintf("no analysis for %s yet", strings.ToUpper(fields[1]))
		}
		return report.FormatRecord(rec)
	case "summary", "/summary":
		if len(fields) < 2 {
			return "usage: summary SYMBOL"
		}
		rec, ok := s.Latest(fields[1])
		if !ok {
			return fmt.Sprintf("no analysis for %s yet", strings.ToUpper(fields[1]))
		}
		text, err := s.Analyzer.Summarize(s.Ctx, rec)
		if err != nil {
			return fmt.Sprintf("summary unavailable: %v", err)
		}
		return text
	case "sweep", "/sweep":
		n := s.Sweeper.Sweep()
		return fmt.Sprintf("evicted %d cache entries, %d remaining", n, s.Sweeper.Cached())
	default:
		return "commands:\n  status\n  refresh\n  report SYMBOL\n  summary SYMBOL\n  sweep"
	}
}

func (s *Scheduler) status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.latest) == 0 {
		return "no analysis yet"
	}
	symbols := make([]string, 0, len(s.latest))
	for sym := range s.latest {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var b strings.Builder
	for _, sym := range symbols {
		rec := s.latest[sym]
		a := rec.Assessment()
		b.WriteString(fmt.Sprintf("%-6s %10s  trend=%s volume=%s rsi=%s  (%s)\n",
			sym, rec.Latest().Close.StringFixed(2), a.Trend, a.VolumeActivity, a.RSISignal,
			rec.CreatedAt().Format("2006-01-02 15:04")))
	}
	return b.String()
}
