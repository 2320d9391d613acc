package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"StockLens/internal/analysis"
	"StockLens/internal/apperr"
	"StockLens/internal/calculator"
	"StockLens/internal/collector"
	"StockLens/internal/config"
	"StockLens/internal/logger"
	"StockLens/internal/ratelimit"
	"StockLens/internal/report"
	"StockLens/internal/scheduler"
)

const usage = `usage: stocklens <command> [args]

commands:
  price   SYMBOL              latest completed daily bar
  daily   SYMBOL [YYYY-MM-DD] open/close summary (default: yesterday)
  history SYMBOL [DAYS]       daily bars of the last DAYS calendar days
  analyze SYMBOL [DAYS]       indicators, assessment and summary
  stats   SYMBOL [DAYS]       descriptive statistics
  watch                       refresh the watchlist on schedule`

type app struct {
	cfg    *config.Config
	client *collector.Client
	facade *analysis.Facade
	loc    *time.Location
	logger *zap.Logger
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, apperr.MissingCredential) {
			fmt.Fprintln(os.Stderr, "Please set POLYGON_API_KEY in your environment or .env file.")
		}
		log.Fatal("config validation", zap.Error(err))
	}

	a, err := newApp(cfg, log)
	if err != nil {
		log.Fatal("init", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		cancel()
		log.Sync()
		os.Exit(1)
	}
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return nil, err
	}

	var fetcher collector.Fetcher
	switch cfg.Provider.Name {
	case "stub":
		fetcher = &collector.StubFetcher{Location: clientCfg.Location}
	default:
		fetcher, err = collector.NewHTTPFetcher(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Proxy, cfg.Provider.Timeout)
		if err != nil {
			return nil, err
		}
	}
	log.Info("data source", zap.String("provider", fetcher.Name()))

	limiter := ratelimit.New(cfg.LimiterConfig(), ratelimit.WithObserver(func(d time.Duration) {
		fmt.Fprintln(os.Stderr, report.FormatWait(d))
	}))
	client := collector.NewClient(fetcher, limiter, clientCfg, log)

	facade := analysis.New(client, log,
		analysis.WithRequest(cfg.Request()),
		analysis.WithSummarizer(report.TextSummarizer{}),
		analysis.WithVisualizers(report.TableVisualizer{W: os.Stdout, Rows: 10}),
	)
	return &app{cfg: cfg, client: client, facade: facade, loc: clientCfg.Location, logger: log}, nil
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "price":
		symbol, err := argSymbol(args)
		if err != nil {
			return err
		}
		bar, err := a.client.CurrentPrice(ctx, symbol)
		if err != nil {
			return err
		}
		fmt.Print(report.FormatQuote(bar))

	case "daily":
		symbol, err := argSymbol(args)
		if err != nil {
			return err
		}
		date := time.Now().In(a.loc).AddDate(0, 0, -1)
		if len(args) > 1 {
			if date, err = time.ParseInLocation("2006-01-02", args[1], a.loc); err != nil {
				return fmt.Errorf("date %q: want YYYY-MM-DD", args[1])
			}
		}
		s, err := a.client.DailyBar(ctx, symbol, date)
		if err != nil {
			return err
		}
		fmt.Print(report.FormatDaily(s))

	case "history":
		symbol, days, err := a.argSymbolDays(args)
		if err != nil {
			return err
		}
		series, err := a.client.History(ctx, symbol, days)
		if err != nil {
			return err
		}
		fmt.Print(report.FormatHistory(series))

	case "analyze":
		symbol, days, err := a.argSymbolDays(args)
		if err != nil {
			return err
		}
		rec, err := a.facade.Analyze(ctx, symbol, days)
		if err != nil {
			return err
		}
		fmt.Print(report.FormatRecord(rec))
		fmt.Println()
		a.facade.Render(ctx, rec)
		if text, err := a.facade.Summarize(ctx, rec); err != nil {
			a.logger.Warn("summary unavailable", zap.Error(err))
		} else {
			fmt.Printf("\n%s\n", text)
		}

	case "stats":
		symbol, days, err := a.argSymbolDays(args)
		if err != nil {
			return err
		}
		series, err := a.client.History(ctx, symbol, days)
		if err != nil {
			return err
		}
		st, err := calculator.Describe(series)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n%s", series.Symbol, report.FormatStatistics(st))

	case "watch":
		return a.watch(ctx)

	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

// watch runs the scheduler until interrupted and answers commands on stdin.
func (a *app) watch(ctx context.Context) error {
	sched := scheduler.NewScheduler(ctx, a.facade, a.client, a.cfg.Schedule.Watchlist, a.cfg.Analysis.HistoryDays, a.logger)
	if err := sched.RegisterAll(a.cfg.Schedule.RefreshCron, a.cfg.Schedule.SweepCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		a.logger.Info("RUN_ON_START enabled, refreshing watchlist now")
		go sched.RunRefreshNow()
	}

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if reply := sched.HandleCommand(scanner.Text()); reply != "" {
				fmt.Println(reply)
			}
		}
	}()

	a.logger.Info("watching, press Ctrl+C to stop")
	<-ctx.Done()
	a.logger.Info("shutdown signal received, stopping")
	return nil
}

func argSymbol(args []string) (string, error) {
	if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
		return "", errors.New("missing SYMBOL")
	}
	return args[0], nil
}

func (a *app) argSymbolDays(args []string) (string, int, error) {
	symbol, err := argSymbol(args)
	if err != nil {
		return "", 0, err
	}
	days := a.cfg.Analysis.HistoryDays
	if len(args) > 1 {
		if days, err = strconv.Atoi(args[1]); err != nil {
			return "", 0, fmt.Errorf("days %q: %w", args[1], err)
		}
	}
	return symbol, days, nil
}
