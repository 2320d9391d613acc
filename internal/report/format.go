// Package report renders market data and analysis records as plain text.
package report

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"StockLens/internal/analysis"
	"StockLens/internal/calculator"
	"StockLens/internal/model"
)

const dateLayout = "2006-01-02"

// FormatQuote formats the latest completed bar of a symbol.
func FormatQuote(bar model.Bar) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s | %s\n", bar.Symbol, bar.Time.Format(dateLayout)))
	b.WriteString(fmt.Sprintf("Close:  %s (%+.2f%% vs open)\n", bar.Close.StringFixed(2), intradayPct(bar)))
	b.WriteString(fmt.Sprintf("Open:   %s\n", bar.Open.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Range:  %s - %s\n", bar.Low.StringFixed(2), bar.High.StringFixed(2)))
	b.WriteString(fmt.Sprintf("Volume: %d\n", bar.Volume))
	return b.String()
}

// FormatDaily formats an open/close summary including extended hours.
func FormatDaily(s model.DailySummary) string {
	var b strings.Builder
	b.WriteString(FormatQuote(s.Bar))
	if s.PreMarket.Valid {
		b.WriteString(fmt.Sprintf("Pre-market:  %s\n", s.PreMarket.Decimal.StringFixed(2)))
	}
	if s.AfterHours.Valid {
		b.WriteString(fmt.Sprintf("After hours: %s\n", s.AfterHours.Decimal.StringFixed(2)))
	}
	return b.String()
}

// FormatHistory renders one row per bar.
func FormatHistory(series model.Series) string {
	if series.Len() == 0 {
		return fmt.Sprintf("%s: no data\n", series.Symbol)
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s | %d bars\n", series.Symbol, series.Len()))
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "date\topen\tclose\tchange%\tvolume\t")
	for _, bar := range series.Bars {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%+.2f\t%d\t\n",
			bar.Time.Format(dateLayout), bar.Open.StringFixed(2), bar.Close.StringFixed(2), intradayPct(bar), bar.Volume)
	}
	tw.Flush()
	return b.String()
}

// FormatStatistics formats descriptive statistics.
func FormatStatistics(st model.Statistics) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Period:        %s .. %s (%d bars)\n", st.From.Format(dateLayout), st.To.Format(dateLayout), st.Records))
	b.WriteString(fmt.Sprintf("Current price: %.2f\n", st.CurrentPrice))
	b.WriteString(fmt.Sprintf("Range:         %.2f - %.2f (avg %.2f)\n", st.MinPrice, st.MaxPrice, st.AvgPrice))
	b.WriteString(fmt.Sprintf("Volatility:    %.2f\n", st.PriceVolatility))
	b.WriteString(fmt.Sprintf("Total return:  %+.2f%%\n", st.TotalReturnPct))
	b.WriteString(fmt.Sprintf("Best / worst:  %+.2f%% / %+.2f%% (avg %+.2f%%)\n", st.BestDayPct, st.WorstDayPct, st.AvgDailyChangePct))
	b.WriteString(fmt.Sprintf("Volume:        avg %.0f, %d - %d\n", st.AvgVolume, st.MinVolume, st.MaxVolume))
	return b.String()
}

// FormatRecord formats a full analysis report.
func FormatRecord(rec *analysis.Record) string {
	var b strings.Builder
	last := rec.Latest()
	set := rec.Indicators()

	b.WriteString(fmt.Sprintf("%s analysis | %s\n\n", rec.Symbol(), rec.CreatedAt().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Last close: %s on %s\n", last.Close.StringFixed(2), last.Time.Format(dateLayout)))

	for _, name := range append(indicatorNames(set, "ma_"), indicatorNames(set, "rsi_")...) {
		b.WriteString(fmt.Sprintf("%s: %s\n", strings.ToUpper(name), latest(set, name)))
	}
	if d, ok := set.Scalars[calculator.ChangeMeanName]; ok {
		b.WriteString(fmt.Sprintf("Daily change: mean %+.2f%%, stddev %.2f%%, best %+.2f%%, worst %+.2f%%\n",
			d*100, set.Scalars[calculator.ChangeStdDevName]*100,
			set.Scalars[calculator.ChangeBestName]*100, set.Scalars[calculator.ChangeWorstName]*100))
	}

	if flags := latestFlags(set); len(flags) > 0 {
		b.WriteString(fmt.Sprintf("Flags: %s\n", strings.Join(flags, ", ")))
	}

	a := rec.Assessment()
	b.WriteString("\nAssessment:\n")
	b.WriteString(fmt.Sprintf("  trend: %s\n", orUnknown(string(a.Trend))))
	b.WriteString(fmt.Sprintf("  volume: %s\n", orUnknown(string(a.VolumeActivity))))
	b.WriteString(fmt.Sprintf("  rsi: %s\n", orUnknown(string(a.RSISignal))))

	b.WriteString("\nStatistics:\n")
	b.WriteString(indent(FormatStatistics(rec.Statistics()), "  "))
	return b.String()
}

// FormatWait reports a rate-limit wait.
func FormatWait(d time.Duration) string {
	return fmt.Sprintf("rate limit: waiting %s", d.Round(100*time.Millisecond))
}

func intradayPct(bar model.Bar) float64 {
	open := bar.Open.InexactFloat64()
	if open == 0 {
		return 0
	}
	return (bar.Close.InexactFloat64() - open) / open * 100
}

// indicatorNames returns the series names with prefix, ordered by window.
func indicatorNames(set calculator.Set, prefix string) []string {
	var names []string
	for name := range set.Series {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}

// latestFlags lists the flag indicators set on the last bar.
func latestFlags(set calculator.Set) []string {
	var out []string
	for name, flags := range set.Flags {
		if n := len(flags); n > 0 && flags[n-1] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func latest(set calculator.Set, name string) string {
	v, ok := set.Latest(name)
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func indent(s, prefix string) string {
	lines := strings.SplitAfter(s, "\n")
	var b strings.Builder
	for _, l := range lines {
		if l != "" {
			b.WriteString(prefix + l)
		}
	}
	return b.String()
}
