package report

import (
	"context"
	"fmt"
	"strings"

	"StockLens/internal/analysis"
	"StockLens/internal/calculator"
)

// TextSummarizer writes a short rule-based narrative of a record. It is the
// local stand-in for a language model summarizer.
type TextSummarizer struct{}

func (TextSummarizer) Summarize(ctx context.Context, rec *analysis.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	st := rec.Statistics()
	a := rec.Assessment()
	set := rec.Indicators()
	last := rec.Latest()

	var parts []string
	parts = append(parts, fmt.Sprintf("%s closed at %s on %s, %+.2f%% over %d bars.",
		rec.Symbol(), last.Close.StringFixed(2), last.Time.Format(dateLayout), st.TotalReturnPct, st.Records))

	if a.Trend != "" {
		parts = append(parts, fmt.Sprintf("The recent trend is %s with %s volume.", a.Trend, a.VolumeActivity))
	}

	if names := indicatorNames(set, "rsi_"); len(names) > 0 {
		if v, ok := set.Latest(names[0]); ok {
			parts = append(parts, fmt.Sprintf("RSI reads %.1f (%s).", v, a.RSISignal))
		}
	}

	if names := indicatorNames(set, "ma_"); len(names) > 0 {
		name := names[len(names)-1]
		if ma, ok := set.Latest(name); ok {
			side := "above"
			if st.CurrentPrice < ma {
				side = "below"
			}
			parts = append(parts, fmt.Sprintf("Price is %s its %s (%.2f).", side, strings.ToUpper(name), ma))
		}
	}

	for _, flag := range latestFlags(set) {
		switch {
		case strings.HasPrefix(flag, "volume_spike_"):
			parts = append(parts, "The last session saw a volume spike.")
		case strings.HasPrefix(flag, "new_high_"):
			parts = append(parts, fmt.Sprintf("The close is a new %s-bar high.", strings.TrimPrefix(flag, "new_high_")))
		case strings.HasPrefix(flag, "new_low_"):
			parts = append(parts, fmt.Sprintf("The close is a new %s-bar low.", strings.TrimPrefix(flag, "new_low_")))
		}
	}

	if sd, ok := set.Scalars[calculator.ChangeStdDevName]; ok {
		parts = append(parts, fmt.Sprintf("Daily moves vary by about %.2f%%.", sd*100))
	}
	return strings.Join(parts, " "), nil
}
