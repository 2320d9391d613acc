package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"StockLens/internal/analysis"
	"StockLens/internal/calculator"
)

// TableVisualizer prints the trailing bars of a record next to their
// indicator values.
type TableVisualizer struct {
	W    io.Writer
	Rows int // trailing bars to print; <= 0 prints all
}

func (v TableVisualizer) Render(ctx context.Context, rec *analysis.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	series := rec.Series()
	set := rec.Indicators()

	columns := append(indicatorNames(set, "ma_"), indicatorNames(set, "rsi_")...)
	var flags []string
	for name := range set.Flags {
		flags = append(flags, name)
	}
	sort.Strings(flags)

	tw := tabwriter.NewWriter(v.W, 0, 0, 2, ' ', 0)
	header := append([]string{"date", "close", "volume"}, columns...)
	header = append(header, "flags")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	start := 0
	if v.Rows > 0 && series.Len() > v.Rows {
		start = series.Len() - v.Rows
	}
	for i := start; i < series.Len(); i++ {
		bar := series.Bars[i]
		row := []string{bar.Time.Format(dateLayout), bar.Close.StringFixed(2), fmt.Sprint(bar.Volume)}
		for _, name := range columns {
			row = append(row, cell(set.Series[name][i]))
		}
		var on []string
		for _, name := range flags {
			if set.Flags[name][i] {
				on = append(on, name)
			}
		}
		row = append(row, strings.Join(on, ","))
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func cell(v float64) string {
	if !calculator.IsDefined(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}
