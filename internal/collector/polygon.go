package collector

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"StockLens/internal/model"
)

const dateLayout = "2006-01-02"

// aggResponse is the envelope of the aggregates endpoints (prev and range).
type aggResponse struct {
	Status       string   `json:"status"`
	Ticker       string   `json:"ticker"`
	ResultsCount int      `json:"resultsCount"`
	Results      []aggBar `json:"results"`
}

type aggBar struct {
	T int64           `json:"t"` // window start, unix ms
	O decimal.Decimal `json:"o"`
	H decimal.Decimal `json:"h"`
	L decimal.Decimal `json:"l"`
	C decimal.Decimal `json:"c"`
	V decimal.Decimal `json:"v"`
}

func (a aggBar) toBar(symbol string, loc *time.Location) model.Bar {
	var ts time.Time
	if a.T != 0 {
		ts = time.UnixMilli(a.T).In(loc)
	}
	return model.Bar{
		Symbol: symbol,
		Time:   ts,
		Open:   a.O,
		High:   a.H,
		Low:    a.L,
		Close:  a.C,
		Volume: a.V.Round(0).IntPart(),
	}
}

// openCloseResponse is the body of /v1/open-close/{symbol}/{date}.
type openCloseResponse struct {
	Status     string              `json:"status"`
	Symbol     string              `json:"symbol"`
	From       string              `json:"from"`
	Open       decimal.Decimal     `json:"open"`
	High       decimal.Decimal     `json:"high"`
	Low        decimal.Decimal     `json:"low"`
	Close      decimal.Decimal     `json:"close"`
	Volume     decimal.Decimal     `json:"volume"`
	PreMarket  decimal.NullDecimal `json:"preMarket"`
	AfterHours decimal.NullDecimal `json:"afterHours"`
}

// decodePrev maps the previous-day aggregate to a Bar. An empty result set
// is reported through ok=false so the caller can treat it as unknown symbol.
func decodePrev(symbol string, body []byte, loc *time.Location) (bar model.Bar, ok bool, err error) {
	var resp aggResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Bar{}, false, fmt.Errorf("decode prev: %w", err)
	}
	if len(resp.Results) == 0 {
		return model.Bar{}, false, nil
	}
	bar = resp.Results[0].toBar(symbol, loc)
	if err := bar.Validate(); err != nil {
		return model.Bar{}, false, err
	}
	return bar, true, nil
}

func decodeOpenClose(symbol string, body []byte, loc *time.Location) (model.DailySummary, error) {
	var resp openCloseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.DailySummary{}, fmt.Errorf("decode open-close: %w", err)
	}
	day, err := time.ParseInLocation(dateLayout, resp.From, loc)
	if err != nil {
		return model.DailySummary{}, fmt.Errorf("decode open-close date %q: %w", resp.From, err)
	}
	s := model.DailySummary{
		Bar: model.Bar{
			Symbol: symbol,
			Time:   day,
			Open:   resp.Open,
			High:   resp.High,
			Low:    resp.Low,
			Close:  resp.Close,
			Volume: resp.Volume.Round(0).IntPart(),
		},
		PreMarket:  resp.PreMarket,
		AfterHours: resp.AfterHours,
	}
	if err := s.Bar.Validate(); err != nil {
		return model.DailySummary{}, err
	}
	return s, nil
}

// decodeRange maps the range aggregate to a Series sorted by time with
// duplicate timestamps collapsed; the later entry in the body wins.
func decodeRange(symbol string, body []byte, loc *time.Location) (model.Series, error) {
	var resp aggResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.Series{}, fmt.Errorf("decode range: %w", err)
	}
	bars := make([]model.Bar, 0, len(resp.Results))
	for _, r := range resp.Results {
		b := r.toBar(symbol, loc)
		if err := b.Validate(); err != nil {
			return model.Series{}, err
		}
		bars = append(bars, b)
	}
	series := model.Series{Symbol: symbol, Bars: sortDedupe(bars)}
	if err := series.Validate(); err != nil {
		return model.Series{}, err
	}
	return series, nil
}

func sortDedupe(bars []model.Bar) []model.Bar {
	byTime := make(map[int64]int, len(bars))
	out := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		k := b.Time.UnixNano()
		if i, ok := byTime[k]; ok {
			out[i] = b
			continue
		}
		byTime[k] = len(out)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
