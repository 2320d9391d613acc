package collector

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StubFetcher serves deterministic Polygon-shaped responses for development
// and offline runs. Prices follow a smooth wave around Price, or around a
// per-symbol base when Price is zero.
type StubFetcher struct {
	Price    float64
	Location *time.Location
	Now      func() time.Time
}

func (s *StubFetcher) Name() string { return "stub" }

type stubAgg struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
	V float64 `json:"v"`
}

func (s *StubFetcher) Fetch(_ context.Context, endpoint string, _ url.Values) (int, []byte, error) {
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")
	switch {
	case len(parts) == 5 && parts[0] == "v2" && parts[4] == "prev":
		day := s.today().AddDate(0, 0, -1)
		return s.reply(map[string]any{
			"status":  "OK",
			"ticker":  parts[3],
			"results": []stubAgg{s.bar(parts[3], day)},
		})

	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "open-close":
		day, err := time.ParseInLocation(dateLayout, parts[3], s.loc())
		if err != nil {
			return s.notFound("bad date")
		}
		b := s.bar(parts[2], day)
		return s.reply(map[string]any{
			"status":     "OK",
			"symbol":     parts[2],
			"from":       parts[3],
			"open":       b.O,
			"high":       b.H,
			"low":        b.L,
			"close":      b.C,
			"volume":     b.V,
			"preMarket":  round2(b.O * 0.998),
			"afterHours": round2(b.C * 1.001),
		})

	case len(parts) == 9 && parts[0] == "v2" && parts[4] == "range":
		from, err1 := time.ParseInLocation(dateLayout, parts[7], s.loc())
		to, err2 := time.ParseInLocation(dateLayout, parts[8], s.loc())
		if err1 != nil || err2 != nil {
			return s.notFound("bad range")
		}
		var bars []stubAgg
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			bars = append(bars, s.bar(parts[3], d))
		}
		return s.reply(map[string]any{
			"status":       "OK",
			"ticker":       parts[3],
			"resultsCount": len(bars),
			"results":      bars,
		})
	}
	return s.notFound("unknown endpoint")
}

func (s *StubFetcher) bar(symbol string, day time.Time) stubAgg {
	base := s.Price
	if base <= 0 {
		h := fnv.New32a()
		h.Write([]byte(symbol))
		base = 50 + float64(h.Sum32()%450)
	}
	n := float64(day.Unix() / 86400)
	mid := base * (1 + 0.05*math.Sin(n/7) + 0.01*math.Sin(n/2))
	open := round2(mid * (1 - 0.004*math.Cos(n)))
	cl := round2(mid)
	return stubAgg{
		T: day.UnixMilli(),
		O: open,
		H: round2(math.Max(open, cl) * 1.006),
		L: round2(math.Min(open, cl) * 0.994),
		C: cl,
		V: float64(1_000_000 + int64(n)%7*150_000),
	}
}

func (s *StubFetcher) today() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	y, m, d := now().In(s.loc()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc())
}

func (s *StubFetcher) loc() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

func (s *StubFetcher) reply(v any) (int, []byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, body, nil
}

func (s *StubFetcher) notFound(msg string) (int, []byte, error) {
	body, _ := json.Marshal(map[string]string{"status": "NOT_FOUND", "error": msg})
	return http.StatusNotFound, body, nil
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
