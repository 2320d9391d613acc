package model

import "time"

// Statistics summarizes a series the way a report header needs it.
type Statistics struct {
	Records int
	From    time.Time
	To      time.Time

	CurrentPrice    float64
	MaxPrice        float64 // highest high
	MinPrice        float64 // lowest low
	AvgPrice        float64 // mean close
	PriceVolatility float64 // sample stddev of closes

	AvgVolume float64
	MaxVolume int64
	MinVolume int64

	TotalReturnPct    float64 // last close vs first open
	BestDayPct        float64 // intraday (close-open)/open
	WorstDayPct       float64
	AvgDailyChangePct float64
}
