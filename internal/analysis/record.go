package analysis

import (
	"time"

	"github.com/google/uuid"

	"StockLens/internal/apperr"
	"StockLens/internal/calculator"
	"StockLens/internal/model"
)

// Record is one immutable analysis result. Accessors hand out copies, so a
// Record can be shared between summarizers and visualizers.
type Record struct {
	id         uuid.UUID
	createdAt  time.Time
	series     model.Series
	indicators calculator.Set
	stats      model.Statistics
	assessment model.Assessment
}

// NewRecord composes a record from a non-empty series and its derived data.
func NewRecord(series model.Series, set calculator.Set, stats model.Statistics, assessment model.Assessment, createdAt time.Time) (*Record, error) {
	if series.Len() == 0 {
		return nil, apperr.Newf(apperr.EmptySeries, "new_record", series.Symbol, "series has no bars")
	}
	return &Record{
		id:         uuid.New(),
		createdAt:  createdAt,
		series:     series.Clone(),
		indicators: set.Clone(),
		stats:      stats,
		assessment: assessment,
	}, nil
}

func (r *Record) ID() uuid.UUID { return r.id }
func (r *Record) CreatedAt() time.Time { return r.createdAt }
func (r *Record) Symbol() string { return r.series.Symbol }
func (r *Record) Len() int { return r.series.Len() }
func (r *Record) Series() model.Series { return r.series.Clone() }
func (r *Record) Indicators() calculator.Set { return r.indicators.Clone() }
func (r *Record) Statistics() model.Statistics { return r.stats }
func (r *Record) Assessment() model.Assessment { return r.assessment }

// Latest returns the most recent bar.
func (r *Record) Latest() model.Bar { return r.series.Bars[r.series.Len()-1] }
