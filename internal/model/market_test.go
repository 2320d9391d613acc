package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(day int, o, h, l, c float64, v int64) Bar {
	return Bar{
		Symbol: "AAPL",
		Time:   time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Open:   decimal.NewFromFloat(o),
		High:   decimal.NewFromFloat(h),
		Low:    decimal.NewFromFloat(l),
		Close:  decimal.NewFromFloat(c),
		Volume: v,
	}
}

func TestBar_Validate(t *testing.T) {
	tests := []struct {
		name    string
		bar     Bar
		wantErr string
	}{
		{"valid", bar(1, 10, 12, 9, 11, 100), ""},
		{"flat bar", bar(1, 10, 10, 10, 10, 0), ""},
		{"low above open", bar(1, 10, 12, 10.5, 11, 100), "low"},
		{"high below close", bar(1, 10, 10.5, 9, 11, 100), "high"},
		{"zero close", bar(1, 10, 12, 9, 0, 100), "close must be positive"},
		{"negative volume", bar(1, 10, 12, 9, 11, -1), "negative volume"},
		{"missing time", Bar{Symbol: "AAPL"}, "missing timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bar.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSeries_ValidateRequiresStrictOrder(t *testing.T) {
	s := Series{Symbol: "AAPL", Bars: []Bar{bar(1, 10, 11, 9, 10, 1), bar(2, 10, 11, 9, 10, 1)}}
	assert.NoError(t, s.Validate())

	s.Bars = append(s.Bars, bar(2, 10, 11, 9, 10, 1))
	assert.Error(t, s.Validate())
}

func TestSeries_CloneIsIndependent(t *testing.T) {
	s := Series{Symbol: "AAPL", Bars: []Bar{bar(1, 10, 11, 9, 10, 1)}}
	c := s.Clone()
	c.Bars[0].Volume = 99

	assert.Equal(t, int64(1), s.Bars[0].Volume)
	assert.Equal(t, []float64{10}, s.Closes())
	assert.Equal(t, []float64{1}, s.Volumes())
}
