package model

// Trend describes the direction of the most recent closes.
type Trend string

const (
	TrendUpward   Trend = "upward"
	TrendDownward Trend = "downward"
	TrendSideways Trend = "sideways"
)

// VolumeActivity compares recent volume with its short moving average.
type VolumeActivity string

const (
	VolumeHigh   VolumeActivity = "high"
	VolumeLow    VolumeActivity = "low"
	VolumeNormal VolumeActivity = "normal"
)

// RSISignal classifies the latest RSI reading.
type RSISignal string

const (
	RSIOverbought RSISignal = "overbought"
	RSIOversold   RSISignal = "oversold"
	RSINeutral    RSISignal = "neutral"
)

// Assessment is the pattern read-out attached to an analysis record.
// Empty fields mean the series was too short to decide.
type Assessment struct {
	Trend          Trend
	VolumeActivity VolumeActivity
	RSISignal      RSISignal
}
