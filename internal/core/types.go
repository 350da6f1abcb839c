package core

import "time"

// Asset is a point-in-time market snapshot for one trading pair.
// Symbol is always in canonical BASE/USD form.
type Asset struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Volume24h     float64   `json:"volume24h"`
	Change24h     float64   `json:"change24h"`
	High24h       *float64  `json:"high24h,omitempty"`
	Low24h        *float64  `json:"low24h,omitempty"`
	LastUpdate    time.Time `json:"lastUpdate"`
	PreviousPrice *float64  `json:"previousPrice,omitempty"`
}

// Candle is one OHLCV bar. Timestamp is the bar open time in epoch
// milliseconds (UTC). Volume is zero when the provider does not report it.
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Time returns the candle open time.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.Timestamp).UTC()
}

// Interval is a bar width such as "5m" or "1d".
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
)

// DefaultInterval is used wherever an interval is missing or unknown.
const DefaultInterval = Interval5m

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval4h:  4 * time.Hour,
	Interval1d:  24 * time.Hour,
	Interval1w:  7 * 24 * time.Hour,
}

// Duration returns the bar width. Unknown intervals fall back to 5m.
func (i Interval) Duration() time.Duration {
	if d, ok := intervalDurations[i]; ok {
		return d
	}
	return intervalDurations[DefaultInterval]
}

// IsValid reports whether i is one of the supported intervals.
func (i Interval) IsValid() bool {
	_, ok := intervalDurations[i]
	return ok
}
