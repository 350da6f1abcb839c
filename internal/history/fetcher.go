// Package history fetches OHLCV candles for a calendar date range.
package history

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/cryptostream/internal/collector/crypto"
	"github.com/newthinker/cryptostream/internal/core"
	"go.uber.org/zap"
)

// MaxLimit is the largest page a single range request asks for.
const MaxLimit = 1000

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Source is the candle source the fetcher delegates to.
type Source interface {
	HistoricalCandles(ctx context.Context, symbol string, opts crypto.HistoryOptions) ([]core.Candle, error)
}

// Observer receives one callback per completed range fetch.
type Observer interface {
	ObserveHistoryFetch(duration time.Duration, candles int, err error)
}

// State is a snapshot of the fetcher's observable load state.
type State struct {
	Loading bool          `json:"loading"`
	Err     string        `json:"error,omitempty"`
	Data    []core.Candle `json:"data"`
}

// Fetcher turns a date range into a single bounded candle request.
type Fetcher struct {
	source      Source
	logger      *zap.Logger
	observer    Observer
	strictRange bool

	mu    sync.RWMutex
	state State
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithStrictRange rejects ranges whose end is not after their start.
func WithStrictRange(strict bool) Option {
	return func(f *Fetcher) {
		f.strictRange = strict
	}
}

// WithObserver reports every completed fetch to o.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) {
		f.observer = o
	}
}

// NewFetcher creates a range fetcher over source.
func NewFetcher(source Source, logger *zap.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		source: source,
		logger: logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchRange loads candles for symbol between startDate and endDate
// (inclusive). Overlapping calls are allowed; the last one to finish owns
// the state.
func (f *Fetcher) FetchRange(ctx context.Context, symbol, startDate, endDate string, interval core.Interval) ([]core.Candle, error) {
	f.setLoading()
	begin := time.Now()

	candles, err := f.fetch(ctx, symbol, startDate, endDate, interval)
	if f.observer != nil {
		f.observer.ObserveHistoryFetch(time.Since(begin), len(candles), err)
	}
	if err != nil {
		f.setError(err)
		f.logger.Warn("historical range fetch failed",
			zap.String("symbol", symbol),
			zap.String("start", startDate),
			zap.String("end", endDate),
			zap.Error(err),
		)
		return nil, err
	}

	f.setData(candles)
	return candles, nil
}

func (f *Fetcher) fetch(ctx context.Context, symbol, startDate, endDate string, interval core.Interval) ([]core.Candle, error) {
	native := crypto.ToBinanceSymbol(symbol)

	start, err := ParseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return nil, err
	}
	if f.strictRange && !end.After(start) {
		return nil, core.WrapError(core.ErrInvalidRange, fmt.Errorf("end %s is not after start %s", endDate, startDate))
	}
	if !interval.IsValid() {
		interval = core.DefaultInterval
	}

	startMs, endMs := start.UnixMilli(), end.UnixMilli()
	limit := CalculateLimit(startMs, endMs, interval)

	candles, err := f.source.HistoricalCandles(ctx, native, crypto.HistoryOptions{
		Interval:  interval,
		Limit:     limit,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		return nil, err
	}

	filtered := FilterRange(candles, startMs, endMs)
	f.logger.Debug("historical range fetched",
		zap.String("symbol", native),
		zap.String("interval", string(interval)),
		zap.Int("limit", limit),
		zap.Int("received", len(candles)),
		zap.Int("kept", len(filtered)),
	)
	return filtered, nil
}

// CalculateLimit returns the number of bars of interval needed to cover
// [startMs, endMs], rounded up and capped at MaxLimit. Unknown intervals
// count as 5m.
func CalculateLimit(startMs, endMs int64, interval core.Interval) int {
	step := interval.Duration().Milliseconds()
	bars := math.Ceil(float64(endMs-startMs) / float64(step))
	return int(min(bars, MaxLimit))
}

// FilterRange keeps candles whose timestamp lies in [startMs, endMs].
func FilterRange(candles []core.Candle, startMs, endMs int64) []core.Candle {
	out := make([]core.Candle, 0, len(candles))
	for _, c := range candles {
		if c.Timestamp >= startMs && c.Timestamp <= endMs {
			out = append(out, c)
		}
	}
	return out
}

// ParseDate accepts RFC 3339 timestamps, minute or second precision local
// datetimes, and bare dates. Values without a zone are read as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, core.WrapError(core.ErrInvalidRange, fmt.Errorf("unparseable date %q", s))
}

// State returns a copy of the current load state.
func (f *Fetcher) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()

	st := f.state
	if st.Data != nil {
		st.Data = append([]core.Candle(nil), st.Data...)
	}
	return st
}

// Clear resets the state to idle.
func (f *Fetcher) Clear() {
	f.mu.Lock()
	f.state = State{}
	f.mu.Unlock()
}

func (f *Fetcher) setLoading() {
	f.mu.Lock()
	f.state.Loading = true
	f.state.Err = ""
	f.mu.Unlock()
}

func (f *Fetcher) setError(err error) {
	f.mu.Lock()
	f.state = State{Err: err.Error()}
	f.mu.Unlock()
}

func (f *Fetcher) setData(candles []core.Candle) {
	f.mu.Lock()
	f.state = State{Data: candles}
	f.mu.Unlock()
}
