package crypto

import (
	"context"
	"time"

	"github.com/newthinker/cryptostream/internal/core"
)

// HistoryOptions parameterizes a historical candle request. Zero values mean
// "not set"; each provider applies its own defaults.
type HistoryOptions struct {
	Interval  core.Interval
	Limit     int
	StartTime time.Time
	EndTime   time.Time
	// Days is only meaningful to providers that page by day count.
	Days int
}

// Provider defines the interface for cryptocurrency data sources
type Provider interface {
	// Name returns the provider identifier (e.g., "binance", "coingecko")
	Name() string

	// MarketSnapshot fetches current market data for provider-native
	// symbols. Either every symbol succeeds or the call fails.
	MarketSnapshot(ctx context.Context, symbols []string) ([]core.Asset, error)

	// HistoricalCandles fetches OHLCV bars for one provider-native symbol,
	// ordered by non-decreasing timestamp.
	HistoricalCandles(ctx context.Context, symbol string, opts HistoryOptions) ([]core.Candle, error)
}
