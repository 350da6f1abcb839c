package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/newthinker/cryptostream/internal/collector/crypto"
	"github.com/newthinker/cryptostream/internal/collector/crypto/binance"
	"github.com/newthinker/cryptostream/internal/collector/crypto/coingecko"
	"github.com/newthinker/cryptostream/internal/collector/crypto/cryptocompare"
	"github.com/newthinker/cryptostream/internal/core"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 60
	maxCoinGeckoDays    = 365
)

// CoinGecko only serves these day counts for OHLC.
var coinGeckoDaySteps = []int{1, 7, 14, 30, 90, 180, 365}

// Service is the provider facade. It is bound to exactly one provider at
// construction and exposes the same two operations regardless of which.
type Service struct {
	kind     ProviderKind
	provider crypto.Provider
	logger   *zap.Logger
	observer Observer
}

// Option configures a Service.
type Option func(*Service)

// WithObserver reports every provider call to o.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		s.observer = o
	}
}

// New selects the provider named in cfg. It fails for unknown providers and
// for providers whose credential is missing. No request is made.
func New(cfg Config, logger *zap.Logger, opts ...Option) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	kind, err := ParseProviderKind(cfg.Provider)
	if err != nil {
		return nil, err
	}
	if kind.RequiresAPIKey() && cfg.APIKey == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("%s requires an API key", kind))
	}

	var p crypto.Provider
	switch kind {
	case ProviderBinance:
		b := binance.New(cfg.Client)
		if cfg.BaseURL != "" {
			b = binance.NewWithBaseURL(cfg.Client, cfg.BaseURL)
		}
		p = b
	case ProviderCoinGecko:
		c := coingecko.New(cfg.APIKey, cfg.Client)
		if cfg.BaseURL != "" {
			c = coingecko.NewWithBaseURL(cfg.APIKey, cfg.Client, cfg.BaseURL)
		}
		p = c
	case ProviderCryptoCompare:
		var c *cryptocompare.CryptoCompare
		if cfg.BaseURL != "" {
			c, err = cryptocompare.NewWithBaseURL(cfg.APIKey, cfg.Client, cfg.BaseURL)
		} else {
			c, err = cryptocompare.New(cfg.APIKey, cfg.Client)
		}
		if err != nil {
			return nil, err
		}
		p = c
	}

	s := &Service{
		kind:     kind,
		provider: p,
		logger:   logger.With(zap.String("provider", string(kind))),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Kind returns the active provider tag.
func (s *Service) Kind() ProviderKind {
	return s.kind
}

func (s *Service) Name() string {
	return string(s.kind)
}

// NativeSymbol translates user input into the active provider's identifier.
func (s *Service) NativeSymbol(input string) string {
	switch s.kind {
	case ProviderCoinGecko:
		return crypto.ToCoinGeckoID(input)
	case ProviderCryptoCompare:
		return crypto.ToCryptoCompareSymbol(input)
	default:
		return crypto.ToBinanceSymbol(input)
	}
}

// DefaultSymbols returns the default watch set in native form.
func (s *Service) DefaultSymbols() []string {
	out := make([]string, len(crypto.DefaultTickers))
	for i, t := range crypto.DefaultTickers {
		out[i] = s.NativeSymbol(t)
	}
	return out
}

// MarketSnapshot fetches current market data. Symbols may be given in any
// accepted notation; an empty list means the default set.
func (s *Service) MarketSnapshot(ctx context.Context, symbols []string) ([]core.Asset, error) {
	native := s.DefaultSymbols()
	if len(symbols) > 0 {
		native = make([]string, len(symbols))
		for i, sym := range symbols {
			native[i] = s.NativeSymbol(sym)
		}
	}

	start := time.Now()
	assets, err := s.provider.MarketSnapshot(ctx, native)
	s.observe("market_snapshot", start, err)
	if err != nil {
		s.logger.Warn("market snapshot failed", zap.Strings("symbols", native), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("market snapshot fetched",
		zap.Int("requested", len(native)),
		zap.Int("returned", len(assets)),
	)
	return assets, nil
}

// HistoricalCandles fetches OHLCV bars, translating opts into the
// parameter shape of the active provider.
func (s *Service) HistoricalCandles(ctx context.Context, symbol string, opts crypto.HistoryOptions) ([]core.Candle, error) {
	native := s.NativeSymbol(symbol)
	translated := s.translateHistoryOptions(opts)

	start := time.Now()
	candles, err := s.provider.HistoricalCandles(ctx, native, translated)
	s.observe("historical_candles", start, err)
	if err != nil {
		s.logger.Warn("historical fetch failed", zap.String("symbol", native), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("historical candles fetched",
		zap.String("symbol", native),
		zap.String("interval", string(translated.Interval)),
		zap.Int("limit", translated.Limit),
		zap.Int("days", translated.Days),
		zap.Int("count", len(candles)),
	)
	return candles, nil
}

func (s *Service) translateHistoryOptions(opts crypto.HistoryOptions) crypto.HistoryOptions {
	out := opts
	if !out.Interval.IsValid() {
		out.Interval = core.DefaultInterval
	}

	switch s.kind {
	case ProviderCoinGecko:
		if out.Days <= 0 {
			out.Days = coinGeckoDays(opts)
		}
		out.Days = roundUpDays(out.Days)
	default:
		if out.Limit <= 0 {
			out.Limit = defaultHistoryLimit
		}
	}
	return out
}

// coinGeckoDays derives a day count from the window, or from interval x
// limit when no window is given.
func coinGeckoDays(opts crypto.HistoryOptions) int {
	var span time.Duration
	switch {
	case !opts.StartTime.IsZero() && !opts.EndTime.IsZero():
		span = opts.EndTime.Sub(opts.StartTime)
	case opts.Limit > 0:
		span = time.Duration(opts.Limit) * opts.Interval.Duration()
	}
	days := int(math.Ceil(span.Hours() / 24))
	return max(days, 1)
}

func roundUpDays(days int) int {
	for _, step := range coinGeckoDaySteps {
		if days <= step {
			return step
		}
	}
	return maxCoinGeckoDays
}

func (s *Service) observe(operation string, start time.Time, err error) {
	if s.observer != nil {
		s.observer.ObserveProviderCall(string(s.kind), operation, time.Since(start), err)
	}
}
