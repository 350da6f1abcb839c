package binance

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/newthinker/cryptostream/internal/collector/crypto"
	"github.com/newthinker/cryptostream/internal/core"
	"github.com/newthinker/cryptostream/internal/httpclient"
	"golang.org/x/sync/errgroup"
)

const (
	baseURL = "https://api.binance.com"

	// maxLimit is the klines endpoint page cap.
	maxLimit     = 1000
	defaultLimit = 60
)

// Binance implements the crypto Provider interface for Binance exchange
type Binance struct {
	client  httpclient.Doer
	baseURL string
}

// New creates a new Binance provider. A nil client uses crypto.DefaultClient.
func New(client httpclient.Doer) *Binance {
	if client == nil {
		client = crypto.DefaultClient()
	}
	return &Binance{
		client:  client,
		baseURL: baseURL,
	}
}

// NewWithBaseURL creates a Binance provider with custom base URL (for testing)
func NewWithBaseURL(client httpclient.Doer, url string) *Binance {
	b := New(client)
	b.baseURL = url
	return b
}

func (b *Binance) Name() string {
	return "binance"
}

// MarketSnapshot fetches the 24hr ticker for every symbol concurrently.
// The first failure cancels the remaining requests and no partial list is
// returned.
func (b *Binance) MarketSnapshot(ctx context.Context, symbols []string) ([]core.Asset, error) {
	assets := make([]core.Asset, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for i, symbol := range symbols {
		g.Go(func() error {
			asset, err := b.fetchTicker(gctx, symbol)
			if err != nil {
				return fmt.Errorf("fetching ticker %s: %w", symbol, err)
			}
			assets[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return assets, nil
}

func (b *Binance) fetchTicker(ctx context.Context, symbol string) (core.Asset, error) {
	u := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", b.baseURL, url.QueryEscape(symbol))

	var result ticker24hr
	if err := crypto.GetJSON(ctx, b.client, b.Name(), u, nil, &result); err != nil {
		return core.Asset{}, err
	}
	if result.LastPrice == "" {
		return core.Asset{}, core.NewProviderError(b.Name(), 200, "ticker missing lastPrice")
	}

	lastUpdate := time.Now().UTC()
	if result.CloseTime > 0 {
		lastUpdate = time.UnixMilli(result.CloseTime).UTC()
	}

	return core.Asset{
		Symbol:     crypto.CanonicalSymbol(symbol),
		Name:       crypto.DisplayName(symbol, symbol),
		Price:      crypto.ParseDecimal(result.LastPrice),
		Volume24h:  crypto.ParseDecimal(result.QuoteVolume),
		Change24h:  crypto.ParseDecimal(result.PriceChangePercent),
		High24h:    crypto.ParseDecimalPtr(result.HighPrice),
		Low24h:     crypto.ParseDecimalPtr(result.LowPrice),
		LastUpdate: lastUpdate,
	}, nil
}

// HistoricalCandles fetches klines. Without a time window Binance returns
// the most recent Limit bars ending now.
func (b *Binance) HistoricalCandles(ctx context.Context, symbol string, opts crypto.HistoryOptions) ([]core.Candle, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(b.toInterval(opts.Interval)))
	q.Set("limit", strconv.Itoa(limit))
	if !opts.StartTime.IsZero() {
		q.Set("startTime", strconv.FormatInt(opts.StartTime.UnixMilli(), 10))
	}
	if !opts.EndTime.IsZero() {
		q.Set("endTime", strconv.FormatInt(opts.EndTime.UnixMilli(), 10))
	}
	u := fmt.Sprintf("%s/api/v3/klines?%s", b.baseURL, q.Encode())

	var klines [][]any
	if err := crypto.GetJSON(ctx, b.client, b.Name(), u, nil, &klines); err != nil {
		return nil, fmt.Errorf("fetching klines %s: %w", symbol, err)
	}

	data := make([]core.Candle, 0, len(klines))
	for i, k := range klines {
		if len(k) < 6 {
			return nil, core.NewProviderError(b.Name(), 200, fmt.Sprintf("kline %d has %d fields", i, len(k)))
		}
		openTime, ok := k[0].(float64)
		if !ok {
			return nil, core.NewProviderError(b.Name(), 200, fmt.Sprintf("kline %d has non-numeric open time", i))
		}

		data = append(data, core.Candle{
			Timestamp: int64(openTime),
			Open:      decimalField(k[1]),
			High:      decimalField(k[2]),
			Low:       decimalField(k[3]),
			Close:     decimalField(k[4]),
			Volume:    decimalField(k[5]),
		})
	}

	return data, nil
}

func (b *Binance) toInterval(interval core.Interval) core.Interval {
	if interval.IsValid() {
		return interval
	}
	return core.DefaultInterval
}

// decimalField reads a kline price field. Binance sends these as strings.
func decimalField(v any) float64 {
	switch x := v.(type) {
	case string:
		return crypto.ParseDecimal(x)
	case float64:
		return x
	default:
		return crypto.ParseDecimal("")
	}
}

// Binance API response types
type ticker24hr struct {
	Symbol             string `json:"symbol"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	LastPrice          string `json:"lastPrice"`
	OpenPrice          string `json:"openPrice"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
	CloseTime          int64  `json:"closeTime"`
}
