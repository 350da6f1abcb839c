package cryptocompare

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/cryptostream/internal/collector/crypto"
	"github.com/newthinker/cryptostream/internal/core"
	"github.com/newthinker/cryptostream/internal/httpclient"
)

const (
	baseURL = "https://min-api.cryptocompare.com"

	quoteCurrency = "USD"
	defaultLimit  = 60
	maxLimit      = 2000
)

// CryptoCompare implements the crypto Provider interface. It requires an
// API key.
type CryptoCompare struct {
	client  httpclient.Doer
	baseURL string
	apiKey  string
}

// New creates a CryptoCompare provider. It fails when apiKey is empty.
func New(apiKey string, client httpclient.Doer) (*CryptoCompare, error) {
	if apiKey == "" {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("cryptocompare API key is required"))
	}
	if client == nil {
		client = crypto.DefaultClient()
	}
	return &CryptoCompare{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

// NewWithBaseURL creates a CryptoCompare provider with custom base URL (for testing)
func NewWithBaseURL(apiKey string, client httpclient.Doer, url string) (*CryptoCompare, error) {
	c, err := New(apiKey, client)
	if err != nil {
		return nil, err
	}
	c.baseURL = url
	return c, nil
}

func (c *CryptoCompare) Name() string {
	return "cryptocompare"
}

func (c *CryptoCompare) headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Apikey "+c.apiKey)
	return h
}

// MarketSnapshot fetches all symbols in one pricemultifull request. Symbols
// the API has no USD data for are left out of the result.
func (c *CryptoCompare) MarketSnapshot(ctx context.Context, symbols []string) ([]core.Asset, error) {
	q := url.Values{}
	q.Set("fsyms", strings.Join(symbols, ","))
	q.Set("tsyms", quoteCurrency)
	u := fmt.Sprintf("%s/data/pricemultifull?%s", c.baseURL, q.Encode())

	var result priceMultiFull
	if err := crypto.GetJSON(ctx, c.client, c.Name(), u, c.headers(), &result); err != nil {
		return nil, fmt.Errorf("fetching pricemultifull: %w", err)
	}
	if result.Response == "Error" {
		return nil, core.NewProviderError(c.Name(), 200, result.Message)
	}
	if result.Raw == nil {
		return nil, core.NewProviderError(c.Name(), 200, "response missing RAW")
	}

	assets := make([]core.Asset, 0, len(symbols))
	for _, symbol := range symbols {
		raw, ok := result.Raw[symbol][quoteCurrency]
		if !ok {
			continue
		}

		assets = append(assets, core.Asset{
			Symbol:     symbol + "/USD",
			Name:       crypto.DisplayName(symbol, symbol),
			Price:      raw.Price,
			Volume24h:  raw.Volume24HourTo,
			Change24h:  raw.ChangePct24Hour,
			High24h:    raw.High24Hour,
			Low24h:     raw.Low24Hour,
			LastUpdate: time.Unix(raw.LastUpdate, 0).UTC(),
		})
	}

	return assets, nil
}

// HistoricalCandles fetches OHLCV from the histominute, histohour or
// histoday endpoint depending on the interval unit.
func (c *CryptoCompare) HistoricalCandles(ctx context.Context, symbol string, opts crypto.HistoryOptions) ([]core.Candle, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	endpoint, aggregate := c.toEndpoint(opts.Interval)

	q := url.Values{}
	q.Set("fsym", symbol)
	q.Set("tsym", quoteCurrency)
	q.Set("limit", strconv.Itoa(limit))
	if aggregate > 1 {
		q.Set("aggregate", strconv.Itoa(aggregate))
	}
	if !opts.EndTime.IsZero() {
		q.Set("toTs", strconv.FormatInt(opts.EndTime.Unix(), 10))
	}
	u := fmt.Sprintf("%s/data/v2/%s?%s", c.baseURL, endpoint, q.Encode())

	var result histoResponse
	if err := crypto.GetJSON(ctx, c.client, c.Name(), u, c.headers(), &result); err != nil {
		return nil, fmt.Errorf("fetching %s %s: %w", endpoint, symbol, err)
	}
	if result.Response == "Error" {
		return nil, core.NewProviderError(c.Name(), 200, result.Message)
	}
	if result.Data == nil {
		return nil, core.NewProviderError(c.Name(), 200, "response missing Data")
	}

	data := make([]core.Candle, 0, len(result.Data.Data))
	for _, bar := range result.Data.Data {
		data = append(data, core.Candle{
			Timestamp: bar.Time * 1000,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    bar.VolumeTo,
		})
	}

	return data, nil
}

// toEndpoint maps an interval to a histo endpoint and aggregate factor.
func (c *CryptoCompare) toEndpoint(interval core.Interval) (string, int) {
	if !interval.IsValid() {
		interval = core.DefaultInterval
	}
	d := interval.Duration()
	switch {
	case d >= 24*time.Hour:
		return "histoday", int(d / (24 * time.Hour))
	case d >= time.Hour:
		return "histohour", int(d / time.Hour)
	default:
		return "histominute", int(d / time.Minute)
	}
}

type priceMultiFull struct {
	Response string                               `json:"Response"`
	Message  string                               `json:"Message"`
	Raw      map[string]map[string]rawPriceFields `json:"RAW"`
}

type rawPriceFields struct {
	Price           float64  `json:"PRICE"`
	Volume24HourTo  float64  `json:"VOLUME24HOURTO"`
	ChangePct24Hour float64  `json:"CHANGEPCT24HOUR"`
	High24Hour      *float64 `json:"HIGH24HOUR"`
	Low24Hour       *float64 `json:"LOW24HOUR"`
	LastUpdate      int64    `json:"LASTUPDATE"`
}

type histoResponse struct {
	Response string `json:"Response"`
	Message  string `json:"Message"`
	Data     *struct {
		Data []histoBar `json:"Data"`
	} `json:"Data"`
}

type histoBar struct {
	Time     int64   `json:"time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	VolumeTo float64 `json:"volumeto"`
}
