package coingecko

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
	baseURL = "https://api.coingecko.com/api/v3"

	maxPerPage = 250
)

// CoinGecko implements the crypto Provider interface
type CoinGecko struct {
	client  httpclient.Doer
	baseURL string
	apiKey  string
}

// New creates a new CoinGecko provider. The API key is optional.
func New(apiKey string, client httpclient.Doer) *CoinGecko {
	if client == nil {
		client = crypto.DefaultClient()
	}
	return &CoinGecko{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// NewWithBaseURL creates a CoinGecko provider with custom base URL (for testing)
func NewWithBaseURL(apiKey string, client httpclient.Doer, url string) *CoinGecko {
	c := New(apiKey, client)
	c.baseURL = url
	return c
}

func (c *CoinGecko) Name() string {
	return "coingecko"
}

func (c *CoinGecko) headers() http.Header {
	h := http.Header{}
	if c.apiKey != "" {
		h.Set("x-cg-demo-api-key", c.apiKey)
	}
	return h
}

// MarketSnapshot fetches all coin IDs in one batched request.
func (c *CoinGecko) MarketSnapshot(ctx context.Context, ids []string) ([]core.Asset, error) {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("ids", strings.Join(ids, ","))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(min(max(len(ids), 1), maxPerPage)))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "24h")
	u := fmt.Sprintf("%s/coins/markets?%s", c.baseURL, q.Encode())

	var coins []coinMarket
	if err := crypto.GetJSON(ctx, c.client, c.Name(), u, c.headers(), &coins); err != nil {
		return nil, fmt.Errorf("fetching markets: %w", err)
	}

	assets := make([]core.Asset, 0, len(coins))
	for _, coin := range coins {
		if coin.Symbol == "" {
			return nil, core.NewProviderError(c.Name(), 200, fmt.Sprintf("market entry %q missing symbol", coin.ID))
		}

		lastUpdate := time.Now().UTC()
		if t, err := time.Parse(time.RFC3339, coin.LastUpdated); err == nil {
			lastUpdate = t.UTC()
		}

		change := 0.0
		if coin.PriceChangePercentage24h != nil {
			change = *coin.PriceChangePercentage24h
		}

		assets = append(assets, core.Asset{
			Symbol:     strings.ToUpper(coin.Symbol) + "/USD",
			Name:       coin.Name,
			Price:      valueOrNaN(coin.CurrentPrice),
			Volume24h:  valueOrNaN(coin.TotalVolume),
			Change24h:  change,
			High24h:    coin.High24h,
			Low24h:     coin.Low24h,
			LastUpdate: lastUpdate,
		})
	}

	return assets, nil
}

// HistoricalCandles fetches OHLC bars. CoinGecko pages by day count and
// chooses the bar width itself; volume is not available.
func (c *CoinGecko) HistoricalCandles(ctx context.Context, id string, opts crypto.HistoryOptions) ([]core.Candle, error) {
	days := opts.Days
	if days < 1 {
		days = 1
	}

	u := fmt.Sprintf("%s/coins/%s/ohlc?vs_currency=usd&days=%d", c.baseURL, url.PathEscape(id), days)

	// CoinGecko returns [[timestamp, open, high, low, close], ...]
	var ohlcData [][]float64
	if err := crypto.GetJSON(ctx, c.client, c.Name(), u, c.headers(), &ohlcData); err != nil {
		return nil, fmt.Errorf("fetching ohlc %s: %w", id, err)
	}

	data := make([]core.Candle, 0, len(ohlcData))
	for i, ohlc := range ohlcData {
		if len(ohlc) < 5 {
			return nil, core.NewProviderError(c.Name(), 200, fmt.Sprintf("ohlc row %d has %d fields", i, len(ohlc)))
		}

		data = append(data, core.Candle{
			Timestamp: int64(ohlc[0]),
			Open:      ohlc[1],
			High:      ohlc[2],
			Low:       ohlc[3],
			Close:     ohlc[4],
		})
	}

	return data, nil
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return crypto.ParseDecimal("")
	}
	return *v
}

type coinMarket struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	CurrentPrice             *float64 `json:"current_price"`
	TotalVolume              *float64 `json:"total_volume"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
	High24h                  *float64 `json:"high_24h"`
	Low24h                   *float64 `json:"low_24h"`
	LastUpdated              string   `json:"last_updated"`
}
