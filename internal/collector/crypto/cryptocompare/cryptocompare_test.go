package cryptocompare

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/cryptostream/internal/collector/crypto"
	"github.com/newthinker/cryptostream/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const priceBody = `{
	"RAW": {
		"BTC": {"USD": {"PRICE": 42000.5, "VOLUME24HOURTO": 1.5e9, "CHANGEPCT24HOUR": 2.1, "HIGH24HOUR": 43000, "LOW24HOUR": 41000, "LASTUPDATE": 1704067200}},
		"ETH": {"USD": {"PRICE": 2250.25, "VOLUME24HOURTO": 8e8, "CHANGEPCT24HOUR": -0.5, "HIGH24HOUR": 2300, "LOW24HOUR": 2200, "LASTUPDATE": 1704067260}}
	},
	"DISPLAY": {}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *CryptoCompare {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewWithBaseURL("secret", srv.Client(), srv.URL)
	require.NoError(t, err)
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	c, err := New("", nil)
	assert.Nil(t, c)
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestCryptoCompare_Name(t *testing.T) {
	c, err := New("key", nil)
	require.NoError(t, err)
	assert.Equal(t, "cryptocompare", c.Name())
}

func TestCryptoCompare_MarketSnapshot(t *testing.T) {
	var gotAuth, gotFsyms string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/pricemultifull", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotFsyms = r.URL.Query().Get("fsyms")
		w.Write([]byte(priceBody))
	})

	assets, err := c.MarketSnapshot(context.Background(), []string{"BTC", "ETH", "SOL"})
	require.NoError(t, err)

	assert.Equal(t, "Apikey secret", gotAuth)
	assert.Equal(t, "BTC,ETH,SOL", gotFsyms)
	require.Len(t, assets, 2, "SOL has no RAW entry and is skipped")

	btc := assets[0]
	assert.Equal(t, "BTC/USD", btc.Symbol)
	assert.Equal(t, "Bitcoin", btc.Name)
	assert.Equal(t, 42000.5, btc.Price)
	assert.Equal(t, 1.5e9, btc.Volume24h)
	assert.Equal(t, 2.1, btc.Change24h)
	require.NotNil(t, btc.Low24h)
	assert.Equal(t, 41000.0, *btc.Low24h)
	assert.True(t, btc.LastUpdate.Equal(time.Unix(1704067200, 0)))

	assert.Equal(t, "ETH/USD", assets[1].Symbol)
}

func TestCryptoCompare_MarketSnapshot_ErrorResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Response":"Error","Message":"You are over your rate limit","Data":{}}`))
	})

	_, err := c.MarketSnapshot(context.Background(), []string{"BTC"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrProviderResponse)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestCryptoCompare_MarketSnapshot_MissingRaw(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := c.MarketSnapshot(context.Background(), []string{"BTC"})
	assert.ErrorIs(t, err, core.ErrProviderResponse)
}

func TestCryptoCompare_MarketSnapshot_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.MarketSnapshot(context.Background(), []string{"BTC"})
	var pe *core.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
}

func TestCryptoCompare_HistoricalCandles(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`{"Response":"Success","Data":{"Data":[
			{"time":1704067200,"open":42000,"high":42500,"low":41800,"close":42300,"volumefrom":10,"volumeto":420000},
			{"time":1704067500,"open":42300,"high":42400,"low":42200,"close":42250,"volumefrom":5,"volumeto":211000}
		]}}`))
	})

	end := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	candles, err := c.HistoricalCandles(context.Background(), "BTC", crypto.HistoryOptions{
		Interval: core.Interval5m,
		Limit:    12,
		EndTime:  end,
	})
	require.NoError(t, err)

	assert.Equal(t, "/data/v2/histominute", gotPath)
	assert.Equal(t, "BTC", gotQuery["fsym"])
	assert.Equal(t, "USD", gotQuery["tsym"])
	assert.Equal(t, "12", gotQuery["limit"])
	assert.Equal(t, "5", gotQuery["aggregate"])
	assert.Equal(t, "1704070800", gotQuery["toTs"])

	require.Len(t, candles, 2)
	assert.Equal(t, core.Candle{
		Timestamp: 1704067200000,
		Open:      42000,
		High:      42500,
		Low:       41800,
		Close:     42300,
		Volume:    420000,
	}, candles[0])
}

func TestCryptoCompare_HistoricalCandles_Defaults(t *testing.T) {
	var limit, aggregate string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		limit = r.URL.Query().Get("limit")
		aggregate = r.URL.Query().Get("aggregate")
		w.Write([]byte(`{"Response":"Success","Data":{"Data":[]}}`))
	})

	candles, err := c.HistoricalCandles(context.Background(), "BTC", crypto.HistoryOptions{Interval: core.Interval1m})
	require.NoError(t, err)
	assert.Empty(t, candles)
	assert.Equal(t, "60", limit)
	assert.Empty(t, aggregate)
}

func TestCryptoCompare_HistoricalCandles_MissingData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Response":"Success"}`))
	})

	_, err := c.HistoricalCandles(context.Background(), "BTC", crypto.HistoryOptions{})
	assert.ErrorIs(t, err, core.ErrProviderResponse)
}

func TestCryptoCompare_ToEndpoint(t *testing.T) {
	tests := []struct {
		interval  core.Interval
		endpoint  string
		aggregate int
	}{
		{core.Interval1m, "histominute", 1},
		{core.Interval15m, "histominute", 15},
		{core.Interval30m, "histominute", 30},
		{core.Interval1h, "histohour", 1},
		{core.Interval4h, "histohour", 4},
		{core.Interval1d, "histoday", 1},
		{core.Interval1w, "histoday", 7},
		{"bogus", "histominute", 5},
	}

	c, _ := New("key", nil)
	for _, tc := range tests {
		endpoint, aggregate := c.toEndpoint(tc.interval)
		if endpoint != tc.endpoint || aggregate != tc.aggregate {
			t.Errorf("toEndpoint(%s) = (%s, %d), want (%s, %d)",
				tc.interval, endpoint, aggregate, tc.endpoint, tc.aggregate)
		}
	}
}
