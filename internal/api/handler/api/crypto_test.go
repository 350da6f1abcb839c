package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/cryptostream/internal/api/response"
	"github.com/newthinker/cryptostream/internal/collector/crypto"
	"github.com/newthinker/cryptostream/internal/core"
	"github.com/newthinker/cryptostream/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	assets     []core.Asset
	candles    []core.Candle
	err        error
	gotSymbols []string
	gotSymbol  string
	gotOpts    crypto.HistoryOptions
}

func (f *fakeService) MarketSnapshot(ctx context.Context, symbols []string) ([]core.Asset, error) {
	f.gotSymbols = symbols
	return f.assets, f.err
}

func (f *fakeService) HistoricalCandles(ctx context.Context, symbol string, opts crypto.HistoryOptions) ([]core.Candle, error) {
	f.gotSymbol = symbol
	f.gotOpts = opts
	return f.candles, f.err
}

type fakeRange struct {
	candles []core.Candle
	err     error
	args    []string
}

func (f *fakeRange) FetchRange(ctx context.Context, symbol, startDate, endDate string, interval core.Interval) ([]core.Candle, error) {
	f.args = []string{symbol, startDate, endDate, string(interval)}
	return f.candles, f.err
}

func newTestHandler(svc *fakeService, rng *fakeRange) *CryptoHandler {
	exp := export.NewExporter(nil, nil, export.WithClock(func() time.Time {
		return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	}))
	return NewCryptoHandler(svc, rng, exp, CryptoConfig{DefaultInterval: core.Interval5m}, nil)
}

func TestCryptoHandler_Market(t *testing.T) {
	svc := &fakeService{assets: []core.Asset{{Symbol: "BTC/USD", Name: "Bitcoin", Price: 50000}}}
	h := newTestHandler(svc, &fakeRange{})

	req := httptest.NewRequest("GET", "/api/crypto/market?symbols=BTC/USD,%20eth,", nil)
	w := httptest.NewRecorder()
	h.Market(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"BTC/USD", "eth"}, svc.gotSymbols)

	var assets []core.Asset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &assets))
	assert.Equal(t, "BTC/USD", assets[0].Symbol)
}

func TestCryptoHandler_Market_DefaultSymbols(t *testing.T) {
	svc := &fakeService{}
	h := newTestHandler(svc, &fakeRange{})

	w := httptest.NewRecorder()
	h.Market(w, httptest.NewRequest("GET", "/api/crypto/market", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.gotSymbols)
	assert.Equal(t, "[]", w.Body.String())
}

func TestCryptoHandler_Market_ConfiguredSymbols(t *testing.T) {
	svc := &fakeService{}
	h := NewCryptoHandler(svc, &fakeRange{}, export.NewExporter(nil, nil), CryptoConfig{Symbols: []string{"BTC", "ADA"}}, nil)

	w := httptest.NewRecorder()
	h.Market(w, httptest.NewRequest("GET", "/api/crypto/market", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"BTC", "ADA"}, svc.gotSymbols)

	w = httptest.NewRecorder()
	h.Market(w, httptest.NewRequest("GET", "/api/crypto/market?symbols=,", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"BTC", "ADA"}, svc.gotSymbols, "blank query falls back to the watch set")

	w = httptest.NewRecorder()
	h.Market(w, httptest.NewRequest("GET", "/api/crypto/market?symbols=eth", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"eth"}, svc.gotSymbols)
}

func TestCryptoHandler_Market_ProviderError(t *testing.T) {
	svc := &fakeService{err: core.NewProviderError("binance", 503, "")}
	h := newTestHandler(svc, &fakeRange{})

	w := httptest.NewRecorder()
	h.Market(w, httptest.NewRequest("GET", "/api/crypto/market", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "Error from binance API", resp.StatusMessage)
	assert.Contains(t, resp.Message, "binance API error: 503")
}

func TestCryptoHandler_Market_NaNIsServerError(t *testing.T) {
	svc := &fakeService{assets: []core.Asset{{Symbol: "BTC/USD", Price: math.NaN()}}}
	h := newTestHandler(svc, &fakeRange{})

	w := httptest.NewRecorder()
	h.Market(w, httptest.NewRequest("GET", "/api/crypto/market", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCryptoHandler_Historical_Defaults(t *testing.T) {
	svc := &fakeService{candles: []core.Candle{{Timestamp: 1, Close: 2}}}
	h := newTestHandler(svc, &fakeRange{})

	w := httptest.NewRecorder()
	h.Historical(w, httptest.NewRequest("GET", "/api/crypto/historical", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "BTCUSDT", svc.gotSymbol)
	assert.Equal(t, core.Interval5m, svc.gotOpts.Interval)
	assert.Equal(t, 60, svc.gotOpts.Limit)
}

func TestCryptoHandler_Historical_Params(t *testing.T) {
	svc := &fakeService{}
	h := newTestHandler(svc, &fakeRange{})

	w := httptest.NewRecorder()
	h.Historical(w, httptest.NewRequest("GET", "/api/crypto/historical?symbol=ETHUSDT&interval=1h&limit=24", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ETHUSDT", svc.gotSymbol)
	assert.Equal(t, core.Interval1h, svc.gotOpts.Interval)
	assert.Equal(t, 24, svc.gotOpts.Limit)
	assert.Equal(t, "[]", w.Body.String())
}

func TestCryptoHandler_Historical_BadParams(t *testing.T) {
	tests := []string{
		"/api/crypto/historical?limit=abc",
		"/api/crypto/historical?limit=-5",
		"/api/crypto/historical?interval=7m",
		"/api/crypto/historical?start=2024-01-01",
	}

	for _, target := range tests {
		t.Run(target, func(t *testing.T) {
			h := newTestHandler(&fakeService{}, &fakeRange{})
			w := httptest.NewRecorder()
			h.Historical(w, httptest.NewRequest("GET", target, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCryptoHandler_Historical_Range(t *testing.T) {
	rng := &fakeRange{candles: []core.Candle{{Timestamp: 1704067200000}}}
	svc := &fakeService{}
	h := newTestHandler(svc, rng)

	w := httptest.NewRecorder()
	h.Historical(w, httptest.NewRequest("GET", "/api/crypto/historical?symbol=BTC/USD&interval=1h&start=2024-01-01&end=2024-01-02", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"BTC/USD", "2024-01-01", "2024-01-02", "1h"}, rng.args)
	assert.Empty(t, svc.gotSymbol, "range requests bypass the direct path")
}

func TestCryptoHandler_Historical_RangeInvalid(t *testing.T) {
	rng := &fakeRange{err: core.WrapError(core.ErrInvalidRange, errors.New("unparseable date"))}
	h := newTestHandler(&fakeService{}, rng)

	w := httptest.NewRecorder()
	h.Historical(w, httptest.NewRequest("GET", "/api/crypto/historical?start=x&end=y", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCryptoHandler_Export_CSV(t *testing.T) {
	svc := &fakeService{candles: []core.Candle{{Timestamp: 1704067200000, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}}}
	h := newTestHandler(svc, &fakeRange{})

	w := httptest.NewRecorder()
	h.Export(w, httptest.NewRequest("GET", "/api/crypto/export?format=csv", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="crypto-dataset-2024-01-02T03-04-05.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "timestamp,datetime,open,high,low,close,volume\n"))
	assert.Nil(t, svc.gotSymbols, "csv export does not need a snapshot")
}

func TestCryptoHandler_Export_JSON(t *testing.T) {
	svc := &fakeService{
		assets:  []core.Asset{{Symbol: "BTC/USD"}},
		candles: []core.Candle{{Timestamp: 1}, {Timestamp: 2}},
	}
	h := newTestHandler(svc, &fakeRange{})

	w := httptest.NewRecorder()
	h.Export(w, httptest.NewRequest("GET", "/api/crypto/export", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var doc export.Dataset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, 2, doc.Metadata.CandleCount)
	assert.Equal(t, 1, doc.Metadata.AssetCount)
	assert.Equal(t, "full-dataset", doc.Metadata.ExportFormat)
}

func TestCryptoHandler_Export_JSONUsesConfiguredSymbols(t *testing.T) {
	svc := &fakeService{assets: []core.Asset{{Symbol: "BTC/USD"}}}
	h := NewCryptoHandler(svc, &fakeRange{}, export.NewExporter(nil, nil), CryptoConfig{Symbols: []string{"BTC"}}, nil)

	w := httptest.NewRecorder()
	h.Export(w, httptest.NewRequest("GET", "/api/crypto/export?format=json", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"BTC"}, svc.gotSymbols)
}

func TestCryptoHandler_Export_SnapshotCSV(t *testing.T) {
	svc := &fakeService{assets: []core.Asset{{Symbol: "BTC/USD", Name: "Bitcoin", Price: 50000}}}
	h := newTestHandler(svc, &fakeRange{})

	w := httptest.NewRecorder()
	h.Export(w, httptest.NewRequest("GET", "/api/crypto/export?format=csv&dataset=snapshot&symbols=BTC", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"BTC"}, svc.gotSymbols)
	assert.Empty(t, svc.gotSymbol, "snapshot export fetches no candles")
	assert.Equal(t, `attachment; filename="crypto-live-snapshot-2024-01-02T03-04-05.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "symbol,name,price,volume24h,change24h,lastUpdate\nBTC/USD,Bitcoin,50000,"))
}

func TestCryptoHandler_Export_SnapshotJSON(t *testing.T) {
	svc := &fakeService{assets: []core.Asset{{Symbol: "ETH/USD", Name: "Ethereum"}}}
	h := newTestHandler(svc, &fakeRange{})

	w := httptest.NewRecorder()
	h.Export(w, httptest.NewRequest("GET", "/api/crypto/export?dataset=snapshot", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var doc export.AssetsExport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Len(t, doc.Assets, 1)
	assert.Equal(t, "Ethereum", doc.Assets[0].Name)
}

func TestCryptoHandler_Export_BadParams(t *testing.T) {
	for _, target := range []string{
		"/api/crypto/export?format=xml",
		"/api/crypto/export?dataset=orders",
	} {
		t.Run(target, func(t *testing.T) {
			h := newTestHandler(&fakeService{}, &fakeRange{})
			w := httptest.NewRecorder()
			h.Export(w, httptest.NewRequest("GET", target, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHealthHandler(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHealthHandler("1.2.3", started)
	h.now = func() time.Time { return started.Add(90 * time.Second) }

	w := httptest.NewRecorder()
	h.Health(w, httptest.NewRequest("GET", "/api/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "CryptoStream", resp.Service)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, 90.0, resp.Uptime)
}
