package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/newthinker/cryptostream/internal/api/response"
	"github.com/newthinker/cryptostream/internal/collector/crypto"
	"github.com/newthinker/cryptostream/internal/core"
	"github.com/newthinker/cryptostream/internal/export"
	"go.uber.org/zap"
)

const (
	defaultSymbol = "BTCUSDT"
	defaultLimit  = 60
)

// MarketService defines the interface needed from the provider facade.
type MarketService interface {
	MarketSnapshot(ctx context.Context, symbols []string) ([]core.Asset, error)
	HistoricalCandles(ctx context.Context, symbol string, opts crypto.HistoryOptions) ([]core.Candle, error)
}

// RangeFetcher defines the interface needed from the range fetcher.
type RangeFetcher interface {
	FetchRange(ctx context.Context, symbol, startDate, endDate string, interval core.Interval) ([]core.Candle, error)
}

// DatasetExporter defines the interface needed from the exporter.
type DatasetExporter interface {
	Dataset(ctx context.Context, format export.Format, assets []core.Asset, candles []core.Candle) (*export.Result, error)
	Snapshot(ctx context.Context, format export.Format, assets []core.Asset) (*export.Result, error)
}

// Export dataset kinds selected with the "dataset" query parameter.
const (
	datasetHistory  = "history"
	datasetSnapshot = "snapshot"
)

// CryptoConfig holds the request defaults of a CryptoHandler.
type CryptoConfig struct {
	// DefaultInterval applies when no interval is requested. Invalid means 5m.
	DefaultInterval core.Interval
	// Symbols is the watch set used when no symbols are requested. Empty
	// leaves the choice to the provider.
	Symbols []string
}

// CryptoHandler serves market, historical and export requests.
type CryptoHandler struct {
	service         MarketService
	history         RangeFetcher
	exporter        DatasetExporter
	defaultInterval core.Interval
	symbols         []string
	logger          *zap.Logger
}

// NewCryptoHandler creates a new crypto handler.
func NewCryptoHandler(service MarketService, history RangeFetcher, exporter DatasetExporter, cfg CryptoConfig, logger *zap.Logger) *CryptoHandler {
	if !cfg.DefaultInterval.IsValid() {
		cfg.DefaultInterval = core.DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CryptoHandler{
		service:         service,
		history:         history,
		exporter:        exporter,
		defaultInterval: cfg.DefaultInterval,
		symbols:         append([]string(nil), cfg.Symbols...),
		logger:          logger,
	}
}

// Market returns the current snapshot as a JSON array.
// Query: symbols=a,b (optional; configured watch set otherwise).
func (h *CryptoHandler) Market(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.MarketSnapshot(r.Context(), h.requestedSymbols(r))
	if err != nil {
		h.fail(w, "market", err)
		return
	}
	if assets == nil {
		assets = []core.Asset{}
	}
	response.JSON(w, http.StatusOK, assets)
}

// Historical returns candles as a JSON array.
// Query: symbol, interval, limit; with start and end the request is served
// through the range fetcher.
func (h *CryptoHandler) Historical(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseHistoryQuery(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	candles, err := h.candles(r.Context(), q)
	if err != nil {
		h.fail(w, "historical", err)
		return
	}
	if candles == nil {
		candles = []core.Candle{}
	}
	response.JSON(w, http.StatusOK, candles)
}

// Export returns a file download.
// Query: format=csv|json and dataset=history|snapshot. A history export
// takes the historical parameters; a snapshot export takes symbols.
func (h *CryptoHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	switch dataset := r.URL.Query().Get("dataset"); dataset {
	case "", datasetHistory:
	case datasetSnapshot:
		h.exportSnapshot(w, r, format)
		return
	default:
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unsupported dataset %q", dataset)))
		return
	}

	q, err := h.parseHistoryQuery(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	candles, err := h.candles(r.Context(), q)
	if err != nil {
		h.fail(w, "export", err)
		return
	}

	var assets []core.Asset
	if format == export.FormatJSON {
		assets, err = h.service.MarketSnapshot(r.Context(), h.requestedSymbols(r))
		if err != nil {
			h.fail(w, "export", err)
			return
		}
	}

	res, err := h.exporter.Dataset(r.Context(), format, assets, candles)
	if err != nil {
		h.fail(w, "export", err)
		return
	}
	writeExport(w, res)
}

func (h *CryptoHandler) exportSnapshot(w http.ResponseWriter, r *http.Request, format export.Format) {
	assets, err := h.service.MarketSnapshot(r.Context(), h.requestedSymbols(r))
	if err != nil {
		h.fail(w, "export", err)
		return
	}
	res, err := h.exporter.Snapshot(r.Context(), format, assets)
	if err != nil {
		h.fail(w, "export", err)
		return
	}
	writeExport(w, res)
}

func writeExport(w http.ResponseWriter, res *export.Result) {
	if res.Path != "" {
		w.Header().Set("X-Export-Path", res.Path)
	}
	response.Attachment(w, res.Filename, res.Format.ContentType(), res.Data)
}

// requestedSymbols returns the symbols query, else the configured watch set.
func (h *CryptoHandler) requestedSymbols(r *http.Request) []string {
	if symbols := splitSymbols(r.URL.Query().Get("symbols")); len(symbols) > 0 {
		return symbols
	}
	return h.symbols
}

type historyQuery struct {
	symbol   string
	interval core.Interval
	limit    int
	start    string
	end      string
}

func (h *CryptoHandler) parseHistoryQuery(r *http.Request) (historyQuery, error) {
	v := r.URL.Query()
	q := historyQuery{
		symbol:   strings.TrimSpace(v.Get("symbol")),
		interval: core.Interval(v.Get("interval")),
		limit:    defaultLimit,
		start:    v.Get("start"),
		end:      v.Get("end"),
	}
	if q.symbol == "" {
		q.symbol = defaultSymbol
	}

	switch {
	case q.interval == "":
		q.interval = h.defaultInterval
	case !q.interval.IsValid():
		return q, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unsupported interval %q", q.interval))
	}

	if raw := v.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return q, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("limit must be a positive integer, got %q", raw))
		}
		q.limit = n
	}

	if (q.start == "") != (q.end == "") {
		return q, core.WrapError(core.ErrInvalidRange, errors.New("start and end must be given together"))
	}
	return q, nil
}

func (h *CryptoHandler) candles(ctx context.Context, q historyQuery) ([]core.Candle, error) {
	if q.start != "" {
		return h.history.FetchRange(ctx, q.symbol, q.start, q.end, q.interval)
	}
	return h.service.HistoricalCandles(ctx, q.symbol, crypto.HistoryOptions{
		Interval: q.interval,
		Limit:    q.limit,
	})
}

func (h *CryptoHandler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	response.Error(w, status, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func splitSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
