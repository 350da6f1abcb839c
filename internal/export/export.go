// Package export serializes candles and asset snapshots to CSV and JSON.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/cryptostream/internal/core"
)

// Format is an export output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(p string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if ext == "" {
		return "", fmt.Errorf("no file extension in %q", p)
	}
	return ParseFormat(ext)
}

// CSVHeader is the column order of candle CSV exports.
var CSVHeader = []string{"timestamp", "datetime", "open", "high", "low", "close", "volume"}

// AssetsCSVHeader is the column order of snapshot CSV exports.
var AssetsCSVHeader = []string{"symbol", "name", "price", "volume24h", "change24h", "lastUpdate"}

const datetimeLayout = "2006-01-02T15:04:05.000Z"

// AssetsExport is the live snapshot document.
type AssetsExport struct {
	ExportTime time.Time    `json:"exportTime"`
	Assets     []AssetEntry `json:"assets"`
}

// AssetEntry is the subset of an asset written to snapshot exports.
type AssetEntry struct {
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Volume24h  float64   `json:"volume24h"`
	Change24h  float64   `json:"change24h"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// Metadata describes a full dataset export.
type Metadata struct {
	CandleCount  int    `json:"candleCount"`
	AssetCount   int    `json:"assetCount"`
	ExportFormat string `json:"exportFormat"`
}

// Dataset is the full export document: snapshot plus history.
type Dataset struct {
	ExportTime     time.Time     `json:"exportTime"`
	Metadata       Metadata      `json:"metadata"`
	Assets         []core.Asset  `json:"assets"`
	HistoricalData []core.Candle `json:"historicalData"`
}

// WriteCandlesCSV writes candles with a header row. Volume is left empty
// when zero.
func WriteCandlesCSV(w io.Writer, candles []core.Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, c := range candles {
		volume := ""
		if c.Volume != 0 {
			volume = formatFloat(c.Volume)
		}
		row := []string{
			strconv.FormatInt(c.Timestamp, 10),
			c.Time().Format(datetimeLayout),
			formatFloat(c.Open),
			formatFloat(c.High),
			formatFloat(c.Low),
			formatFloat(c.Close),
			volume,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CandlesCSV returns the CSV encoding of candles.
func CandlesCSV(candles []core.Candle) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCandlesCSV(&buf, candles); err != nil {
		return nil, core.WrapError(core.ErrExportFailed, err)
	}
	return buf.Bytes(), nil
}

// ParseCandlesCSV reads back a candle CSV export. The datetime column is
// ignored; timestamp is authoritative.
func ParseCandlesCSV(r io.Reader) ([]core.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("missing header row")
	}

	candles := make([]core.Candle, 0, len(records)-1)
	for i, rec := range records[1:] {
		c, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseRow(rec []string) (core.Candle, error) {
	ts, err := strconv.ParseInt(rec[0], 10, 64)
	if err != nil {
		return core.Candle{}, fmt.Errorf("timestamp: %w", err)
	}

	var vals [5]float64
	for j, field := range rec[2:] {
		if field == "" && j == 4 {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return core.Candle{}, fmt.Errorf("%s: %w", CSVHeader[j+2], err)
		}
		vals[j] = v
	}

	return core.Candle{
		Timestamp: ts,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}, nil
}

// AssetsJSON encodes a live snapshot document.
func AssetsJSON(assets []core.Asset, exportTime time.Time) ([]byte, error) {
	return marshal(AssetsExport{
		ExportTime: exportTime.UTC(),
		Assets:     entries(assets),
	})
}

// WriteAssetsCSV writes one row per asset with a header row. Fields holding
// commas or quotes are quoted.
func WriteAssetsCSV(w io.Writer, assets []core.Asset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AssetsCSVHeader); err != nil {
		return err
	}
	for _, a := range entries(assets) {
		row := []string{
			a.Symbol,
			a.Name,
			formatFloat(a.Price),
			formatFloat(a.Volume24h),
			formatFloat(a.Change24h),
			a.LastUpdate.UTC().Format(datetimeLayout),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// AssetsCSV returns the CSV encoding of a snapshot. An empty snapshot is
// refused since it has no rows to export.
func AssetsCSV(assets []core.Asset) ([]byte, error) {
	if len(assets) == 0 {
		return nil, core.WrapError(core.ErrExportFailed, errors.New("no assets to export"))
	}
	var buf bytes.Buffer
	if err := WriteAssetsCSV(&buf, assets); err != nil {
		return nil, core.WrapError(core.ErrExportFailed, err)
	}
	return buf.Bytes(), nil
}

func entries(assets []core.Asset) []AssetEntry {
	out := make([]AssetEntry, len(assets))
	for i, a := range assets {
		out[i] = AssetEntry{
			Symbol:     a.Symbol,
			Name:       a.Name,
			Price:      a.Price,
			Volume24h:  a.Volume24h,
			Change24h:  a.Change24h,
			LastUpdate: a.LastUpdate,
		}
	}
	return out
}

// FullDatasetJSON encodes assets and candles together with counts.
func FullDatasetJSON(assets []core.Asset, candles []core.Candle, exportTime time.Time) ([]byte, error) {
	if assets == nil {
		assets = []core.Asset{}
	}
	if candles == nil {
		candles = []core.Candle{}
	}
	return marshal(Dataset{
		ExportTime: exportTime.UTC(),
		Metadata: Metadata{
			CandleCount:  len(candles),
			AssetCount:   len(assets),
			ExportFormat: "full-dataset",
		},
		Assets:         assets,
		HistoricalData: candles,
	})
}

const stampLayout = "2006-01-02T15-04-05"

// Filename returns the stamped dataset filename for f.
func Filename(f Format, exportTime time.Time) string {
	stamp := exportTime.UTC().Format(stampLayout)
	if f == FormatCSV {
		return "crypto-dataset-" + stamp + ".csv"
	}
	return "crypto-full-dataset-" + stamp + ".json"
}

// SnapshotFilename returns the stamped live-snapshot filename for f.
func SnapshotFilename(f Format, exportTime time.Time) string {
	return "crypto-live-snapshot-" + exportTime.UTC().Format(stampLayout) + "." + string(f)
}

func marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, core.WrapError(core.ErrExportFailed, err)
	}
	return data, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
