package export

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/newthinker/cryptostream/internal/core"
	"github.com/newthinker/cryptostream/internal/storage/archive"
	"go.uber.org/zap"
)

// Observer receives one callback per export.
type Observer interface {
	ObserveExport(format string, bytes int, err error)
}

// Result describes a produced export.
type Result struct {
	Format   Format
	Filename string
	// Path is the archive location, empty when nothing was archived.
	Path string
	Data []byte
}

// Exporter renders datasets and, when a store is configured, archives them.
type Exporter struct {
	store    archive.Storage
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithObserver reports every export to o.
func WithObserver(o Observer) ExporterOption {
	return func(e *Exporter) {
		e.observer = o
	}
}

// WithClock overrides the export timestamp source.
func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) {
		e.now = now
	}
}

// NewExporter creates an Exporter. store may be nil.
func NewExporter(store archive.Storage, logger *zap.Logger, opts ...ExporterOption) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Exporter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Dataset renders candles as CSV, or assets plus candles as a full JSON
// dataset, and archives the result under <format>/<filename>.
func (e *Exporter) Dataset(ctx context.Context, format Format, assets []core.Asset, candles []core.Candle) (*Result, error) {
	res, err := e.dataset(ctx, format, assets, candles)
	e.observe(format, res, err)
	return res, err
}

// Snapshot renders the live asset snapshot as CSV or JSON and archives it
// next to the datasets.
func (e *Exporter) Snapshot(ctx context.Context, format Format, assets []core.Asset) (*Result, error) {
	res, err := e.snapshot(ctx, format, assets)
	e.observe(format, res, err)
	return res, err
}

func (e *Exporter) observe(format Format, res *Result, err error) {
	if e.observer == nil {
		return
	}
	n := 0
	if res != nil {
		n = len(res.Data)
	}
	e.observer.ObserveExport(string(format), n, err)
}

func (e *Exporter) dataset(ctx context.Context, format Format, assets []core.Asset, candles []core.Candle) (*Result, error) {
	at := e.now()

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = CandlesCSV(candles)
	default:
		format = FormatJSON
		data, err = FullDatasetJSON(assets, candles, at)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		Format:   format,
		Filename: Filename(format, at),
		Data:     data,
	}
	if err := e.archive(ctx, res); err != nil {
		return nil, err
	}
	if res.Path != "" {
		e.logger.Info("dataset archived",
			zap.String("path", res.Path),
			zap.Int("bytes", len(data)),
			zap.Int("candles", len(candles)),
			zap.Int("assets", len(assets)),
		)
	}
	return res, nil
}

func (e *Exporter) snapshot(ctx context.Context, format Format, assets []core.Asset) (*Result, error) {
	at := e.now()

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = AssetsCSV(assets)
	default:
		format = FormatJSON
		data, err = AssetsJSON(assets, at)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{
		Format:   format,
		Filename: SnapshotFilename(format, at),
		Data:     data,
	}
	if err := e.archive(ctx, res); err != nil {
		return nil, err
	}
	if res.Path != "" {
		e.logger.Info("snapshot archived",
			zap.String("path", res.Path),
			zap.Int("bytes", len(data)),
			zap.Int("assets", len(assets)),
		)
	}
	return res, nil
}

// archive writes res under <format>/<filename> and sets res.Path. It is a
// no-op without a store.
func (e *Exporter) archive(ctx context.Context, res *Result) error {
	if e.store == nil {
		return nil
	}
	p := path.Join(string(res.Format), res.Filename)
	if err := e.store.Write(ctx, p, res.Data); err != nil {
		return core.WrapError(core.ErrExportFailed, err)
	}
	res.Path = p
	return nil
}

// List returns archived export paths under prefix ("", "csv" or "json").
func (e *Exporter) List(ctx context.Context, prefix string) ([]string, error) {
	if e.store == nil {
		return nil, errArchiveDisabled
	}
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		if _, err := ParseFormat(prefix); err != nil {
			return nil, core.WrapError(core.ErrNotFound, err)
		}
	}
	paths, err := e.store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}
	if paths == nil {
		paths = []string{}
	}
	return paths, nil
}

// Open reads an archived export back.
func (e *Exporter) Open(ctx context.Context, p string) (*Result, error) {
	p, format, err := e.locate(ctx, p)
	if err != nil {
		return nil, err
	}
	data, err := e.store.Read(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("reading export %s: %w", p, err)
	}
	return &Result{
		Format:   format,
		Filename: path.Base(p),
		Path:     p,
		Data:     data,
	}, nil
}

// Delete removes an archived export.
func (e *Exporter) Delete(ctx context.Context, p string) error {
	p, _, err := e.locate(ctx, p)
	if err != nil {
		return err
	}
	if err := e.store.Delete(ctx, p); err != nil {
		return fmt.Errorf("deleting export %s: %w", p, err)
	}
	e.logger.Info("export deleted", zap.String("path", p))
	return nil
}

var errArchiveDisabled = core.WrapError(core.ErrNotFound, errors.New("export archive is disabled"))

// locate cleans p, checks it names an export (<format>/<name>.<format>) and
// that it exists.
func (e *Exporter) locate(ctx context.Context, p string) (string, Format, error) {
	if e.store == nil {
		return "", "", errArchiveDisabled
	}
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	dir, name, ok := strings.Cut(p, "/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", "", core.WrapError(core.ErrNotFound, fmt.Errorf("no export at %q", p))
	}
	format, err := FormatFromPath(name)
	if err != nil || string(format) != dir {
		return "", "", core.WrapError(core.ErrNotFound, fmt.Errorf("no export at %q", p))
	}

	exists, err := e.store.Exists(ctx, p)
	if err != nil {
		return "", "", fmt.Errorf("checking export %s: %w", p, err)
	}
	if !exists {
		return "", "", core.WrapError(core.ErrNotFound, fmt.Errorf("no export at %q", p))
	}
	return p, format, nil
}
