// Package app wires configuration into the running components.
package app

import (
	"fmt"
	"time"

	"github.com/newthinker/cryptostream/internal/api"
	apihandler "github.com/newthinker/cryptostream/internal/api/handler/api"
	"github.com/newthinker/cryptostream/internal/collector"
	"github.com/newthinker/cryptostream/internal/config"
	"github.com/newthinker/cryptostream/internal/core"
	"github.com/newthinker/cryptostream/internal/export"
	"github.com/newthinker/cryptostream/internal/history"
	"github.com/newthinker/cryptostream/internal/httpclient"
	"github.com/newthinker/cryptostream/internal/metrics"
	"github.com/newthinker/cryptostream/internal/storage/archive"
	"go.uber.org/zap"
)

// App is the main application orchestrator
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Registry
	service   *collector.Service
	history   *history.Fetcher
	exporter  *export.Exporter
	store     archive.Storage
	startedAt time.Time
}

// New builds every component from cfg. cfg must already be validated.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		startedAt: time.Now(),
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewRegistry()
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.Transport.Timeout
	httpCfg.Retries = cfg.Transport.Retries
	httpCfg.InsecureSkipVerify = cfg.Transport.InsecureSkipVerify && cfg.IsDevelopment()
	client := httpclient.New(httpCfg, logger.Named("http"))

	var svcOpts []collector.Option
	if a.metrics != nil {
		svcOpts = append(svcOpts, collector.WithObserver(a.metrics))
	}
	svc, err := collector.New(collector.Config{
		Provider: cfg.Provider.Name,
		APIKey:   cfg.Provider.APIKey,
		BaseURL:  cfg.Provider.BaseURL,
		Client:   client,
	}, logger.Named("collector"), svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}
	a.service = svc

	histOpts := []history.Option{history.WithStrictRange(cfg.History.StrictRange)}
	if a.metrics != nil {
		histOpts = append(histOpts, history.WithObserver(a.metrics))
	}
	a.history = history.NewFetcher(svc, logger.Named("history"), histOpts...)

	if cfg.Export.Type != "none" {
		a.store, err = archive.New(archive.Config{
			Type: cfg.Export.Type,
			Path: cfg.Export.Path,
			S3: archive.S3Config{
				Bucket:    cfg.Export.S3.Bucket,
				Endpoint:  cfg.Export.S3.Endpoint,
				Region:    cfg.Export.S3.Region,
				AccessKey: cfg.Export.S3.AccessKey,
				SecretKey: cfg.Export.S3.SecretKey,
				Prefix:    cfg.Export.S3.Prefix,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("creating export archive: %w", err)
		}
	}
	var expOpts []export.ExporterOption
	if a.metrics != nil {
		expOpts = append(expOpts, export.WithObserver(a.metrics))
	}
	a.exporter = export.NewExporter(a.store, logger.Named("export"), expOpts...)

	logger.Info("application initialized",
		zap.String("provider", svc.Name()),
		zap.Bool("metrics", a.metrics != nil),
		zap.String("export", cfg.Export.Type),
	)
	return a, nil
}

// Service returns the provider facade.
func (a *App) Service() *collector.Service {
	return a.service
}

// History returns the range fetcher.
func (a *App) History() *history.Fetcher {
	return a.history
}

// Exporter returns the dataset exporter.
func (a *App) Exporter() *export.Exporter {
	return a.exporter
}

// Metrics returns the registry, nil when metrics are disabled.
func (a *App) Metrics() *metrics.Registry {
	return a.metrics
}

// archiveOrNil keeps a nil interface when no store is configured, so the
// archive routes are left unregistered.
func archiveOrNil(a *App) apihandler.ExportArchive {
	if a.store == nil {
		return nil
	}
	return a.exporter
}

// Symbols returns the configured watch set, or nil for provider defaults.
func (a *App) Symbols() []string {
	return a.cfg.Symbols
}

// NewServer builds the proxy API server.
func (a *App) NewServer(version string) (*api.Server, error) {
	metricsPath := ""
	if a.metrics != nil {
		metricsPath = a.cfg.Metrics.Path
	}
	return api.NewServer(api.Config{
		Host:            a.cfg.Server.Host,
		Port:            a.cfg.Server.Port,
		APIKey:          a.cfg.Server.APIKey,
		CORSOrigin:      a.cfg.Server.CORSOrigin,
		MetricsPath:     metricsPath,
		DefaultInterval: core.Interval(a.cfg.History.DefaultInterval),
		Symbols:         a.cfg.Symbols,
	}, api.Dependencies{
		Service:   a.service,
		History:   a.history,
		Exporter:  a.exporter,
		Archive:   archiveOrNil(a),
		Metrics:   a.metrics,
		Version:   version,
		StartedAt: a.startedAt,
	}, a.logger.Named("api"))
}
