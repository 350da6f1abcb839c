package main

import (
	"fmt"
	"os"

	"github.com/newthinker/cryptostream/internal/app"
	"github.com/newthinker/cryptostream/internal/config"
	"github.com/newthinker/cryptostream/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	debug    bool
	provider string
)

var rootCmd = &cobra.Command{
	Use:   "cryptostream",
	Short: "CryptoStream - crypto market data proxy",
	Long: `CryptoStream fetches market snapshots and OHLCV history from Binance,
CoinGecko or CryptoCompare, serves them through a local HTTP proxy and
exports datasets as CSV or JSON.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "override the configured provider")
}

// setup loads .env and configuration, then builds the application.
func setup() (*app.App, *config.Config, *zap.Logger, error) {
	log := logger.Must(debug)

	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, log, err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, log, fmt.Errorf("loading config: %w", err)
	}
	if cfgFile == "" {
		log.Debug("no config file specified, using defaults and environment")
	}
	if provider != "" {
		cfg.Provider.Name = provider
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, log, fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Log.Level != "" || cfg.IsDevelopment() {
		configured, err := logger.NewWithLevel(debug || cfg.IsDevelopment(), cfg.Log.Level)
		if err != nil {
			return nil, nil, log, fmt.Errorf("building logger: %w", err)
		}
		log.Sync()
		log = configured
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, log, err
	}
	return a, cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
