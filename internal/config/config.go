package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/cryptostream/internal/collector"
	"github.com/newthinker/cryptostream/internal/core"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Symbols   []string        `mapstructure:"symbols"`
	Transport TransportConfig `mapstructure:"transport"`
	History   HistoryConfig   `mapstructure:"history"`
	Export    ExportConfig    `mapstructure:"export"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Mode       string `mapstructure:"mode"` // "development" or "release"
	APIKey     string `mapstructure:"api_key"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// ProviderConfig selects the upstream market-data API.
type ProviderConfig struct {
	Name    string `mapstructure:"name"` // binance, coingecko or cryptocompare
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// TransportConfig tunes the outbound HTTP client.
type TransportConfig struct {
	Timeout            time.Duration `mapstructure:"timeout"`
	Retries            uint          `mapstructure:"retries"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
}

type HistoryConfig struct {
	DefaultInterval string `mapstructure:"default_interval"`
	StrictRange     bool   `mapstructure:"strict_range"`
}

// ExportConfig selects where exports are archived.
type ExportConfig struct {
	Type string   `mapstructure:"type"` // "local", "s3" or "none"
	Path string   `mapstructure:"path"` // For local
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LogConfig sets the logger level. An empty level keeps the mode default:
// debug in development, info in release.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from file on top of Defaults. An empty path
// reads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.api_key", d.Server.APIKey)
	v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	v.SetDefault("provider.name", d.Provider.Name)
	v.SetDefault("provider.api_key", d.Provider.APIKey)
	v.SetDefault("provider.base_url", d.Provider.BaseURL)
	v.SetDefault("symbols", d.Symbols)
	v.SetDefault("transport.timeout", d.Transport.Timeout)
	v.SetDefault("transport.retries", d.Transport.Retries)
	v.SetDefault("transport.insecure_skip_verify", d.Transport.InsecureSkipVerify)
	v.SetDefault("history.default_interval", d.History.DefaultInterval)
	v.SetDefault("history.strict_range", d.History.StrictRange)
	v.SetDefault("export.type", d.Export.Type)
	v.SetDefault("export.path", d.Export.Path)
	v.SetDefault("export.s3.bucket", d.Export.S3.Bucket)
	v.SetDefault("export.s3.endpoint", d.Export.S3.Endpoint)
	v.SetDefault("export.s3.region", d.Export.S3.Region)
	v.SetDefault("export.s3.access_key", d.Export.S3.AccessKey)
	v.SetDefault("export.s3.secret_key", d.Export.S3.SecretKey)
	v.SetDefault("export.s3.prefix", d.Export.S3.Prefix)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("log.level", d.Log.Level)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       3000,
			Mode:       "release",
			CORSOrigin: "*",
		},
		Provider: ProviderConfig{
			Name: string(collector.ProviderBinance),
		},
		Transport: TransportConfig{
			Timeout: 10 * time.Second,
			Retries: 2,
		},
		History: HistoryConfig{
			DefaultInterval: string(core.DefaultInterval),
		},
		Export: ExportConfig{
			Type: "local",
			Path: "./exports",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Mode == "development"
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}
	switch c.Server.Mode {
	case "development", "release":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("mode must be development or release, got %q", c.Server.Mode))
	}

	// Provider validation
	kind, err := collector.ParseProviderKind(c.Provider.Name)
	if err != nil {
		return err
	}
	if kind.RequiresAPIKey() && c.Provider.APIKey == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("%s api_key required when provider is %s", kind, kind))
	}

	// Certificate verification may only be disabled while developing
	if c.Transport.InsecureSkipVerify && !c.IsDevelopment() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("insecure_skip_verify is only allowed in development mode"))
	}
	if c.Transport.Timeout <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("transport timeout must be positive, got %s", c.Transport.Timeout))
	}

	if c.History.DefaultInterval != "" && !core.Interval(c.History.DefaultInterval).IsValid() {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown default_interval %q", c.History.DefaultInterval))
	}

	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("log.level: %w", err))
		}
	}

	// Export validation
	switch c.Export.Type {
	case "", "none", "local":
	case "s3":
		if c.Export.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("export.s3.bucket required when export type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown export type %q", c.Export.Type))
	}

	return nil
}
