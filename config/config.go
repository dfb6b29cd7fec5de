package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no -config flag is given.
const DefaultPath = "config/config.yml"

// environmentPaths maps APP_ENV values to their configuration files.
var environmentPaths = map[string]string{
	environmentProduction: "config/config.production.yml",
}

type Config struct {
	App     AppConfig     `yaml:"app"`
	Market  MarketConfig  `yaml:"market"`
	Source  SourceConfig  `yaml:"source"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
	Icons   IconsConfig   `yaml:"icons"`
}

type AppConfig struct {
	Name    string `yaml:"name" env:"TRACKER_APP_NAME"`
	Version string `yaml:"version"`
}

// MarketConfig controls which pairs are listed and how the list is refreshed.
type MarketConfig struct {
	QuoteAsset      string        `yaml:"quote_asset" env:"TRACKER_QUOTE_ASSET"`
	PinnedSymbol    string        `yaml:"pinned_symbol" env:"TRACKER_PINNED_SYMBOL"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"TRACKER_REFRESH_INTERVAL"`
	ChartInterval   string        `yaml:"chart_interval"`
	ChartLimit      int           `yaml:"chart_limit"`
}

type SourceConfig struct {
	Binance BinanceSourceConfig `yaml:"binance"`
}

type BinanceSourceConfig struct {
	BaseURL        string               `yaml:"base_url" env:"BINANCE_BASE_URL"`
	Timeout        time.Duration        `yaml:"timeout" env:"BINANCE_TIMEOUT"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type HTTPConfig struct {
	Address        string        `yaml:"address" env:"TRACKER_HTTP_ADDRESS"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	LogHistory     int           `yaml:"log_history"`
	MetricsHistory int           `yaml:"metrics_history"`
}

type MetricsConfig struct {
	Prometheus bool             `yaml:"prometheus"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled" env:"TRACKER_CLOUDWATCH_ENABLED"`
	Region    string `yaml:"region" env:"AWS_REGION"`
	Namespace string `yaml:"namespace"`
}

type LoggingConfig struct {
	Level          string        `yaml:"level"`
	Format         string        `yaml:"format"`
	Output         string        `yaml:"output"`
	MaxAge         int           `yaml:"max_age"`
	ReportInterval time.Duration `yaml:"report_interval"`
}

// IconsConfig overrides the icon URL templates and the base asset alias table.
type IconsConfig struct {
	URLTemplate string            `yaml:"url_template"`
	FallbackURL string            `yaml:"fallback_url"`
	Aliases     map[string]string `yaml:"aliases"`
}

// Default returns the configuration used for any value the file leaves out.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:    "cryptotracker",
			Version: "dev",
		},
		Market: MarketConfig{
			QuoteAsset:      "USDT",
			PinnedSymbol:    "VANRYUSDT",
			RefreshInterval: time.Minute,
			ChartInterval:   "1d",
			ChartLimit:      30,
		},
		Source: SourceConfig{
			Binance: BinanceSourceConfig{
				BaseURL: "https://api.binance.com",
				Timeout: 10 * time.Second,
				ConnectionPool: ConnectionPoolConfig{
					MaxIdleConns:    10,
					MaxConnsPerHost: 10,
					IdleConnTimeout: 90 * time.Second,
				},
				RateLimit: RateLimitConfig{
					RequestsPerSecond: 5,
					BurstSize:         5,
				},
			},
		},
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   15 * time.Second,
			LogHistory:     500,
			MetricsHistory: 500,
		},
		Metrics: MetricsConfig{
			Prometheus: true,
			CloudWatch: CloudWatchConfig{
				Namespace: "CryptoTracker",
			},
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "json",
			Output:         "stdout",
			ReportInterval: 30 * time.Second,
		},
	}
}

// LoadConfig reads the YAML file at path, picking an APP_ENV specific file
// when path is the default, then applies environment overrides and validates
// the result.
func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, DefaultPath, environmentPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config.Market.QuoteAsset = strings.ToUpper(strings.TrimSpace(config.Market.QuoteAsset))
	config.Market.PinnedSymbol = strings.ToUpper(strings.TrimSpace(config.Market.PinnedSymbol))
	config.Source.Binance.BaseURL = strings.TrimRight(strings.TrimSpace(config.Source.Binance.BaseURL), "/")

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	if cfg.Market.QuoteAsset == "" {
		return fmt.Errorf("market.quote_asset is required")
	}
	if cfg.Market.PinnedSymbol != "" && !strings.HasSuffix(cfg.Market.PinnedSymbol, cfg.Market.QuoteAsset) {
		return fmt.Errorf("market.pinned_symbol %q is not quoted in %s", cfg.Market.PinnedSymbol, cfg.Market.QuoteAsset)
	}
	if cfg.Market.RefreshInterval < 0 {
		return fmt.Errorf("market.refresh_interval must not be negative")
	}
	if cfg.Market.ChartLimit <= 0 || cfg.Market.ChartLimit > 1000 {
		return fmt.Errorf("market.chart_limit must be between 1 and 1000")
	}
	if cfg.Market.ChartInterval == "" {
		return fmt.Errorf("market.chart_interval is required")
	}

	u, err := url.Parse(cfg.Source.Binance.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("source.binance.base_url '%s' is invalid", cfg.Source.Binance.BaseURL)
	}
	if cfg.Source.Binance.Timeout <= 0 {
		return fmt.Errorf("source.binance.timeout must be greater than 0")
	}
	if cfg.Source.Binance.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("source.binance.rate_limit.requests_per_second must be greater than 0")
	}

	if strings.TrimSpace(cfg.HTTP.Address) == "" {
		return fmt.Errorf("http.address is required")
	}

	if cfg.Metrics.CloudWatch.Enabled && cfg.Metrics.CloudWatch.Namespace == "" {
		return fmt.Errorf("metrics.cloudwatch.namespace is required when CloudWatch is enabled")
	}

	return nil
}
