package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceConfig holds the credentials and tuning for one upstream catalog API.
type SourceConfig struct {
	APIKey  string `yaml:"api_key"`
	APIHost string `yaml:"api_host"`
	BaseURL string `yaml:"base_url"`

	// Upstream call budget, requests per second.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type ClientConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	BackoffBase time.Duration `yaml:"backoff_base"`
	Timeout     time.Duration `yaml:"timeout"`
}

type CurrencyConfig struct {
	FromCurrency string  `yaml:"from_currency"`
	ToCurrency   string  `yaml:"to_currency"`
	DefaultRate  float64 `yaml:"default_rate"`
}

type SyncConfig struct {
	Region            string  `yaml:"region"`
	PerCategoryTarget int     `yaml:"per_category_target"`
	RecordsPerSecond  float64 `yaml:"records_per_second"`
	BatchesPerMinute  float64 `yaml:"batches_per_minute"`
}

type AppConfig struct {
	TechMart SourceConfig   `yaml:"techmart"`
	StyleHub SourceConfig   `yaml:"stylehub"`
	Client   ClientConfig   `yaml:"client"`
	Currency CurrencyConfig `yaml:"currency"`
	Sync     SyncConfig     `yaml:"sync"`
	Postgres PostgresConfig `yaml:"postgres"`
	Addr     string         `yaml:"addr"`
}

func LoadConfig(filename string) (*AppConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	config := &AppConfig{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return config, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Client.MaxRetries == 0 {
		c.Client.MaxRetries = 3
	}
	if c.Client.BackoffBase == 0 {
		c.Client.BackoffBase = 2 * time.Second
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = 30 * time.Second
	}
	if c.TechMart.RequestsPerSecond == 0 {
		c.TechMart.RequestsPerSecond = 1
	}
	if c.StyleHub.RequestsPerSecond == 0 {
		c.StyleHub.RequestsPerSecond = 1
	}
	if c.Currency.FromCurrency == "" {
		c.Currency.FromCurrency = "USD"
	}
	if c.Currency.ToCurrency == "" {
		c.Currency.ToCurrency = "MWK"
	}
	if c.Currency.DefaultRate == 0 {
		c.Currency.DefaultRate = 1730.0
	}
	if c.Sync.Region == "" {
		c.Sync.Region = "US"
	}
	if c.Sync.PerCategoryTarget == 0 {
		c.Sync.PerCategoryTarget = 20
	}
	if c.Sync.RecordsPerSecond == 0 {
		c.Sync.RecordsPerSecond = 2 // ~500ms between record conversions
	}
	if c.Sync.BatchesPerMinute == 0 {
		c.Sync.BatchesPerMinute = 30 // ~2s between category batches
	}
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
