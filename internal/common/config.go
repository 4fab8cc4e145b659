package common

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"

	"github.com/ckaraca/vergo/internal/models"
)

// Config holds all configuration for Vergo
type Config struct {
	Logging LoggingConfig `toml:"logging"`
	Clients ClientsConfig `toml:"clients"`
	Tax     TaxConfig     `toml:"tax"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EVDS  EVDSConfig  `toml:"evds"`
	Yahoo YahooConfig `toml:"yahoo"`
}

// EVDSConfig holds TCMB EVDS API configuration
type EVDSConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"` // default; callers may override per run
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EVDSConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// YahooConfig holds RapidAPI Yahoo Finance configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	Host      string `toml:"host"` // x-rapidapi-host header value
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// TaxConfig holds the tax-year figures: the progressive bracket table, the
// flat minimum-rate estimate shown per position, the cumulative-inflation
// threshold below which cost basis is not indexed, and the first year of the
// inflation index series to fetch.
type TaxConfig struct {
	Brackets            []BracketConfig `toml:"brackets"`
	MinRate             float64         `toml:"min_rate"`
	IndexationThreshold float64         `toml:"indexation_threshold"`
	SeriesStartYear     int             `toml:"series_start_year"`
}

// BracketConfig is one configured tax bracket. Upper 0 marks the last,
// open-ended bracket.
type BracketConfig struct {
	Lower float64 `toml:"lower"`
	Upper float64 `toml:"upper"`
	Rate  float64 `toml:"rate"`
	Base  float64 `toml:"base"`
}

// Schedule builds and validates the bracket schedule. An empty table falls
// back to the shipped default for the current tax year.
func (c *TaxConfig) Schedule() (models.Schedule, error) {
	if len(c.Brackets) == 0 {
		return models.DefaultSchedule(), nil
	}
	s := models.Schedule{Brackets: make([]models.TaxBracket, 0, len(c.Brackets))}
	for _, b := range c.Brackets {
		s.Brackets = append(s.Brackets, models.TaxBracket{
			Lower: decimal.NewFromFloat(b.Lower),
			Upper: decimal.NewFromFloat(b.Upper),
			Rate:  decimal.NewFromFloat(b.Rate),
			Base:  decimal.NewFromFloat(b.Base),
		})
	}
	if err := s.Validate(); err != nil {
		return models.Schedule{}, fmt.Errorf("invalid tax schedule: %w", err)
	}
	return s, nil
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Clients: ClientsConfig{
			EVDS: EVDSConfig{
				BaseURL:   "https://evds2.tcmb.gov.tr/service/evds",
				RateLimit: 5,
				Timeout:   "30s",
			},
			Yahoo: YahooConfig{
				BaseURL:   "https://apidojo-yahoo-finance-v1.p.rapidapi.com",
				Host:      "apidojo-yahoo-finance-v1.p.rapidapi.com",
				RateLimit: 5,
				Timeout:   "30s",
			},
		},
		Tax: TaxConfig{
			MinRate:             0.15,
			IndexationThreshold: 1.10,
			SeriesStartYear:     2014,
		},
	}
}

// LoadConfig reads the TOML config file at path over the defaults, then
// applies environment overrides. A missing file is not an error; the
// defaults plus environment are used.
func LoadConfig(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := toml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if v := os.Getenv("VERGO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("VERGO_EVDS_KEY"); v != "" {
		config.Clients.EVDS.APIKey = v
	}
	if v := os.Getenv("VERGO_YAHOO_KEY"); v != "" {
		config.Clients.Yahoo.APIKey = v
	}

	if _, err := config.Tax.Schedule(); err != nil {
		return nil, err
	}
	return config, nil
}
