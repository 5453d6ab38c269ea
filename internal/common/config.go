// Package common provides shared utilities for Folio
package common

import (
	"fmt"
	"os"
	"strconv"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Folio
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Engine      EngineConfig  `toml:"engine"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the ledger database location.
type StorageConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// EngineConfig holds valuation engine settings.
type EngineConfig struct {
	// ReservedDividendTicker is the pseudo-ticker used for bulk carry-forward
	// dividend entries. Excluded from by-ticker totals, included in the
	// grand total.
	ReservedDividendTicker string `toml:"reserved_dividend_ticker"`
	// CurrencySymbol is used for display formatting only.
	CurrencySymbol string `toml:"currency_symbol"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server:      ServerConfig{Host: "0.0.0.0", Port: 8080},
		Storage:     StorageConfig{Path: "data/folio.db"},
		Logging:     LoggingConfig{Level: "info"},
		Engine: EngineConfig{
			ReservedDividendTicker: "HISTDIVIDENDS",
			CurrencySymbol:         "₹",
		},
	}
}

// LoadConfig reads a TOML config file and applies environment overrides.
// A missing file is not an error: defaults plus env overrides are returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Engine.ReservedDividendTicker == "" {
		cfg.Engine.ReservedDividendTicker = "HISTDIVIDENDS"
	}

	return cfg, nil
}

// applyEnvOverrides lets the environment win over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FOLIO_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FOLIO_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FOLIO_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("FOLIO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FOLIO_ENV"); v != "" {
		cfg.Environment = v
	}
}
