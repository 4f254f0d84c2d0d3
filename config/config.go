// Package config loads and validates perpstats configuration from YAML
// or JSON files, with API credentials pulled from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables holding venue credentials. They are never read
// from config files so keys stay out of version control.
const (
	EnvAPIKey    = "PERPSTATS_API_KEY"
	EnvAPISecret = "PERPSTATS_API_SECRET"
)

// Config is the complete reconstruction configuration.
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Window  WindowConfig  `json:"window" yaml:"window"`
	API     APIConfig     `json:"api" yaml:"api"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// AccountConfig names the account being reconstructed.
type AccountConfig struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	// StartBalance, when set, overrides the balance inferred from the
	// current wallet snapshot.
	StartBalance *float64 `json:"start_balance,omitempty" yaml:"start_balance,omitempty"`
}

// WindowConfig bounds the reconstruction in time.
type WindowConfig struct {
	Start string `json:"start" yaml:"start"` // RFC 3339
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
	// Lookback bounds the anchor search before the window start,
	// e.g. "720h". Empty means the default.
	Lookback   string `json:"lookback,omitempty" yaml:"lookback,omitempty"`
	AssumeFlat bool   `json:"assume_flat,omitempty" yaml:"assume_flat,omitempty"`
}

// APIConfig selects the venue endpoint. Credentials come from the
// environment, optionally seeded by a .env file.
type APIConfig struct {
	Testnet bool   `json:"testnet,omitempty" yaml:"testnet,omitempty"`
	Key     string `json:"-" yaml:"-"`
	Secret  string `json:"-" yaml:"-"`
}

// JournalConfig selects where reconstructed ledgers are persisted.
type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	EntriesFile string `json:"entries_file,omitempty" yaml:"entries_file,omitempty"`
	ReportsFile string `json:"reports_file,omitempty" yaml:"reports_file,omitempty"`
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	// FillCache, when set, is a CSV file reused across runs to avoid
	// refetching fill history the cache already covers.
	FillCache string `json:"fill_cache,omitempty" yaml:"fill_cache,omitempty"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`   // trace..error
	Format string `json:"format,omitempty" yaml:"format,omitempty"` // "console" or "json"
}

const defaultLookback = 30 * 24 * time.Hour

// LoadFromFile loads configuration from a file (YAML or JSON) and then
// credentials from the environment.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.loadCredentials()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// loadCredentials reads API keys from the environment. A .env file in
// the working directory seeds variables that are not already set.
func (c *Config) loadCredentials() {
	_ = godotenv.Load()
	c.API.Key = os.Getenv(EnvAPIKey)
	c.API.Secret = os.Getenv(EnvAPISecret)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Account.Symbol == "" {
		return fmt.Errorf("account.symbol is required")
	}
	if c.Account.StartBalance != nil && *c.Account.StartBalance < 0 {
		return fmt.Errorf("account.start_balance must not be negative")
	}

	start, err := c.WindowStart()
	if err != nil {
		return err
	}
	if end, err := c.WindowEnd(); err != nil {
		return err
	} else if !end.IsZero() && end.Before(start) {
		return fmt.Errorf("window.end must not precede window.start")
	}
	if _, err := c.Lookback(); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.EntriesFile == "" || c.Journal.ReportsFile == "" {
			return fmt.Errorf("journal entries_file and reports_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "none":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'")
	}

	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be 'console' or 'json'")
	}
	return nil
}

// WindowStart parses the window start time.
func (c *Config) WindowStart() (time.Time, error) {
	if c.Window.Start == "" {
		return time.Time{}, fmt.Errorf("window.start is required")
	}
	t, err := time.Parse(time.RFC3339, c.Window.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("window.start: %w", err)
	}
	return t, nil
}

// WindowEnd parses the window end time. A zero time means the window is
// open-ended.
func (c *Config) WindowEnd() (time.Time, error) {
	if c.Window.End == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, c.Window.End)
	if err != nil {
		return time.Time{}, fmt.Errorf("window.end: %w", err)
	}
	return t, nil
}

// Lookback parses the anchor lookback duration.
func (c *Config) Lookback() (time.Duration, error) {
	if c.Window.Lookback == "" {
		return defaultLookback, nil
	}
	d, err := time.ParseDuration(c.Window.Lookback)
	if err != nil {
		return 0, fmt.Errorf("window.lookback: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("window.lookback must be positive")
	}
	return d, nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Symbol: "BTCUSD",
		},
		Window: WindowConfig{
			Start:    time.Now().UTC().AddDate(0, -1, 0).Format(time.RFC3339),
			Lookback: "720h",
		},
		Journal: JournalConfig{
			Type:        "csv",
			EntriesFile: "./entries.csv",
			ReportsFile: "./reports.csv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
