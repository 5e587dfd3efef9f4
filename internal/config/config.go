// Package config loads bankfeed.yaml, the single configuration file
// for the importer, watcher and classifier. The engine packages treat
// everything here as opaque inputs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/bankfeed-dev/bankfeed/internal/accounts"
	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/transfer"
)

// DefaultFileName is the config file looked up in the working
// directory when no --config flag is given.
const DefaultFileName = "bankfeed.yaml"

// Config represents the top-level bankfeed.yaml configuration.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Watch     WatchConfig     `yaml:"watch"`
	Transfers TransfersConfig `yaml:"transfers"`
	Accounts  []AccountConfig `yaml:"accounts,omitempty"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DatabaseConfig locates the sqlite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// WatchConfig controls the polling ingest loop.
type WatchConfig struct {
	Dir             string `yaml:"dir"`
	ProcessedDir    string `yaml:"processed_dir"`
	FailedDir       string `yaml:"failed_dir"`
	PollIntervalSec int    `yaml:"poll_interval_seconds"`
	MaxRetries      int    `yaml:"max_retries"`
	Workers         int    `yaml:"workers"`
}

// PollInterval returns the poll interval as a duration.
func (w WatchConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalSec) * time.Second
}

// TransfersConfig supplies the classifier's pattern lists and
// thresholds. Empty lists fall back to the classifier defaults.
type TransfersConfig struct {
	ToleranceDays       int      `yaml:"tolerance_days"`
	CashThreshold       string   `yaml:"cash_threshold"`
	CashCategory        string   `yaml:"cash_category"`
	CategoryCodes       []string `yaml:"category_codes,omitempty"`
	CategoryPrefixes    []string `yaml:"category_prefixes,omitempty"`
	DescriptionPrefixes []string `yaml:"description_prefixes,omitempty"`
	DescriptionContains []string `yaml:"description_contains,omitempty"`
}

// AccountConfig maps an account ID to its kind.
type AccountConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
	Bank string `yaml:"bank,omitempty"`
	Type string `yaml:"type,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads a bankfeed.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new setup.
func Default() *Config {
	opts := transfer.DefaultOptions()
	return &Config{
		Database: DatabaseConfig{Path: "data/bankfeed.db"},
		Watch: WatchConfig{
			Dir:             "incoming",
			ProcessedDir:    "incoming/processed",
			FailedDir:       "incoming/failed",
			PollIntervalSec: 30,
			MaxRetries:      3,
			Workers:         4,
		},
		Transfers: TransfersConfig{
			ToleranceDays:       opts.MatchToleranceDays,
			CashThreshold:       opts.CashThreshold.String(),
			CashCategory:        opts.CashCategory,
			CategoryCodes:       opts.CategoryCodes,
			CategoryPrefixes:    opts.CategoryPrefixes,
			DescriptionPrefixes: opts.DescriptionPrefixes,
			DescriptionContains: opts.DescriptionContains,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// ClassifierOptions converts the transfers section into classifier
// options, falling back to defaults for anything unset.
func (c *Config) ClassifierOptions() (transfer.Options, error) {
	opts := transfer.DefaultOptions()

	t := c.Transfers
	if t.ToleranceDays > 0 {
		opts.MatchToleranceDays = t.ToleranceDays
	}
	if t.CashThreshold != "" {
		threshold, err := decimal.NewFromString(t.CashThreshold)
		if err != nil {
			return transfer.Options{}, fmt.Errorf("parsing cash_threshold %q: %w", t.CashThreshold, err)
		}
		opts.CashThreshold = threshold
	}
	if t.CashCategory != "" {
		opts.CashCategory = t.CashCategory
	}
	if len(t.CategoryCodes) > 0 {
		opts.CategoryCodes = t.CategoryCodes
	}
	if len(t.CategoryPrefixes) > 0 {
		opts.CategoryPrefixes = t.CategoryPrefixes
	}
	if len(t.DescriptionPrefixes) > 0 {
		opts.DescriptionPrefixes = t.DescriptionPrefixes
	}
	if len(t.DescriptionContains) > 0 {
		opts.DescriptionContains = t.DescriptionContains
	}
	return opts, nil
}

// Directory builds the account directory from the accounts section.
func (c *Config) Directory() *accounts.Directory {
	entries := make([]accounts.Entry, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		entries = append(entries, accounts.Entry{
			ID:   a.ID,
			Name: a.Name,
			Bank: model.BankSource(a.Bank),
			Type: model.AccountType(a.Type),
		})
	}
	return accounts.NewDirectory(entries)
}
