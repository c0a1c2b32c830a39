package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// A single Config value is constructed at process start and passed into each
// component constructor. Business logic never reads the environment directly.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Sheets      SheetsConfig      `toml:"sheets"`
	Vault       VaultConfig       `toml:"vault"`
	Worker      WorkerConfig      `toml:"worker"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// SheetsConfig contains Google Sheets access settings.
type SheetsConfig struct {
	ServiceAccountFile string `toml:"service_account_file"`
	RegistrySheetID    string `toml:"registry_sheet_id"`
}

// VaultConfig contains the symmetric encryption secret for refresh tokens at rest.
type VaultConfig struct {
	Secret string `toml:"secret"`
}

// WorkerConfig contains sync pass tuning knobs.
type WorkerConfig struct {
	DedupeWindowRows int `toml:"dedupe_window_rows"`
	HistoryPageLimit int `toml:"history_page_limit"`
	LookbackMinutes  int `toml:"lookback_minutes"`
	RequestTimeoutMS int `toml:"request_timeout_ms"`
	EnrichWorkers    int `toml:"enrich_workers"`
}

// RequestTimeout returns the per-request timeout for all external calls.
func (w WorkerConfig) RequestTimeout() time.Duration {
	if w.RequestTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(w.RequestTimeoutMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyDefaults()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the fields required for a sync run are present.
func (c *Config) Validate() error {
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret are required", ErrMissingCredentials)
	}
	if c.Sheets.RegistrySheetID == "" {
		return fmt.Errorf("%w: sheets registry_sheet_id is required", ErrInvalidConfig)
	}
	if c.Vault.Secret == "" {
		return fmt.Errorf("%w: vault secret is required", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Worker.DedupeWindowRows <= 0 {
		c.Worker.DedupeWindowRows = 5000
	}
	if c.Worker.HistoryPageLimit <= 0 {
		c.Worker.HistoryPageLimit = 50
	}
	if c.Worker.LookbackMinutes <= 0 {
		c.Worker.LookbackMinutes = 60
	}
	if c.Worker.EnrichWorkers <= 0 {
		c.Worker.EnrichWorkers = 4
	}
}
