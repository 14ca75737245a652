// Package config loads and exposes application configuration (TOML).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":8080"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "cardfolio"
	DefaultPGSSLMode       = "disable"
	DefaultVerifyTimeout   = "10s"
	DefaultSuggestionsURL  = "https://api.rawg.io/api"
	DefaultSuggestionsRate = 5
	DefaultMediaRegion     = "us-east-1"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log         LogConfig         `toml:"log"`
	Server      ServerConfig      `toml:"server"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Auth        AuthConfig        `toml:"auth"`
	Template    TemplateConfig    `toml:"template"`
	Media       MediaConfig       `toml:"media"`
	Suggestions SuggestionsConfig `toml:"suggestions"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// Addr returns the Postgres host:port pair.
func (c PostgresConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// AuthConfig holds the OIDC issuer, the expected token audience, and the
// bound on a single token verification round-trip (e.g. 10s).
type AuthConfig struct {
	Issuer        string `toml:"issuer"`
	Audience      string `toml:"audience"`
	VerifyTimeout string `toml:"verify_timeout"`
}

// VerifyTimeoutDuration parses VerifyTimeout, falling back to the default.
func (c AuthConfig) VerifyTimeoutDuration() (time.Duration, error) {
	raw := c.VerifyTimeout
	if raw == "" {
		raw = DefaultVerifyTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid verify_timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("verify_timeout must be positive, got %s", d)
	}
	return d, nil
}

// TemplateConfig designates the reserved account whose collection is
// served to anonymous visitors, addressed by its provider email.
type TemplateConfig struct {
	Email string `toml:"email"`
}

// MediaConfig holds the S3 bucket used for hosted card images.
// Endpoint is optional and enables S3-compatible stores (e.g. MinIO).
type MediaConfig struct {
	Bucket   string `toml:"bucket"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"`
}

// SuggestionsConfig holds the title-suggestion API base URL, key, and
// outbound request rate (requests per second).
type SuggestionsConfig struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	RatePerSecond  float64 `toml:"rate_per_second"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Timeout returns the suggestion client timeout (default 10s).
func (c SuggestionsConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and parses the TOML config file at path and applies default
// values for missing fields. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Auth: AuthConfig{
			VerifyTimeout: DefaultVerifyTimeout,
		},
		Media: MediaConfig{
			Region: DefaultMediaRegion,
		},
		Suggestions: SuggestionsConfig{
			BaseURL:       DefaultSuggestionsURL,
			RatePerSecond: DefaultSuggestionsRate,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
