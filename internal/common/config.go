// Package common provides shared utilities for kessan
package common

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for kessan
type Config struct {
	Environment string           `toml:"environment"`
	Server      ServerConfig     `toml:"server"`
	Clients     ClientsConfig    `toml:"clients"`
	Disclosure  DisclosureConfig `toml:"disclosure"`
	Narrative   NarrativeConfig  `toml:"narrative"`
	Logging     LoggingConfig    `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host          string `toml:"host"`
	Port          int    `toml:"port" validate:"gt=0,lte=65535"`
	MaxUploadSize string `toml:"max_upload_size"` // e.g. "20MB" or "16MiB"
}

// GetMaxUploadBytes parses MaxUploadSize, defaulting to 20MB.
func (c *ServerConfig) GetMaxUploadBytes() int64 {
	n, err := humanize.ParseBytes(c.MaxUploadSize)
	if err != nil || n == 0 || n > math.MaxInt64 {
		return DefaultMaxUploadBytes
	}
	return int64(n)
}

// DefaultMaxUploadBytes applies when max_upload_size is missing or unparseable.
const DefaultMaxUploadBytes = 20 * humanize.MByte

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EDINET EDINETConfig `toml:"edinet"`
	Yahoo  YahooConfig  `toml:"yahoo"`
	Board  BoardConfig  `toml:"board"`
	Gemini GeminiConfig `toml:"gemini"`
}

// EDINETConfig holds the disclosure registry API configuration
type EDINETConfig struct {
	BaseURL string `toml:"base_url" validate:"required,url"`
	APIKey  string `toml:"api_key"` // v2 Subscription-Key, optional
	Timeout string `toml:"timeout"`
	Referer string `toml:"referer"`
}

// GetTimeout parses and returns the per-request timeout
func (c *EDINETConfig) GetTimeout() time.Duration {
	return parseDurationOr(c.Timeout, 15*time.Second)
}

// YahooConfig holds market-data provider configuration
type YahooConfig struct {
	BaseURL      string `toml:"base_url" validate:"required,url"`
	MarketSuffix string `toml:"market_suffix" validate:"required"`
	HistoryRange string `toml:"history_range" validate:"required"`
	Interval     string `toml:"interval" validate:"required"`
	NewsCount    int    `toml:"news_count" validate:"gte=0"`
	RateLimit    int    `toml:"rate_limit" validate:"gt=0"`
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	return parseDurationOr(c.Timeout, 10*time.Second)
}

// BoardConfig holds message-board scraper configuration
type BoardConfig struct {
	BaseURL      string `toml:"base_url" validate:"required,url"`
	PostSelector string `toml:"post_selector" validate:"required"`
	MaxPosts     int    `toml:"max_posts" validate:"gt=0"`
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *BoardConfig) GetTimeout() time.Duration {
	return parseDurationOr(c.Timeout, 10*time.Second)
}

// GeminiConfig holds Gemini API configuration.
// Models is a preference-ordered list; the first one offered by the API wins.
type GeminiConfig struct {
	APIKey string   `toml:"api_key"`
	Models []string `toml:"models" validate:"min=1,dive,required"`
}

// DisclosureConfig holds the filing scan policy
type DisclosureConfig struct {
	WindowDays   int    `toml:"window_days" validate:"gt=0,lte=366"`
	RequestDelay string `toml:"request_delay"`
	Marker       string `toml:"marker" validate:"required"`
	DocumentType int    `toml:"document_type" validate:"gt=0"`
}

// GetRequestDelay parses the inter-request pacing delay. Zero disables pacing.
func (c *DisclosureConfig) GetRequestDelay() time.Duration {
	return parseDurationOr(c.RequestDelay, 500*time.Millisecond)
}

// NarrativeConfig controls prompt construction
type NarrativeConfig struct {
	MaxNews     int `toml:"max_news" validate:"gte=0"`
	MaxPDFChars int `toml:"max_pdf_chars" validate:"gte=0"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          8080,
			MaxUploadSize: "20MB",
		},
		Clients: ClientsConfig{
			EDINET: EDINETConfig{
				BaseURL: "https://disclosure.edinet-fsa.go.jp/api/v1",
				Timeout: "15s",
				Referer: "https://disclosure.edinet-fsa.go.jp/",
			},
			Yahoo: YahooConfig{
				BaseURL:      "https://query2.finance.yahoo.com",
				MarketSuffix: ".T",
				HistoryRange: "6mo",
				Interval:     "1d",
				NewsCount:    10,
				RateLimit:    5,
				Timeout:      "10s",
			},
			Board: BoardConfig{
				BaseURL:      "https://finance.yahoo.co.jp",
				PostSelector: "article p",
				MaxPosts:     30,
				Timeout:      "10s",
			},
			Gemini: GeminiConfig{
				Models: []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-1.5-flash"},
			},
		},
		Disclosure: DisclosureConfig{
			WindowDays:   30,
			RequestDelay: "500ms",
			Marker:       "決算短信",
			DocumentType: 2,
		},
		Narrative: NarrativeConfig{
			MaxNews:     5,
			MaxPDFChars: 5000,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console", "file"},
			FilePath:   "./logs/kessan.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks struct-tag constraints on the loaded configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("KESSAN_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("KESSAN_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("KESSAN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("KESSAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("KESSAN_EDINET_BASE_URL"); v != "" {
		config.Clients.EDINET.BaseURL = v
	}
	if v := os.Getenv("KESSAN_EDINET_API_KEY"); v != "" {
		config.Clients.EDINET.APIKey = v
	}

	if v := os.Getenv("KESSAN_DISCLOSURE_WINDOW_DAYS"); v != "" {
		if d, err := strconv.Atoi(v); err == nil {
			config.Disclosure.WindowDays = d
		}
	}
	if v := os.Getenv("KESSAN_DISCLOSURE_REQUEST_DELAY"); v != "" {
		config.Disclosure.RequestDelay = v
	}

	if v := os.Getenv("KESSAN_GEMINI_MODELS"); v != "" {
		var models []string
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				models = append(models, m)
			}
		}
		if len(models) > 0 {
			config.Clients.Gemini.Models = models
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from the environment, then the configured value.
// There is no built-in fallback key.
func ResolveAPIKey(name string, configured string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key": {"GEMINI_API_KEY", "KESSAN_GEMINI_API_KEY", "GOOGLE_API_KEY"},
		"edinet_api_key": {"EDINET_API_KEY", "KESSAN_EDINET_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if configured != "" {
		return configured, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
