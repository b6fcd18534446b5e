// Package config loads gist's settings with priority
// defaults -> TOML files -> environment -> CLI flags.
//
// Durations are written as Go duration strings ("60s", "2m") and parsed on
// access, so a config file stays readable without custom TOML types.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/gist/ai"
	"github.com/poiesic/gist/budget"
	"github.com/poiesic/gist/extract"
	"github.com/poiesic/gist/search"
	"github.com/poiesic/gist/search/web"
	"github.com/poiesic/gist/transcript/youtube"
)

// Config represents the application configuration.
type Config struct {
	LogLevel       string           `toml:"log_level"`       // debug, info, warn, error
	RequestTimeout string           `toml:"request_timeout"` // bounds one pipeline run, e.g. "90s"
	MaxUploadBytes int              `toml:"max_upload_bytes"`
	AI             AIConfig         `toml:"ai"`
	Budgets        budget.Budgets   `toml:"budgets"`
	Search         SearchConfig     `toml:"search"`
	Transcript     TranscriptConfig `toml:"transcript"`
	Storage        StorageConfig    `toml:"storage"`
}

// AIConfig is the file form of ai.Config.
type AIConfig struct {
	Host        string  `toml:"host"`
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
}

// SearchConfig selects and tunes the web search backend.
type SearchConfig struct {
	Endpoint  string `toml:"endpoint"`
	UserAgent string `toml:"user_agent"`
	Limit     int    `toml:"limit"`
	Scrape    bool   `toml:"scrape"`  // fetch result pages instead of using snippets
	Workers   int    `toml:"workers"` // concurrent page fetches when scraping
}

// TranscriptConfig controls caption track selection.
type TranscriptConfig struct {
	Language string `toml:"language"`
}

// StorageConfig locates the workspace store.
type StorageConfig struct {
	Path string `toml:"path"` // badger directory for workspaces
}

// NewDefaultConfig returns the built-in settings.
func NewDefaultConfig() *Config {
	aiDefaults := ai.DefaultConfig()
	return &Config{
		LogLevel:       "info",
		RequestTimeout: "90s",
		MaxUploadBytes: extract.DefaultMaxBytes,
		AI: AIConfig{
			Host:        aiDefaults.Host,
			Model:       aiDefaults.Model,
			Temperature: aiDefaults.Temperature,
			Timeout:     aiDefaults.Timeout.String(),
		},
		Budgets: budget.Defaults(),
		Search: SearchConfig{
			Endpoint:  web.DefaultEndpoint,
			UserAgent: web.DefaultUserAgent,
			Limit:     search.DefaultLimit,
			Workers:   4,
		},
		Transcript: TranscriptConfig{
			Language: youtube.DefaultLanguage,
		},
		Storage: StorageConfig{
			Path: "gist.db",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files. Empty paths are skipped.
// CLI flags are applied by the caller on the returned Config.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if level := os.Getenv("GIST_LOG_LEVEL"); level != "" {
		config.LogLevel = level
	}
	if timeout := os.Getenv("GIST_REQUEST_TIMEOUT"); timeout != "" {
		config.RequestTimeout = timeout
	}
	if maxUpload := os.Getenv("GIST_MAX_UPLOAD_BYTES"); maxUpload != "" {
		if n, err := strconv.Atoi(maxUpload); err == nil {
			config.MaxUploadBytes = n
		}
	}

	// AI backend
	if host := os.Getenv("GIST_AI_HOST"); host != "" {
		config.AI.Host = host
	}
	if apiKey := os.Getenv("GIST_AI_API_KEY"); apiKey != "" {
		config.AI.APIKey = apiKey
	} else if apiKey := os.Getenv("GROQ_API_KEY"); apiKey != "" {
		config.AI.APIKey = apiKey
	}
	if model := os.Getenv("GIST_AI_MODEL"); model != "" {
		config.AI.Model = model
	}
	if temperature := os.Getenv("GIST_AI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 64); err == nil {
			config.AI.Temperature = t
		}
	}
	if timeout := os.Getenv("GIST_AI_TIMEOUT"); timeout != "" {
		config.AI.Timeout = timeout
	}

	// Search
	if endpoint := os.Getenv("GIST_SEARCH_ENDPOINT"); endpoint != "" {
		config.Search.Endpoint = endpoint
	}
	if limit := os.Getenv("GIST_SEARCH_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.Search.Limit = n
		}
	}
	if scrape := os.Getenv("GIST_SEARCH_SCRAPE"); scrape != "" {
		if b, err := strconv.ParseBool(scrape); err == nil {
			config.Search.Scrape = b
		}
	}

	if lang := os.Getenv("GIST_TRANSCRIPT_LANGUAGE"); lang != "" {
		config.Transcript.Language = lang
	}
	if path := os.Getenv("GIST_STORAGE_PATH"); path != "" {
		config.Storage.Path = path
	}
}

// Validate checks ranges and parses every duration.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.RequestTimeoutDuration(); err != nil {
		return err
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("config: max_upload_bytes must be greater than 0")
	}
	aiConfig, err := c.AI.Build()
	if err != nil {
		return err
	}
	if err := aiConfig.Validate(); err != nil {
		return err
	}
	if err := c.Budgets.Validate(); err != nil {
		return err
	}
	if c.Search.Limit <= 0 {
		return errors.New("config: search.limit must be greater than 0")
	}
	if c.Search.Workers <= 0 {
		return errors.New("config: search.workers must be greater than 0")
	}
	return nil
}

// RequestTimeoutDuration parses RequestTimeout. Zero disables the limit.
func (c *Config) RequestTimeoutDuration() (time.Duration, error) {
	return parseDuration("request_timeout", c.RequestTimeout)
}

// Build converts the file form into an ai.Config.
func (c AIConfig) Build() (*ai.Config, error) {
	timeout, err := parseDuration("ai.timeout", c.Timeout)
	if err != nil {
		return nil, err
	}
	opts := []ai.ConfigOption{
		ai.WithAPIKey(c.APIKey),
		ai.WithTemperature(c.Temperature),
		ai.WithMaxTokens(c.MaxTokens),
		ai.WithTimeout(timeout),
	}
	if c.Host != "" {
		opts = append(opts, ai.WithHost(c.Host))
	}
	if c.Model != "" {
		opts = append(opts, ai.WithModel(c.Model))
	}
	return ai.NewConfig(opts...), nil
}

// ParseLogLevel maps a level name to its slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", level)
}

func parseDuration(name, value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", name, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s cannot be negative", name)
	}
	return d, nil
}
