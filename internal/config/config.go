// Package config provides configuration loading and management for pathwise.
package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// DefaultPath is the config file location relative to the working directory.
var DefaultPath = filepath.Join(".pathwise", "config.json")

// EnvPrefix prefixes environment overrides, e.g. PATHWISE_CRAWL_MAX_PAGES.
const EnvPrefix = "PATHWISE"

// Config is the root configuration.
type Config struct {
	LLM       LLMConfig       `json:"llm"       mapstructure:"llm"`
	Crawl     CrawlConfig     `json:"crawl"     mapstructure:"crawl"`
	Context   ContextConfig   `json:"context"   mapstructure:"context"`
	Search    SearchConfig    `json:"search"    mapstructure:"search"`
	Server    ServerConfig    `json:"server"    mapstructure:"server"`
	Storage   StorageConfig   `json:"storage"   mapstructure:"storage"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry"`
	Retention RetentionPolicy `json:"retention" mapstructure:"retention"`
}

// LLMConfig selects the completion backend.
type LLMConfig struct {
	Provider  string        `json:"provider"           mapstructure:"provider"`
	Model     string        `json:"model"              mapstructure:"model"`
	APIKeyEnv string        `json:"api_key_env"        mapstructure:"api_key_env"`
	BaseURL   string        `json:"base_url,omitempty" mapstructure:"base_url"`
	Project   string        `json:"project,omitempty"  mapstructure:"project"`
	Location  string        `json:"location,omitempty" mapstructure:"location"`
	Timeout   time.Duration `json:"timeout"            mapstructure:"timeout"`
}

// CrawlConfig bounds crawl jobs and their polling.
type CrawlConfig struct {
	MaxPages       int           `json:"max_pages"       mapstructure:"max_pages"`
	PollInterval   time.Duration `json:"poll_interval"   mapstructure:"poll_interval"`
	MaxAttempts    int           `json:"max_attempts"    mapstructure:"max_attempts"`
	Concurrency    int           `json:"concurrency"     mapstructure:"concurrency"`
	RequestTimeout time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
}

// ContextConfig limits the context block sent to the model.
type ContextConfig struct {
	BudgetChars int `json:"budget_chars" mapstructure:"budget_chars"`
}

// SearchConfig controls resource search.
type SearchConfig struct {
	MaxResults int `json:"max_results" mapstructure:"max_results"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string   `json:"addr"         mapstructure:"addr"`
	CORSOrigins []string `json:"cors_origins" mapstructure:"cors_origins"`
}

// StorageConfig locates the sqlite database.
type StorageConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool   `json:"enabled"       mapstructure:"enabled"`
	OTLPEndpoint string `json:"otlp_endpoint" mapstructure:"otlp_endpoint"`
	ServiceName  string `json:"service_name"  mapstructure:"service_name"`
}

// RetentionPolicy defines how long cached content is kept.
type RetentionPolicy struct {
	KeepLast int `json:"keep_last,omitempty" mapstructure:"keep_last"`
	KeepDays int `json:"keep_days,omitempty" mapstructure:"keep_days"`
}

// DefaultSettings returns the default configuration as a settings tree.
func DefaultSettings() map[string]any {
	return map[string]any{
		"llm": map[string]any{
			"provider":    "gemini",
			"model":       "gemini-2.5-flash",
			"api_key_env": "GEMINI_API_KEY",
			"timeout":     "60s",
		},
		"crawl": map[string]any{
			"max_pages":       10,
			"poll_interval":   "3s",
			"max_attempts":    40,
			"concurrency":     4,
			"request_timeout": "20s",
		},
		"context": map[string]any{
			"budget_chars": 50000,
		},
		"search": map[string]any{
			"max_results": 5,
		},
		"server": map[string]any{
			"addr":         ":8080",
			"cors_origins": []any{"*"},
		},
		"storage": map[string]any{
			"path": filepath.Join(".pathwise", "pathwise.db"),
		},
		"telemetry": map[string]any{
			"enabled":       false,
			"otlp_endpoint": "localhost:4317",
			"service_name":  "pathwise",
		},
		"retention": map[string]any{
			"keep_days": 30,
		},
	}
}

// Validate checks semantic constraints the schema cannot express.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "vertex", "openai":
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be > 0")
	}
	if c.Crawl.MaxPages <= 0 {
		return fmt.Errorf("crawl.max_pages must be > 0")
	}
	if c.Crawl.PollInterval <= 0 {
		return fmt.Errorf("crawl.poll_interval must be > 0")
	}
	if c.Crawl.MaxAttempts <= 0 {
		return fmt.Errorf("crawl.max_attempts must be > 0")
	}
	if c.Crawl.Concurrency <= 0 {
		return fmt.Errorf("crawl.concurrency must be > 0")
	}
	if c.Context.BudgetChars <= 0 {
		return fmt.Errorf("context.budget_chars must be > 0")
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be > 0")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	return nil
}
