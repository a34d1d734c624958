package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/metalagman/pathwise/internal/llm/openaiapi"
	"github.com/metalagman/pathwise/internal/model"
)

// Provider names accepted in configuration.
const (
	ProviderGemini = "gemini"
	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"
)

// Provider is a completion backend that can also emit JSON documents.
type Provider interface {
	Complete(ctx context.Context, history []model.Turn, useGrounding bool) (model.Completion, error)
	GenerateJSON(ctx context.Context, instructions, input string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	APIKeyEnv string
	BaseURL   string
	Project   string
	Location  string
	Timeout   time.Duration
}

// NewProvider builds the provider named by cfg.Provider. httpClient may be nil.
func NewProvider(ctx context.Context, cfg Config, httpClient *http.Client) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini, ProviderVertex:
		vertex := strings.EqualFold(strings.TrimSpace(cfg.Provider), ProviderVertex)
		c, err := NewGeminiClient(ctx, GeminiConfig{
			Model:     cfg.Model,
			Vertex:    vertex,
			APIKey:    cfg.APIKey,
			APIKeyEnv: cfg.APIKeyEnv,
			Project:   cfg.Project,
			Location:  cfg.Location,
			BaseURL:   cfg.BaseURL,
			Timeout:   cfg.Timeout,
		}, httpClient)
		if err != nil {
			return nil, err
		}
		return c, nil
	case ProviderOpenAI:
		c, err := openaiapi.NewClient(openaiapi.Config{
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey,
			APIKeyEnv: cfg.APIKeyEnv,
			Timeout:   cfg.Timeout,
		}, httpClient)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}
