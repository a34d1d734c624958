// Package llm adapts hosted text-generation models to the orchestrator's completion contract.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/metalagman/pathwise/internal/model"
	"google.golang.org/genai"
)

const (
	defaultGeminiModel     = "gemini-2.5-flash"
	defaultGeminiAPIKeyEnv = "GEMINI_API_KEY"
	defaultTimeout         = 60 * time.Second
)

// GeminiConfig configures a Gemini API or Vertex AI backed client.
type GeminiConfig struct {
	Model     string
	Vertex    bool
	APIKey    string
	APIKeyEnv string
	Project   string
	Location  string
	BaseURL   string
	Timeout   time.Duration
}

// GeminiClient completes conversations with genai, optionally grounded in Google Search.
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiClient constructs a client. httpClient may be nil.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, httpClient *http.Client) (*GeminiClient, error) {
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = defaultGeminiModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cc := &genai.ClientConfig{HTTPClient: httpClient}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	if cfg.Vertex {
		if cfg.Project == "" || cfg.Location == "" {
			return nil, fmt.Errorf("vertex backend requires project and location")
		}
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	} else {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			envKey := strings.TrimSpace(cfg.APIKeyEnv)
			if envKey == "" {
				envKey = defaultGeminiAPIKeyEnv
			}
			apiKey = strings.TrimSpace(os.Getenv(envKey))
		}
		if apiKey == "" {
			return nil, fmt.Errorf("gemini api key is required (set api_key or api_key_env)")
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = apiKey
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: modelName, timeout: timeout}, nil
}

// Complete sends history to the model. System turns become the system instruction.
// With useGrounding the model may consult Google Search and the reply carries its sources.
func (c *GeminiClient) Complete(ctx context.Context, history []model.Turn, useGrounding bool) (model.Completion, error) {
	system, contents := toContents(history)
	if len(contents) == 0 {
		return model.Completion{}, fmt.Errorf("%w: empty history", model.ErrCompletion)
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if useGrounding {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return model.Completion{}, fmt.Errorf("%w: gemini generate content: %v", model.ErrCompletion, err)
	}
	text := strings.TrimSpace(res.Text())
	if text == "" {
		return model.Completion{}, fmt.Errorf("%w: gemini returned empty text", model.ErrCompletion)
	}
	return model.Completion{Text: text, Citations: citations(res)}, nil
}

// GenerateJSON asks for a JSON document following instructions.
func (c *GeminiClient) GenerateJSON(ctx context.Context, instructions, input string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instructions, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate json: %w", err)
	}
	text := strings.TrimSpace(res.Text())
	if text == "" {
		return "", fmt.Errorf("gemini returned empty json")
	}
	return text, nil
}

func toContents(history []model.Turn) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		switch t.Role {
		case model.RoleSystem:
			if s := strings.TrimSpace(t.Content); s != "" {
				system = append(system, s)
			}
		case model.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}

func citations(res *genai.GenerateContentResponse) []model.Citation {
	if res == nil || len(res.Candidates) == 0 || res.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []model.Citation
	seen := make(map[string]struct{})
	for _, chunk := range res.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		if _, ok := seen[chunk.Web.URI]; ok {
			continue
		}
		seen[chunk.Web.URI] = struct{}{}
		out = append(out, model.Citation{URL: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return out
}
