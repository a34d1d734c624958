// Package openaiapi completes conversations through the OpenAI responses API.
package openaiapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/metalagman/pathwise/internal/model"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/rs/zerolog/log"
)

// Client wraps the OpenAI responses API.
type Client struct {
	cfg    Config
	client openai.Client
}

// NewClient constructs a new OpenAI API client.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		return nil, fmt.Errorf("openai model is required")
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		envKey := strings.TrimSpace(cfg.APIKeyEnv)
		if envKey == "" {
			envKey = defaultAPIKeyEnv
		}
		apiKey = strings.TrimSpace(os.Getenv(envKey))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required (set api_key or api_key_env)")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &Client{
		cfg:    Config{Model: modelName, BaseURL: baseURL, Timeout: timeout},
		client: openai.NewClient(opts...),
	}, nil
}

// Complete sends the conversation as a transcript. System turns become the
// instructions. Grounding is not available on this backend, so the reply
// never carries citations.
func (c *Client) Complete(ctx context.Context, history []model.Turn, useGrounding bool) (model.Completion, error) {
	if useGrounding {
		log.Debug().Str("model", c.cfg.Model).Msg("openai backend ignores grounding")
	}
	req := transcript(history)
	if strings.TrimSpace(req.Input) == "" {
		return model.Completion{}, fmt.Errorf("%w: empty history", model.ErrCompletion)
	}
	text, err := c.respond(ctx, req)
	if err != nil {
		return model.Completion{}, fmt.Errorf("%w: %v", model.ErrCompletion, err)
	}
	return model.Completion{Text: text}, nil
}

// GenerateJSON asks for a JSON document following instructions.
func (c *Client) GenerateJSON(ctx context.Context, instructions, input string) (string, error) {
	return c.respond(ctx, request{
		Instructions: instructions + "\nOutput only JSON.",
		Input:        input,
	})
}

func (c *Client) respond(ctx context.Context, req request) (string, error) {
	params := responses.ResponseNewParams{
		Model: c.cfg.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(req.Input),
		},
	}
	if req.Instructions != "" {
		params.Instructions = openai.String(req.Instructions)
	}
	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai responses.create: %w", err)
	}
	if msg := strings.TrimSpace(resp.Error.Message); msg != "" {
		return "", fmt.Errorf("openai response failed: %s", msg)
	}
	output := strings.TrimSpace(resp.OutputText())
	if output == "" {
		return "", fmt.Errorf("openai response did not contain output text")
	}
	return output, nil
}

// transcript flattens history into instructions plus a speaker-labelled input.
// A lone user turn is sent verbatim.
func transcript(history []model.Turn) request {
	var system []string
	var turns []model.Turn
	for _, t := range history {
		if t.Role == model.RoleSystem {
			system = append(system, t.Content)
			continue
		}
		turns = append(turns, t)
	}
	req := request{Instructions: strings.Join(system, "\n\n")}
	if len(turns) == 1 && turns[0].Role == model.RoleUser {
		req.Input = turns[0].Content
		return req
	}
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := "User"
		if t.Role == model.RoleAssistant {
			label = "Assistant"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(t.Content)
	}
	req.Input = b.String()
	return req
}
