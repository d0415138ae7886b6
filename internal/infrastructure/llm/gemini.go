package llm

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"TrendingDigest/internal/config"
	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/ports"
)

// GeminiClient implements ports.TextGenerator on the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

var _ ports.TextGenerator = (*GeminiClient)(nil)

// ModelInfo describes one model visible to the credential.
type ModelInfo struct {
	Name             string
	SupportedActions []string
}

// NewGeminiClient builds the SDK client; httpClient carries the proxy setup.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini api key is required", domain.ErrClientInit)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	}
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create genai client: %v", domain.ErrClientInit, err)
	}

	return &GeminiClient{client: client, model: cfg.Model}, nil
}

// Generate sends prompt as a single user turn and returns the response text.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate %s: %w", c.model, err)
	}
	return resp.Text(), nil
}

// ListModels pages through every model the credential can see.
func (c *GeminiClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	for model, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list models: %w", err)
		}
		models = append(models, ModelInfo{Name: model.Name, SupportedActions: model.SupportedActions})
	}
	return models, nil
}
