package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/revrost/go-openrouter"

	"TrendingDigest/internal/config"
	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/ports"
)

// OpenRouterClient implements ports.TextGenerator through OpenRouter.
type OpenRouterClient struct {
	client *openrouter.Client
	model  string
}

var _ ports.TextGenerator = (*OpenRouterClient)(nil)

// NewOpenRouterClient wires the OpenRouter SDK with the configured key.
// httpClient carries the proxy setup; nil keeps the SDK default.
func NewOpenRouterClient(cfg config.LLMConfig, httpClient *http.Client) (*OpenRouterClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openrouter api key is required", domain.ErrClientInit)
	}

	clientCfg := openrouter.DefaultConfig(cfg.APIKey)
	if httpClient != nil {
		clientCfg.HTTPClient = httpClient
	}
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenRouterClient{client: openrouter.NewClientWithConfig(*clientCfg), model: cfg.Model}, nil
}

// Generate sends prompt as a user message and returns the first choice.
func (c *OpenRouterClient) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := c.client.CreateChatCompletion(ctx, chatRequest(c.model, prompt))
	if err != nil {
		return "", fmt.Errorf("openrouter completion %s: %w", c.model, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openrouter completion %s: no choices returned", c.model)
	}
	return response.Choices[0].Message.Content.Text, nil
}

func chatRequest(model, prompt string) openrouter.ChatCompletionRequest {
	return openrouter.ChatCompletionRequest{
		Model: model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: prompt},
			},
		},
	}
}
