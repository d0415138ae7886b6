package llm

import (
	"context"
	"fmt"
	"net/http"

	"TrendingDigest/internal/config"
	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/ports"
)

// New selects the adapter for cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (ports.TextGenerator, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg, httpClient)
	case config.ProviderOpenRouter:
		return NewOpenRouterClient(cfg, httpClient)
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, httpClient)
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", domain.ErrClientInit, cfg.Provider)
	}
}
