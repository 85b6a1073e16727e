package providers

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/llm"
	"github.com/joseph-ayodele/clinical-docs/internal/llm/anthropic"
	"github.com/joseph-ayodele/clinical-docs/internal/llm/openai"
)

// NewGenerator creates the configured generation provider.
func NewGenerator(cfg common.LLMConfig, logger *slog.Logger) (llm.Generator, error) {
	switch cfg.Provider {
	case anthropic.ProviderName:
		return anthropic.NewClient(anthropic.Config{
			APIKey:        cfg.AnthropicAPIKey,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			Temperature:   cfg.Temperature,
			MaxTokens:     cfg.MaxTokens,
			Timeout:       cfg.Timeout,
			RatePerMinute: cfg.RatePerMinute,
		}, logger), nil
	case openai.ProviderName:
		return openai.NewClient(openai.Config{
			APIKey:        cfg.OpenAIAPIKey,
			BaseURL:       cfg.BaseURL,
			Model:         cfg.Model,
			Temperature:   cfg.Temperature,
			MaxTokens:     cfg.MaxTokens,
			Timeout:       cfg.Timeout,
			RatePerMinute: cfg.RatePerMinute,
		}, logger), nil
	case "":
		return nil, fmt.Errorf("llm provider not specified")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
