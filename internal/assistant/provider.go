package assistant

import (
	"fmt"

	"github.com/nexahealth/triagebot/internal/config"
	"github.com/nexahealth/triagebot/pkg/gemini"
	"github.com/nexahealth/triagebot/pkg/llm"
	"github.com/nexahealth/triagebot/pkg/openai"
)

// NewClient builds the LLM client selected by AI_PROVIDER. It returns
// nil, nil when the provider has no API key so callers can run degraded.
func NewClient(cfg config.AI) (llm.Client, error) {
	if !cfg.Configured() {
		switch cfg.Provider {
		case config.ProviderGemini, config.ProviderOpenAI, config.ProviderDeepSeek:
			return nil, nil
		default:
			return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.Provider)
		}
	}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}), nil
	case config.ProviderDeepSeek:
		return openai.NewClient(openai.Config{
			APIKey:  cfg.DeepSeekKey,
			BaseURL: openai.DeepSeekBaseURL,
			Model:   cfg.DeepSeekModel,
		}), nil
	default:
		return gemini.NewHTTPClient(gemini.Config{
			APIKey:  cfg.GeminiAPIKey,
			Model:   cfg.GeminiModel,
			Timeout: cfg.Timeout,
		}), nil
	}
}
