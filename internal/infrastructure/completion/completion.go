package completion

import (
	"fmt"
	"strings"

	"sulestate/internal/domain/service"
	"sulestate/pkg/config"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-1.5-flash"
)

// New returns the configured completer, or nil when no API key is set so the
// assistant can report NOT_CONFIGURED per request.
func New(cfg *config.Config) (service.TextCompleter, error) {
	if strings.TrimSpace(cfg.AIAPIKey) == "" {
		return nil, nil
	}

	model := strings.TrimSpace(cfg.AIModel)
	switch strings.ToLower(strings.TrimSpace(cfg.AIProvider)) {
	case "", ProviderOpenAI:
		if model == "" {
			model = DefaultOpenAIModel
		}
		return NewOpenAICompatCompleter(cfg.AIBaseURL, cfg.AIAPIKey, model), nil
	case ProviderGemini:
		if model == "" {
			model = DefaultGeminiModel
		}
		return NewGeminiCompleter(cfg.AIBaseURL, cfg.AIAPIKey, model)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}
