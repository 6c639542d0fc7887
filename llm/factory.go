package llm

import (
	"context"
	"time"
)

// Config holds configuration for creating a provider.
type Config struct {
	Provider ProviderName
	Model    string
	APIKey   string
	BaseURL  string // Ollama only
	Timeout  time.Duration
}

// NewProvider builds a Provider from config. OpenAI uses the raw
// Responses API transport; the other backends go through Eino chat
// models. Missing credentials surface as ConfigurationError with no
// fallback.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	provider, err := ValidateProvider(string(cfg.Provider))
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModelForProvider(provider)
	}

	if provider == ProviderOpenAI {
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Timeout)
	}

	chatModel, err := newChatModel(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewEinoProvider(chatModel, cfg.Model), nil
}
