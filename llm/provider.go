// Package llm provides the generative-text service contract and its
// implementations. The engine consumes the Provider interface only; the
// concrete transport (raw OpenAI HTTP or a CloudWeGo Eino chat model) is
// chosen by the factory.
package llm

import (
	"context"

	"github.com/taskforge/taskforge/types"
)

// Provider is the black-box generative-text contract: prompt in, text
// out, possibly with usage metadata. Implementations must not assume
// the service enforces any output schema; parsing and repair belong to
// the caller.
type Provider interface {
	Generate(ctx context.Context, prompt string, opts types.GenerateOptions) (*types.GenerateResult, error)
}

// ProviderName identifies a supported backend.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGemini    ProviderName = "gemini"
	ProviderOllama    ProviderName = "ollama"
)

// Defaults per provider.
const (
	DefaultProvider     = ProviderOpenAI
	DefaultOpenAIModel  = "gpt-4o-mini"
	DefaultClaudeModel  = "claude-haiku-4.5"
	DefaultGeminiModel  = "gemini-2.5-flash"
	DefaultOllamaModel  = "llama3.2"
	DefaultOllamaURL    = "http://localhost:11434"
)

// DefaultModelForProvider returns the default model for a provider.
func DefaultModelForProvider(p ProviderName) string {
	switch p {
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderAnthropic:
		return DefaultClaudeModel
	case ProviderGemini:
		return DefaultGeminiModel
	case ProviderOllama:
		return DefaultOllamaModel
	default:
		return ""
	}
}

// ValidateProvider checks if the given provider string is supported.
func ValidateProvider(p string) (ProviderName, error) {
	switch ProviderName(p) {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOllama:
		return ProviderName(p), nil
	default:
		return "", types.NewConfigurationError("llm.provider", "unsupported provider: "+p)
	}
}
