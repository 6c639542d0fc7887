// Package config centralizes configuration loading and persistence:
// Viper-backed precedence (explicit config > environment > defaults)
// and a YAML config writer.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/taskforge/taskforge/llm"
)

const (
	// EnvPrefix namespaces environment overrides (TASKFORGE_LLM_MODEL etc).
	EnvPrefix = "TASKFORGE"

	// ConfigFileName is the project-local config file.
	ConfigFileName = "taskforge"
)

// LoadLLMConfig assembles the provider configuration from Viper and the
// environment. Precedence: explicit config > environment > defaults. A
// missing API key is not an error here; the factory reports it when the
// provider actually requires one.
func LoadLLMConfig() (llm.Config, error) {
	provider := viper.GetString("llm.provider")
	if provider == "" {
		provider = string(llm.DefaultProvider)
	}
	name, err := llm.ValidateProvider(provider)
	if err != nil {
		return llm.Config{}, fmt.Errorf("invalid provider: %w", err)
	}

	model := viper.GetString("llm.model")
	if model == "" {
		model = llm.DefaultModelForProvider(name)
	}

	baseURL := viper.GetString("llm.baseURL")
	if baseURL == "" && name == llm.ProviderOllama {
		baseURL = llm.DefaultOllamaURL
	}

	return llm.Config{
		Provider: name,
		Model:    model,
		APIKey:   ResolveAPIKey(name),
		BaseURL:  baseURL,
		Timeout:  viper.GetDuration("llm.timeout"),
	}, nil
}

// ResolveAPIKey returns the best API key for the provider: the
// per-provider config key first, then the provider's environment
// variable.
func ResolveAPIKey(provider llm.ProviderName) string {
	path := fmt.Sprintf("llm.apiKeys.%s", provider)
	if viper.IsSet(path) {
		if key := strings.TrimSpace(viper.GetString(path)); key != "" {
			return key
		}
	}
	return providerEnvKey(provider)
}

func providerEnvKey(provider llm.ProviderName) string {
	switch provider {
	case llm.ProviderOpenAI:
		return strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	case llm.ProviderAnthropic:
		return strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	case llm.ProviderGemini:
		key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		if key == "" {
			key = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
		}
		return key
	default:
		return ""
	}
}
