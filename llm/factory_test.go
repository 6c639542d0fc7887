package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskforge/taskforge/types"
)

func TestValidateProvider(t *testing.T) {
	for _, valid := range []string{"openai", "anthropic", "gemini", "ollama"} {
		if _, err := ValidateProvider(valid); err != nil {
			t.Errorf("ValidateProvider(%q) unexpected error: %v", valid, err)
		}
	}

	_, err := ValidateProvider("watson")
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
	var cfgErr *types.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %T", err)
	}
}

func TestDefaultModelForProvider(t *testing.T) {
	tests := []struct {
		provider ProviderName
		want     string
	}{
		{ProviderOpenAI, DefaultOpenAIModel},
		{ProviderAnthropic, DefaultClaudeModel},
		{ProviderGemini, DefaultGeminiModel},
		{ProviderOllama, DefaultOllamaModel},
		{ProviderName("nope"), ""},
	}
	for _, tc := range tests {
		if got := DefaultModelForProvider(tc.provider); got != tc.want {
			t.Errorf("DefaultModelForProvider(%s) = %q, want %q", tc.provider, got, tc.want)
		}
	}
}

func TestNewProvider_MissingKeyIsConfigurationError(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Provider: ProviderOpenAI, Timeout: time.Second})
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	var cfgErr *types.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %T: %v", err, err)
	}
}

func TestNewOpenAIProvider_Defaults(t *testing.T) {
	p, err := NewOpenAIProvider("sk-test", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.model != DefaultOpenAIModel {
		t.Errorf("model = %q, want default %q", p.model, DefaultOpenAIModel)
	}
	if p.timeout != 60*time.Second {
		t.Errorf("timeout = %v, want 60s", p.timeout)
	}
}
