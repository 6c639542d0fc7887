package llm

import (
	"context"
	"os"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/taskforge/taskforge/types"
)

// EinoProvider adapts a CloudWeGo Eino chat model to the Provider
// contract, giving the engine anthropic/gemini/ollama backends without
// provider-specific transport code.
type EinoProvider struct {
	chatModel model.BaseChatModel
	model     string
}

// NewEinoProvider wraps an already-constructed chat model.
func NewEinoProvider(chatModel model.BaseChatModel, modelName string) *EinoProvider {
	return &EinoProvider{chatModel: chatModel, model: modelName}
}

// Generate sends the prompt as a single user message. JSON-only calls
// rely on the appended instruction; Eino backends have no uniform
// response-format knob, and the caller repairs output anyway.
func (p *EinoProvider) Generate(ctx context.Context, prompt string, opts types.GenerateOptions) (*types.GenerateResult, error) {
	if opts.JSONOnly {
		prompt += "\n\nRespond with valid JSON only. No markdown, no prose."
	}

	resp, err := p.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return nil, types.NewServiceCallError("eino.generate", err)
	}

	result := &types.GenerateResult{Text: resp.Content, Model: p.model}
	if meta := resp.ResponseMeta; meta != nil && meta.Usage != nil {
		result.Usage = &types.Usage{
			InputTokens:  meta.Usage.PromptTokens,
			OutputTokens: meta.Usage.CompletionTokens,
		}
	}
	return result, nil
}

// newChatModel constructs the Eino chat model for a provider config.
func newChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, types.NewConfigurationError("llm.apiKey", "OpenAI API key is required")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			Model:  cfg.Model,
			APIKey: cfg.APIKey,
		})

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, types.NewConfigurationError("llm.apiKey", "Anthropic API key is required")
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		})

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, types.NewConfigurationError("llm.apiKey", "Gemini API key is required")
		}
		// The gemini extension reads credentials from the environment.
		_ = os.Setenv("GOOGLE_API_KEY", cfg.APIKey)
		_ = os.Setenv("GEMINI_API_KEY", cfg.APIKey)
		return gemini.NewChatModel(ctx, &gemini.Config{
			Model: cfg.Model,
		})

	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   cfg.Model,
		})

	default:
		return nil, types.NewConfigurationError("llm.provider", "unsupported LLM provider: "+string(cfg.Provider))
	}
}
