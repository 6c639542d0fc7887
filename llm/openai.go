package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taskforge/taskforge/types"
)

const openAIResponsesURL = "https://api.openai.com/v1/responses"

// OpenAIProvider implements Provider against the OpenAI Responses API
// over raw net/http.
type OpenAIProvider struct {
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewOpenAIProvider creates an OpenAIProvider. The model is the default
// for calls that do not override it via options.
func NewOpenAIProvider(apiKey, model string, timeout time.Duration) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, types.NewConfigurationError("llm.apiKey", "OpenAI API key is not set")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// openAIResponse is the subset of the Responses API payload we consume.
type openAIResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Text    string `json:"text"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends a single prompt and returns the raw text plus usage.
// Malformed output is returned as-is; no automatic regeneration happens
// here, since a retry means paying the generation cost again.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts types.GenerateOptions) (*types.GenerateResult, error) {
	model := opts.Model
	if model == "" {
		model = p.model
	}

	payload := map[string]any{
		"model": model,
		"input": []map[string]any{
			{
				"role":    "user",
				"content": []map[string]any{{"type": "input_text", "text": prompt}},
			},
		},
	}
	if opts.MaxTokens > 0 {
		payload["max_output_tokens"] = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		payload["temperature"] = opts.Temperature
	}
	if opts.JSONOnly {
		payload["text"] = map[string]any{
			"format": map[string]any{"type": "json_object"},
		}
	}

	raw, err := p.send(ctx, payload)
	if err != nil {
		// One retry with a reduced token cap when the request timed out:
		// a smaller completion often finishes inside the window.
		if isTimeout(err) && opts.MaxTokens != 1024 {
			payload["max_output_tokens"] = 1024
			raw, err = p.send(ctx, payload)
		}
		if err != nil {
			return nil, types.NewServiceCallError("openai.generate", err)
		}
	}

	var resp openAIResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, types.NewParseError(string(raw), err)
	}
	if resp.Error != nil {
		return nil, types.NewServiceCallError("openai.generate", fmt.Errorf("%s", resp.Error.Message))
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, types.NewParseError(string(raw), fmt.Errorf("response contains no output text"))
	}

	return &types.GenerateResult{
		Text:  text,
		Model: model,
		Usage: &types.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}

func (p *OpenAIProvider) send(ctx context.Context, payload map[string]any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIResponsesURL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API error (%s): %s", resp.Status, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

// extractText pulls the completion text out of the Responses API shapes:
// aggregated output_text first, then the output array.
func extractText(resp openAIResponse) string {
	if strings.TrimSpace(resp.OutputText) != "" {
		return resp.OutputText
	}
	for _, out := range resp.Output {
		if out.Type == "text" && out.Text != "" {
			return out.Text
		}
		if out.Type == "message" {
			for _, c := range out.Content {
				if c.Text != "" {
					return c.Text
				}
			}
		}
	}
	return ""
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "context deadline exceeded") || strings.Contains(msg, "Client.Timeout exceeded")
}
