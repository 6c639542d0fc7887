package config

import (
	"testing"

	"github.com/spf13/afero"
)

func TestWriter_SetCreatesFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, ".taskforge/taskforge.yml")

	if err := w.Set("llm.model", "gpt-4o-mini"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	doc, err := w.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	llmSection, ok := doc["llm"].(map[string]any)
	if !ok {
		t.Fatalf("llm section missing: %+v", doc)
	}
	if llmSection["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v, want gpt-4o-mini", llmSection["model"])
	}

	info, err := fs.Stat(".taskforge/taskforge.yml")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600 (file may hold API keys)", info.Mode().Perm())
	}
}

func TestWriter_SetPreservesExistingKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "taskforge.yml")

	if err := w.Set("llm.provider", "anthropic"); err != nil {
		t.Fatalf("Set provider: %v", err)
	}
	if err := w.Set("llm.model", "claude-haiku-4.5"); err != nil {
		t.Fatalf("Set model: %v", err)
	}

	doc, _ := w.Load()
	llmSection := doc["llm"].(map[string]any)
	if llmSection["provider"] != "anthropic" || llmSection["model"] != "claude-haiku-4.5" {
		t.Errorf("second Set clobbered the first: %+v", llmSection)
	}
}

func TestWriter_SaveLLM(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := NewWriter(fs, "taskforge.yml")

	if err := w.SaveLLM("openai", "gpt-4o-mini", "sk-test: with#special"); err != nil {
		t.Fatalf("SaveLLM: %v", err)
	}

	doc, _ := w.Load()
	llmSection := doc["llm"].(map[string]any)
	keys := llmSection["apiKeys"].(map[string]any)
	if keys["openai"] != "sk-test: with#special" {
		t.Errorf("apiKey round-trip = %v", keys["openai"])
	}
}

func TestWriter_SaveLLM_EmptyProvider(t *testing.T) {
	w := NewWriter(afero.NewMemMapFs(), "taskforge.yml")
	if err := w.SaveLLM("", "m", "k"); err == nil {
		t.Error("expected error for empty provider")
	}
}

func TestWriter_SetEmptyKey(t *testing.T) {
	w := NewWriter(afero.NewMemMapFs(), "taskforge.yml")
	if err := w.Set("  ", 1); err == nil {
		t.Error("expected error for empty key")
	}
}
