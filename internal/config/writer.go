package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Writer persists configuration values to a YAML file through an afero
// filesystem, so tests run against an in-memory fs.
type Writer struct {
	fs   afero.Fs
	path string
}

// NewWriter creates a config writer for the given file path. A nil fs
// uses the real OS filesystem.
func NewWriter(fs afero.Fs, path string) *Writer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Writer{fs: fs, path: path}
}

// Load reads the current config document, returning an empty document
// when the file does not exist yet.
func (w *Writer) Load() (map[string]any, error) {
	exists, err := afero.Exists(w.fs, w.path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return map[string]any{}, nil
	}
	raw, err := afero.ReadFile(w.fs, w.path)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", w.path, err)
	}
	return doc, nil
}

// Set writes one dotted-path value (e.g. "llm.model") into the config
// file, creating intermediate maps and the file itself as needed.
func (w *Writer) Set(key string, value any) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("config key cannot be empty")
	}
	doc, err := w.Load()
	if err != nil {
		return err
	}
	setPath(doc, strings.Split(key, "."), value)
	return w.save(doc)
}

// SaveLLM persists provider, model and API key in one write. The key is
// optional; Ollama needs none.
func (w *Writer) SaveLLM(provider, model, apiKey string) error {
	if provider == "" {
		return fmt.Errorf("provider cannot be empty")
	}
	doc, err := w.Load()
	if err != nil {
		return err
	}
	setPath(doc, []string{"llm", "provider"}, provider)
	if model != "" {
		setPath(doc, []string{"llm", "model"}, model)
	}
	if apiKey != "" {
		setPath(doc, []string{"llm", "apiKeys", provider}, apiKey)
	}
	return w.save(doc)
}

func (w *Writer) save(doc map[string]any) error {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(w.path); dir != "." {
		if err := w.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	// 0600: the file may hold API keys.
	return afero.WriteFile(w.fs, w.path, raw, 0o600)
}

// setPath walks/creates nested maps along the path and sets the leaf.
func setPath(doc map[string]any, path []string, value any) {
	cur := doc
	for _, part := range path[:len(path)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}
