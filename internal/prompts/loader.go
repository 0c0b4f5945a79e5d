// Package prompts provides a loader for externalized LLM prompt templates.
// Each JSON file maps a prompt key to a system/user template pair and is
// embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jonathan/candidate-matcher/internal/llm"
)

//go:embed *.json
var promptFiles embed.FS

// Template is a system instruction and a user prompt with {{.Key}} placeholders.
type Template struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// Messages renders the template into the messages sent to the model.
func (t Template) Messages(data map[string]string) []llm.Message {
	var msgs []llm.Message
	if t.System != "" {
		msgs = append(msgs, llm.System(Format(t.System, data)))
	}
	return append(msgs, llm.User(Format(t.User, data)))
}

// cache stores parsed prompt files to avoid repeated JSON parsing
var (
	cache   = make(map[string]map[string]Template)
	cacheMu sync.RWMutex
)

// Get retrieves a prompt template by filename and key.
// The filename should not include the path (e.g., "matching.json").
func Get(filename, key string) (Template, error) {
	templates, err := loadFile(filename)
	if err != nil {
		return Template{}, err
	}

	tmpl, exists := templates[key]
	if !exists {
		return Template{}, fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	if strings.TrimSpace(tmpl.User) == "" {
		return Template{}, fmt.Errorf("prompt %q in %s has no user template", key, filename)
	}

	return tmpl, nil
}

// MustGet retrieves a prompt template, panicking if not found.
// Use this for prompts that ship with the binary.
func MustGet(filename, key string) Template {
	tmpl, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return tmpl
}

// Format replaces template placeholders in the form {{.Key}} with values from data.
// Unknown placeholders are left untouched.
func Format(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// loadFile loads and caches a prompt file.
func loadFile(filename string) (map[string]Template, error) {
	cacheMu.RLock()
	if templates, exists := cache[filename]; exists {
		cacheMu.RUnlock()
		return templates, nil
	}
	cacheMu.RUnlock()

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var templates map[string]Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	cacheMu.Lock()
	cache[filename] = templates
	cacheMu.Unlock()

	return templates, nil
}

// ClearCache clears the prompt cache. Useful for testing.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]map[string]Template)
	cacheMu.Unlock()
}

// List returns the prompt keys of a file in sorted order.
func List(filename string) ([]string, error) {
	templates, err := loadFile(filename)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(templates))
	for key := range templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
