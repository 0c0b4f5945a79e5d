package llm

import (
	"context"
	"fmt"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged turn sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant returns an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Options tune a single completion call. Zero values use the client config.
type Options struct {
	Tier        ModelTier
	Temperature *float32
	MaxTokens   int32
	// JSON asks the provider to emit a JSON object.
	JSON bool
}

// Temperature is a helper for Options.Temperature.
func Temperature(t float32) *float32 { return &t }

// Client is an abstraction over LLM providers
type Client interface {
	// Complete sends the conversation and returns the generated text
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
	// GetModel returns the provider model name used for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}
