package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/jonathan/candidate-matcher/internal/logger"
)

// sleep is swapped out in tests.
var sleep = time.Sleep

const baseRetryDelay = 500 * time.Millisecond

// sendFunc performs one generation request against a configured model.
type sendFunc func(ctx context.Context, model *genai.GenerativeModel, history []*genai.Content, prompt string) (*genai.GenerateContentResponse, error)

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
	log    *zap.Logger
	send   sendFunc
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
		log:    zap.NewNop(),
		send:   sendGemini,
	}, nil
}

// WithLogger attaches a logger for request previews and retry notices.
func (c *GeminiClient) WithLogger(l *zap.Logger) *GeminiClient {
	c.log = logger.Named(l, "llm")
	return c
}

// Complete generates a reply for the conversation. System messages become the
// system instruction, earlier turns become chat history and the final user
// message is sent.
func (c *GeminiClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	modelName := c.config.GetModel(opts.Tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", opts.Tier)
	}

	system, history, prompt, err := splitConversation(messages)
	if err != nil {
		return "", err
	}

	model := c.client.GenerativeModel(modelName)
	temperature := c.config.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	model.SetTemperature(temperature)
	maxTokens := c.config.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	if maxTokens > 0 {
		model.SetMaxOutputTokens(maxTokens)
	}
	if opts.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	log := c.log.With(zap.String(logger.FieldModel, modelName))
	log.Debug("sending completion",
		zap.Int("history", len(history)),
		zap.String("prompt_preview", logger.Truncate(prompt, 200)))

	var resp *genai.GenerateContentResponse
	for attempt := 0; ; attempt++ {
		resp, err = c.send(ctx, model, history, prompt)
		if err == nil {
			break
		}
		if attempt >= c.config.MaxRetries || !isRetryable(err) || ctx.Err() != nil {
			return "", fmt.Errorf("failed to generate content: %w", err)
		}
		delay := baseRetryDelay << attempt
		log.Warn("retrying completion", zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(err))
		sleep(delay)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	log.Debug("completion received", zap.String("response_preview", logger.Truncate(text, 200)))

	if opts.JSON {
		return CleanJSONBlock(text), nil
	}
	return strings.TrimSpace(text), nil
}

// GetModel returns the model name for a tier
func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// EmbeddingModel shares the client's connection with an embedding model.
func (c *GeminiClient) EmbeddingModel(model string) *genai.EmbeddingModel {
	return c.client.EmbeddingModel(model)
}

func sendGemini(ctx context.Context, model *genai.GenerativeModel, history []*genai.Content, prompt string) (*genai.GenerateContentResponse, error) {
	if len(history) == 0 {
		return model.GenerateContent(ctx, genai.Text(prompt))
	}
	session := model.StartChat()
	session.History = history
	return session.SendMessage(ctx, genai.Text(prompt))
}

// splitConversation separates system text, prior turns and the final user prompt.
func splitConversation(messages []Message) (string, []*genai.Content, string, error) {
	if len(messages) == 0 {
		return "", nil, "", fmt.Errorf("no messages to send")
	}
	last := messages[len(messages)-1]
	if last.Role != RoleUser {
		return "", nil, "", fmt.Errorf("last message must have role %q, got %q", RoleUser, last.Role)
	}

	var system []string
	var history []*genai.Content
	for _, m := range messages[:len(messages)-1] {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		case RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			return "", nil, "", fmt.Errorf("unknown message role %q", m.Role)
		}
	}
	return strings.Join(system, "\n\n"), history, last.Content, nil
}

// isRetryable reports whether err looks like a rate limit or a server-side failure.
func isRetryable(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return retryableStatus(gerr.Code)
	}
	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) {
		return retryableStatus(coded.HTTPCode())
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
