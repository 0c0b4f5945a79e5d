package llm

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
		}},
	}
}

func newTestClient(send sendFunc) *GeminiClient {
	return &GeminiClient{config: DefaultConfig(), log: zap.NewNop(), send: send}
}

func TestSplitConversation(t *testing.T) {
	system, history, prompt, err := splitConversation([]Message{
		System("You are an HR analyst."),
		User("first question"),
		Assistant("first answer"),
		User("follow-up"),
	})
	require.NoError(t, err)

	assert.Equal(t, "You are an HR analyst.", system)
	assert.Equal(t, "follow-up", prompt)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
}

func TestSplitConversation_Errors(t *testing.T) {
	_, _, _, err := splitConversation(nil)
	assert.Error(t, err)

	_, _, _, err = splitConversation([]Message{System("only system")})
	assert.Error(t, err)

	_, _, _, err = splitConversation([]Message{{Role: "tool", Content: "x"}, User("y")})
	assert.Error(t, err)
}

func TestComplete_ReturnsText(t *testing.T) {
	var gotPrompt string
	client := newTestClient(func(_ context.Context, _ *genai.GenerativeModel, _ []*genai.Content, prompt string) (*genai.GenerateContentResponse, error) {
		gotPrompt = prompt
		return textResponse("  a profile summary  "), nil
	})

	out, err := client.Complete(context.Background(), []Message{System("s"), User("summarize")}, Options{Tier: TierLite})
	require.NoError(t, err)
	assert.Equal(t, "a profile summary", out)
	assert.Equal(t, "summarize", gotPrompt)
}

func TestComplete_JSONModeCleansFences(t *testing.T) {
	client := newTestClient(func(_ context.Context, model *genai.GenerativeModel, _ []*genai.Content, _ string) (*genai.GenerateContentResponse, error) {
		assert.Equal(t, "application/json", model.ResponseMIMEType)
		return textResponse("```json\n{\"ok\": true}\n```"), nil
	})

	out, err := client.Complete(context.Background(), []Message{User("x")}, Options{JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, out)
}

func TestComplete_RetriesTransientErrors(t *testing.T) {
	originalSleep := sleep
	var delays []time.Duration
	sleep = func(d time.Duration) { delays = append(delays, d) }
	defer func() { sleep = originalSleep }()

	calls := 0
	client := newTestClient(func(context.Context, *genai.GenerativeModel, []*genai.Content, string) (*genai.GenerateContentResponse, error) {
		calls++
		if calls < 3 {
			return nil, &googleapi.Error{Code: http.StatusServiceUnavailable}
		}
		return textResponse("retry ok"), nil
	})

	out, err := client.Complete(context.Background(), []Message{User("x")}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "retry ok", out)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{baseRetryDelay, 2 * baseRetryDelay}, delays)
}

func TestComplete_DoesNotRetryClientErrors(t *testing.T) {
	originalSleep := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = originalSleep }()

	calls := 0
	client := newTestClient(func(context.Context, *genai.GenerativeModel, []*genai.Content, string) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, &googleapi.Error{Code: http.StatusBadRequest}
	})

	_, err := client.Complete(context.Background(), []Message{User("x")}, Options{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestComplete_GivesUpAfterMaxRetries(t *testing.T) {
	originalSleep := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = originalSleep }()

	calls := 0
	client := newTestClient(func(context.Context, *genai.GenerativeModel, []*genai.Content, string) (*genai.GenerateContentResponse, error) {
		calls++
		return nil, &googleapi.Error{Code: http.StatusTooManyRequests}
	})

	_, err := client.Complete(context.Background(), []Message{User("x")}, Options{})
	require.Error(t, err)
	assert.Equal(t, DefaultConfig().MaxRetries+1, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&googleapi.Error{Code: 500}))
	assert.True(t, isRetryable(&googleapi.Error{Code: 429}))
	assert.False(t, isRetryable(&googleapi.Error{Code: 404}))
	assert.False(t, isRetryable(errors.New("boom")))
}

func TestExtractTextFromResponse(t *testing.T) {
	_, err := extractTextFromResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)

	_, err = extractTextFromResponse(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}})
	assert.Error(t, err)

	text, err := extractTextFromResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("a"), genai.Text("b")}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ab", text)
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	_, err := NewGeminiClient(context.Background(), DefaultConfig(), " ")
	assert.Error(t, err)
}
