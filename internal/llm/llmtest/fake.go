// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/jonathan/candidate-matcher/internal/llm"
)

// ErrNoReply is returned when the fake has nothing scripted for a call.
var ErrNoReply = errors.New("llmtest: no scripted reply")

// Call records one Complete invocation.
type Call struct {
	Messages []llm.Message
	Options  llm.Options
}

// Prompt returns the content of the final message.
func (c Call) Prompt() string {
	if len(c.Messages) == 0 {
		return ""
	}
	return c.Messages[len(c.Messages)-1].Content
}

// Fake is an llm.Client whose replies are chosen by a handler.
type Fake struct {
	mu      sync.Mutex
	calls   []Call
	Handler func(call Call) (string, error)
}

// Reply returns a fake that always answers with text.
func Reply(text string) *Fake {
	return &Fake{Handler: func(Call) (string, error) { return text, nil }}
}

// Fail returns a fake that always fails with err.
func Fail(err error) *Fake {
	return &Fake{Handler: func(Call) (string, error) { return "", err }}
}

// ByKeyword answers with the reply whose key appears in the call's messages.
// Keys are tried in sorted order. Unmatched calls fail with ErrNoReply.
func ByKeyword(replies map[string]string) *Fake {
	keys := make([]string, 0, len(replies))
	for key := range replies {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return &Fake{Handler: func(call Call) (string, error) {
		var sb strings.Builder
		for _, m := range call.Messages {
			sb.WriteString(m.Content)
			sb.WriteString("\n")
		}
		all := sb.String()
		for _, key := range keys {
			if strings.Contains(all, key) {
				return replies[key], nil
			}
		}
		return "", ErrNoReply
	}}
}

// Complete implements llm.Client.
func (f *Fake) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	call := Call{Messages: append([]llm.Message(nil), messages...), Options: opts}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Handler == nil {
		return "", ErrNoReply
	}
	return f.Handler(call)
}

// GetModel implements llm.Client.
func (f *Fake) GetModel(tier llm.ModelTier) string { return "fake-" + string(tier) }

// Close implements llm.Client.
func (f *Fake) Close() error { return nil }

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
