package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{"all parts", &Error{Code: CodeRetrieval, Op: "matching.Search", Message: "index unavailable", Err: cause}, "matching.Search: index unavailable: connection refused"},
		{"op and message", &Error{Op: "db.Get", Message: "not found"}, "db.Get: not found"},
		{"op and cause", &Error{Op: "db.Get", Err: cause}, "db.Get: connection refused"},
		{"message only", &Error{Message: "bad input"}, "bad input"},
		{"code only", &Error{Code: CodeInternal}, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestIsCode_ThroughWrapping(t *testing.T) {
	base := E(CodeNotFound, "store.Get", "conversation not found", nil)
	wrapped := fmt.Errorf("loading conversation: %w", base)

	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(wrapped, CodeRetrieval))
	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := E(CodeRetrieval, "op", "msg", cause)
	assert.ErrorIs(t, err, cause)
}

func TestNotFound(t *testing.T) {
	err := NotFound("store.GetCandidate", "candidate", 42)
	assert.True(t, IsCode(err, CodeNotFound))
	assert.Equal(t, "store.GetCandidate: candidate not found: 42", err.Error())
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "pick one", UserMessage(E(CodeInvalidArgument, "op", "pick one", nil), "fallback"))
	assert.Equal(t, "fallback", UserMessage(errors.New("x"), "fallback"))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeContextReconstruction, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeInvalidState, http.StatusConflict},
		{CodeRetrieval, http.StatusServiceUnavailable},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeGeneration, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(E(tt.code, "op", "msg", nil)))
		})
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
}
