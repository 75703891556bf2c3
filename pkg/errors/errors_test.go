package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFound("Chat", nil))

	assert.True(t, Is(err, CodeNotFound))
	assert.False(t, Is(err, CodeForbidden))
	assert.False(t, Is(context.Canceled, CodeNotFound))
	assert.False(t, Is(nil, CodeNotFound))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"validation", Validation("content is required"), CodeValidation, http.StatusBadRequest},
		{"not found", NotFound("Chat", nil), CodeNotFound, http.StatusNotFound},
		{"forbidden", Forbidden("nope", nil), CodeForbidden, http.StatusForbidden},
		{"unauthorized", Unauthorized("who", nil), CodeUnauthorized, http.StatusUnauthorized},
		{"conflict", Conflict("dup"), CodeConflict, http.StatusConflict},
		{"too many", TooManyRequests("slow down", time.Second), CodeTooManyRequests, http.StatusTooManyRequests},
		{"internal", Internal("boom", context.DeadlineExceeded), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
		})
	}
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "Chat not found", NotFound("Chat", nil).Message)
}

func TestUnwrapKeepsCause(t *testing.T) {
	err := Internal("Failed to add message", context.Canceled)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestRetryAfter(t *testing.T) {
	d, ok := RetryAfter(fmt.Errorf("send: %w", TooManyRequests("slow down", 5*time.Second)))
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, d)

	_, ok = RetryAfter(Forbidden("nope", nil))
	assert.False(t, ok)
}
