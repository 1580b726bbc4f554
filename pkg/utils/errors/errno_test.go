package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrnoIs(t *testing.T) {
	wrapped := ErrSourceUnavailable.WithCause(fmt.Errorf("dial tcp: connection refused"))

	assert.True(t, errors.Is(wrapped, ErrSourceUnavailable))
	assert.False(t, errors.Is(wrapped, ErrLLMUnavailable))
}

func TestErrnoUnwrap(t *testing.T) {
	cause := fmt.Errorf("status 503")
	err := ErrEmbeddingUnavailable.WithCause(cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Contains(t, err.Error(), "status 503")
}

func TestWithMessageKeepsCode(t *testing.T) {
	err := ErrInvalidParam.WithMessage("count must be positive")

	assert.Equal(t, ErrInvalidParam.Code, err.Code)
	assert.Equal(t, "count must be positive", err.MessageEN)
	// The original value must not be mutated.
	assert.Equal(t, "Invalid parameter", ErrInvalidParam.MessageEN)
}

func TestMessageLanguage(t *testing.T) {
	assert.Equal(t, "会话不存在", ErrSessionNotFound.Message("zh-CN"))
	assert.Equal(t, "Session not found", ErrSessionNotFound.Message("en"))
}

func TestHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		err  *Errno
		want int
	}{
		{ErrSourceUnavailable, http.StatusBadGateway},
		{ErrInsufficientContent, http.StatusUnprocessableEntity},
		{ErrNoActiveSession, http.StatusConflict},
		{ErrInvalidParam, http.StatusBadRequest},
		{ErrInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus(), "code %d", tt.err.Code)
	}
}

func TestMakeCodeRoundTrip(t *testing.T) {
	code := MakeCode(ServiceQuiz, CategoryResource, 7)
	svc, cat, seq := ParseCode(code)

	assert.Equal(t, ServiceQuiz, svc)
	assert.Equal(t, CategoryResource, cat)
	assert.Equal(t, 7, seq)
	assert.True(t, IsClientError(code))
	assert.False(t, IsServerError(code))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	en := FromError(fmt.Errorf("query failed: %w", ErrVectorStore))
	assert.Equal(t, ErrVectorStore.Code, en.Code)

	plain := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Contains(t, plain.Error(), "boom")
}
