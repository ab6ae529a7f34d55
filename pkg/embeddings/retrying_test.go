package embeddings

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mikeboe/sitechat/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{MaxAttempts: attempts, Delay: time.Millisecond}
}

func TestRetryingRecoversFromRateLimit(t *testing.T) {
	inner := &scriptedEmbedder{
		dim: 4,
		errs: []error{
			genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"},
			fmt.Errorf("failed to embed text: %w", genai.APIError{Code: 503}),
		},
	}
	e := NewRetrying(inner, fastPolicy(5))

	vec, err := e.EmbedText(context.Background(), "hello")

	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, 4, e.Dimension())
}

func TestRetryingExhausted(t *testing.T) {
	rateLimited := genai.APIError{Code: 429, Message: "quota"}
	inner := &scriptedEmbedder{dim: 4, errs: []error{rateLimited, rateLimited, rateLimited}}
	e := NewRetrying(inner, fastPolicy(3))

	_, err := e.EmbedText(context.Background(), "hello")

	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.Equal(t, 3, inner.calls)

	var apiErr genai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.Code)
}

func TestRetryingDoesNotRetryPermanentErrors(t *testing.T) {
	inner := &scriptedEmbedder{dim: 4, errs: []error{genai.APIError{Code: 400, Message: "bad request"}}}
	e := NewRetrying(inner, fastPolicy(5))

	_, err := e.EmbedText(context.Background(), "hello")

	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.NotErrorIs(t, err, retry.ErrExhausted)
}

func TestRetryingCallsUserHook(t *testing.T) {
	inner := &scriptedEmbedder{dim: 2, errs: []error{errors.New("rate limit exceeded")}}
	var attempts []int
	policy := fastPolicy(3)
	policy.OnRetry = func(next int, _ error) { attempts = append(attempts, next) }

	_, err := NewRetrying(inner, policy).EmbedText(context.Background(), "x")

	require.NoError(t, err)
	assert.Equal(t, []int{2}, attempts)
}

func TestRetryingRateLimit(t *testing.T) {
	inner := &scriptedEmbedder{dim: 2}
	e := NewRetrying(inner, fastPolicy(1), WithRateLimit(1000))
	require.NotNil(t, e.limiter)

	for i := 0; i < 3; i++ {
		_, err := e.EmbedText(context.Background(), "x")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, inner.calls)

	assert.Nil(t, NewRetrying(inner, fastPolicy(1), WithRateLimit(0)).limiter)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"genai 429", genai.APIError{Code: 429}, true},
		{"genai 500 wrapped", fmt.Errorf("embed: %w", genai.APIError{Code: 500}), true},
		{"genai 400", genai.APIError{Code: 400}, false},
		{"openai 429 message", errors.New("API returned unexpected status code: 429: Rate limit reached"), true},
		{"openai 401 message", errors.New("API returned unexpected status code: 401: invalid key"), false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
