package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/mikeboe/sitechat/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/openai"
)

func TestOpenAIEmbedderRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text-embedding-ada-002", body.Model)

		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"text-embedding-ada-002"}`))
	}))
	defer srv.Close()

	base, err := NewOpenAIEmbedder("text-embedding-ada-002", "sk-test", 3, openai.WithBaseURL(srv.URL))
	require.NoError(t, err)
	e := NewRetrying(base, fastPolicy(3))

	vec, err := e.EmbedText(context.Background(), "line one\nline two")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.EqualValues(t, 2, calls.Load())
}

func TestOpenAIEmbedderPermanentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key"}}`))
	}))
	defer srv.Close()

	base, err := NewOpenAIEmbedder("text-embedding-ada-002", "sk-bad", 3, openai.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = NewRetrying(base, fastPolicy(5)).EmbedText(context.Background(), "x")

	require.Error(t, err)
	assert.NotErrorIs(t, err, retry.ErrExhausted)
	assert.Contains(t, err.Error(), "401")
}
