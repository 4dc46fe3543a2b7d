package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trueinf/geosight-new-sub000/internal/resilience"
)

func completionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19},
	}
}

func TestChatCompletion(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completionBody("1. **Acme** - Great")) //nolint:errcheck
	}))
	defer ts.Close()

	temp := 0.2
	client := NewClient("test-key", WithBaseURL(ts.URL))
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{
		System:      "You rank things.",
		Prompt:      "best shoes",
		Temperature: &temp,
	})
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "1. **Acme** - Great", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, int64(7), resp.OutputTokens)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
	assert.InDelta(t, 0.2, got["temperature"], 1e-9)
	assert.NotContains(t, got, "max_tokens")
}

func TestChatCompletion_ModelOverride(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "gpt-4.1", got["model"])
		assert.Len(t, got["messages"], 1)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(completionBody("ok")) //nolint:errcheck
	}))
	defer ts.Close()

	client := NewClient("test-key", WithBaseURL(ts.URL), WithModel("gpt-4.1"))
	resp, err := client.ChatCompletion(context.Background(), ChatRequest{Prompt: "q"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

func TestChatCompletion_StatusClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{name: "server_error", status: http.StatusInternalServerError, retryable: true},
		{name: "timeout", status: http.StatusRequestTimeout, retryable: true},
		{name: "rate_limit", status: http.StatusTooManyRequests, retryable: false},
		{name: "unauthorized", status: http.StatusUnauthorized, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			}))
			defer ts.Close()

			client := NewClient("test-key", WithBaseURL(ts.URL))
			_, err := client.ChatCompletion(context.Background(), ChatRequest{Prompt: "q"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "openai: chat completion")
			assert.Equal(t, tt.status, resilience.StatusCode(err))
			assert.Equal(t, tt.retryable, resilience.IsRetryable(err))
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}
