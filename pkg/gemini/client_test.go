package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trueinf/geosight-new-sub000/internal/resilience"
)

func TestGenerateContent(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   string
		retryable bool
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body: `{
				"candidates": [{
					"content": {"role": "model", "parts": [{"text": "1. **Acme**"}, {"text": " - Great"}]},
					"finishReason": "STOP"
				}],
				"usageMetadata": {"promptTokenCount": 4, "candidatesTokenCount": 9},
				"modelVersion": "gemini-2.0-flash"
			}`,
		},
		{
			name:    "bad_request",
			status:  http.StatusBadRequest,
			body:    `{"error": {"code": 400, "message": "API key not valid"}}`,
			wantErr: "unexpected status 400",
		},
		{
			name:      "unavailable",
			status:    http.StatusServiceUnavailable,
			body:      `{"error": {"code": 503, "message": "overloaded"}}`,
			wantErr:   "unexpected status 503",
			retryable: true,
		},
		{
			name:    "malformed_response",
			status:  http.StatusOK,
			body:    `{"candidates": [`,
			wantErr: "unmarshal response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
				assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

				var req GenerateRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				if assert.Len(t, req.Contents, 1) {
					assert.Equal(t, "best shoes", req.Contents[0].Parts[0].Text)
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient("test-key", WithBaseURL(srv.URL))
			resp, err := client.GenerateContent(context.Background(), UserText("best shoes"))

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Equal(t, tt.status, resilience.StatusCode(err))
				assert.Equal(t, tt.retryable, resilience.IsRetryable(err))
				assert.Nil(t, resp)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "1. **Acme** - Great", resp.Text())
			assert.Equal(t, 9, resp.UsageMetadata.CandidatesTokenCount)
		})
	}
}

func TestGenerateContent_ModelInPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-pro:generateContent", r.URL.Path)
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL), WithModel("gemini-1.5-pro"))
	resp, err := client.GenerateContent(context.Background(), UserText("q"))
	require.NoError(t, err)
	assert.Empty(t, resp.Text())
}

func TestGenerateRequest_OmitsEmptyConfig(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(UserText("q"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"contents":[{"role":"user","parts":[{"text":"q"}]}]}`, string(b))
}
