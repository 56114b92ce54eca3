package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportkb/internal/domain"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, status int, body string, seen *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completion(content, finish string) string {
	data, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
	})
	return string(data)
}

func testClient(url string) *OpenAIClient {
	return newOpenAIClient("test-key", ClientConfig{
		BaseURL:     url + "/v1",
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   1500,
		Timeout:     5 * time.Second,
	}, nil)
}

func TestOpenAIClient_GenerateWithSystem(t *testing.T) {
	var seen chatRequest
	srv := chatServer(t, http.StatusOK, completion(`{"ok":true}`, "stop"), &seen)

	out, err := testClient(srv.URL).GenerateWithSystem(context.Background(), "system text", "user text")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, "gpt-4o-mini", seen.Model)
	assert.InDelta(t, 0.3, seen.Temperature, 1e-6)
	assert.Equal(t, 1500, seen.MaxTokens)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "system text", seen.Messages[0].Content)
	assert.Equal(t, "user text", seen.Messages[1].Content)
}

func TestOpenAIClient_Refusal(t *testing.T) {
	srv := chatServer(t, http.StatusOK, completion("", "content_filter"), nil)

	_, err := testClient(srv.URL).GenerateWithSystem(context.Background(), "s", "u")
	reason, ok := domain.ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonRefusal, reason)
}

func TestOpenAIClient_EmptyContent(t *testing.T) {
	srv := chatServer(t, http.StatusOK, completion("   ", "stop"), nil)

	_, err := testClient(srv.URL).GenerateWithSystem(context.Background(), "s", "u")
	reason, ok := domain.ReasonOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonEmpty, reason)
}

func TestOpenAIClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   domain.UnavailableReason
	}{
		{"auth", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`, domain.ReasonAuth},
		{"rate limit", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`, domain.ReasonRateLimit},
		{"quota", http.StatusTooManyRequests, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`, domain.ReasonLowBalance},
		{"credit balance", http.StatusBadRequest, `{"error":{"message":"Your credit balance is too low to access the API","type":"invalid_request_error"}}`, domain.ReasonLowBalance},
		{"model", http.StatusNotFound, `{"error":{"message":"The model does not exist","type":"invalid_request_error","code":"model_not_found"}}`, domain.ReasonModelNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.status, tt.body, nil)

			_, err := testClient(srv.URL).GenerateWithSystem(context.Background(), "s", "u")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrJudgmentUnavailable)
			reason, _ := domain.ReasonOf(err)
			assert.Equal(t, tt.want, reason)
		})
	}
}

func TestOpenAIClient_ServerErrorIsTransient(t *testing.T) {
	srv := chatServer(t, http.StatusBadGateway, `{"error":{"message":"upstream","type":"server_error"}}`, nil)

	_, err := testClient(srv.URL).GenerateWithSystem(context.Background(), "s", "u")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrJudgmentUnavailable))
}

func TestOpenAIClient_ContextCancelled(t *testing.T) {
	srv := chatServer(t, http.StatusOK, completion("{}", "stop"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).GenerateWithSystem(ctx, "s", "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, domain.ErrJudgmentUnavailable))
}
