package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-analysis-go/internal/logger"
	"media-analysis-go/internal/types"
)

func completionBody(content string, prompt, completion int) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
		"usage": map[string]int{
			"prompt_tokens":     prompt,
			"completion_tokens": completion,
		},
	}
}

func TestInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		var req struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "segmenter-v1", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)
		json.NewEncoder(w).Encode(completionBody(`{"answer":true}`, 120, 15))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret", "segmenter-v1", logger.New().WithStage("test", "uuid"))
	result, err := client.Invoke(context.Background(), []Message{
		{Role: RoleSystem, Content: "system"},
		{Role: RoleUser, Content: "user"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"answer":true}`, result.Text)
	assert.Equal(t, types.Usage{InputTokens: 120, OutputTokens: 15}, result.Usage)
}

func TestInvokeRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(completionBody("ok", 1, 1))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", "m", logger.New().WithStage("test", "uuid"))
	result, err := client.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestInvokeRejectionNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", "m", logger.New().WithStage("test", "uuid"))
	_, err := client.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestInvokeNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", "m", logger.New().WithStage("test", "uuid"))
	// a decodable-but-empty response is retried; bound the test run
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := client.Invoke(ctx, []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestMockClient(t *testing.T) {
	client := NewMockClient(logger.New().WithStage("test", "uuid"))
	result, err := client.Invoke(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Contains(t, result.Text, `"chapters"`)
}

func TestInvokeUnconfigured(t *testing.T) {
	client := NewHTTPClient("", "", "m", logger.New().WithStage("test", "uuid"))
	_, err := client.Invoke(context.Background(), nil)
	require.Error(t, err)
}
