package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		msgs := req["messages"].([]any)
		first := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])

		json.NewEncoder(w).Encode(map[string]any{
			"model": "test-model",
			"choices": []map[string]any{
				{"message": map[string]any{"content": "پاسخ آزمایشی"}},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 5},
		})
	}))
	defer srv.Close()

	c := NewGroqClient(GroqConfig{APIKey: "gsk-test", Model: "test-model", BaseURL: srv.URL})

	resp, err := c.Complete(context.Background(), CompletionRequest{
		System:   "You are a travel agent.",
		Messages: []Message{{Role: RoleUser, Content: "سلام"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "پاسخ آزمایشی", resp.Content)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 5, resp.Usage.OutputTokens)
}

func TestGroqCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewGroqClient(GroqConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "groq", perr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, perr.Code)
}

func TestGroqCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := NewGroqClient(GroqConfig{APIKey: "k", Model: "m", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Message, "empty choices")
}

func TestGroqCompleteConnectionRefused(t *testing.T) {
	c := NewGroqClient(GroqConfig{APIKey: "k", Model: "m", BaseURL: "http://127.0.0.1:1"})

	_, err := c.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
