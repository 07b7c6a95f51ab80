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
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
	})
	return string(b)
}

func TestComplete(t *testing.T) {
	var got chatRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(completion(`{"candidate_name":"John Doe"}`)))
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL + "/v1/", APIKey: "secret"}, nil)
	out, err := c.Complete(context.Background(), "extract")
	require.NoError(t, err)
	assert.Equal(t, `{"candidate_name":"John Doe"}`, out)
	assert.Equal(t, DefaultModel, got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "extract", got.Messages[0].Content)
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(completion("ok")))
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, MaxRetries: 3, Timeout: 5 * time.Second}, nil)
	out, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 3, calls.Load())
}

func TestCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := NewClient(Config{BaseURL: ts.URL, MaxRetries: 3}, nil)
	_, err := c.Complete(context.Background(), "p")
	require.ErrorContains(t, err, "401")
	assert.EqualValues(t, 1, calls.Load())
}

func TestCompleteNoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	_, err := NewClient(Config{BaseURL: ts.URL}, nil).Complete(context.Background(), "p")
	require.ErrorIs(t, err, ErrNoChoices)
}
