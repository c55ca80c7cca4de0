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

func newAnthropicProvider(baseURL string, maxRetries int) *AnthropicProvider {
	p := NewAnthropicProvider(AnthropicConfig{
		APIKey:  "test-key",
		Model:   "claude-3-5-haiku-latest",
		BaseURL: baseURL,
	}, 0.7, 200, 5*time.Second, maxRetries)
	p.retryDelay = time.Millisecond
	return p
}

func TestNewAnthropicProvider(t *testing.T) {
	p := NewAnthropicProvider(AnthropicConfig{APIKey: "k", Model: "claude-3-5-haiku-latest"}, 0.7, 0, time.Second, 1)

	assert.Equal(t, defaultAnthropicBaseURL, p.baseURL)
	assert.Equal(t, defaultAnthropicMaxTokens, p.maxTokens)
	assert.Equal(t, "anthropic", p.Provider())
	assert.Equal(t, "claude-3-5-haiku-latest", p.Model())

	t.Run("zero timeout gets a bounded default", func(t *testing.T) {
		p := NewAnthropicProvider(AnthropicConfig{APIKey: "k"}, 0.7, 200, 0, -1)

		assert.Equal(t, 60*time.Second, p.httpClient.Timeout)
		assert.Equal(t, 0, p.maxRetries)
	})
}

func TestAnthropicProvider_Summarize(t *testing.T) {
	t.Run("successful generation", func(t *testing.T) {
		var gotReq messagesRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/messages", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
			assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			json.NewEncoder(w).Encode(messagesResponse{
				ID:   "msg_1",
				Type: "message",
				Role: "assistant",
				Content: []contentBlock{
					{Type: "text", Text: "\nSection 1: drug development summary.\n"},
				},
				StopReason: "end_turn",
			})
		}))
		defer server.Close()

		p := newAnthropicProvider(server.URL, 0)
		text, err := p.Summarize(context.Background(), "system prompt", "user prompt")
		require.NoError(t, err)

		assert.Equal(t, "Section 1: drug development summary.", text)
		assert.Equal(t, "system prompt", gotReq.System)
		require.Len(t, gotReq.Messages, 1)
		assert.Equal(t, anthropicMessage{Role: "user", Content: "user prompt"}, gotReq.Messages[0])
		assert.Equal(t, 200, gotReq.MaxTokens)
		assert.Equal(t, 0.7, gotReq.Temperature)
	})

	t.Run("skips non-text content blocks", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(messagesResponse{
				Content: []contentBlock{
					{Type: "thinking"},
					{Type: "text", Text: "the answer"},
				},
			})
		}))
		defer server.Close()

		p := newAnthropicProvider(server.URL, 0)
		text, err := p.Summarize(context.Background(), "s", "u")
		require.NoError(t, err)
		assert.Equal(t, "the answer", text)
	})

	t.Run("retries overloaded errors with backoff", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
				return
			}
			json.NewEncoder(w).Encode(messagesResponse{
				Content: []contentBlock{{Type: "text", Text: "recovered"}},
			})
		}))
		defer server.Close()

		p := newAnthropicProvider(server.URL, 3)
		text, err := p.Summarize(context.Background(), "s", "u")
		require.NoError(t, err)

		assert.Equal(t, "recovered", text)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry invalid request errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens required"}}`))
		}))
		defer server.Close()

		p := newAnthropicProvider(server.URL, 3)
		_, err := p.Summarize(context.Background(), "s", "u")
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
		assert.Equal(t, "invalid_request_error", apiErr.Type)
		assert.Equal(t, "max_tokens required", apiErr.Message)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("network failure counts as transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		p := newAnthropicProvider(server.URL, 1)
		_, err := p.Summarize(context.Background(), "s", "u")
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 0, apiErr.StatusCode)
		assert.Equal(t, "network_error", apiErr.Type)
		assert.Contains(t, err.Error(), "retries exhausted")
	})

	t.Run("response without content blocks is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(messagesResponse{ID: "msg_2"})
		}))
		defer server.Close()

		p := newAnthropicProvider(server.URL, 0)
		_, err := p.Summarize(context.Background(), "s", "u")
		assert.ErrorContains(t, err, "no content blocks")
	})
}

func TestNewSummarizer(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		s, err := NewSummarizer(FactoryConfig{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "k"}})
		require.NoError(t, err)
		assert.Equal(t, "openai", s.Provider())
	})

	t.Run("anthropic", func(t *testing.T) {
		s, err := NewSummarizer(FactoryConfig{Provider: "anthropic", Anthropic: AnthropicConfig{APIKey: "k", Model: "claude-3-5-haiku-latest"}})
		require.NoError(t, err)
		assert.Equal(t, "anthropic", s.Provider())
	})

	t.Run("unsupported provider", func(t *testing.T) {
		_, err := NewSummarizer(FactoryConfig{Provider: "cohere"})
		assert.ErrorContains(t, err, "unsupported LLM provider")
	})
}
