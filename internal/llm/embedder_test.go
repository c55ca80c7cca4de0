package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIEmbedder_Embed(t *testing.T) {
	t.Run("returns the first embedding vector", func(t *testing.T) {
		var gotReq embeddingRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/embeddings", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			json.NewEncoder(w).Encode(embeddingResponse{
				Data:  []embeddingData{{Embedding: []float32{0.1, -0.2, 0.3}, Index: 0}},
				Model: "text-embedding-3-small",
			})
		}))
		defer server.Close()

		e := NewOpenAIEmbedder("test-key", "", server.URL, 5*time.Second)
		vector, err := e.Embed(context.Background(), "user: melanoma")
		require.NoError(t, err)

		assert.Equal(t, []float32{0.1, -0.2, 0.3}, vector)
		assert.Equal(t, embeddingRequest{Model: "text-embedding-3-small", Input: "user: melanoma"}, gotReq)
		assert.Equal(t, defaultEmbeddingDimensions, e.Dimensions())
	})

	t.Run("api errors carry the status code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
		}))
		defer server.Close()

		e := NewOpenAIEmbedder("test-key", "", server.URL, 5*time.Second)
		_, err := e.Embed(context.Background(), "text")
		require.Error(t, err)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	})

	t.Run("empty data is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(embeddingResponse{Model: "text-embedding-3-small"})
		}))
		defer server.Close()

		e := NewOpenAIEmbedder("test-key", "", server.URL, 5*time.Second)
		_, err := e.Embed(context.Background(), "text")
		assert.ErrorContains(t, err, "no embeddings")
	})
}
