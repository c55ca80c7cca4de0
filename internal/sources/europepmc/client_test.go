package europepmc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmalens/research-assistant/internal/domain"
	"github.com/pharmalens/research-assistant/internal/sources"
)

const searchResponseJSON = `{
	"resultList": {
		"result": [
			{
				"id": "38000001",
				"source": "MED",
				"title": "Melanoma immunotherapy advances.",
				"authorString": "Doe J, Roe R.",
				"abstractText": "Recent advances in melanoma immunotherapy.",
				"doi": "10.1000/epmc.1",
				"journalTitle": "Cancer Letters"
			},
			{
				"id": "PPR800002",
				"source": "PPR",
				"title": "Preprint without metadata"
			}
		]
	}
}`

// newTestClient pins the clock so the date range in the query is stable.
func newTestClient(baseURL string, now time.Time) *Client {
	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:    5 * time.Second,
		RateLimit:  1000,
		BurstSize:  1000,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	return NewWithHTTPClient(Config{
		BaseURL: baseURL,
		Now:     func() time.Time { return now },
	}, httpClient)
}

func TestClient_Name(t *testing.T) {
	client := New(Config{})
	assert.Equal(t, "EuropePMC", client.Name())
}

func TestClient_Search(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("successful search maps results", func(t *testing.T) {
		var query, pageSize string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search", r.URL.Path)
			query = r.URL.Query().Get("query")
			pageSize = r.URL.Query().Get("pageSize")
			assert.Equal(t, "json", r.URL.Query().Get("format"))
			w.Write([]byte(searchResponseJSON))
		}))
		defer server.Close()

		client := newTestClient(server.URL, now)

		articles, err := client.Search(context.Background(), sources.SearchParams{
			Term:         "melanoma",
			MaxResults:   25,
			LookbackDays: 30,
		})
		require.NoError(t, err)
		require.Len(t, articles, 2)

		assert.Equal(t, "melanoma AND FIRST_PDATE:[2026-08-01 TO 2026-08-31]", query)
		assert.Equal(t, "25", pageSize)

		first := articles[0]
		assert.Equal(t, "Melanoma immunotherapy advances.", first.Title)
		assert.Equal(t, "Doe J, Roe R.", first.Authors)
		assert.Equal(t, "10.1000/epmc.1", first.DOI)
		assert.Equal(t, "Cancer Letters", first.Journal)
		assert.Equal(t, "https://europepmc.org/article/MED/38000001", first.URL)
		require.Len(t, first.Abstract, 1)
		assert.Empty(t, first.Abstract[0].Label)
		assert.Equal(t, "Recent advances in melanoma immunotherapy.", first.Abstract[0].Text)
	})

	t.Run("missing fields replaced by sentinels", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(searchResponseJSON))
		}))
		defer server.Close()

		client := newTestClient(server.URL, now)

		articles, err := client.Search(context.Background(), sources.SearchParams{Term: "melanoma"})
		require.NoError(t, err)
		require.Len(t, articles, 2)

		second := articles[1]
		assert.Equal(t, domain.NoAuthorsAvailable, second.Authors)
		assert.Equal(t, domain.NoDOIAvailable, second.DOI)
		assert.Equal(t, "https://europepmc.org/article/PPR/PPR800002", second.URL)
		require.Len(t, second.Abstract, 1)
		assert.Equal(t, domain.NoAbstractAvailable, second.Abstract[0].Text)
	})

	t.Run("empty result list returns empty slice", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"resultList":{"result":[]}}`))
		}))
		defer server.Close()

		client := newTestClient(server.URL, now)

		articles, err := client.Search(context.Background(), sources.SearchParams{Term: "melanoma"})
		require.NoError(t, err)
		assert.Empty(t, articles)
	})

	t.Run("non-200 status returns external API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("bad query"))
		}))
		defer server.Close()

		client := newTestClient(server.URL, now)

		_, err := client.Search(context.Background(), sources.SearchParams{Term: "melanoma"})
		require.Error(t, err)

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	})

	t.Run("malformed JSON returns parse error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}))
		defer server.Close()

		client := newTestClient(server.URL, now)

		_, err := client.Search(context.Background(), sources.SearchParams{Term: "melanoma"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse JSON response")
	})
}
