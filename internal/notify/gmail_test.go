package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGmailTestNotifier(cfg GmailConfig) *GmailNotifier {
	return NewGmailNotifier(cfg, &http.Client{Timeout: 5 * time.Second})
}

func TestGmailNotifier_Notify(t *testing.T) {
	t.Run("creates a draft with the encoded message", func(t *testing.T) {
		var gotReq draftRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/users/me/drafts", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer ya29.token", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

			w.Write([]byte(`{"id":"r-draft-1","message":{"id":"m1"}}`))
		}))
		defer server.Close()

		n := newGmailTestNotifier(GmailConfig{
			AccessToken: "ya29.token",
			Recipient:   "analyst@example.com",
			Subject:     "Weekly melanoma digest",
			BaseURL:     server.URL,
		})
		err := n.Notify(context.Background(), "summary body")
		require.NoError(t, err)

		decoded, err := base64.URLEncoding.DecodeString(gotReq.Message.Raw)
		require.NoError(t, err)
		mime := string(decoded)
		assert.Contains(t, mime, "To: analyst@example.com\r\n")
		assert.Contains(t, mime, "Subject: Weekly melanoma digest\r\n")
		assert.Contains(t, mime, "Content-Type: text/plain; charset=\"utf-8\"\r\n")
		assert.Contains(t, mime, "\r\n\r\nsummary body")
		assert.Equal(t, ChannelGmail, n.Channel())
	})

	t.Run("empty subject falls back to the default", func(t *testing.T) {
		var gotReq draftRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			w.Write([]byte(`{"id":"r-draft-2"}`))
		}))
		defer server.Close()

		n := newGmailTestNotifier(GmailConfig{AccessToken: "t", BaseURL: server.URL})
		require.NoError(t, n.Notify(context.Background(), "body"))

		decoded, err := base64.URLEncoding.DecodeString(gotReq.Message.Raw)
		require.NoError(t, err)
		assert.Contains(t, string(decoded), "Subject: "+defaultGmailSubject+"\r\n")
	})

	t.Run("non-200 status fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
		}))
		defer server.Close()

		n := newGmailTestNotifier(GmailConfig{AccessToken: "bad", BaseURL: server.URL})
		err := n.Notify(context.Background(), "body")
		assert.ErrorContains(t, err, "status 401")
	})

	t.Run("missing draft id fails", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		n := newGmailTestNotifier(GmailConfig{AccessToken: "t", BaseURL: server.URL})
		err := n.Notify(context.Background(), "body")
		assert.ErrorContains(t, err, "no draft ID")
	})
}

func TestBuildMIME(t *testing.T) {
	got := string(buildMIME("a@example.com", "Subject line", "body text"))
	want := "To: a@example.com\r\n" +
		"Subject: Subject line\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
		"\r\n" +
		"body text"
	assert.Equal(t, want, got)
}
