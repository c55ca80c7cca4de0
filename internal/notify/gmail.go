package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	// defaultGmailBaseURL is the Gmail REST API base URL.
	defaultGmailBaseURL = "https://gmail.googleapis.com/gmail/v1"

	// defaultGmailSubject is the subject line used when none is configured.
	defaultGmailSubject = "Research Summary"
)

// GmailConfig holds the settings for Gmail draft creation.
type GmailConfig struct {
	// AccessToken is the OAuth2 bearer token with gmail.compose scope.
	AccessToken string
	// Recipient is the draft's To address. May be empty.
	Recipient string
	// Subject overrides the default subject line.
	Subject string
	// BaseURL overrides the Gmail API base URL, used in tests.
	BaseURL string
}

// GmailNotifier creates a draft email in the authenticated user's
// mailbox instead of sending mail directly, leaving the final send to a
// human.
type GmailNotifier struct {
	httpClient  *http.Client
	accessToken string
	recipient   string
	subject     string
	baseURL     string
}

// NewGmailNotifier creates a Gmail draft notifier.
func NewGmailNotifier(cfg GmailConfig, httpClient *http.Client) *GmailNotifier {
	subject := cfg.Subject
	if subject == "" {
		subject = defaultGmailSubject
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGmailBaseURL
	}

	return &GmailNotifier{
		httpClient:  httpClient,
		accessToken: cfg.AccessToken,
		recipient:   cfg.Recipient,
		subject:     subject,
		baseURL:     baseURL,
	}
}

// draftRequest is the request body for drafts.create.
type draftRequest struct {
	Message draftMessage `json:"message"`
}

// draftMessage carries the base64url-encoded RFC 2822 message.
type draftMessage struct {
	Raw string `json:"raw"`
}

// draftResponse is the response body from drafts.create.
type draftResponse struct {
	ID string `json:"id"`
}

// Notify builds a plain-text MIME message and creates it as a draft via
// POST users/me/drafts.
func (n *GmailNotifier) Notify(ctx context.Context, message string) error {
	raw := base64.URLEncoding.EncodeToString(buildMIME(n.recipient, n.subject, message))

	body, err := json.Marshal(draftRequest{Message: draftMessage{Raw: raw}})
	if err != nil {
		return fmt.Errorf("gmail: failed to marshal draft request: %w", err)
	}

	endpoint := n.baseURL + "/users/me/drafts"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("gmail: failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+n.accessToken)

	httpResp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("gmail: draft request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("gmail: failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("gmail: drafts.create returned status %d: %s", httpResp.StatusCode, string(respBody))
	}

	var resp draftResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("gmail: failed to unmarshal response: %w", err)
	}
	if resp.ID == "" {
		return fmt.Errorf("gmail: drafts.create returned no draft ID")
	}

	return nil
}

// Channel returns "gmail".
func (n *GmailNotifier) Channel() string {
	return ChannelGmail
}

// buildMIME assembles a minimal plain-text RFC 2822 message. The To
// header is always emitted, matching drafts addressed later by hand
// when the recipient is empty.
func buildMIME(to, subject, body string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(body)
	return buf.Bytes()
}

var _ Notifier = (*GmailNotifier)(nil)
