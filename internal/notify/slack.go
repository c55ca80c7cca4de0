package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// defaultSlackBaseURL is the Slack Web API base URL.
const defaultSlackBaseURL = "https://slack.com/api"

// SlackConfig holds the settings for Slack direct-message delivery.
type SlackConfig struct {
	// BotToken is the Slack bot token used for Web API auth.
	BotToken string
	// UserID is the Slack user who receives the direct message.
	UserID string
	// BaseURL overrides the Slack API base URL, used in tests.
	BaseURL string
}

// SlackNotifier sends the summary as a direct message via the Slack Web
// API. It opens a conversation with the configured user and posts the
// message to the resulting channel.
type SlackNotifier struct {
	httpClient *http.Client
	botToken   string
	userID     string
	baseURL    string
}

// NewSlackNotifier creates a Slack notifier.
func NewSlackNotifier(cfg SlackConfig, httpClient *http.Client) *SlackNotifier {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultSlackBaseURL
	}

	return &SlackNotifier{
		httpClient: httpClient,
		botToken:   cfg.BotToken,
		userID:     cfg.UserID,
		baseURL:    baseURL,
	}
}

// conversationsOpenRequest is the request body for conversations.open.
type conversationsOpenRequest struct {
	Users string `json:"users"`
}

// conversationsOpenResponse is the response body from conversations.open.
type conversationsOpenResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
}

// postMessageRequest is the request body for chat.postMessage.
type postMessageRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

// postMessageResponse is the response body from chat.postMessage.
type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Notify opens a direct-message conversation with the configured user
// and posts the message to it. Slack reports API failures with a 200
// status and ok:false, so both the HTTP status and the envelope are
// checked.
func (n *SlackNotifier) Notify(ctx context.Context, message string) error {
	var openResp conversationsOpenResponse
	err := n.call(ctx, "conversations.open", conversationsOpenRequest{Users: n.userID}, &openResp)
	if err != nil {
		return err
	}
	if !openResp.OK {
		return fmt.Errorf("slack: conversations.open failed: %s", openResp.Error)
	}
	if openResp.Channel.ID == "" {
		return fmt.Errorf("slack: conversations.open returned no channel ID")
	}

	var postResp postMessageResponse
	err = n.call(ctx, "chat.postMessage", postMessageRequest{
		Channel: openResp.Channel.ID,
		Text:    message,
	}, &postResp)
	if err != nil {
		return err
	}
	if !postResp.OK {
		return fmt.Errorf("slack: chat.postMessage failed: %s", postResp.Error)
	}

	return nil
}

// Channel returns "slack".
func (n *SlackNotifier) Channel() string {
	return ChannelSlack
}

// call performs a single Slack Web API method call with bearer auth and
// decodes the JSON response into out.
func (n *SlackNotifier) call(ctx context.Context, method string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("slack: failed to marshal %s request: %w", method, err)
	}

	endpoint := n.baseURL + "/" + method
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: failed to create %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Authorization", "Bearer "+n.botToken)

	httpResp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("slack: %s request failed: %w", method, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("slack: failed to read %s response: %w", method, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack: %s returned status %d: %s", method, httpResp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("slack: failed to unmarshal %s response: %w", method, err)
	}

	return nil
}

var _ Notifier = (*SlackNotifier)(nil)
