// Package notify delivers finished research summaries to an outbound
// channel. Exactly one channel is active at a time, selected by
// configuration, and delivery failures are logged by the caller rather
// than surfaced to the API client.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Channel names accepted by the factory.
const (
	ChannelSlack    = "slack"
	ChannelGmail    = "gmail"
	ChannelDisabled = "disabled"
)

// Notifier delivers a summary message to the configured channel.
type Notifier interface {
	// Notify sends the message. Implementations return an error on
	// delivery failure; callers decide whether to log or propagate.
	Notify(ctx context.Context, message string) error
	// Channel returns the channel name for logging.
	Channel() string
}

// FactoryConfig holds the parameters needed to create a Notifier.
type FactoryConfig struct {
	// Channel selects the notifier ("slack", "gmail", or "disabled").
	Channel string
	// Timeout is the timeout for outbound API calls.
	Timeout time.Duration
	// Slack contains Slack-specific settings.
	Slack SlackConfig
	// Gmail contains Gmail-specific settings.
	Gmail GmailConfig
}

// NewNotifier creates a Notifier based on the configuration. The
// "disabled" channel returns a no-op notifier.
func NewNotifier(cfg FactoryConfig) (Notifier, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Channel {
	case ChannelSlack:
		return NewSlackNotifier(cfg.Slack, httpClient), nil
	case ChannelGmail:
		return NewGmailNotifier(cfg.Gmail, httpClient), nil
	case ChannelDisabled, "":
		return NoopNotifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported notification channel: %q", cfg.Channel)
	}
}

// NoopNotifier discards messages. Used when notifications are disabled.
type NoopNotifier struct{}

// Notify does nothing.
func (NoopNotifier) Notify(_ context.Context, _ string) error { return nil }

// Channel returns "disabled".
func (NoopNotifier) Channel() string { return ChannelDisabled }

var _ Notifier = NoopNotifier{}
