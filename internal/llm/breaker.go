package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// BreakerConfig holds circuit breaker settings for the summarizer.
type BreakerConfig struct {
	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32
	// Interval is the cyclic period for clearing counts while closed.
	Interval time.Duration
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration
	// FailureThreshold is the failure ratio that trips the circuit.
	FailureThreshold float64
	// MinRequests is the minimum request count before the ratio is evaluated.
	MinRequests uint32
}

// DefaultBreakerConfig returns the default circuit breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// BreakerSummarizer wraps a Summarizer with a circuit breaker so that a
// failing provider is given time to recover instead of being hammered
// with doomed requests.
type BreakerSummarizer struct {
	inner   Summarizer
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSummarizer wraps the given Summarizer with a circuit breaker.
func NewBreakerSummarizer(inner Summarizer, cfg BreakerConfig, logger zerolog.Logger) *BreakerSummarizer {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Provider() + "-summarizer",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("summarizer circuit breaker state changed")
		},
	})

	return &BreakerSummarizer{
		inner:   inner,
		breaker: cb,
	}
}

// Summarize delegates to the wrapped Summarizer through the circuit
// breaker. When the circuit is open the call fails immediately with an
// error eligible for errors.Is(err, gobreaker.ErrOpenState) checks.
func (b *BreakerSummarizer) Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Summarize(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%s summarizer unavailable: %w", b.inner.Provider(), err)
		}
		return "", err
	}

	text, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("unexpected summarizer result type %T", result)
	}
	return text, nil
}

// Provider returns the wrapped provider name.
func (b *BreakerSummarizer) Provider() string {
	return b.inner.Provider()
}

// Model returns the wrapped model identifier.
func (b *BreakerSummarizer) Model() string {
	return b.inner.Model()
}

var _ Summarizer = (*BreakerSummarizer)(nil)
