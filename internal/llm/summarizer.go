// Package llm provides text-generation and embedding clients for the
// research assistant.
//
// The Summarizer interface abstracts over chat-completion providers
// (OpenAI, Anthropic); the Embedder interface abstracts the embedding
// call used by the conversation memory store. Both are exercised with
// a fixed system-role instruction plus a user-role prompt assembled by
// the research pipeline.
//
// Example usage:
//
//	summarizer, err := llm.NewSummarizer(cfg)
//	text, err := summarizer.Summarize(ctx, systemPrompt, userPrompt)
package llm

import "context"

// Summarizer defines the interface for LLM-based text generation.
//
// Implementations handle provider-specific API calls, response parsing,
// and retry of transient errors while conforming to this unified
// interface.
type Summarizer interface {
	// Summarize sends the system and user prompts to the provider and
	// returns the generated text trimmed of leading and trailing
	// whitespace. The context should be used for cancellation and
	// deadline propagation.
	Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Provider returns the name of the LLM provider (e.g., "openai").
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}

// Embedder defines the interface for text embedding.
type Embedder interface {
	// Embed returns the dense vector representation of the text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimensionality.
	Dimensions() int
}
