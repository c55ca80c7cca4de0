// Package domain defines the core entities of the research assistant:
// articles and trials normalized from external sources, the inbound
// query, and the summary result returned to the caller.
package domain

import "strings"

// Query identifies one end-to-end research request. The conversation
// ID correlates stored memory entries across turns; when the caller
// does not supply one, the service generates it.
type Query struct {
	Term           string
	ConversationID string
}

// Validate checks that the query term is non-empty after trimming.
func (q *Query) Validate() error {
	if strings.TrimSpace(q.Term) == "" {
		return NewValidationError("query", "must not be empty")
	}
	return nil
}

// SummaryResult is the final generated summary for one request.
// It is created once per request and immutable afterward.
type SummaryResult struct {
	Text           string
	ConversationID string
}
