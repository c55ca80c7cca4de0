// Package sources provides the shared infrastructure for external
// data-source adapters: the adapter interfaces, search parameters, and
// a rate-limited retrying HTTP client.
//
// Each external database (PubMed, Europe PMC, ClinicalTrials.gov)
// implements one of the adapter interfaces, translating its native
// response format into the uniform domain records. Adapters return
// errors; the pipeline converts per-source failures into empty results
// so that one failing source never aborts a request.
package sources

import (
	"context"

	"github.com/pharmalens/research-assistant/internal/domain"
)

// SearchParams defines the parameters for a source query.
type SearchParams struct {
	// Term is the disease/topic query term (required).
	Term string

	// MaxResults limits the number of records returned in a single
	// request. A value of 0 uses the source's default limit.
	MaxResults int

	// LookbackDays restricts results to records published within the
	// trailing N days. A value of 0 uses the source's default window.
	LookbackDays int
}

// ArticleSource is implemented by adapters that yield literature records.
type ArticleSource interface {
	// Search queries the source and returns normalized articles.
	// Implementations respect context cancellation and apply their
	// own rate limits.
	Search(ctx context.Context, params SearchParams) ([]domain.Article, error)

	// Name returns a human-readable name for logging and metrics.
	Name() string
}

// TrialSource is implemented by adapters that yield clinical-trial records.
type TrialSource interface {
	// Search queries the registry and returns normalized trials that
	// name a drug intervention and fall within the posting window.
	Search(ctx context.Context, params SearchParams) ([]domain.Trial, error)

	// Name returns a human-readable name for logging and metrics.
	Name() string
}
