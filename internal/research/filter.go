// Package research implements the literature aggregation pipeline: it
// fetches articles and trials, filters for relevance, assembles the LLM
// prompt, and produces the final summary.
package research

import (
	"strings"

	"github.com/pharmalens/research-assistant/internal/domain"
)

// Filter keeps the articles whose title and abstract both contain the
// query term, matched case-insensitively. The result preserves the
// input order and may share backing storage with it.
func Filter(term string, articles []domain.Article) []domain.Article {
	folded := strings.ToLower(term)

	relevant := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		title := strings.ToLower(a.Title)
		abstract := strings.ToLower(a.AbstractText())
		if strings.Contains(title, folded) && strings.Contains(abstract, folded) {
			relevant = append(relevant, a)
		}
	}
	return relevant
}
