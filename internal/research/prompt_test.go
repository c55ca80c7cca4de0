package research

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pharmalens/research-assistant/internal/domain"
)

func TestBuildPrompt(t *testing.T) {
	t.Run("assembles all four sections", func(t *testing.T) {
		articles := []domain.Article{
			article("First headline", "First abstract."),
			article("Second headline", "Second abstract."),
		}
		trials := []domain.Trial{
			{NCTID: "NCT01000001", Title: "Pembrolizumab in melanoma", Status: "RECRUITING", DrugName: "Pembrolizumab"},
			{NCTID: "NCT01000002", Title: "Observation only", Status: "COMPLETED"},
		}

		p := BuildPrompt(articles, trials)

		assert.Equal(t, systemPrompt, p.System)
		assert.Contains(t, p.User, "Article Headlines:\nFirst headline\nSecond headline")
		assert.Contains(t, p.User, "Title: First headline\n\nAbstract:\nFirst abstract.")
		assert.Contains(t, p.User, "NCT01000001 (RECRUITING): Pembrolizumab in melanoma")
		assert.Contains(t, p.User, "NCT01000002 (COMPLETED): Observation only")
		assert.Contains(t, p.User, "Newly Trialed Drugs:\nPembrolizumab")
		assert.Contains(t, p.User, "Section 1: Drug Development Summary")
		assert.Contains(t, p.User, "Section 2: New Drug Details")
	})

	t.Run("headlines cap at ten while details keep everything", func(t *testing.T) {
		articles := make([]domain.Article, 0, 12)
		for i := 0; i < 12; i++ {
			articles = append(articles, article(fmt.Sprintf("Headline %02d", i), "abstract"))
		}

		p := BuildPrompt(articles, nil)

		// the tenth headline appears in both sections, the eleventh only
		// as a detail
		assert.Equal(t, 2, strings.Count(p.User, "Headline 09"))
		assert.Equal(t, 1, strings.Count(p.User, "Headline 10"))
		assert.Contains(t, p.User, "Title: Headline 11")
	})

	t.Run("drug names dedupe case-insensitively", func(t *testing.T) {
		trials := []domain.Trial{
			{NCTID: "NCT01", Title: "a", Status: "RECRUITING", DrugName: "Nivolumab"},
			{NCTID: "NCT02", Title: "b", Status: "RECRUITING", DrugName: "NIVOLUMAB"},
			{NCTID: "NCT03", Title: "c", Status: "RECRUITING", DrugName: "Ipilimumab"},
		}

		p := BuildPrompt(nil, trials)

		assert.Contains(t, p.User, "Newly Trialed Drugs:\nNivolumab\nIpilimumab")
		assert.Equal(t, 1, strings.Count(strings.ToLower(p.User), "nivolumab"))
	})

	t.Run("empty inputs collapse to empty sections", func(t *testing.T) {
		p := BuildPrompt(nil, nil)

		assert.Contains(t, p.User, "Article Headlines:\n\n")
		assert.Contains(t, p.User, "Clinical Trial News:\n\n")
		assert.Contains(t, p.User, "Provide a concise summary")
	})
}
