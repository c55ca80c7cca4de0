package research

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pharmalens/research-assistant/internal/domain"
)

func TestFormatArticle(t *testing.T) {
	t.Run("labeled sections", func(t *testing.T) {
		a := domain.Article{
			Title: "Checkpoint inhibitors in melanoma",
			Abstract: []domain.AbstractSection{
				{Label: "BACKGROUND", Text: "Immunotherapy has changed outcomes."},
				{Label: "CONCLUSIONS", Text: "Durable responses were observed."},
			},
		}

		got := FormatArticle(a)
		want := "Title: Checkpoint inhibitors in melanoma\n\n" +
			"Abstract:\n" +
			"BACKGROUND: Immunotherapy has changed outcomes.\n\n" +
			"CONCLUSIONS: Durable responses were observed."
		assert.Equal(t, want, got)
	})

	t.Run("unlabeled section is rendered verbatim", func(t *testing.T) {
		a := domain.Article{
			Title:    "A short report",
			Abstract: domain.NewAbstract(domain.AbstractSection{Text: "Plain abstract text."}),
		}

		got := FormatArticle(a)
		assert.Equal(t, "Title: A short report\n\nAbstract:\nPlain abstract text.", got)
	})

	t.Run("missing abstract falls back to the sentinel", func(t *testing.T) {
		a := domain.Article{
			Title:    "No abstract here",
			Abstract: domain.NewAbstract(),
		}

		got := FormatArticle(a)
		assert.Equal(t, "Title: No abstract here\n\nAbstract:\n"+domain.NoAbstractAvailable, got)
	})
}
