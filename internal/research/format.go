package research

import (
	"fmt"
	"strings"

	"github.com/pharmalens/research-assistant/internal/domain"
)

// FormatArticle renders an article as a single text block for the LLM
// prompt. Labeled abstract sections appear as "LABEL: text"; bare
// sections are included verbatim.
func FormatArticle(a domain.Article) string {
	formatted := make([]string, 0, len(a.Abstract))
	for _, section := range a.Abstract {
		if section.Label == "" {
			formatted = append(formatted, section.Text)
			continue
		}
		formatted = append(formatted, fmt.Sprintf("%s: %s", section.Label, section.Text))
	}

	return fmt.Sprintf("Title: %s\n\nAbstract:\n%s", a.Title, strings.Join(formatted, "\n\n"))
}
