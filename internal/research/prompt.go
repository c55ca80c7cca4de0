package research

import (
	"fmt"
	"strings"

	"github.com/pharmalens/research-assistant/internal/domain"
)

const (
	// maxHeadlines caps how many article titles appear in the headline
	// section of the prompt.
	maxHeadlines = 10

	// systemPrompt frames the assistant for pharmaceutical research.
	systemPrompt = "You are a helpful pharmaceutical assistant with in-depth knowledge of new drug development and clinical trials."

	userPromptTemplate = `Article Headlines:
%s

Article Context and Detail:
%s

Clinical Trial News:
%s

Newly Trialed Drugs:
%s

Provide a concise summary with two sections:

Section 1: Drug Development Summary
- Summarize the overall news and insights regarding the drug development related to the specified disease.

Section 2: New Drug Details
- List the names of the newest drugs mentioned and briefly describe what each drug does.`
)

// Prompt is a fully assembled system/user prompt pair.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt assembles the LLM prompt from the filtered articles and
// trials. All sections tolerate empty input, collapsing to an empty
// placeholder rather than dropping the section.
func BuildPrompt(articles []domain.Article, trials []domain.Trial) Prompt {
	headlines := make([]string, 0, maxHeadlines)
	for i, a := range articles {
		if i == maxHeadlines {
			break
		}
		headlines = append(headlines, a.Title)
	}

	details := make([]string, 0, len(articles))
	for _, a := range articles {
		details = append(details, FormatArticle(a))
	}

	trialLines := make([]string, 0, len(trials))
	drugNames := make([]string, 0, len(trials))
	seenDrugs := make(map[string]struct{}, len(trials))
	for _, t := range trials {
		trialLines = append(trialLines, fmt.Sprintf("%s (%s): %s", t.NCTID, t.Status, t.Title))
		if !t.HasDrug() {
			continue
		}
		key := strings.ToLower(t.DrugName)
		if _, seen := seenDrugs[key]; seen {
			continue
		}
		seenDrugs[key] = struct{}{}
		drugNames = append(drugNames, t.DrugName)
	}

	user := fmt.Sprintf(userPromptTemplate,
		strings.Join(headlines, "\n"),
		strings.Join(details, "\n\n"),
		strings.Join(trialLines, "\n"),
		strings.Join(drugNames, "\n"),
	)

	return Prompt{
		System: systemPrompt,
		User:   user,
	}
}
