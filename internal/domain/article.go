package domain

import "strings"

// Sentinel values substituted for fields a source did not provide.
const (
	NoAbstractAvailable = "No abstract available"
	NoTitleAvailable    = "No title available"
	NoAuthorsAvailable  = "No authors available"
	NoDOIAvailable      = "No DOI available"

	// DefaultSectionLabel is used for structured abstract sections
	// whose source did not supply a label.
	DefaultSectionLabel = "SECTION"
)

// AbstractSection is one section of an article abstract.
//
// A section with an empty Label is a bare, unstructured block and is
// rendered verbatim. A structured section always carries a label;
// adapters substitute DefaultSectionLabel when the source omits one.
type AbstractSection struct {
	Label string `json:"label,omitempty"`
	Text  string `json:"text"`
}

// Article is the uniform literature record produced by every source
// adapter. Instances are built fresh per query and never mutated after
// construction.
type Article struct {
	Title    string
	Abstract []AbstractSection
	Journal  string
	URL      string
	Authors  string
	DOI      string
}

// NewAbstract normalizes abstract sections into the canonical
// sequence-of-sections shape. A nil or empty input becomes a single
// bare section carrying the no-abstract sentinel, so downstream code
// can always iterate.
func NewAbstract(sections ...AbstractSection) []AbstractSection {
	if len(sections) == 0 {
		return []AbstractSection{{Text: NoAbstractAvailable}}
	}
	return sections
}

// AbstractText returns the concatenated text of all abstract sections,
// joined by single spaces. Labels are not included.
func (a *Article) AbstractText() string {
	parts := make([]string, 0, len(a.Abstract))
	for _, s := range a.Abstract {
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, " ")
}
