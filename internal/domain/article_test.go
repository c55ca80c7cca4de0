package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAbstract(t *testing.T) {
	t.Run("empty input becomes the sentinel section", func(t *testing.T) {
		got := NewAbstract()
		assert.Equal(t, []AbstractSection{{Text: NoAbstractAvailable}}, got)
	})

	t.Run("sections pass through unchanged", func(t *testing.T) {
		sections := []AbstractSection{
			{Label: "BACKGROUND", Text: "context"},
			{Text: "bare"},
		}
		assert.Equal(t, sections, NewAbstract(sections...))
	})
}

func TestArticle_AbstractText(t *testing.T) {
	a := Article{
		Abstract: []AbstractSection{
			{Label: "BACKGROUND", Text: "First part."},
			{Label: "RESULTS", Text: "Second part."},
		},
	}
	assert.Equal(t, "First part. Second part.", a.AbstractText())

	empty := Article{Abstract: NewAbstract()}
	assert.Equal(t, NoAbstractAvailable, empty.AbstractText())
}

func TestTrial(t *testing.T) {
	now := time.Date(2026, time.August, 31, 0, 0, 0, 0, time.UTC)
	window := 730 * 24 * time.Hour

	t.Run("has drug", func(t *testing.T) {
		assert.True(t, (&Trial{DrugName: "Pembrolizumab"}).HasDrug())
		assert.False(t, (&Trial{}).HasDrug())
	})

	t.Run("posted within window", func(t *testing.T) {
		recent := now.AddDate(-1, 0, 0)
		old := now.AddDate(-3, 0, 0)

		assert.True(t, (&Trial{FirstPosted: &recent}).PostedWithin(window, now))
		assert.False(t, (&Trial{FirstPosted: &old}).PostedWithin(window, now))
		assert.False(t, (&Trial{}).PostedWithin(window, now), "missing date is excluded")
	})
}

func TestQuery_Validate(t *testing.T) {
	assert.NoError(t, (&Query{Term: "melanoma"}).Validate())

	err := (&Query{Term: "  "}).Validate()
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "query", verr.Field)
}

func TestErrorWrapping(t *testing.T) {
	t.Run("generation error", func(t *testing.T) {
		cause := errors.New("timeout")
		err := NewGenerationError("openai", cause)

		assert.ErrorIs(t, err, ErrGenerationUnavailable)
		assert.Contains(t, err.Error(), "openai")
	})

	t.Run("external api error exposes its cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := NewExternalAPIError("PubMed", 502, "bad gateway", cause)

		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "PubMed")
		assert.Contains(t, err.Error(), "502")
	})
}
