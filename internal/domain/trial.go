package domain

import "time"

// Trial is the uniform clinical-trial record produced by the trials
// registry adapter. Instances are built fresh per query and never
// mutated after construction.
type Trial struct {
	NCTID       string
	Title       string
	Status      string
	DrugName    string
	FirstPosted *time.Time
}

// HasDrug reports whether the trial names a pharmacological
// intervention. Trials without a drug intervention are excluded from
// the newly-trialed-drugs result.
func (t *Trial) HasDrug() bool {
	return t.DrugName != ""
}

// PostedWithin reports whether the trial's first-posted date falls
// inside the trailing window ending at now. Trials without a posting
// date are excluded.
func (t *Trial) PostedWithin(window time.Duration, now time.Time) bool {
	if t.FirstPosted == nil {
		return false
	}
	return !t.FirstPosted.Before(now.Add(-window))
}
