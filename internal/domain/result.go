package domain

import "time"

// ResultEvent is the audit record of a single lab result message applied to
// a sample: which analytes completed and where the status landed.
type ResultEvent struct {
	ID          string
	SampleID    string
	Analytes    []string
	StatusAfter Status
	CreatedAt   time.Time
}
