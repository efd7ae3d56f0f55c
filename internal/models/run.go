package models

import "time"

// Run records one full extraction over a set of documents.
type Run struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Documents    int       `json:"documents"`
	Requirements int       `json:"requirements"`
	Failed       int       `json:"failed"`
}

// Duration returns how long the run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
