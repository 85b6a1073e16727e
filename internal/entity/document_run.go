package entity

import (
	"time"
)

// DocumentRun is one pass of the pipeline over one document, as stored in the ledger.
type DocumentRun struct {
	ID           string     `json:"id"`
	RunID        string     `json:"run_id"`
	Locator      string     `json:"locator"`
	ContentHash  string     `json:"content_hash"`
	SubjectID    string     `json:"subject_id"`
	Category     string     `json:"category,omitempty"`
	Status       string     `json:"status"`
	Resources    []string   `json:"resources,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
