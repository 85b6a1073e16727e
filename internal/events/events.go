package events

import (
	"context"
	"time"

	"github.com/joseph-ayodele/clinical-docs/constants"
)

const (
	TypeDocumentProcessed = "document.processed"
	TypeDocumentFailed    = "document.failed"
)

// DocumentEvent announces the outcome of one document pass.
type DocumentEvent struct {
	Type       string                     `json:"type"`
	RunID      string                     `json:"runId,omitempty"`
	Locator    string                     `json:"locator"`
	SubjectID  string                     `json:"subjectId"`
	Category   constants.DocumentCategory `json:"category,omitempty"`
	Resources  []string                   `json:"resources,omitempty"`
	Error      string                     `json:"error,omitempty"`
	OccurredAt time.Time                  `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event DocumentEvent) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, DocumentEvent) error { return nil }
func (Nop) Close() error                                 { return nil }
