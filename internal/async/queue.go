package async

import (
	"context"
	"errors"
	"time"

	"github.com/joseph-ayodele/clinical-docs/internal/pipeline"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document to process for one subject.
type Job struct {
	Locator     string
	SubjectID   string
	SubmittedAt time.Time
}

// Outcome is reported once per job, in completion order.
type Outcome struct {
	Job    Job
	Result *pipeline.Result
	Err    error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// DocumentProcessor is the per-document pipeline run by workers.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, locator, subjectID string) (*pipeline.Result, error)
}
