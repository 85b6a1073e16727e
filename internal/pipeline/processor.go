package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/entity"
	"github.com/joseph-ayodele/clinical-docs/internal/events"
	"github.com/joseph-ayodele/clinical-docs/internal/ingest"
	"github.com/joseph-ayodele/clinical-docs/internal/repository"
)

type Classifier interface {
	Classify(ctx context.Context, document []byte) (constants.DocumentCategory, error)
}

type Extractor interface {
	Extract(ctx context.Context, category constants.DocumentCategory, document []byte) (entity.Extraction, error)
}

type Mapper interface {
	MapVisit(ctx context.Context, rec entity.VisitRecord, subjectID string) (*entity.ResourceGraph, error)
	MapLab(ctx context.Context, rec entity.LabRecord, subjectID string) (*entity.ResourceGraph, error)
}

// Result is the outcome of one document. On a mapping failure it is returned
// alongside the error and Graph lists the resources created before the failure.
type Result struct {
	RunID       string
	Locator     string
	SubjectID   string
	ContentHash string
	Category    constants.DocumentCategory
	Graph       *entity.ResourceGraph
	// Skipped is set when the same content was already mapped in an earlier run.
	Skipped  bool
	Duration time.Duration
}

// Processor coordinates read, classify, extract and map for one document at a time.
// It holds no per-document state and is safe for concurrent use.
type Processor struct {
	logger        *slog.Logger
	source        ingest.Source
	classifier    Classifier
	extractor     Extractor
	mapper        Mapper
	ledger        repository.DocumentRunRepository
	publisher     events.Publisher
	runID         string
	skipProcessed bool
	now           func() time.Time
}

type Option func(*Processor)

// WithLedger records each stage in the processing ledger.
func WithLedger(repo repository.DocumentRunRepository) Option {
	return func(p *Processor) { p.ledger = repo }
}

// WithPublisher announces document outcomes.
func WithPublisher(pub events.Publisher) Option {
	return func(p *Processor) {
		if pub != nil {
			p.publisher = pub
		}
	}
}

// WithRunID groups ledger rows and events under a batch run id.
func WithRunID(id string) Option {
	return func(p *Processor) {
		if id != "" {
			p.runID = id
		}
	}
}

// WithSkipProcessed skips documents whose content hash the ledger already
// recorded as mapped. It has no effect without a ledger.
func WithSkipProcessed(skip bool) Option {
	return func(p *Processor) { p.skipProcessed = skip }
}

func NewProcessor(logger *slog.Logger, source ingest.Source, classifier Classifier, extractor Extractor, mapper Mapper, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:     logger,
		source:     source,
		classifier: classifier,
		extractor:  extractor,
		mapper:     mapper,
		publisher:  events.Nop{},
		runID:      uuid.New().String(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// RunID returns the batch run id stamped on ledger rows and events.
func (p *Processor) RunID() string { return p.runID }

// ProcessDocument reads the document at locator, classifies it, extracts the
// matching record and writes its resource graph for subjectID. The first
// failing stage ends the document with that stage's error.
func (p *Processor) ProcessDocument(ctx context.Context, locator, subjectID string) (*Result, error) {
	start := p.now()
	reqID := uuid.New().String()
	ctx = common.WithRequestID(ctx, reqID)
	ctx = common.WithRunID(ctx, p.runID)
	ctx = common.WithDocument(ctx, locator)
	log := p.logger.With("req_id", reqID, "run_id", p.runID, "locator", locator)

	res := &Result{RunID: p.runID, Locator: locator, SubjectID: subjectID}
	if err := common.NewValidator().Field("subjectID", subjectID, common.Required).Error(); err != nil {
		log.Error("pipeline.validate.error", "error", err)
		return res, err
	}

	log.Info("pipeline.document.start", "subject_id", subjectID, "source", p.source.Name())
	document, err := p.source.Read(ctx, locator)
	if err != nil {
		log.Error("pipeline.read.error", "error", err)
		p.publish(ctx, log, res, err)
		return res, fmt.Errorf("read document: %w", err)
	}
	res.ContentHash = ingest.ContentHash(document)
	log.Debug("pipeline.read.ok", "bytes", len(document), "content_hash", res.ContentHash)

	if p.skipProcessed && p.ledger != nil {
		done, err := p.ledger.SucceededByHash(ctx, res.ContentHash)
		if err != nil {
			log.Warn("pipeline.dedupe.lookup_error", "error", err)
		} else if done {
			res.Skipped = true
			res.Duration = p.now().Sub(start)
			log.Info("pipeline.document.skipped", "content_hash", res.ContentHash)
			return res, nil
		}
	}

	runRowID := p.startLedger(ctx, log, res)

	err = p.run(ctx, log, document, res, runRowID)
	res.Duration = p.now().Sub(start)
	if err != nil {
		p.finishFailure(ctx, log, runRowID, err)
		p.publish(ctx, log, res, err)
		log.Error("pipeline.document.error",
			"category", res.Category,
			"orphaned", res.Graph.References(),
			"elapsed_ms", res.Duration.Milliseconds(),
			"error", err,
		)
		return res, err
	}

	p.finishSuccess(ctx, log, runRowID, res.Graph.References())
	p.publish(ctx, log, res, nil)
	log.Info("pipeline.document.ok",
		"category", res.Category,
		"resources", len(res.Graph.References()),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (p *Processor) run(ctx context.Context, log *slog.Logger, document []byte, res *Result, runRowID string) error {
	category, err := p.classifier.Classify(ctx, document)
	if err != nil {
		log.Error("pipeline.classify.error", "error", err)
		return fmt.Errorf("classify: %w", err)
	}
	res.Category = category
	log.Info("pipeline.classify.ok", "category", category)
	if runRowID != "" {
		if err := p.ledger.MarkClassified(ctx, runRowID, category); err != nil {
			log.Warn("pipeline.ledger.classified_error", "error", err)
		}
	}

	record, err := p.extractor.Extract(ctx, category, document)
	if err != nil {
		log.Error("pipeline.extract.error", "category", category, "error", err)
		return fmt.Errorf("extract %s: %w", category, err)
	}
	log.Info("pipeline.extract.ok", "category", record.Category())

	switch rec := record.(type) {
	case entity.VisitRecord:
		res.Graph, err = p.mapper.MapVisit(ctx, rec, res.SubjectID)
	case entity.LabRecord:
		res.Graph, err = p.mapper.MapLab(ctx, rec, res.SubjectID)
	default:
		err = common.NewAppError("UNSUPPORTED_RECORD", fmt.Sprintf("no mapping for %T", record), common.ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("map %s: %w", category, err)
	}
	return nil
}

// startLedger returns the ledger row id, or "" when no ledger is configured
// or the row could not be written.
func (p *Processor) startLedger(ctx context.Context, log *slog.Logger, res *Result) string {
	if p.ledger == nil {
		return ""
	}
	row, err := p.ledger.Start(ctx, repository.StartRequest{
		RunID:       p.runID,
		Locator:     res.Locator,
		ContentHash: res.ContentHash,
		SubjectID:   res.SubjectID,
	})
	if err != nil {
		log.Warn("pipeline.ledger.start_error", "error", err)
		return ""
	}
	return row.ID
}

func (p *Processor) finishSuccess(ctx context.Context, log *slog.Logger, runRowID string, refs []string) {
	if runRowID == "" {
		return
	}
	if err := p.ledger.FinishSuccess(ctx, runRowID, refs); err != nil {
		log.Warn("pipeline.ledger.finish_error", "error", err)
	}
}

func (p *Processor) finishFailure(ctx context.Context, log *slog.Logger, runRowID string, cause error) {
	if runRowID == "" {
		return
	}
	// the document context may already be expired
	ctx = context.WithoutCancel(ctx)
	if err := p.ledger.FinishFailure(ctx, runRowID, cause.Error()); err != nil {
		log.Warn("pipeline.ledger.finish_error", "error", err)
	}
}

func (p *Processor) publish(ctx context.Context, log *slog.Logger, res *Result, cause error) {
	event := events.DocumentEvent{
		Type:       events.TypeDocumentProcessed,
		RunID:      res.RunID,
		Locator:    res.Locator,
		SubjectID:  res.SubjectID,
		Category:   res.Category,
		Resources:  res.Graph.References(),
		OccurredAt: p.now().UTC(),
	}
	if cause != nil {
		event.Type = events.TypeDocumentFailed
		event.Error = cause.Error()
	}
	if err := p.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		log.Warn("pipeline.publish.error", "type", event.Type, "error", err)
	}
}
