package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/entity"
)

// StartRequest identifies one document pass within a batch run.
type StartRequest struct {
	RunID       string
	Locator     string
	ContentHash string
	SubjectID   string
}

// DocumentRunRepository records per-document pipeline progress.
type DocumentRunRepository interface {
	Start(ctx context.Context, req StartRequest) (*entity.DocumentRun, error)
	MarkClassified(ctx context.Context, id string, category constants.DocumentCategory) error
	FinishSuccess(ctx context.Context, id string, resources []string) error
	FinishFailure(ctx context.Context, id string, message string) error
	ListByRun(ctx context.Context, runID string) ([]*entity.DocumentRun, error)
	// SucceededByHash reports whether content with this hash was already mapped.
	SucceededByHash(ctx context.Context, contentHash string) (bool, error)
}

type documentRunRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewDocumentRunRepository(db *DB, logger *slog.Logger) DocumentRunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRunRepo{db: db, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

var documentRunColumns = []string{
	"id", "run_id", "locator", "content_hash", "subject_id", "category",
	"status", "resources", "error_message", "started_at", "finished_at",
}

func (r *documentRunRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect())
}

func (r *documentRunRepo) Start(ctx context.Context, req StartRequest) (*entity.DocumentRun, error) {
	run := &entity.DocumentRun{
		ID:          uuid.New().String(),
		RunID:       req.RunID,
		Locator:     req.Locator,
		ContentHash: req.ContentHash,
		SubjectID:   req.SubjectID,
		Status:      string(constants.JobStatusRunning),
		StartedAt:   r.now(),
	}
	query, args := r.builder().Insert(documentRunsTable).
		Columns("id", "run_id", "locator", "content_hash", "subject_id", "status", "started_at").
		Values(run.ID, run.RunID, run.Locator, run.ContentHash, run.SubjectID, run.Status, run.StartedAt).
		Query()
	if _, err := r.db.drv.DB().ExecContext(ctx, query, args...); err != nil {
		r.log.Error("repository.document_run.start_error", "locator", req.Locator, "error", err)
		return nil, common.NewAppError("LEDGER_WRITE", "start document run", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	r.log.Debug("repository.document_run.started", "id", run.ID, "run_id", run.RunID, "locator", run.Locator)
	return run, nil
}

func (r *documentRunRepo) MarkClassified(ctx context.Context, id string, category constants.DocumentCategory) error {
	return r.update(ctx, "mark_classified", id, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusClassified)).
			Set("category", string(category))
	})
}

func (r *documentRunRepo) FinishSuccess(ctx context.Context, id string, resources []string) error {
	encoded, err := json.Marshal(resources)
	if err != nil {
		return fmt.Errorf("encode resources: %w", err)
	}
	return r.update(ctx, "finish_success", id, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusMapped)).
			Set("resources", string(encoded)).
			Set("finished_at", r.now())
	})
}

func (r *documentRunRepo) FinishFailure(ctx context.Context, id string, message string) error {
	return r.update(ctx, "finish_failure", id, func(u *entsql.UpdateBuilder) {
		u.Set("status", string(constants.JobStatusFailed)).
			Set("error_message", message).
			Set("finished_at", r.now())
	})
}

func (r *documentRunRepo) update(ctx context.Context, op, id string, set func(*entsql.UpdateBuilder)) error {
	u := r.builder().Update(documentRunsTable)
	set(u)
	query, args := u.Where(entsql.EQ("id", id)).Query()

	res, err := r.db.drv.DB().ExecContext(ctx, query, args...)
	if err != nil {
		r.log.Error("repository.document_run."+op+"_error", "id", id, "error", err)
		return common.NewAppError("LEDGER_WRITE", op, fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("LEDGER_WRITE", fmt.Sprintf("%s: document run %s", op, id), common.ErrNotFound)
	}
	r.log.Debug("repository.document_run."+op, "id", id)
	return nil
}

func (r *documentRunRepo) ListByRun(ctx context.Context, runID string) ([]*entity.DocumentRun, error) {
	b := r.builder()
	query, args := b.Select(documentRunColumns...).
		From(b.Table(documentRunsTable)).
		Where(entsql.EQ("run_id", runID)).
		OrderBy("started_at", "locator").
		Query()

	rows, err := r.db.drv.DB().QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("repository.document_run.list_error", "run_id", runID, "error", err)
		return nil, common.NewAppError("LEDGER_READ", "list document runs", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Warn("repository.rows_close_error", "error", err)
		}
	}(rows)

	var out []*entity.DocumentRun
	for rows.Next() {
		run, err := scanDocumentRun(rows)
		if err != nil {
			return nil, common.NewAppError("LEDGER_READ", "scan document run", fmt.Errorf("%w: %v", common.ErrDatabase, err))
		}
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("LEDGER_READ", "iterate document runs", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	return out, nil
}

func (r *documentRunRepo) SucceededByHash(ctx context.Context, contentHash string) (bool, error) {
	b := r.builder()
	query, args := b.Select("id").
		From(b.Table(documentRunsTable)).
		Where(entsql.And(
			entsql.EQ("content_hash", contentHash),
			entsql.EQ("status", string(constants.JobStatusMapped)),
		)).
		Limit(1).
		Query()

	var id string
	err := r.db.drv.DB().QueryRowContext(ctx, query, args...).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		r.log.Error("repository.document_run.hash_lookup_error", "content_hash", contentHash, "error", err)
		return false, common.NewAppError("LEDGER_READ", "lookup content hash", fmt.Errorf("%w: %v", common.ErrDatabase, err))
	}
	return true, nil
}

func scanDocumentRun(rows *sql.Rows) (*entity.DocumentRun, error) {
	var (
		run                         entity.DocumentRun
		category, resources, errMsg sql.NullString
		finishedAt                  sql.NullTime
	)
	if err := rows.Scan(
		&run.ID, &run.RunID, &run.Locator, &run.ContentHash, &run.SubjectID, &category,
		&run.Status, &resources, &errMsg, &run.StartedAt, &finishedAt,
	); err != nil {
		return nil, err
	}
	run.Category = category.String
	run.ErrorMessage = errMsg.String
	if resources.Valid && resources.String != "" {
		if err := json.Unmarshal([]byte(resources.String), &run.Resources); err != nil {
			return nil, fmt.Errorf("decode resources: %w", err)
		}
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
