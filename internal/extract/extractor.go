package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/entity"
	"github.com/joseph-ayodele/clinical-docs/internal/llm"
)

// Extractor runs schema-constrained generation and validates the output locally
// before decoding it. Local validation ignores keys the schema does not name.
type Extractor struct {
	gen llm.Generator
	log *slog.Logger

	visitSchema   map[string]any
	labSchema     map[string]any
	visitCompiled *jsonschema.Schema
	labCompiled   *jsonschema.Schema
}

func NewExtractor(gen llm.Generator, logger *slog.Logger) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		gen:         gen,
		log:         logger,
		visitSchema: llm.BuildVisitJSONSchema(),
		labSchema:   llm.BuildLabJSONSchema(),
	}
	var err error
	if e.visitCompiled, err = llm.CompileSchema(llm.SchemaNameVisit, llm.LenientSchema(e.visitSchema)); err != nil {
		return nil, fmt.Errorf("visit schema: %w", err)
	}
	if e.labCompiled, err = llm.CompileSchema(llm.SchemaNameLab, llm.LenientSchema(e.labSchema)); err != nil {
		return nil, fmt.Errorf("lab schema: %w", err)
	}
	return e, nil
}

// Extract dispatches to the branch matching category.
func (e *Extractor) Extract(ctx context.Context, category constants.DocumentCategory, document []byte) (entity.Extraction, error) {
	switch category {
	case constants.VisitNote:
		rec, err := e.ExtractVisit(ctx, document)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case constants.LabResults:
		rec, err := e.ExtractLab(ctx, document)
		if err != nil {
			return nil, err
		}
		return rec, nil
	default:
		return nil, common.NewAppError("UNSUPPORTED_CATEGORY", fmt.Sprintf("no extractor for category %q", category), common.ErrInvalidInput)
	}
}

// ExtractVisit extracts and validates a VisitRecord.
func (e *Extractor) ExtractVisit(ctx context.Context, document []byte) (entity.VisitRecord, error) {
	var rec entity.VisitRecord
	raw, err := e.generate(ctx, document, llm.BuildVisitPrompt(), llm.SchemaNameVisit, e.visitSchema, e.visitCompiled)
	if err != nil {
		return entity.VisitRecord{}, err
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return entity.VisitRecord{}, common.NewMalformedResponseError("decode visit record", string(raw), err)
	}

	v := common.NewValidator().Field("/date", rec.Date, common.CalendarDate)
	if v.HasErrors() {
		e.log.Warn("extract.visit.invalid", "error", v.ErrorMessage())
		return entity.VisitRecord{}, v.Error()
	}

	e.log.Info("extract.visit.ok", "date", rec.Date, "status", rec.Status, "provider_known", rec.Provider != constants.UnknownProvider)
	return rec, nil
}

// ExtractLab extracts and validates a LabRecord. Result order is kept as emitted.
func (e *Extractor) ExtractLab(ctx context.Context, document []byte) (entity.LabRecord, error) {
	var rec entity.LabRecord
	raw, err := e.generate(ctx, document, llm.BuildLabPrompt(), llm.SchemaNameLab, e.labSchema, e.labCompiled)
	if err != nil {
		return entity.LabRecord{}, err
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return entity.LabRecord{}, common.NewMalformedResponseError("decode lab record", string(raw), err)
	}

	v := common.NewValidator().
		Field("/date", rec.Date, common.CalendarDate).
		Field("/issued", rec.Issued, common.CalendarDate)
	if v.HasErrors() {
		e.log.Warn("extract.lab.invalid", "error", v.ErrorMessage())
		return entity.LabRecord{}, v.Error()
	}

	e.log.Info("extract.lab.ok", "date", rec.Date, "status", rec.Status, "code", rec.Code, "results", len(rec.Results))
	return rec, nil
}

func (e *Extractor) generate(ctx context.Context, document []byte, instruction, schemaName string, schema map[string]any, compiled *jsonschema.Schema) ([]byte, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()
	e.log.Info("extract.start", "req_id", rid, "schema", schemaName, "bytes", len(document))

	resp, err := e.gen.Generate(ctx, llm.Request{
		Instruction: instruction,
		Schema:      schema,
		SchemaName:  schemaName,
		Attachment:  &llm.Attachment{Data: document, MIMEType: constants.MIMEApplicationPDF, Filename: "document.pdf"},
	})
	if err != nil {
		e.log.Error("extract.generate_error", "req_id", rid, "schema", schemaName, "error", err)
		return nil, err
	}

	raw := resp.Object
	if len(raw) == 0 {
		raw = llm.SanitizeJSONText(resp.Text)
	}
	if err := llm.ValidateJSON(compiled, raw); err != nil {
		e.log.Error("extract.schema_validation_failed",
			"req_id", rid, "schema", schemaName, "error", err, "content", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	e.log.Debug("extract.validated", "req_id", rid, "schema", schemaName, "elapsed_ms", time.Since(start).Milliseconds())
	return raw, nil
}
