package extract

import (
	"context"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/entity"
)

// RecordExtractor converts raw PDF bytes into a validated record.
type RecordExtractor interface {
	ExtractVisit(ctx context.Context, document []byte) (entity.VisitRecord, error)
	ExtractLab(ctx context.Context, document []byte) (entity.LabRecord, error)
	Extract(ctx context.Context, category constants.DocumentCategory, document []byte) (entity.Extraction, error)
}

var _ RecordExtractor = (*Extractor)(nil)
