package mapper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/entity"
	"github.com/joseph-ayodele/clinical-docs/internal/fhir"
	"github.com/joseph-ayodele/clinical-docs/internal/registry"
)

// PractitionerResolver is the find-or-create dependency of the mapper.
type PractitionerResolver interface {
	FindOrCreate(ctx context.Context, displayName string) (entity.PersonIdentity, error)
}

// Config is shared, read-only mapper configuration.
type Config struct {
	// DefaultPractitionerID is referenced when a record names no provider.
	// When empty the provider reference is omitted.
	DefaultPractitionerID string
}

// Mapper writes the resource graph for a validated record.
type Mapper struct {
	registry registry.Client
	resolver PractitionerResolver
	cfg      Config
	log      *slog.Logger
}

func NewMapper(reg registry.Client, resolver PractitionerResolver, cfg Config, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultPractitionerID == "" {
		logger.Warn("mapper.default_practitioner_missing",
			"hint", "records without a named provider will carry no practitioner reference")
	}
	return &Mapper{registry: reg, resolver: resolver, cfg: cfg, log: logger}
}

// Map dispatches on the concrete record type.
func (m *Mapper) Map(ctx context.Context, rec entity.Extraction, subjectID string) (*entity.ResourceGraph, error) {
	switch r := rec.(type) {
	case entity.VisitRecord:
		return m.MapVisit(ctx, r, subjectID)
	case entity.LabRecord:
		return m.MapLab(ctx, r, subjectID)
	default:
		return nil, common.NewAppError("UNSUPPORTED_RECORD", fmt.Sprintf("no mapping for %T", rec), common.ErrInvalidInput)
	}
}

// FormatDateToISO expands YYYY-MM-DD to midnight UTC.
func FormatDateToISO(date string) string {
	return date + "T00:00:00Z"
}

// resolveProvider returns the practitioner id to reference, or "" when the
// provider is not determined.
func (m *Mapper) resolveProvider(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == constants.UnknownProvider {
		if m.cfg.DefaultPractitionerID == "" {
			m.log.Warn("mapper.provider_undetermined")
		}
		return m.cfg.DefaultPractitionerID, nil
	}
	identity, err := m.resolver.FindOrCreate(ctx, name)
	if err != nil {
		return "", err
	}
	return identity.ID, nil
}

func validateSubject(subjectID string) error {
	return common.NewValidator().Field("subjectID", subjectID, common.Required).Error()
}

func subjectRef(subjectID string) *fhir.Reference {
	return fhir.NewReference(constants.ResourcePatient, subjectID)
}

func practitionerRef(id string) *fhir.Reference {
	return fhir.NewReference(constants.ResourcePractitioner, id)
}
