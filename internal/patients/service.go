package patients

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/fhir"
	"github.com/joseph-ayodele/clinical-docs/internal/registry"
)

// PatientData is a subject with the clinical resources written about them, newest first.
type PatientData struct {
	Patient      *fhir.Patient
	Encounters   []*fhir.Encounter
	Reports      []*fhir.DiagnosticReport
	Observations []*fhir.Observation
}

type Service struct {
	registry registry.Client
	log      *slog.Logger
}

func NewService(reg registry.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{registry: reg, log: logger}
}

// GetPatientData reads the patient and searches each clinical resource type by subject.
func (s *Service) GetPatientData(ctx context.Context, patientID string) (*PatientData, error) {
	if err := common.NewValidator().Field("patientID", patientID, common.Required).Error(); err != nil {
		return nil, err
	}

	stored, err := s.registry.Read(ctx, constants.ResourcePatient, patientID)
	if err != nil {
		return nil, fmt.Errorf("read patient: %w", err)
	}
	out := &PatientData{Patient: &fhir.Patient{}}
	if err := stored.Decode(out.Patient); err != nil {
		return nil, fmt.Errorf("decode patient: %w", err)
	}

	params := url.Values{
		"patient": {fhir.ReferenceString(constants.ResourcePatient, patientID)},
		"_sort":   {"-date"},
	}
	if out.Encounters, err = search[fhir.Encounter](ctx, s.registry, constants.ResourceEncounter, params); err != nil {
		return nil, err
	}
	if out.Reports, err = search[fhir.DiagnosticReport](ctx, s.registry, constants.ResourceDiagnosticReport, params); err != nil {
		return nil, err
	}
	if out.Observations, err = search[fhir.Observation](ctx, s.registry, constants.ResourceObservation, params); err != nil {
		return nil, err
	}

	s.log.Info("patients.summary.ok",
		"patient_id", patientID,
		"encounters", len(out.Encounters),
		"reports", len(out.Reports),
		"observations", len(out.Observations),
	)
	return out, nil
}

func search[T any](ctx context.Context, reg registry.Client, resourceType string, params url.Values) ([]*T, error) {
	found, err := reg.Search(ctx, resourceType, params)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", resourceType, err)
	}
	out := make([]*T, 0, len(found))
	for _, st := range found {
		v := new(T)
		if err := st.Decode(v); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", resourceType, st.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}
