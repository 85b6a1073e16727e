package mapper

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/entity"
	"github.com/joseph-ayodele/clinical-docs/internal/fhir"
)

// MapLab creates one Observation per result entry, in order, then a
// DiagnosticReport referencing them in the same order.
//
// If an Observation fails the report is not created. Observations already
// created stay in the registry and are listed in the returned graph.
func (m *Mapper) MapLab(ctx context.Context, rec entity.LabRecord, subjectID string) (*entity.ResourceGraph, error) {
	graph := &entity.ResourceGraph{Category: constants.LabResults, SubjectID: subjectID}
	if err := validateSubject(subjectID); err != nil {
		return graph, err
	}

	practitionerID, err := m.resolveProvider(ctx, rec.OrderingProvider)
	if err != nil {
		return graph, fmt.Errorf("resolve provider: %w", err)
	}
	graph.PractitionerID = practitionerID

	for i, entry := range rec.Results {
		stored, err := m.registry.Create(ctx, constants.ResourceObservation, BuildObservation(entry, rec, subjectID))
		if err != nil {
			m.log.Error("mapper.lab.observation_error",
				"subject_id", subjectID,
				"index", i,
				"test_name", entry.TestName,
				"orphaned_observations", len(graph.ObservationIDs),
				"error", err,
			)
			return graph, fmt.Errorf("create observation %d (%s): %w", i, entry.TestName, err)
		}
		graph.ObservationIDs = append(graph.ObservationIDs, stored.ID)
	}

	report := BuildDiagnosticReport(rec, subjectID, practitionerID, graph.ObservationIDs)
	stored, err := m.registry.Create(ctx, constants.ResourceDiagnosticReport, report)
	if err != nil {
		m.log.Error("mapper.lab.report_error",
			"subject_id", subjectID,
			"orphaned_observations", len(graph.ObservationIDs),
			"error", err,
		)
		return graph, fmt.Errorf("create diagnostic report: %w", err)
	}
	graph.ReportID = stored.ID

	m.log.Info("mapper.lab.ok",
		"subject_id", subjectID,
		"report_id", stored.ID,
		"observations", len(graph.ObservationIDs),
		"practitioner_id", practitionerID,
	)
	return graph, nil
}

// BuildObservation renders one result entry. Timestamps come from the parent record.
func BuildObservation(entry entity.ResultEntry, rec entity.LabRecord, subjectID string) *fhir.Observation {
	value := entry.Value
	obs := fhir.NewObservation()
	obs.Status = entry.Status
	obs.Subject = subjectRef(subjectID)
	obs.EffectiveDateTime = FormatDateToISO(rec.Date)
	obs.Issued = FormatDateToISO(rec.Issued)
	obs.Code = fhir.CodeableConcept{Text: entry.TestName}
	obs.ValueQuantity = &fhir.Quantity{Value: &value, Unit: entry.Unit}
	obs.ReferenceRange = []fhir.ObservationReferenceRange{{Text: entry.ReferenceRange}}
	obs.Interpretation = []fhir.CodeableConcept{{Text: entry.Interpretation}}
	return obs
}

// BuildDiagnosticReport renders the report with results in observationIDs order.
func BuildDiagnosticReport(rec entity.LabRecord, subjectID, practitionerID string, observationIDs []string) *fhir.DiagnosticReport {
	report := fhir.NewDiagnosticReport()
	report.Status = rec.Status
	report.Category = []fhir.CodeableConcept{{Coding: []fhir.Coding{{
		System:  constants.SystemDiagnosticService,
		Code:    constants.CodeLaboratory,
		Display: constants.DisplayLaboratory,
	}}}}
	report.Code = fhir.CodeableConcept{Text: rec.Code}
	report.Subject = subjectRef(subjectID)
	report.EffectiveDateTime = FormatDateToISO(rec.Date)
	report.Issued = FormatDateToISO(rec.Issued)
	if practitionerID != "" {
		report.ResultsInterpreter = []fhir.Reference{*practitionerRef(practitionerID)}
	}
	report.Result = make([]fhir.Reference, 0, len(observationIDs))
	for _, id := range observationIDs {
		report.Result = append(report.Result, *fhir.NewReference(constants.ResourceObservation, id))
	}
	report.Conclusion = rec.Conclusion
	return report
}
