package mapper

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/entity"
	"github.com/joseph-ayodele/clinical-docs/internal/fhir"
)

// MapVisit creates one Encounter. The period starts and ends on the visit date.
func (m *Mapper) MapVisit(ctx context.Context, rec entity.VisitRecord, subjectID string) (*entity.ResourceGraph, error) {
	graph := &entity.ResourceGraph{Category: constants.VisitNote, SubjectID: subjectID}
	if err := validateSubject(subjectID); err != nil {
		return graph, err
	}

	practitionerID, err := m.resolveProvider(ctx, rec.Provider)
	if err != nil {
		return graph, fmt.Errorf("resolve provider: %w", err)
	}
	graph.PractitionerID = practitionerID

	encounter := BuildEncounter(rec, subjectID, practitionerID)
	stored, err := m.registry.Create(ctx, constants.ResourceEncounter, encounter)
	if err != nil {
		m.log.Error("mapper.visit.create_error", "subject_id", subjectID, "error", err)
		return graph, fmt.Errorf("create encounter: %w", err)
	}
	graph.EncounterID = stored.ID

	m.log.Info("mapper.visit.ok", "subject_id", subjectID, "encounter_id", stored.ID, "practitioner_id", practitionerID)
	return graph, nil
}

// BuildEncounter renders a visit record as an Encounter. The participant is
// omitted when practitionerID is empty.
func BuildEncounter(rec entity.VisitRecord, subjectID, practitionerID string) *fhir.Encounter {
	date := FormatDateToISO(rec.Date)
	enc := fhir.NewEncounter()
	enc.Status = rec.Status
	enc.Class = fhir.Coding{
		System:  constants.SystemActCode,
		Code:    constants.CodeAmbulatory,
		Display: constants.DisplayAmbulatory,
	}
	enc.Subject = subjectRef(subjectID)
	enc.Period = &fhir.Period{Start: date, End: date}
	enc.ReasonCode = []fhir.CodeableConcept{{Text: rec.Notes}}
	if practitionerID != "" {
		enc.Participant = []fhir.EncounterParticipant{{
			Type: []fhir.CodeableConcept{{Coding: []fhir.Coding{{
				System:  constants.SystemParticipationType,
				Code:    constants.CodePrimaryPerformer,
				Display: constants.DisplayPrimaryPerf,
			}}}},
			Individual: practitionerRef(practitionerID),
		}}
	}
	return enc
}
