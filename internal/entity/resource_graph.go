package entity

import "github.com/joseph-ayodele/clinical-docs/constants"

// ResourceGraph lists the registry resources written for one document.
// On a failed lab mapping it still carries the observations created before the
// failure; those are not rolled back.
type ResourceGraph struct {
	Category       constants.DocumentCategory `json:"category"`
	SubjectID      string                     `json:"subject_id"`
	PractitionerID string                     `json:"practitioner_id,omitempty"`
	EncounterID    string                     `json:"encounter_id,omitempty"`
	ObservationIDs []string                   `json:"observation_ids,omitempty"`
	ReportID       string                     `json:"report_id,omitempty"`
}

// References returns every created resource as a "<Type>/<id>" string, in
// creation order.
func (g *ResourceGraph) References() []string {
	if g == nil {
		return nil
	}
	var refs []string
	for _, id := range g.ObservationIDs {
		refs = append(refs, constants.ResourceObservation+"/"+id)
	}
	if g.ReportID != "" {
		refs = append(refs, constants.ResourceDiagnosticReport+"/"+g.ReportID)
	}
	if g.EncounterID != "" {
		refs = append(refs, constants.ResourceEncounter+"/"+g.EncounterID)
	}
	return refs
}
