package entity

import "github.com/joseph-ayodele/clinical-docs/constants"

// Extraction is the validated output of the extractor for one document.
// It is implemented only by VisitRecord and LabRecord.
type Extraction interface {
	Category() constants.DocumentCategory
	isExtraction()
}

// VisitRecord is the structured content of a visit note.
type VisitRecord struct {
	Date     string `json:"date"`     // YYYY-MM-DD
	Provider string `json:"provider"` // free text or constants.UnknownProvider
	Notes    string `json:"notes"`
	Status   string `json:"status"` // constants.EncounterStatuses
}

func (VisitRecord) Category() constants.DocumentCategory { return constants.VisitNote }
func (VisitRecord) isExtraction()                        {}

// LabRecord is the structured content of a laboratory report.
type LabRecord struct {
	Date             string        `json:"date"`   // collection date, YYYY-MM-DD
	Issued           string        `json:"issued"` // report date, YYYY-MM-DD
	OrderingProvider string        `json:"orderingProvider"`
	Status           string        `json:"status"` // constants.ReportStatuses
	Code             string        `json:"code"`
	Results          []ResultEntry `json:"results"`
	Conclusion       string        `json:"conclusion"`
}

func (LabRecord) Category() constants.DocumentCategory { return constants.LabResults }
func (LabRecord) isExtraction()                        {}

// ResultEntry is one measured analyte; order within LabRecord.Results is significant.
type ResultEntry struct {
	TestName       string  `json:"testName"`
	Value          float64 `json:"value"`
	Unit           string  `json:"unit"`
	ReferenceRange string  `json:"referenceRange"`
	Interpretation string  `json:"interpretation"`
	Status         string  `json:"status"` // constants.ObservationStatuses
}

// PersonIdentity is a practitioner resolved in the registry.
type PersonIdentity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Created bool   `json:"created"`
}
