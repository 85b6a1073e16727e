package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/async"
	"github.com/joseph-ayodele/clinical-docs/internal/entity"
	"github.com/joseph-ayodele/clinical-docs/internal/fhir"
	"github.com/joseph-ayodele/clinical-docs/internal/patients"
	"github.com/joseph-ayodele/clinical-docs/internal/pipeline"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"process", "summary", "serve", "ledger"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	process, _, err := root.Find([]string{"process"})
	require.NoError(t, err)
	for _, flag := range []string{"dir", "patient", "out", "workers", "dry-run"} {
		assert.NotNil(t, process.Flags().Lookup(flag), flag)
	}
}

func TestBatchSummaryRecord(t *testing.T) {
	s := &batchSummary{}
	s.record(async.Outcome{
		Job: async.Job{Locator: "/docs/cbc.pdf"},
		Result: &pipeline.Result{
			Category: constants.LabResults,
			Graph:    &entity.ResourceGraph{ObservationIDs: []string{"o1", "o2"}, ReportID: "r1"},
		},
	})
	s.record(async.Outcome{Job: async.Job{Locator: "/docs/again.pdf"}, Result: &pipeline.Result{Skipped: true}})
	s.record(async.Outcome{Job: async.Job{Locator: "/docs/bad.pdf"}, Err: errors.New("boom")})

	assert.Equal(t, 1, s.processed)
	assert.Equal(t, 1, s.skipped)
	assert.Equal(t, 3, s.resources)
	assert.Equal(t, []string{"bad.pdf"}, s.failed)
}

func TestFormatSummary(t *testing.T) {
	v := 7.5
	out := formatSummary(&patients.PatientData{
		Patient: &fhir.Patient{ID: "patient-123", BirthDate: "1980-02-03", Name: []fhir.HumanName{{Given: []string{"Ana"}, Family: "Silva"}}},
		Encounters: []*fhir.Encounter{
			{ID: "enc-1", Period: &fhir.Period{Start: "2024-03-01", End: "2024-03-01"}, ReasonCode: []fhir.CodeableConcept{{Text: "Follow-up"}}},
		},
		Reports: []*fhir.DiagnosticReport{
			{ID: "rep-1", EffectiveDateTime: "2024-03-02", Code: fhir.CodeableConcept{Text: "CBC"}, Result: []fhir.Reference{{Reference: "Observation/o1"}}},
		},
		Observations: []*fhir.Observation{
			{ID: "o1", EffectiveDateTime: "2024-03-02", Code: fhir.CodeableConcept{Text: "WBC"}, ValueQuantity: &fhir.Quantity{Value: &v, Unit: "10^9/L"}},
		},
	})

	assert.Contains(t, out, "Patient/patient-123 Ana Silva")
	assert.Contains(t, out, "born 1980-02-03")
	assert.Contains(t, out, "Encounters (1)")
	assert.Contains(t, out, "Follow-up")
	assert.Contains(t, out, "CBC (1 results)")
	assert.Contains(t, out, "WBC 7.5 10^9/L")
}

func TestQuantityWithoutValue(t *testing.T) {
	assert.Empty(t, quantity(nil))
	assert.Empty(t, quantity(&fhir.Quantity{Unit: "mg"}))
}
