package fhir

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferences(t *testing.T) {
	assert.Equal(t, "Patient/patient-123", NewReference("Patient", "patient-123").Reference)

	typ, id, err := ParseReference("Observation/abc")
	require.NoError(t, err)
	assert.Equal(t, "Observation", typ)
	assert.Equal(t, "abc", id)

	for _, bad := range []string{"", "Observation", "Observation/", "/abc", "a/b/c"} {
		_, _, err := ParseReference(bad)
		assert.Error(t, err, bad)
	}
}

func TestQuantityKeepsZero(t *testing.T) {
	zero := 0.0
	b, err := json.Marshal(Quantity{Value: &zero, Unit: "mg/dL"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"value": 0, "unit": "mg/dL"}`, string(b))
}

func TestOperationOutcomeDiagnostics(t *testing.T) {
	oo := OperationOutcome{Issue: []OperationOutcomeIssue{
		{Severity: "error", Code: "invalid", Diagnostics: "bad status"},
		{Severity: "error", Code: "invalid", Details: CodeableConcept{Text: "missing subject"}},
		{Severity: "warning", Code: "informational"},
	}}
	assert.Equal(t, "bad status; missing subject", oo.Diagnostics())
}
