package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/clinical-docs/internal/common"
)

const validLab = `{
	"date": "2024-03-20",
	"issued": "2024-03-21",
	"orderingProvider": "<UNKNOWN>",
	"status": "final",
	"code": "CBC",
	"results": [
		{"testName": "WBC", "value": 7.5, "unit": "10^9/L", "referenceRange": "4.5-11.0", "interpretation": "normal", "status": "final"}
	],
	"conclusion": "Within normal limits."
}`

func TestValidateLabSchema(t *testing.T) {
	require.NoError(t, validateAgainst(t, BuildLabJSONSchema(), []byte(validLab)))

	empty := `{"date": "2024-03-20", "issued": "2024-03-21", "orderingProvider": "X Y",
		"status": "final", "code": "CBC", "results": [], "conclusion": ""}`
	assert.NoError(t, validateAgainst(t, BuildLabJSONSchema(), []byte(empty)), "empty results are valid")
}

func TestValidateRejectsEntryStatus(t *testing.T) {
	bad := `{"date": "2024-03-20", "issued": "2024-03-21", "orderingProvider": "X Y",
		"status": "final", "code": "CBC", "conclusion": "",
		"results": [{"testName": "WBC", "value": 7.5, "unit": "u", "referenceRange": "r", "interpretation": "i", "status": "invalid_status"}]}`

	err := validateAgainst(t, BuildLabJSONSchema(), []byte(bad))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrValidation))

	var ve *common.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "/results/0/status", ve.Field)
	assert.Equal(t, "enum", ve.Constraint)
}

func TestValidateRejectsAppendedObservation(t *testing.T) {
	bad := `{"date": "2024-03-20", "issued": "2024-03-21", "orderingProvider": "X Y",
		"status": "appended", "code": "CBC", "conclusion": "",
		"results": [{"testName": "WBC", "value": 7.5, "unit": "u", "referenceRange": "r", "interpretation": "i", "status": "appended"}]}`

	var ve *common.ValidationError
	require.True(t, errors.As(validateAgainst(t, BuildLabJSONSchema(), []byte(bad)), &ve))
	assert.Equal(t, "/results/0/status", ve.Field)
}

func TestValidateVisitSchema(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		field      string
		constraint string
	}{
		{
			name:       "missing status",
			doc:        `{"date": "2024-03-20", "provider": "A B", "notes": "n"}`,
			field:      "/status",
			constraint: "required",
		},
		{
			name:       "status outside enumeration",
			doc:        `{"date": "2024-03-20", "provider": "A B", "notes": "n", "status": "done"}`,
			field:      "/status",
			constraint: "enum",
		},
		{
			name:       "date shape",
			doc:        `{"date": "20/03/2024", "provider": "A B", "notes": "n", "status": "finished"}`,
			field:      "/date",
			constraint: "pattern",
		},
		{
			name:       "unknown property",
			doc:        `{"date": "2024-03-20", "provider": "A B", "notes": "n", "status": "finished", "extra": 1}`,
			field:      "/extra",
			constraint: "additionalProperties",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAgainst(t, BuildVisitJSONSchema(), []byte(tt.doc))
			var ve *common.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
			assert.Equal(t, tt.constraint, ve.Constraint)
		})
	}
}

func TestValidateNonJSONIsMalformed(t *testing.T) {
	err := validateAgainst(t, BuildVisitJSONSchema(), []byte("I could not read the document"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedResponse))
}

func TestClassificationSchema(t *testing.T) {
	schema := BuildClassificationSchema()
	assert.NoError(t, validateAgainst(t, schema, []byte(`{"documentType": "VISIT_NOTE"}`)))
	assert.NoError(t, validateAgainst(t, schema, []byte(`{"documentType": "VISIT_NOTE", "confidence": 0.9}`)))

	var ve *common.ValidationError
	require.True(t, errors.As(validateAgainst(t, schema, []byte(`{"documentType": "INVALID_TYPE"}`)), &ve))
	assert.Equal(t, "enum", ve.Constraint)
}

func validateAgainst(t *testing.T, schemaMap map[string]any, data []byte) error {
	t.Helper()
	schema, err := CompileSchema("test", schemaMap)
	require.NoError(t, err)
	return ValidateJSON(schema, data)
}

func TestLenientSchemaDropsAdditionalProperties(t *testing.T) {
	strict := BuildLabJSONSchema()
	lenient := LenientSchema(strict)

	_, ok := lenient["additionalProperties"]
	assert.False(t, ok)
	results := lenient["properties"].(map[string]any)["results"].(map[string]any)["items"].(map[string]any)
	_, ok = results["additionalProperties"]
	assert.False(t, ok)

	assert.Equal(t, false, strict["additionalProperties"], "the original schema is not modified")

	withExtra := `{"date": "2024-03-20", "issued": "2024-03-21", "orderingProvider": "x", "status": "final",
		"code": "CBC", "results": [], "conclusion": "ok", "lab": "Quest"}`
	assert.Error(t, validateAgainst(t, strict, []byte(withExtra)))
	assert.NoError(t, validateAgainst(t, lenient, []byte(withExtra)))
}
