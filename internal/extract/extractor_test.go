package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/entity"
	"github.com/joseph-ayodele/clinical-docs/internal/llm"
)

type stubGenerator struct {
	resp *llm.Response
	err  error
	reqs []llm.Request
}

func (s *stubGenerator) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	s.reqs = append(s.reqs, req)
	return s.resp, s.err
}

func (s *stubGenerator) Name() string { return "stub" }

func newExtractor(t *testing.T, gen llm.Generator) *Extractor {
	t.Helper()
	e, err := NewExtractor(gen, nil)
	require.NoError(t, err)
	return e
}

const labJSON = `{
	"date": "2024-03-20",
	"issued": "2024-03-21",
	"orderingProvider": "<UNKNOWN>",
	"status": "final",
	"code": "CBC",
	"results": [
		{"testName": "WBC", "value": 7.5, "unit": "10^9/L", "referenceRange": "4.5-11.0", "interpretation": "normal", "status": "final"},
		{"testName": "HGB", "value": 13.9, "unit": "g/dL", "referenceRange": "13.5-17.5", "interpretation": "normal", "status": "final"}
	],
	"conclusion": "Within normal limits."
}`

func TestExtractLab(t *testing.T) {
	gen := &stubGenerator{resp: &llm.Response{Object: []byte(labJSON)}}
	rec, err := newExtractor(t, gen).ExtractLab(context.Background(), []byte("%PDF"))
	require.NoError(t, err)

	assert.Equal(t, "2024-03-20", rec.Date)
	assert.Equal(t, "2024-03-21", rec.Issued)
	assert.Equal(t, constants.UnknownProvider, rec.OrderingProvider)
	require.Len(t, rec.Results, 2)
	assert.Equal(t, "WBC", rec.Results[0].TestName)
	assert.Equal(t, 7.5, rec.Results[0].Value)
	assert.Equal(t, "HGB", rec.Results[1].TestName)

	require.Len(t, gen.reqs, 1)
	assert.Equal(t, llm.SchemaNameLab, gen.reqs[0].SchemaName)
	assert.NotNil(t, gen.reqs[0].Schema)
	assert.Equal(t, constants.MIMEApplicationPDF, gen.reqs[0].Attachment.MIMEType)
}

func TestExtractLabRejectsEntryStatus(t *testing.T) {
	bad := `{"date": "2024-03-20", "issued": "2024-03-21", "orderingProvider": "Jane Doe",
		"status": "final", "code": "CBC", "conclusion": "ok",
		"results": [{"testName": "WBC", "value": 7.5, "unit": "10^9/L", "referenceRange": "4.5-11.0",
			"interpretation": "normal", "status": "invalid_status"}]}`
	gen := &stubGenerator{resp: &llm.Response{Object: []byte(bad)}}

	_, err := newExtractor(t, gen).ExtractLab(context.Background(), []byte("%PDF"))
	require.Error(t, err)

	var ve *common.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "/results/0/status", ve.Field)
	assert.Equal(t, "enum", ve.Constraint)
}

func TestExtractLabRejectsImpossibleDate(t *testing.T) {
	bad := `{"date": "2023-02-30", "issued": "2024-03-21", "orderingProvider": "Jane Doe",
		"status": "final", "code": "CBC", "conclusion": "ok", "results": []}`
	gen := &stubGenerator{resp: &llm.Response{Object: []byte(bad)}}

	_, err := newExtractor(t, gen).ExtractLab(context.Background(), []byte("%PDF"))
	var ve *common.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "/date", ve.Field)
	assert.Equal(t, "calendarDate", ve.Constraint)
}

func TestExtractVisitFromFencedText(t *testing.T) {
	text := "```json\n{\"date\": \"2024-03-20\", \"provider\": \"Jane Doe\", \"notes\": \"Cough, 3 days.\", \"status\": \"finished\"}\n```"
	gen := &stubGenerator{resp: &llm.Response{Text: text}}

	rec, err := newExtractor(t, gen).ExtractVisit(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, entity.VisitRecord{Date: "2024-03-20", Provider: "Jane Doe", Notes: "Cough, 3 days.", Status: "finished"}, rec)
}

func TestExtractVisitErrors(t *testing.T) {
	tests := []struct {
		name     string
		gen      *stubGenerator
		sentinel error
	}{
		{
			name:     "generation failure",
			gen:      &stubGenerator{err: common.NewGenerationError("stub", "generate", errors.New("unreachable"))},
			sentinel: common.ErrGeneration,
		},
		{
			name:     "non json output",
			gen:      &stubGenerator{resp: &llm.Response{Text: "sorry"}},
			sentinel: common.ErrMalformedResponse,
		},
		{
			name: "status outside enumeration",
			gen: &stubGenerator{resp: &llm.Response{Object: []byte(
				`{"date": "2024-03-20", "provider": "Jane Doe", "notes": "n", "status": "completed"}`)}},
			sentinel: common.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newExtractor(t, tt.gen).ExtractVisit(context.Background(), []byte("%PDF"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestExtractDispatchesOnCategory(t *testing.T) {
	gen := &stubGenerator{resp: &llm.Response{Object: []byte(labJSON)}}
	got, err := newExtractor(t, gen).Extract(context.Background(), constants.LabResults, []byte("%PDF"))
	require.NoError(t, err)

	lab, ok := got.(entity.LabRecord)
	require.True(t, ok)
	assert.Equal(t, constants.LabResults, lab.Category())

	_, err = newExtractor(t, gen).Extract(context.Background(), constants.DocumentCategory("OTHER"), []byte("%PDF"))
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestExtractIgnoresUnknownKeys(t *testing.T) {
	visit := `{"date": "2024-03-20", "provider": "Jane Doe", "notes": "Chest pain.", "status": "finished", "department": "cardiology"}`
	gen := &stubGenerator{resp: &llm.Response{Object: []byte(visit)}}
	rec, err := newExtractor(t, gen).ExtractVisit(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", rec.Provider)
	assert.Equal(t, "finished", rec.Status)

	// the provider still receives the closed schema
	require.Len(t, gen.reqs, 1)
	assert.Equal(t, false, gen.reqs[0].Schema["additionalProperties"])

	lab := `{"date": "2024-03-20", "issued": "2024-03-21", "orderingProvider": "<UNKNOWN>", "status": "final",
		"code": "CBC", "conclusion": "ok", "laboratory": "Quest",
		"results": [{"testName": "WBC", "value": 7.5, "unit": "10^9/L", "referenceRange": "4.5-11.0",
			"interpretation": "normal", "status": "final", "flag": "N"}]}`
	labRec, err := newExtractor(t, &stubGenerator{resp: &llm.Response{Object: []byte(lab)}}).ExtractLab(context.Background(), []byte("%PDF"))
	require.NoError(t, err)
	require.Len(t, labRec.Results, 1)
	assert.Equal(t, 7.5, labRec.Results[0].Value)
}

func TestExtractRejectsProseAroundObject(t *testing.T) {
	text := `Here is the record: {"date": "2024-03-20", "provider": "Jane Doe", "notes": "x", "status": "finished"} Let me know.`
	_, err := newExtractor(t, &stubGenerator{resp: &llm.Response{Text: text}}).ExtractVisit(context.Background(), []byte("%PDF"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMalformedResponse)
}
