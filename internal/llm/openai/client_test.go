package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/llm"
)

func TestGenerateSendsFilePartAndJSONSchema(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, `{"model": "gpt-4o-mini", "choices": [{"finish_reason": "stop",
			"message": {"content": "{\"date\": \"2024-03-20\", \"provider\": \"A B\", \"notes\": \"n\", \"status\": \"finished\"}"}}]}`)
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil)
	resp, err := client.Generate(context.Background(), llm.Request{
		Instruction: "extract",
		Schema:      llm.BuildVisitJSONSchema(),
		SchemaName:  llm.SchemaNameVisit,
		Attachment:  &llm.Attachment{Data: []byte("%PDF"), MIMEType: "application/pdf"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date": "2024-03-20", "provider": "A B", "notes": "n", "status": "finished"}`, string(resp.Object))

	format := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, llm.SchemaNameVisit, schema["name"])
	assert.Equal(t, true, schema["strict"])

	content := got["messages"].([]any)[0].(map[string]any)["content"].([]any)
	file := content[0].(map[string]any)["file"].(map[string]any)
	assert.Equal(t, "document.pdf", file["filename"])
	assert.True(t, strings.HasPrefix(file["file_data"].(string), "data:application/pdf;base64,"))
	assert.NotContains(t, got, "temperature")
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
	}{
		{"server error", http.StatusTooManyRequests, `{"error": {"message": "rate limited"}}`, common.ErrGeneration},
		{"no choices", http.StatusOK, `{"choices": []}`, common.ErrMalformedResponse},
		{"not json", http.StatusOK, `<html>`, common.ErrMalformedResponse},
		{"refusal", http.StatusOK, `{"choices": [{"message": {"refusal": "no"}}]}`, common.ErrGeneration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
			_, err := client.Generate(context.Background(), llm.Request{Instruction: "x"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}
