package anthropic

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
}

func pdfAttachment() *llm.Attachment {
	return &llm.Attachment{Data: []byte("%PDF-1.4 test"), MIMEType: "application/pdf", Filename: "doc.pdf"}
}

func TestGenerateSendsDocumentAndForcedTool(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"model": "claude-3-5-sonnet-20241022",
			"stop_reason": "tool_use",
			"content": [{"type": "tool_use", "id": "tu_1", "name": "visit_note",
				"input": {"date": "2024-03-20", "provider": "Jane Doe", "notes": "ok", "status": "finished"}}]
		}`)
	})

	resp, err := client.Generate(context.Background(), llm.Request{
		Instruction: "extract",
		Schema:      llm.BuildVisitJSONSchema(),
		SchemaName:  llm.SchemaNameVisit,
		Attachment:  pdfAttachment(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"date": "2024-03-20", "provider": "Jane Doe", "notes": "ok", "status": "finished"}`, string(resp.Object))

	messages := got["messages"].([]any)
	content := messages[0].(map[string]any)["content"].([]any)
	doc := content[0].(map[string]any)
	assert.Equal(t, "document", doc["type"])
	source := doc["source"].(map[string]any)
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "application/pdf", source["media_type"])
	assert.Equal(t, pdfAttachment().Base64(), source["data"])
	assert.Equal(t, "text", content[1].(map[string]any)["type"])

	choice := got["tool_choice"].(map[string]any)
	assert.Equal(t, "tool", choice["type"])
	assert.Equal(t, llm.SchemaNameVisit, choice["name"])
	tools := got["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Contains(t, tools[0].(map[string]any), "input_schema")
}

func TestGenerateTextWithoutSchema(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, `{"model": "m", "content": [{"type": "text", "text": "{\"documentType\": \"LAB_RESULTS\"}"}]}`)
	})

	resp, err := client.Generate(context.Background(), llm.Request{Instruction: "classify", Attachment: pdfAttachment()})
	require.NoError(t, err)
	assert.Equal(t, `{"documentType": "LAB_RESULTS"}`, resp.Text)
	assert.Empty(t, resp.Object)
	assert.NotContains(t, got, "tools")
	assert.NotContains(t, got, "tool_choice")
}

func TestGenerateFallsBackToFencedText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"model": "m", "content": [{"type": "text", "text": "`+"```json\\n{\\\"status\\\": \\\"final\\\"}\\n```"+`"}]}`)
	})

	resp, err := client.Generate(context.Background(), llm.Request{
		Instruction: "extract",
		Schema:      llm.BuildLabJSONSchema(),
		SchemaName:  llm.SchemaNameLab,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "final"}`, string(resp.Object))
}

func TestGenerateHTTPErrorIsGenerationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"type": "error", "error": {"type": "api_error", "message": "overloaded"}}`)
	})

	_, err := client.Generate(context.Background(), llm.Request{Instruction: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrGeneration))
	assert.Contains(t, err.Error(), "overloaded")
}

func TestGenerateMissingToolUseIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"model": "m", "stop_reason": "max_tokens", "content": []}`)
	})

	_, err := client.Generate(context.Background(), llm.Request{
		Instruction: "extract",
		Schema:      llm.BuildVisitJSONSchema(),
		SchemaName:  llm.SchemaNameVisit,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMalformedResponse))
}

func TestGenerateHonorsContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, llm.Request{Instruction: "x"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrGeneration))
}
