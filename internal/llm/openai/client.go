package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/llm"
)

type chatRequest struct {
	Model               string          `json:"model"`
	Temperature         float32         `json:"temperature,omitempty"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
	Messages            []chatMessage   `json:"messages"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type string    `json:"type"` // "text" or "file"
	Text string    `json:"text,omitempty"`
	File *filePart `json:"file,omitempty"`
}

type filePart struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"` // data URL
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate implements llm.Generator using chat/completions. The attachment is
// sent as a file content part; a schema is enforced with a strict json_schema response format.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.generate.start",
		"req_id", rid,
		"provider", ProviderName,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"schema", req.SchemaName,
		"has_attachment", req.Attachment != nil,
	)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, common.NewGenerationError(ProviderName, "rate_limit_wait", err)
		}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, c.buildRequest(req), headers, c.log)
	if err != nil {
		if status != 0 {
			var er errorResponse
			if json.Unmarshal(raw, &er) == nil && er.Error.Message != "" {
				err = fmt.Errorf("openai status %d: %s", status, er.Error.Message)
			}
		}
		c.log.Error("llm.generate.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewGenerationError(ProviderName, "chat_completions", err)
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.generate.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewMalformedResponseError("decode openai response", string(raw), err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.generate.no_choices",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewMalformedResponseError("no choices in openai response", string(raw), nil)
	}
	msg := cc.Choices[0].Message
	if msg.Refusal != "" {
		c.log.Warn("llm.generate.refusal", "req_id", rid, "refusal", msg.Refusal)
		return nil, common.NewGenerationError(ProviderName, "chat_completions", fmt.Errorf("model refused: %s", msg.Refusal))
	}

	out := &llm.Response{Model: cc.Model, Text: strings.TrimSpace(msg.Content)}
	if req.Schema != nil {
		out.Object = llm.SanitizeJSONText(out.Text)
	}

	c.log.Info("llm.generate.ok",
		"req_id", rid,
		"model", cc.Model,
		"finish_reason", cc.Choices[0].FinishReason,
		"text_len", len(out.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) buildRequest(req llm.Request) chatRequest {
	var parts []contentPart
	if att := req.Attachment; att != nil {
		filename := att.Filename
		if filename == "" {
			filename = "document.pdf"
		}
		parts = append(parts, contentPart{
			Type: "file",
			File: &filePart{Filename: filename, FileData: att.DataURL()},
		})
	}
	parts = append(parts, contentPart{Type: "text", Text: req.Instruction})

	body := chatRequest{
		Model:               c.cfg.Model,
		Temperature:         c.cfg.Temperature,
		MaxCompletionTokens: c.cfg.MaxTokens,
		Messages:            []chatMessage{{Role: "user", Content: parts}},
	}
	if req.Schema != nil {
		name := req.SchemaName
		if name == "" {
			name = "record"
		}
		body.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: name, Schema: req.Schema, Strict: true},
		}
	}
	return body
}
