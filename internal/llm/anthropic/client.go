package anthropic

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

type messagesRequest struct {
	Model       string      `json:"model"`
	MaxTokens   int         `json:"max_tokens"`
	Temperature float32     `json:"temperature"`
	Messages    []message   `json:"messages"`
	Tools       []tool      `json:"tools,omitempty"`
	ToolChoice  *toolChoice `json:"tool_choice,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *documentSource `json:"source,omitempty"`
}

type documentSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type messagesResponse struct {
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type  string          `json:"type"`
		Text  string          `json:"text"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements llm.Generator using the Messages API. The attachment is
// sent as a base64 document block; a schema is enforced through a forced tool call.
func (c *Client) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.generate.start",
		"req_id", rid,
		"provider", ProviderName,
		"model", c.cfg.Model,
		"schema", req.SchemaName,
		"has_attachment", req.Attachment != nil,
	)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, common.NewGenerationError(ProviderName, "rate_limit_wait", err)
		}
	}

	body := c.buildRequest(req)
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": apiVersion,
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/messages"

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		if status != 0 {
			var er errorResponse
			if json.Unmarshal(raw, &er) == nil && er.Error.Message != "" {
				err = fmt.Errorf("%s: %s", er.Error.Type, er.Error.Message)
			}
		}
		c.log.Error("llm.generate.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewGenerationError(ProviderName, "messages", err)
	}

	var mr messagesResponse
	if err := json.Unmarshal(raw, &mr); err != nil {
		c.log.Error("llm.generate.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
		)
		return nil, common.NewMalformedResponseError("decode messages response", string(raw), err)
	}

	out := &llm.Response{Model: mr.Model}
	var texts []string
	for _, block := range mr.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			if req.Schema != nil && block.Name == toolName(req) {
				out.Object = llm.SanitizeJSONObject(block.Input)
			}
		}
	}
	out.Text = strings.Join(texts, "")

	if req.Schema != nil && len(out.Object) == 0 {
		// the model answered in prose instead of calling the tool
		if strings.TrimSpace(out.Text) == "" {
			c.log.Error("llm.generate.no_tool_use", "req_id", rid, "stop_reason", mr.StopReason)
			return nil, common.NewMalformedResponseError("no tool_use block in response", string(raw), nil)
		}
		c.log.Warn("llm.generate.text_fallback", "req_id", rid, "stop_reason", mr.StopReason)
		out.Object = llm.SanitizeJSONText(out.Text)
	}

	c.log.Info("llm.generate.ok",
		"req_id", rid,
		"model", mr.Model,
		"stop_reason", mr.StopReason,
		"text_len", len(out.Text),
		"object_len", len(out.Object),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (c *Client) buildRequest(req llm.Request) messagesRequest {
	var content []contentBlock
	if att := req.Attachment; att != nil {
		content = append(content, contentBlock{
			Type: "document",
			Source: &documentSource{
				Type:      "base64",
				MediaType: att.MIMEType,
				Data:      att.Base64(),
			},
		})
	}
	content = append(content, contentBlock{Type: "text", Text: req.Instruction})

	body := messagesRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Messages:    []message{{Role: "user", Content: content}},
	}
	if req.Schema != nil {
		name := toolName(req)
		body.Tools = []tool{{
			Name:        name,
			Description: "Record the structured fields extracted from the document.",
			InputSchema: req.Schema,
		}}
		body.ToolChoice = &toolChoice{Type: "tool", Name: name}
	}
	return body
}

func toolName(req llm.Request) string {
	if req.SchemaName != "" {
		return req.SchemaName
	}
	return "record"
}
