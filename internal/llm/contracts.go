package llm

import (
	"context"
	"encoding/base64"
)

// Attachment is one binary document sent alongside the instruction.
type Attachment struct {
	Data     []byte
	MIMEType string // e.g. application/pdf
	Filename string // optional, some providers require one
}

// Base64 returns the attachment bytes as standard base64.
func (a Attachment) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// DataURL returns the attachment as a data: URL.
func (a Attachment) DataURL() string {
	return "data:" + a.MIMEType + ";base64," + a.Base64()
}

// Request is a single multimodal generation request.
//
// When Schema is nil the provider returns free text in Response.Text.
// When Schema is set the provider is asked to constrain its output to it and
// returns the object in Response.Object; callers still validate locally.
type Request struct {
	Instruction string
	Schema      map[string]any
	SchemaName  string
	Attachment  *Attachment
}

// Response is what a provider produced for a Request.
type Response struct {
	Text   string
	Object []byte // raw JSON object, set only for schema-constrained requests
	Model  string
}

// Generator is the interface the classifier and extractor depend on.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Name() string
}
