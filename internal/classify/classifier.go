package classify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/llm"
)

// Classifier decides which document category a PDF belongs to.
type Classifier struct {
	gen llm.Generator
	log *slog.Logger
}

func NewClassifier(gen llm.Generator, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{gen: gen, log: logger}
}

type classificationResponse struct {
	DocumentType string `json:"documentType"`
}

// Classify sends one request with the PDF attached and parses
// {"documentType": "<category>"} from the response text. It does not retry.
func (c *Classifier) Classify(ctx context.Context, document []byte) (constants.DocumentCategory, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()
	c.log.Info("classify.start", "req_id", rid, "bytes", len(document), "provider", c.gen.Name())

	resp, err := c.gen.Generate(ctx, llm.Request{
		Instruction: llm.BuildClassificationPrompt(),
		Attachment:  &llm.Attachment{Data: document, MIMEType: constants.MIMEApplicationPDF, Filename: "document.pdf"},
	})
	if err != nil {
		c.log.Error("classify.generate_error", "req_id", rid, "error", err)
		return "", err
	}

	category, err := ParseCategory(resp.Text)
	if err != nil {
		c.log.Error("classify.malformed", "req_id", rid, "error", err, "text", resp.Text)
		return "", err
	}

	c.log.Info("classify.ok",
		"req_id", rid,
		"category", category,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return category, nil
}

var classificationSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return llm.CompileSchema(llm.SchemaNameClassification, llm.BuildClassificationSchema())
})

// ParseCategory decodes a classification response text. A surrounding code
// fence is allowed; anything else that is not a JSON object is malformed.
func ParseCategory(text string) (constants.DocumentCategory, error) {
	schema, err := classificationSchema()
	if err != nil {
		return "", err
	}
	cleaned := []byte(llm.StripCodeFences(text))
	if err := llm.ValidateJSON(schema, cleaned); err != nil {
		var malformed *common.MalformedResponseError
		if errors.As(err, &malformed) {
			return "", err
		}
		return "", common.NewMalformedResponseError("classification does not match schema", text, err)
	}

	var out classificationResponse
	if err := json.Unmarshal(cleaned, &out); err != nil {
		return "", common.NewMalformedResponseError("classification is not a JSON object", text, err)
	}
	category, ok := constants.ParseDocumentCategory(out.DocumentType)
	if !ok {
		return "", common.NewMalformedResponseError("unknown documentType "+out.DocumentType, text, nil)
	}
	return category, nil
}
