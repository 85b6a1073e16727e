package fhir

import "github.com/goccy/go-json"

// Bundle is a searchset result. Entries keep their raw resource bodies.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type,omitempty"`
	Total        int           `json:"total,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource"`
}

type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string          `json:"severity"`
	Code        string          `json:"code"`
	Details     CodeableConcept `json:"details,omitempty"`
	Diagnostics string          `json:"diagnostics,omitempty"`
}

// Diagnostics joins every issue's diagnostics or details text.
func (o *OperationOutcome) Diagnostics() string {
	var out string
	for _, issue := range o.Issue {
		msg := issue.Diagnostics
		if msg == "" {
			msg = issue.Details.Text
		}
		if msg == "" {
			continue
		}
		if out != "" {
			out += "; "
		}
		out += msg
	}
	return out
}

// Resource is the minimal header every resource body carries.
type Resource struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
}
