package llm

import "github.com/joseph-ayodele/clinical-docs/constants"

const (
	SchemaNameClassification = "document_classification"
	SchemaNameVisit          = "visit_note"
	SchemaNameLab            = "lab_results"
)

const datePattern = `^\d{4}-\d{2}-\d{2}$`

// BuildClassificationSchema describes {"documentType": <category>}. The
// classifier does not send it to the provider; it checks the response text
// against it before decoding. Unknown keys are allowed.
func BuildClassificationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"documentType": map[string]any{
				"type": "string",
				"enum": constants.AsStringSlice(),
			},
		},
		"required": []string{"documentType"},
	}
}

// BuildVisitJSONSchema returns the VisitRecord schema (draft 2020-12 subset).
// It is sent to the provider as the output constraint and also used locally to validate.
func BuildVisitJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"date": dateProp("The date of the visit or start date of the encounter in YYYY-MM-DD format"),
			"provider": map[string]any{
				"type":        "string",
				"description": "The name of the healthcare provider, practitioner, clinician, doctor, nurse or specialist, or " + constants.UnknownProvider + " if none is named",
			},
			"notes": map[string]any{
				"type":        "string",
				"description": "The patient's chief complaint, assessment, plan, history and additional notes",
			},
			"status": enumProp("The status of the encounter", constants.EncounterStatuses),
		},
		"required": []string{"date", "provider", "notes", "status"},
	}
}

// BuildLabJSONSchema returns the LabRecord schema (draft 2020-12 subset).
func BuildLabJSONSchema() map[string]any {
	result := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"testName":       stringProp("Name of the biomarker or test"),
			"value":          map[string]any{"type": "number", "description": "The numeric value of the test result"},
			"unit":           stringProp("The unit of measurement"),
			"referenceRange": stringProp("The normal reference range"),
			"interpretation": stringProp("Interpretation of the result (normal, high, low, etc.)"),
			"status":         enumProp("The status of the observation", constants.ObservationStatuses),
		},
		"required": []string{"testName", "value", "unit", "referenceRange", "interpretation", "status"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"date":   dateProp("The date of the lab test when it was performed or samples were collected in YYYY-MM-DD format"),
			"issued": dateProp("The date the report was issued in YYYY-MM-DD format"),
			"orderingProvider": map[string]any{
				"type":        "string",
				"description": "The name of the healthcare provider who ordered the test, or " + constants.UnknownProvider + " if none is named",
			},
			"status":     enumProp("The status of the diagnostic report", constants.ReportStatuses),
			"code":       stringProp("The name or code for the panel of lab tests"),
			"results":    map[string]any{"type": "array", "items": result},
			"conclusion": stringProp("The final conclusion of the lab report"),
		},
		"required": []string{"date", "issued", "orderingProvider", "status", "code", "results", "conclusion"},
	}
}

func dateProp(description string) map[string]any {
	return map[string]any{
		"type":        "string",
		"pattern":     datePattern,
		"description": description,
	}
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func enumProp(description string, values []string) map[string]any {
	return map[string]any{
		"type":        "string",
		"enum":        values,
		"description": description,
	}
}

// LenientSchema returns a deep copy of schema with every "additionalProperties"
// keyword removed. Providers get the strict form; local validation uses this one
// so unknown keys are ignored the way the decoder ignores them.
func LenientSchema(schema map[string]any) map[string]any {
	return lenientValue(schema).(map[string]any)
}

func lenientValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if k == "additionalProperties" {
				continue
			}
			out[k] = lenientValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = lenientValue(val)
		}
		return out
	default:
		return v
	}
}
