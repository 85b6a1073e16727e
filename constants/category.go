package constants

import (
	"strings"
)

// DocumentCategory is the closed set of document types the classifier can emit.
type DocumentCategory string

const (
	LabResults DocumentCategory = "LAB_RESULTS"
	VisitNote  DocumentCategory = "VISIT_NOTE"
)

var allCategories = []DocumentCategory{
	LabResults,
	VisitNote,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// ParseDocumentCategory accepts only the exact enumeration tokens.
func ParseDocumentCategory(token string) (DocumentCategory, bool) {
	for _, cat := range allCategories {
		if token == string(cat) {
			return cat, true
		}
	}
	return "", false
}

// Canonicalize maps loose labels (as typed on a command line or found in a
// ledger export) onto a category. It is never applied to model output.
func Canonicalize(input string) (DocumentCategory, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]DocumentCategory{
		"lab":         LabResults,
		"labs":        LabResults,
		"lab results": LabResults,
		"lab_results": LabResults,
		"visit":       VisitNote,
		"visit note":  VisitNote,
		"visit_note":  VisitNote,
		"encounter":   VisitNote,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}
	return "", false
}
