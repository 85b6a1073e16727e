package llm

import (
	"strings"

	"github.com/joseph-ayodele/clinical-docs/constants"
)

// BuildClassificationPrompt asks for a single {"documentType": ...} object.
func BuildClassificationPrompt() string {
	parts := []string{
		"You are a medical document classifier. Analyze the attached PDF document and classify it as either " +
			string(constants.LabResults) + " or " + string(constants.VisitNote) + ".",
		"Respond with a JSON object in the following format:",
		`{"documentType": "` + strings.Join(constants.AsStringSlice(), `" | "`) + `"}`,
		"Base your classification on the following criteria:",
		"- " + string(constants.LabResults) + ": documents containing laboratory test results, blood work, diagnostic tests, etc.",
		"- " + string(constants.VisitNote) + ": documents containing clinical notes, progress notes, consultation notes, etc.",
		"Respond ONLY with the JSON object, nothing else.",
	}
	return strings.Join(parts, "\n")
}

// BuildVisitPrompt describes the visit-note fields to extract.
func BuildVisitPrompt() string {
	parts := []string{
		"You are a medical document parser. Extract structured information from the attached visit note.",
		"Return ONLY a JSON object that matches the provided JSON Schema.",
		"Fields:",
		"- date: the date of the visit or start date of the encounter, YYYY-MM-DD.",
		"- provider: the name of the healthcare provider. If no provider is named, use " + constants.UnknownProvider + ".",
		"- notes: chief complaint, assessment, treatment plan, history and additional clinical notes.",
		"- status: one of " + strings.Join(constants.EncounterStatuses, ", ") + ".",
		"Never output null. Use ISO-8601 calendar dates.",
	}
	return strings.Join(parts, "\n")
}

// BuildLabPrompt describes the lab-report fields to extract.
func BuildLabPrompt() string {
	parts := []string{
		"You are a medical document parser. Extract structured information from the attached lab report.",
		"Return ONLY a JSON object that matches the provided JSON Schema.",
		"Fields:",
		"- date: the date the test was performed or samples were collected, YYYY-MM-DD.",
		"- issued: the date the report was issued, YYYY-MM-DD.",
		"- orderingProvider: the name of the provider who ordered the test. If none is named, use " + constants.UnknownProvider + ".",
		"- status: report status, one of " + strings.Join(constants.ReportStatuses, ", ") + ".",
		"- code: the name or code of the panel of lab tests.",
		"- results: one entry per test, in the order they appear in the document, each with",
		"  testName, value (a number), unit, referenceRange, interpretation (normal, high, low, etc.)",
		"  and status, one of " + strings.Join(constants.ObservationStatuses, ", ") + ".",
		"- conclusion: the final conclusion of the lab report.",
		"Never output null. Use ISO-8601 calendar dates.",
	}
	return strings.Join(parts, "\n")
}
