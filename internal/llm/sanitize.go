package llm

import (
	"bytes"
	"strings"
)

// StripCodeFences removes a surrounding markdown code fence (``` or ```json)
// and surrounding whitespace. Text without a fence is only trimmed.
func StripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the info string (e.g. "json") up to the first newline
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(strings.TrimSpace(s), "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// SanitizeJSONText prepares provider text for decoding. Only a code fence and
// surrounding whitespace are removed; prose around an object is left in place
// so that it fails to decode.
func SanitizeJSONText(text string) []byte {
	return []byte(StripCodeFences(text))
}

// SanitizeJSONObject trims whitespace from a raw JSON object (for example a tool input).
func SanitizeJSONObject(raw []byte) []byte {
	return bytes.TrimSpace(raw)
}
