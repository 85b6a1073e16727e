package constants

import "strings"

const MIMEApplicationPDF = "application/pdf"

// AllowedExtensions holds the file extensions picked up from a documents directory.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
