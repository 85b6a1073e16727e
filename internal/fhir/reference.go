package fhir

import (
	"fmt"
	"strings"
)

// NewReference builds a "<Type>/<id>" reference.
func NewReference(resourceType, id string) *Reference {
	return &Reference{Reference: ReferenceString(resourceType, id)}
}

func ReferenceString(resourceType, id string) string {
	return resourceType + "/" + id
}

// ParseReference splits "<Type>/<id>".
func ParseReference(ref string) (resourceType, id string, err error) {
	resourceType, id, ok := strings.Cut(ref, "/")
	if !ok || resourceType == "" || id == "" || strings.Contains(id, "/") {
		return "", "", fmt.Errorf("invalid reference %q", ref)
	}
	return resourceType, id, nil
}
