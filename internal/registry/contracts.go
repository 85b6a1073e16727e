package registry

import (
	"context"
	"net/url"

	"github.com/goccy/go-json"
)

// Client is a FHIR resource store addressed by resource type and id.
type Client interface {
	// Create stores a new resource and returns it with its assigned id.
	Create(ctx context.Context, resourceType string, resource any) (*Stored, error)
	// Read fetches one resource by id.
	Read(ctx context.Context, resourceType, id string) (*Stored, error)
	// Search returns matching resources in registry order.
	Search(ctx context.Context, resourceType string, params url.Values) ([]*Stored, error)
}

// Stored is a resource body as returned by the registry.
type Stored struct {
	ResourceType string
	ID           string
	Body         json.RawMessage
}

// Decode unmarshals the stored body into v.
func (s *Stored) Decode(v any) error {
	return json.Unmarshal(s.Body, v)
}

// Reference returns "<Type>/<id>".
func (s *Stored) Reference() string {
	return s.ResourceType + "/" + s.ID
}
