package practitioners

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/joseph-ayodele/clinical-docs/constants"
	"github.com/joseph-ayodele/clinical-docs/internal/common"
	"github.com/joseph-ayodele/clinical-docs/internal/entity"
	"github.com/joseph-ayodele/clinical-docs/internal/fhir"
	"github.com/joseph-ayodele/clinical-docs/internal/registry"
)

// Resolver finds a practitioner by display name or creates one.
type Resolver struct {
	registry registry.Client
	locker   Locker
	log      *slog.Logger
}

func NewResolver(reg registry.Client, locker Locker, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &Resolver{registry: reg, locker: locker, log: logger}
}

// FindOrCreate returns the first registry match for displayName, unmodified,
// or creates a new Practitioner when there is none. The lookup and the create
// run under a per-name lock.
func (r *Resolver) FindOrCreate(ctx context.Context, displayName string) (entity.PersonIdentity, error) {
	name := strings.TrimSpace(displayName)
	v := common.NewValidator().Field("displayName", name, common.Required, common.NotEqual(constants.UnknownProvider))
	if v.HasErrors() {
		return entity.PersonIdentity{}, v.Error()
	}

	unlock, err := r.locker.Lock(ctx, strings.ToLower(name))
	if err != nil {
		return entity.PersonIdentity{}, fmt.Errorf("lock practitioner %q: %w", name, err)
	}
	defer unlock()

	matches, err := r.registry.Search(ctx, constants.ResourcePractitioner, url.Values{"name": {name}})
	if err != nil {
		r.log.Error("practitioners.resolve.search_error", "name", name, "error", err)
		return entity.PersonIdentity{}, fmt.Errorf("search practitioner %q: %w", name, err)
	}
	if len(matches) > 0 {
		r.log.Info("practitioners.resolve.found", "name", name, "id", matches[0].ID, "matches", len(matches))
		return entity.PersonIdentity{ID: matches[0].ID, Name: name}, nil
	}

	created, err := r.registry.Create(ctx, constants.ResourcePractitioner, NewPractitioner(name))
	if err != nil {
		r.log.Error("practitioners.resolve.create_error", "name", name, "error", err)
		return entity.PersonIdentity{}, fmt.Errorf("create practitioner %q: %w", name, err)
	}
	r.log.Info("practitioners.resolve.created", "name", name, "id", created.ID)
	return entity.PersonIdentity{ID: created.ID, Name: name, Created: true}, nil
}

// NewPractitioner builds the resource created for an unseen name.
func NewPractitioner(displayName string) *fhir.Practitioner {
	given, family := SplitName(displayName)
	p := fhir.NewPractitioner()
	p.Name = []fhir.HumanName{{
		Text:   displayName,
		Given:  []string{given},
		Family: family,
	}}
	p.Qualification = []fhir.Qualification{{
		Code: fhir.CodeableConcept{Coding: []fhir.Coding{{
			Code:   constants.PractitionerQualificationCode,
			System: constants.PractitionerQualificationSystem,
		}}},
	}}
	return p
}

// SplitName takes the first whitespace-separated token as the given name and
// the second as the family name. Further tokens are dropped, so multi-word
// family names are not reconstructed. A single token yields no family name.
func SplitName(name string) (given, family string) {
	tokens := strings.Fields(name)
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	default:
		return tokens[0], tokens[1]
	}
}
