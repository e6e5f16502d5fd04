package provider

import (
	"context"

	"github.com/ChristinaDay/updrift-sub001/internal/model"
)

// SearchFunc runs one provider search.
type SearchFunc func(ctx context.Context, params model.JobSearchParams) (*model.ProviderResult, error)

// Provider describes a job source and binds it to its search function.
type Provider struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Logo   string     `json:"logo"`
	Search SearchFunc `json:"-"`
}

// Registry is the fixed, ordered set of providers. Order matters: the
// aggregator keeps the first provider's job when ids collide.
type Registry struct {
	providers []Provider
}

// NewRegistry builds a registry. Providers without a Search func are skipped.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{}
	for _, p := range providers {
		if p.Search != nil {
			r.providers = append(r.providers, p)
		}
	}
	return r
}

// DefaultRegistry registers Adzuna then JSearch, each only when configured.
func DefaultRegistry(adzuna *AdzunaClient, jsearch *JSearchClient) *Registry {
	var ps []Provider
	if adzuna.Configured() {
		ps = append(ps, Provider{ID: AdzunaID, Name: "Adzuna", Logo: "/logos/adzuna.svg", Search: adzuna.Search})
	}
	if jsearch.Configured() {
		ps = append(ps, Provider{ID: JSearchID, Name: "JSearch", Logo: "/logos/jsearch.svg", Search: jsearch.Search})
	}
	return NewRegistry(ps...)
}

// Providers returns a copy of the registered providers in order.
func (r *Registry) Providers() []Provider {
	if r == nil {
		return nil
	}
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Len returns the number of registered providers.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.providers)
}

// Get looks a provider up by id.
func (r *Registry) Get(id string) (Provider, bool) {
	if r == nil {
		return Provider{}, false
	}
	for _, p := range r.providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}
