package manifests

import (
	"fmt"
	"sort"

	"github.com/aescanero/waveorch/internal/application/signals"
	"github.com/aescanero/waveorch/pkg/domain"
)

// Repository indexes manifests by name and answers dependency and
// eligibility queries. It is immutable after construction.
type Repository struct {
	byName  map[string]domain.Manifest
	ordered []domain.Manifest
	names   []string
}

// NewRepository validates manifests and indexes them.
// The slice order is the declaration order used to break priority ties.
func NewRepository(manifests []domain.Manifest) (*Repository, error) {
	if err := NewValidator().Validate(manifests); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	r := &Repository{
		byName:  make(map[string]domain.Manifest, len(manifests)),
		ordered: make([]domain.Manifest, len(manifests)),
		names:   make([]string, 0, len(manifests)),
	}
	for _, m := range manifests {
		r.byName[m.Name] = m
		r.names = append(r.names, m.Name)
	}

	copy(r.ordered, manifests)
	sort.SliceStable(r.ordered, func(i, j int) bool {
		return r.ordered[i].Priority > r.ordered[j].Priority
	})

	return r, nil
}

// Get returns the manifest registered under name
func (r *Repository) Get(name string) (domain.Manifest, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Len returns the number of manifests
func (r *Repository) Len() int {
	return len(r.ordered)
}

// Names returns manifest names in declaration order
func (r *Repository) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Ordered returns manifests by descending priority, ties in declaration order
func (r *Repository) Ordered() []domain.Manifest {
	out := make([]domain.Manifest, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// CanRun reports whether every required signal of m is available.
// Optional signals never block.
func (r *Repository) CanRun(m domain.Manifest, available signals.Availability) bool {
	for _, key := range m.Listens.Required {
		if !available.Has(key) {
			return false
		}
	}
	return true
}

// Runnable returns, in run order, the manifests whose requirements are met
func (r *Repository) Runnable(available signals.Availability) []domain.Manifest {
	var out []domain.Manifest
	for _, m := range r.ordered {
		if r.CanRun(m, available) {
			out = append(out, m)
		}
	}
	return out
}

// DependencyGraph maps each manifest name to the signal keys it listens on,
// required and optional alike
func (r *Repository) DependencyGraph() map[string]map[string]struct{} {
	graph := make(map[string]map[string]struct{}, len(r.ordered))
	for _, m := range r.ordered {
		deps := make(map[string]struct{})
		for _, key := range m.DependsOn() {
			deps[key] = struct{}{}
		}
		graph[m.Name] = deps
	}
	return graph
}

// Dependents returns, in run order, the manifests listening on key
func (r *Repository) Dependents(key string) []string {
	var out []string
	for _, m := range r.ordered {
		for _, k := range m.DependsOn() {
			if k == key {
				out = append(out, m.Name)
				break
			}
		}
	}
	return out
}
