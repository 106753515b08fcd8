// Package registry holds the schema versions an extension has shipped.
//
// A Registry is filled once while an extension is built and then sealed.
// After Seal it is read-only and may be shared by concurrent requests
// without locking. Register is not safe for concurrent use.
package registry

import (
	"fmt"
	"slices"

	"github.com/mesh-intelligence/settings-sdk/pkg/model"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
)

// Registry maps schema versions to their models.
type Registry struct {
	models map[types.Version]*model.Model
	order  []types.Version
	sealed bool
}

// New returns an empty, unsealed registry.
func New() *Registry {
	return &Registry{models: make(map[types.Version]*model.Model)}
}

// Register adds a model under its version.
func (r *Registry) Register(m *model.Model) error {
	if r.sealed {
		return fmt.Errorf("register %q: %w", m.Version(), types.ErrRegistrySealed)
	}
	v := m.Version()
	if _, ok := r.models[v]; ok {
		return &types.DuplicateVersionError{Version: v}
	}
	r.models[v] = m
	r.order = append(r.order, v)
	return nil
}

// Seal makes the registry read-only.
func (r *Registry) Seal() { r.sealed = true }

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool { return r.sealed }

// Resolve returns the model registered for v.
func (r *Registry) Resolve(v types.Version) (*model.Model, error) {
	m, ok := r.models[v]
	if !ok {
		return nil, &types.UnknownVersionError{Version: v}
	}
	return m, nil
}

// Contains reports whether v is registered.
func (r *Registry) Contains(v types.Version) bool {
	_, ok := r.models[v]
	return ok
}

// Versions returns every registered version in registration order.
func (r *Registry) Versions() []types.Version { return slices.Clone(r.order) }

// Len returns the number of registered versions.
func (r *Registry) Len() int { return len(r.order) }
