package extension

import (
	"log/slog"

	"github.com/mesh-intelligence/settings-sdk/pkg/migrate"
	"github.com/mesh-intelligence/settings-sdk/pkg/model"
	"github.com/mesh-intelligence/settings-sdk/pkg/registry"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

// Extension serves the settings operations of one extension.
type Extension struct {
	name     string
	registry *registry.Registry
	graph    *migrate.Graph
	logger   *slog.Logger
}

// GenerateInput carries the optional inputs of Generate.
type GenerateInput struct {
	// Existing holds values the orchestrator already has for this
	// extension; generated values fill the rest.
	Existing value.Value
	// Related holds other settings the generator may derive values from.
	Related value.Value
}

// Migrated is one result of FloodMigrate.
type Migrated struct {
	Version types.Version `json:"version"`
	Value   value.Value   `json:"value"`
}

// VersionInfo describes one registered version for capability discovery.
type VersionInfo struct {
	Version     types.Version    `json:"version"`
	Fingerprint string           `json:"fingerprint"`
	Descriptor  model.Descriptor `json:"descriptor"`
	Helpers     []string         `json:"helpers,omitempty"`
}

// Name returns the extension name.
func (x *Extension) Name() string { return x.name }

// Logger returns the extension's logger.
func (x *Extension) Logger() *slog.Logger { return x.logger }

// Resolve returns the model registered for v.
func (x *Extension) Resolve(v types.Version) (*model.Model, error) {
	return x.registry.Resolve(v)
}

// Versions lists every registered version in registration order.
func (x *Extension) Versions() []VersionInfo {
	vs := x.registry.Versions()
	out := make([]VersionInfo, len(vs))
	for i, v := range vs {
		m, _ := x.registry.Resolve(v)
		out[i] = VersionInfo{
			Version:     v,
			Fingerprint: m.Fingerprint(),
			Descriptor:  m.Descriptor(),
			Helpers:     m.Helpers(),
		}
	}
	return out
}

// Gaps lists ordered version pairs with no migration path.
func (x *Extension) Gaps() []migrate.Gap {
	return x.graph.Gaps(x.registry.Versions())
}

// Generate produces a value for version v. The result is Partial when the
// model's generator could not fill every required field from in.
func (x *Extension) Generate(v types.Version, in GenerateInput) (model.Generated, error) {
	m, err := x.registry.Resolve(v)
	if err != nil {
		return model.Generated{}, err
	}
	return m.Generate(in.Existing, in.Related)
}

// Validate reports every violation of tree under version v, field shape and
// constraints first, then the model's invariants.
func (x *Extension) Validate(v types.Version, tree, related value.Value) error {
	m, err := x.registry.Resolve(v)
	if err != nil {
		return err
	}
	return m.Validate(tree, related)
}

// Set merges fragment into existing and returns the canonical merged tree if
// it is valid under version v. On any failure nothing is returned: the caller
// keeps existing, which is never modified.
func (x *Extension) Set(v types.Version, existing, fragment value.Value) (value.Value, error) {
	m, err := x.registry.Resolve(v)
	if err != nil {
		return value.Value{}, err
	}
	merged := value.Merge(existing, fragment)
	doc, err := m.Check(merged, value.Null())
	if err != nil {
		return value.Value{}, err
	}
	return m.Encode(doc)
}

// Get decodes tree under version v and returns it in canonical form.
func (x *Extension) Get(v types.Version, tree value.Value) (value.Value, error) {
	m, err := x.registry.Resolve(v)
	if err != nil {
		return value.Value{}, err
	}
	doc, err := m.Decode(tree)
	if err != nil {
		return value.Value{}, err
	}
	return m.Encode(doc)
}

// Migrate converts tree from version from to version to along the shortest
// registered path.
func (x *Extension) Migrate(tree value.Value, from, to types.Version) (value.Value, error) {
	src, err := x.registry.Resolve(from)
	if err != nil {
		return value.Value{}, err
	}
	dst, err := x.registry.Resolve(to)
	if err != nil {
		return value.Value{}, err
	}
	p, err := x.graph.FindPath(from, to)
	if err != nil {
		return value.Value{}, err
	}
	x.logger.Debug("migrating", "path", p.String())
	doc, err := src.Decode(tree)
	if err != nil {
		return value.Value{}, err
	}
	out, err := migrate.Run(p, doc, x.registry)
	if err != nil {
		return value.Value{}, err
	}
	return dst.Encode(out)
}

// FloodMigrate converts tree from version from to every registered version,
// from included, in registration order. It fails as a whole if any version
// is unreachable or any migrator fails.
func (x *Extension) FloodMigrate(tree value.Value, from types.Version) ([]Migrated, error) {
	src, err := x.registry.Resolve(from)
	if err != nil {
		return nil, err
	}
	targets := x.registry.Versions()
	paths := make([]migrate.Path, len(targets))
	for i, to := range targets {
		if paths[i], err = x.graph.FindPath(from, to); err != nil {
			return nil, err
		}
	}
	doc, err := src.Decode(tree)
	if err != nil {
		return nil, err
	}
	out := make([]Migrated, len(targets))
	for i, p := range paths {
		migrated, err := migrate.Run(p, doc, x.registry)
		if err != nil {
			return nil, err
		}
		out[i] = Migrated{Version: p.To(), Value: migrated.Value()}
	}
	return out, nil
}

// Helper runs a template helper of version v.
func (x *Extension) Helper(v types.Version, name string, args []value.Value) (value.Value, error) {
	m, err := x.registry.Resolve(v)
	if err != nil {
		return value.Value{}, err
	}
	return m.Helper(name, args)
}
