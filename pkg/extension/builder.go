// Package extension composes models, the version registry, and the migrator
// graph into a settings extension.
//
// An Extension is assembled once with a Builder, which reports every
// registration error (duplicate versions, duplicate migrators, migrators
// naming unknown versions) before any request is served. The built Extension
// is immutable and its operations are pure functions over request-local
// trees, so one Extension may serve concurrent requests.
package extension

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mesh-intelligence/settings-sdk/pkg/migrate"
	"github.com/mesh-intelligence/settings-sdk/pkg/model"
	"github.com/mesh-intelligence/settings-sdk/pkg/registry"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

type pendingMigrator struct {
	from, to types.Version
	fn       migrate.Func
}

// Builder collects the declarations of an extension.
type Builder struct {
	name             string
	models           []*model.Model
	migrators        []pendingMigrator
	logger           *slog.Logger
	requireConnected bool
}

// New starts an extension called name. Names are lowercase and may contain
// digits, dots, dashes, and underscores.
func New(name string) *Builder {
	return &Builder{name: name}
}

// WithModels registers schema versions in the given order. Registration order
// is the order versions are listed and flood-migrated in.
func (b *Builder) WithModels(models ...*model.Model) *Builder {
	b.models = append(b.models, models...)
	return b
}

// WithMigrator registers the migrator from -> to. Reverse migrations are
// never derived: register each direction that should be supported.
func (b *Builder) WithMigrator(from, to types.Version, fn migrate.Func) *Builder {
	b.migrators = append(b.migrators, pendingMigrator{from, to, fn})
	return b
}

// WithLogger sets the logger used for build warnings and request tracing.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// RequireConnected makes Build fail when some pair of versions has no
// migration path. Without it gaps are only logged.
func (b *Builder) RequireConnected() *Builder {
	b.requireConnected = true
	return b
}

// Build validates the declarations and returns the extension.
func (b *Builder) Build() (*Extension, error) {
	if !namePattern.MatchString(b.name) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidName, b.name)
	}
	if len(b.models) == 0 {
		return nil, fmt.Errorf("extension %s: %w", b.name, types.ErrNoModels)
	}
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	reg := registry.New()
	for _, m := range b.models {
		if m == nil {
			return nil, fmt.Errorf("extension %s: %w: nil model", b.name, types.ErrInvalidModel)
		}
		if err := reg.Register(m); err != nil {
			return nil, fmt.Errorf("extension %s: %w", b.name, err)
		}
	}
	reg.Seal()

	graph := migrate.NewGraph()
	for _, pm := range b.migrators {
		for _, v := range []types.Version{pm.from, pm.to} {
			if !reg.Contains(v) {
				return nil, fmt.Errorf("extension %s: migrator %s->%s: %w: %q",
					b.name, pm.from, pm.to, types.ErrDanglingEdge, v)
			}
		}
		if err := graph.Register(pm.from, pm.to, pm.fn); err != nil {
			return nil, fmt.Errorf("extension %s: %w", b.name, err)
		}
	}
	graph.Seal()

	x := &Extension{
		name:     b.name,
		registry: reg,
		graph:    graph,
		logger:   logger.With("extension", b.name),
	}

	if gaps := x.Gaps(); len(gaps) > 0 {
		names := make([]string, len(gaps))
		for i, g := range gaps {
			names[i] = g.String()
		}
		if b.requireConnected {
			return nil, fmt.Errorf("extension %s: %w: %s", b.name, types.ErrDisconnectedGraph, strings.Join(names, ", "))
		}
		x.logger.Warn("migration graph has gaps", "gaps", names)
	}
	return x, nil
}

// MustBuild is Build for binaries that should stop at startup on a
// declaration error. It panics on error.
func (b *Builder) MustBuild() *Extension {
	x, err := b.Build()
	if err != nil {
		panic(err)
	}
	return x
}

// IsRegistrationError reports whether err is a construction-time declaration
// error rather than a request error.
func IsRegistrationError(err error) bool {
	for _, target := range []error{
		types.ErrDuplicateVersion, types.ErrDuplicateEdge, types.ErrSelfEdge,
		types.ErrDanglingEdge, types.ErrDisconnectedGraph, types.ErrNoModels,
		types.ErrInvalidName, types.ErrInvalidModel,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
