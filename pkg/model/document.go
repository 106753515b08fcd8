package model

import (
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

// Document is a tree that has been decoded by a Model. Its tree is in
// canonical form: defaults filled, unknown fields dropped in lenient mode,
// numbers in their declared kind.
type Document struct {
	model *Model
	tree  value.Value
}

// Model returns the model that decoded d, or nil for the zero Document.
func (d Document) Model() *Model { return d.model }

// Version returns the schema version of d.
func (d Document) Version() types.Version {
	if d.model == nil {
		return ""
	}
	return d.model.version
}

// Value returns the canonical tree.
func (d Document) Value() value.Value { return d.tree }

// Field returns a top-level field of an object document.
func (d Document) Field(name string) (value.Value, bool) { return d.tree.Field(name) }

// Bind decodes the document into a Go struct using json tag names.
func (d Document) Bind(target any) error { return value.Bind(d.tree, target) }
