package model

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/mesh-intelligence/settings-sdk/pkg/types"
	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

// ErrForeignDocument is returned by Encode for a document decoded by another
// model.
var ErrForeignDocument = errors.New("document belongs to another model")

// Invariant checks a decoded document for cross-field problems. related
// carries other settings supplied with the request (null when none were).
// Violations without a Rule are tagged with the invariant's name.
type Invariant func(doc Document, related value.Value) []types.Violation

// Generator produces a value for a version from a partially filled existing
// tree and related settings.
type Generator func(existing, related value.Value) (Generated, error)

// Helper is a named function a model exposes to templates that render
// settings. It receives JSON-shaped arguments and returns a tree.
type Helper func(args []value.Value) (value.Value, error)

// Generated is the result of Generate. A Partial result (Complete false) is
// returned when the generator could not fill every required field yet.
type Generated struct {
	Value    value.Value
	Complete bool
}

type namedInvariant struct {
	name string
	fn   Invariant
}

type namedHelper struct {
	name string
	fn   Helper
}

// Model is the declaration of one schema version. Models are immutable after
// New and safe for concurrent use.
type Model struct {
	version     types.Version
	root        Type
	lenient     bool
	defaults    *value.Value
	generator   Generator
	invariants  []namedInvariant
	helpers     []namedHelper
	fingerprint string
}

// Option configures a Model.
type Option func(*Model)

// Lenient makes Decode drop unknown object fields instead of rejecting them.
func Lenient() Option {
	return func(m *Model) { m.lenient = true }
}

// WithDefaults replaces the defaults derived from field declarations with a
// whole tree.
func WithDefaults(v value.Value) Option {
	return func(m *Model) {
		d := v.Clone()
		m.defaults = &d
	}
}

// WithGenerator replaces the default generator.
func WithGenerator(fn Generator) Option {
	return func(m *Model) { m.generator = fn }
}

// WithInvariant adds a cross-field check run by Validate.
func WithInvariant(name string, fn Invariant) Option {
	return func(m *Model) { m.invariants = append(m.invariants, namedInvariant{name, fn}) }
}

// WithHelper adds a named template helper.
func WithHelper(name string, fn Helper) Option {
	return func(m *Model) { m.helpers = append(m.helpers, namedHelper{name, fn}) }
}

// New declares a model for version with the given root type.
func New(version types.Version, root Type, opts ...Option) (*Model, error) {
	m := &Model{version: version, root: root}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.check(); err != nil {
		return nil, fmt.Errorf("%w: version %q: %v", types.ErrInvalidModel, version, err)
	}
	fp, err := fingerprint(m.Descriptor())
	if err != nil {
		return nil, fmt.Errorf("%w: version %q: %v", types.ErrInvalidModel, version, err)
	}
	m.fingerprint = fp
	return m, nil
}

// MustNew is New for declarations compiled into an extension. It panics on
// error.
func MustNew(version types.Version, root Type, opts ...Option) *Model {
	m, err := New(version, root, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Model) check() error {
	if m.version == "" {
		return errors.New("empty version")
	}
	if err := m.root.check(nil); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, inv := range m.invariants {
		if inv.name == "" || inv.fn == nil || seen["invariant:"+inv.name] {
			return fmt.Errorf("invariant %q is empty or declared twice", inv.name)
		}
		seen["invariant:"+inv.name] = true
	}
	for _, h := range m.helpers {
		if h.name == "" || h.fn == nil || seen["helper:"+h.name] {
			return fmt.Errorf("helper %q is empty or declared twice", h.name)
		}
		seen["helper:"+h.name] = true
	}
	return nil
}

// Version returns the schema version the model declares.
func (m *Model) Version() types.Version { return m.version }

// Root returns the root type declaration.
func (m *Model) Root() Type { return m.root }

// IsLenient reports whether unknown fields are dropped on decode.
func (m *Model) IsLenient() bool { return m.lenient }

// Fingerprint returns the hex BLAKE3 digest of the model's descriptor. Two
// models with the same fingerprint accept and produce the same trees.
func (m *Model) Fingerprint() string { return m.fingerprint }

func (m *Model) walker(decode bool) *collector {
	return &collector{first: decode, constraints: !decode, lenient: m.lenient}
}

// Decode checks tree against the declaration. The first shape problem is
// reported as a SchemaMismatchError naming the offending field path.
func (m *Model) Decode(tree value.Value) (Document, error) {
	c := m.walker(true)
	out := walk(m.root, tree, nil, c)
	if len(c.violations) > 0 {
		v := c.violations[0]
		return Document{}, &types.SchemaMismatchError{Version: m.version, Path: v.Path, Reason: v.Message}
	}
	return Document{model: m, tree: out}, nil
}

// Encode returns the canonical tree of a document decoded by m.
func (m *Model) Encode(doc Document) (value.Value, error) {
	if doc.model != m {
		return value.Value{}, fmt.Errorf("%w: encoding %q with %q", ErrForeignDocument, doc.Version(), m.version)
	}
	return doc.tree, nil
}

// Check validates tree and returns the decoded document when it is valid.
// All shape and constraint violations are collected; invariants run only when
// the shape is sound, since they read a decoded document.
func (m *Model) Check(tree, related value.Value) (Document, error) {
	c := m.walker(false)
	out := walk(m.root, tree, nil, c)
	doc := Document{model: m, tree: out}
	if c.shape == 0 {
		for _, inv := range m.invariants {
			for _, v := range inv.fn(doc, related) {
				if v.Rule == "" {
					v.Rule = inv.name
				}
				if v.Path == "" {
					v.Path = value.Path(nil).String()
				}
				c.violations = append(c.violations, v)
			}
		}
	}
	if len(c.violations) > 0 {
		return Document{}, &types.ValidationError{Version: m.version, Violations: c.violations}
	}
	return doc, nil
}

// Validate reports every violation in tree as a ValidationError.
func (m *Model) Validate(tree, related value.Value) error {
	_, err := m.Check(tree, related)
	return err
}

// Defaults returns the tree a new instance starts from: the WithDefaults tree
// if one was given, otherwise every declared field default, descending into
// required object fields.
func (m *Model) Defaults() value.Value {
	if m.defaults != nil {
		return *m.defaults
	}
	return defaultsOf(m.root)
}

func defaultsOf(t Type) value.Value {
	if t.Kind != TypeObject {
		return value.Null()
	}
	out := make(map[string]value.Value)
	for _, f := range t.Fields {
		switch {
		case f.Default != nil:
			out[f.Name] = *f.Default
		case f.Required && f.Type.Kind == TypeObject:
			out[f.Name] = defaultsOf(f.Type)
		}
	}
	return value.Mapping(out)
}

// Generate produces a value for this version. existing holds values the
// caller already has and related holds other settings the generator may read.
//
// existing must match the declaration apart from missing required fields;
// anything else is a ValidationError. Without a custom generator, existing is
// merged over the defaults and the result is Partial while required fields
// are still missing. A Complete result is always validated and returned in
// canonical form.
func (m *Model) Generate(existing, related value.Value) (Generated, error) {
	if !existing.IsNull() {
		if err := m.checkPartial(existing); err != nil {
			return Generated{}, err
		}
	}

	if m.generator == nil {
		merged := m.Defaults()
		if !existing.IsNull() {
			merged = value.Merge(merged, existing)
		}
		doc, err := m.Check(merged, related)
		if err != nil {
			if onlyMissing(err) {
				return Generated{Value: merged}, nil
			}
			return Generated{}, err
		}
		return Generated{Value: doc.tree, Complete: true}, nil
	}

	g, err := m.generator(existing, related)
	if err != nil {
		return Generated{}, fmt.Errorf("generate %q: %w", m.version, err)
	}
	if !g.Complete {
		return g, nil
	}
	doc, err := m.Check(g.Value, related)
	if err != nil {
		return Generated{}, err
	}
	return Generated{Value: doc.tree, Complete: true}, nil
}

// checkPartial validates tree with missing required fields allowed.
// Invariants are not run.
func (m *Model) checkPartial(tree value.Value) error {
	c := &collector{constraints: true, lenient: m.lenient, partial: true}
	walk(m.root, tree, nil, c)
	if len(c.violations) > 0 {
		return &types.ValidationError{Version: m.version, Violations: c.violations}
	}
	return nil
}

// onlyMissing reports whether err is a ValidationError listing nothing but
// required fields that are missing or null.
func onlyMissing(err error) bool {
	var ve *types.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	for _, v := range ve.Violations {
		if v.Rule != RuleRequired && v.Rule != RuleNull {
			return false
		}
	}
	return true
}

// Helpers returns the helper names in declaration order.
func (m *Model) Helpers() []string {
	names := make([]string, len(m.helpers))
	for i, h := range m.helpers {
		names[i] = h.name
	}
	return names
}

// Helper runs the named helper.
func (m *Model) Helper(name string, args []value.Value) (value.Value, error) {
	for _, h := range m.helpers {
		if h.name != name {
			continue
		}
		out, err := h.fn(args)
		if err != nil {
			return value.Value{}, fmt.Errorf("helper %q: %w", name, err)
		}
		return out, nil
	}
	return value.Value{}, &types.UnknownHelperError{Version: m.version, Helper: name}
}

// Descriptor is the inspectable form of a model declaration.
type Descriptor struct {
	Version    types.Version `json:"version"`
	Lenient    bool          `json:"lenient,omitempty"`
	Root       Type          `json:"root"`
	Defaults   *value.Value  `json:"defaults,omitempty"`
	Invariants []string      `json:"invariants,omitempty"`
	Helpers    []string      `json:"helpers,omitempty"`
}

// Descriptor returns the model's declaration.
func (m *Model) Descriptor() Descriptor {
	d := Descriptor{
		Version:  m.version,
		Lenient:  m.lenient,
		Root:     m.root,
		Defaults: m.defaults,
	}
	for _, inv := range m.invariants {
		d.Invariants = append(d.Invariants, inv.name)
	}
	if len(m.helpers) > 0 {
		d.Helpers = m.Helpers()
	}
	return d
}

func fingerprint(d Descriptor) (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode descriptor: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
