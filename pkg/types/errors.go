package types

import (
	"errors"
	"fmt"
	"strings"
)

// Registration errors. These are programming errors in an extension and are
// reported when the extension is built, never per request.
var (
	ErrDuplicateVersion  = errors.New("duplicate schema version")
	ErrDuplicateEdge     = errors.New("duplicate migrator")
	ErrSelfEdge          = errors.New("migrator source and target are the same version")
	ErrDanglingEdge      = errors.New("migrator references an unregistered version")
	ErrDisconnectedGraph = errors.New("migration graph does not connect every version")
	ErrRegistrySealed    = errors.New("registry is sealed")
	ErrGraphSealed       = errors.New("migration graph is sealed")
	ErrNoModels          = errors.New("extension has no models")
	ErrInvalidName       = errors.New("invalid extension name")
	ErrInvalidModel      = errors.New("invalid model declaration")
)

// Request errors.
var (
	ErrUnknownVersion             = errors.New("unknown schema version")
	ErrSchemaMismatch             = errors.New("value does not match schema")
	ErrValidation                 = errors.New("validation failed")
	ErrNoPathFound                = errors.New("no migration path")
	ErrMigratorFailure            = errors.New("migrator failed")
	ErrUnknownHelper              = errors.New("unknown helper")
	ErrProtocol                   = errors.New("protocol error")
	ErrUnsupportedProtocolVersion = errors.New("unsupported protocol version")
)

// ErrorKind is the stable, wire-visible classification of an error.
type ErrorKind string

// Error kinds carried in protocol responses.
const (
	KindUnknownVersion             ErrorKind = "unknown_version"
	KindDuplicateVersion           ErrorKind = "duplicate_version"
	KindDuplicateEdge              ErrorKind = "duplicate_edge"
	KindSchemaMismatch             ErrorKind = "schema_mismatch"
	KindValidation                 ErrorKind = "validation_error"
	KindNoPathFound                ErrorKind = "no_path_found"
	KindMigratorFailure            ErrorKind = "migrator_failure"
	KindUnknownHelper              ErrorKind = "unknown_helper"
	KindProtocol                   ErrorKind = "protocol_error"
	KindUnsupportedProtocolVersion ErrorKind = "unsupported_protocol_version"
	KindInternal                   ErrorKind = "internal"
)

// kindOrder lists sentinels in match priority. A MigratorFailureError that
// wraps a SchemaMismatchError reports as a migrator failure, so the outer
// kinds come first.
var kindOrder = []struct {
	err  error
	kind ErrorKind
}{
	{ErrUnsupportedProtocolVersion, KindUnsupportedProtocolVersion},
	{ErrProtocol, KindProtocol},
	{ErrMigratorFailure, KindMigratorFailure},
	{ErrNoPathFound, KindNoPathFound},
	{ErrValidation, KindValidation},
	{ErrSchemaMismatch, KindSchemaMismatch},
	{ErrUnknownVersion, KindUnknownVersion},
	{ErrUnknownHelper, KindUnknownHelper},
	{ErrDuplicateVersion, KindDuplicateVersion},
	{ErrDuplicateEdge, KindDuplicateEdge},
}

// KindOf classifies err. Errors outside the taxonomy are KindInternal.
func KindOf(err error) ErrorKind {
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// FieldPathOf returns the field path carried by err, if any. Validation errors
// report the path of their first violation.
func FieldPathOf(err error) string {
	var mf *MigratorFailureError
	if errors.As(err, &mf) {
		return ""
	}
	var sm *SchemaMismatchError
	if errors.As(err, &sm) {
		return sm.Path
	}
	var ve *ValidationError
	if errors.As(err, &ve) && len(ve.Violations) > 0 {
		return ve.Violations[0].Path
	}
	return ""
}

// UnknownVersionError reports a version that is not registered.
type UnknownVersionError struct {
	Version Version
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("unknown schema version %q", e.Version)
}

func (e *UnknownVersionError) Unwrap() error { return ErrUnknownVersion }

// DuplicateVersionError reports a second registration of the same version.
type DuplicateVersionError struct {
	Version Version
}

func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("schema version %q registered more than once", e.Version)
}

func (e *DuplicateVersionError) Unwrap() error { return ErrDuplicateVersion }

// DuplicateEdgeError reports a second migrator for the same ordered pair.
type DuplicateEdgeError struct {
	From Version
	To   Version
}

func (e *DuplicateEdgeError) Error() string {
	return fmt.Sprintf("migrator %s -> %s registered more than once", e.From, e.To)
}

func (e *DuplicateEdgeError) Unwrap() error { return ErrDuplicateEdge }

// SchemaMismatchError reports a tree that does not have the shape a model
// declares. Path names the offending field.
type SchemaMismatchError struct {
	Version Version
	Path    string
	Reason  string
}

func (e *SchemaMismatchError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("schema mismatch at %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("schema mismatch for version %q at %s: %s", e.Version, e.Path, e.Reason)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// Violation is one field-tagged validation problem.
type Violation struct {
	Path    string `json:"path" cbor:"path"`
	Message string `json:"message" cbor:"message"`
	Rule    string `json:"rule,omitempty" cbor:"rule,omitempty"`
}

func (v Violation) String() string {
	if v.Rule != "" {
		return fmt.Sprintf("%s: %s (%s)", v.Path, v.Message, v.Rule)
	}
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// ValidationError collects every violation found in a value.
type ValidationError struct {
	Version    Version
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("validation failed for version %q: %s", e.Version, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NoPathError reports that no chain of migrators connects two versions.
type NoPathError struct {
	From Version
	To   Version
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("no migration path from %q to %q", e.From, e.To)
}

func (e *NoPathError) Unwrap() error { return ErrNoPathFound }

// MigratorFailureError reports the edge of a resolved path that refused its
// input. Err is the migrator's own error, or a SchemaMismatchError when the
// migrator produced a value its target model rejects.
type MigratorFailureError struct {
	From Version
	To   Version
	Err  error
}

func (e *MigratorFailureError) Error() string {
	return fmt.Sprintf("migrator %s -> %s failed: %v", e.From, e.To, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *MigratorFailureError) Unwrap() []error { return []error{ErrMigratorFailure, e.Err} }

// Edge renders the failing edge as "from->to".
func (e *MigratorFailureError) Edge() string {
	return fmt.Sprintf("%s->%s", e.From, e.To)
}

// UnknownHelperError reports a helper name that a model does not provide.
type UnknownHelperError struct {
	Version Version
	Helper  string
}

func (e *UnknownHelperError) Error() string {
	return fmt.Sprintf("version %q has no helper %q", e.Version, e.Helper)
}

func (e *UnknownHelperError) Unwrap() error { return ErrUnknownHelper }

// ProtocolError reports a request that could not be decoded or is malformed.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return ErrProtocol }

// UnsupportedProtocolVersionError reports a request tagged with a protocol
// version this extension does not speak.
type UnsupportedProtocolVersionError struct {
	Requested string
	Supported []string
}

func (e *UnsupportedProtocolVersionError) Error() string {
	return fmt.Sprintf("unsupported protocol version %q (supported: %s)",
		e.Requested, strings.Join(e.Supported, ", "))
}

func (e *UnsupportedProtocolVersionError) Unwrap() error { return ErrUnsupportedProtocolVersion }
