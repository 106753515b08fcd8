// Package protocol is the request/response surface an orchestrator uses to
// talk to a settings extension.
//
// A Dispatcher takes one encoded Request and returns one encoded Response.
// It keeps no state between requests. Each request walks the phases
// Idle → Decoding → Dispatching → Encoding → Idle; a request that cannot be
// decoded, or that names a protocol version the dispatcher does not speak,
// goes straight to Encoding with an error response and never reaches the
// extension.
package protocol

import (
	"errors"

	"github.com/mesh-intelligence/settings-sdk/pkg/types"
	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

// Proto1 is the protocol version this package speaks.
const Proto1 = "proto1"

// SupportedVersions lists the protocol versions a Dispatcher accepts.
var SupportedVersions = []string{Proto1}

// Operation names a request operation.
type Operation string

// Operations.
const (
	OpGenerate     Operation = "generate"
	OpValidate     Operation = "validate"
	OpSet          Operation = "set"
	OpGet          Operation = "get"
	OpMigrate      Operation = "migrate"
	OpFloodMigrate Operation = "flood_migrate"
	OpHelper       Operation = "helper"
	OpListVersions Operation = "list_versions"
)

// Operations lists every operation in the order they are documented.
var Operations = []Operation{
	OpGenerate, OpValidate, OpSet, OpGet, OpMigrate, OpFloodMigrate, OpHelper, OpListVersions,
}

// VersionContext names the schema versions a request refers to.
// Single-version operations read Version and fall back to From.
type VersionContext struct {
	Version types.Version `json:"version,omitempty" cbor:"version,omitempty"`
	From    types.Version `json:"from,omitempty" cbor:"from,omitempty"`
	To      types.Version `json:"to,omitempty" cbor:"to,omitempty"`
}

// Request is one call from the orchestrator.
type Request struct {
	ProtocolVersion string         `json:"protocol_version" cbor:"protocol_version"`
	Operation       Operation      `json:"operation" cbor:"operation"`
	VersionContext  VersionContext `json:"version_context" cbor:"version_context"`
	// Payload is the tree the operation works on: the value to validate,
	// get, or migrate, the fragment to set, or the existing partial value
	// to generate from.
	Payload *value.Value `json:"payload,omitempty" cbor:"payload,omitempty"`
	// Current is the stored value a set fragment is merged into.
	Current *value.Value `json:"current,omitempty" cbor:"current,omitempty"`
	// RequiredSettings carries other settings that generators and
	// invariants may read.
	RequiredSettings *value.Value  `json:"required_settings,omitempty" cbor:"required_settings,omitempty"`
	Helper           string        `json:"helper,omitempty" cbor:"helper,omitempty"`
	Args             []value.Value `json:"args,omitempty" cbor:"args,omitempty"`
}

// Status is the outcome of a request.
type Status string

// Statuses.
const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Response is the answer to one Request.
type Response struct {
	ProtocolVersion string       `json:"protocol_version" cbor:"protocol_version"`
	Status          Status       `json:"status" cbor:"status"`
	Result          *value.Value `json:"result,omitempty" cbor:"result,omitempty"`
	// Complete is set for generate: false means Result is a partial value
	// that needs more input.
	Complete *bool      `json:"complete,omitempty" cbor:"complete,omitempty"`
	Error    *ErrorBody `json:"error,omitempty" cbor:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Kind       types.ErrorKind   `json:"kind" cbor:"kind"`
	Message    string            `json:"message" cbor:"message"`
	FieldPath  string            `json:"field_path,omitempty" cbor:"field_path,omitempty"`
	Violations []types.Violation `json:"violations,omitempty" cbor:"violations,omitempty"`
	Edge       string            `json:"edge,omitempty" cbor:"edge,omitempty"`
}

// OK builds a successful response carrying result.
func OK(result value.Value) Response {
	return Response{ProtocolVersion: Proto1, Status: StatusOK, Result: &result}
}

// Failure builds an error response from err.
func Failure(err error) Response {
	body := &ErrorBody{
		Kind:      types.KindOf(err),
		Message:   err.Error(),
		FieldPath: types.FieldPathOf(err),
	}
	var ve *types.ValidationError
	if errors.As(err, &ve) {
		body.Violations = ve.Violations
	}
	var mf *types.MigratorFailureError
	if errors.As(err, &mf) {
		body.Edge = mf.Edge()
		body.Violations = nil
	}
	return Response{ProtocolVersion: Proto1, Status: StatusError, Error: body}
}
