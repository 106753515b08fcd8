// Package types defines the shared vocabulary of the settings SDK: schema
// versions, the error taxonomy returned by every extension operation, and the
// runtime configuration read by extension binaries.
//
// Errors come in two layers. Sentinels (ErrUnknownVersion, ErrNoPathFound, ...)
// are stable values for errors.Is checks. Structured errors (UnknownVersionError,
// MigratorFailureError, ...) carry the context the orchestrator needs and
// unwrap to their sentinel. KindOf maps any error to the kind string used on
// the wire.
package types
