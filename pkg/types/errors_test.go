package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"unknown version", &UnknownVersionError{Version: "v9"}, KindUnknownVersion},
		{"wrapped unknown version", fmt.Errorf("resolve: %w", &UnknownVersionError{Version: "v9"}), KindUnknownVersion},
		{"duplicate version", &DuplicateVersionError{Version: "v1"}, KindDuplicateVersion},
		{"duplicate edge", &DuplicateEdgeError{From: "v1", To: "v2"}, KindDuplicateEdge},
		{"schema mismatch", &SchemaMismatchError{Path: ".mtu", Reason: "expected int"}, KindSchemaMismatch},
		{"validation", &ValidationError{Version: "v1"}, KindValidation},
		{"no path", &NoPathError{From: "v2", To: "v1"}, KindNoPathFound},
		{
			"migrator failure wrapping schema mismatch",
			&MigratorFailureError{From: "v1", To: "v2", Err: &SchemaMismatchError{Path: ".mode"}},
			KindMigratorFailure,
		},
		{"unknown helper", &UnknownHelperError{Version: "v1", Helper: "x"}, KindUnknownHelper},
		{"protocol", &ProtocolError{Reason: "bad json"}, KindProtocol},
		{"unsupported protocol", &UnsupportedProtocolVersionError{Requested: "proto9"}, KindUnsupportedProtocolVersion},
		{"plain error", errors.New("disk on fire"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMigratorFailureUnwrapsCause(t *testing.T) {
	cause := errors.New("mode is manual")
	err := &MigratorFailureError{From: "v2", To: "v1", Err: cause}

	assert.ErrorIs(t, err, ErrMigratorFailure)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "v2->v1", err.Edge())
}

func TestFieldPathOf(t *testing.T) {
	assert.Equal(t, ".mtu", FieldPathOf(&SchemaMismatchError{Path: ".mtu"}))
	assert.Equal(t, ".mode", FieldPathOf(&ValidationError{Violations: []Violation{
		{Path: ".mode", Message: "not allowed"},
		{Path: ".mtu", Message: "out of range"},
	}}))
	assert.Equal(t, "", FieldPathOf(&ValidationError{}))
	assert.Equal(t, "", FieldPathOf(&MigratorFailureError{Err: &SchemaMismatchError{Path: ".x"}}))
	assert.Equal(t, "", FieldPathOf(errors.New("other")))
}
