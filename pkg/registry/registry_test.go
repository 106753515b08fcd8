package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/settings-sdk/pkg/model"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
)

func mtuModel(v types.Version) *model.Model {
	return model.MustNew(v, model.Object(model.Required("mtu", model.Int())))
}

func TestRegisterAndResolve(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(mtuModel("v2")))
	require.NoError(t, r.Register(mtuModel("v1")))

	m, err := r.Resolve("v1")
	require.NoError(t, err)
	assert.Equal(t, types.Version("v1"), m.Version())

	assert.Equal(t, types.Versions("v2", "v1"), r.Versions(), "registration order is kept")
	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Contains("v2"))
	assert.False(t, r.Contains("v3"))
}

func TestRegisterDuplicate(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(mtuModel("v1")))

	err := r.Register(mtuModel("v1"))
	assert.ErrorIs(t, err, types.ErrDuplicateVersion)
	var dv *types.DuplicateVersionError
	require.True(t, errors.As(err, &dv))
	assert.Equal(t, types.Version("v1"), dv.Version)
	assert.Equal(t, 1, r.Len())
}

func TestResolveUnknown(t *testing.T) {
	r := New()
	_, err := r.Resolve("v9")
	assert.ErrorIs(t, err, types.ErrUnknownVersion)
	assert.Equal(t, types.KindUnknownVersion, types.KindOf(err))
}

func TestSealedRegistryRejectsRegistration(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(mtuModel("v1")))
	r.Seal()
	assert.True(t, r.Sealed())

	assert.ErrorIs(t, r.Register(mtuModel("v2")), types.ErrRegistrySealed)
	assert.False(t, r.Contains("v2"))
}

func TestVersionsReturnsCopy(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(mtuModel("v1")))
	vs := r.Versions()
	vs[0] = "mutated"
	assert.Equal(t, types.Versions("v1"), r.Versions())
}
