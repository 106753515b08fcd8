package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/settings-sdk/pkg/cli"
	"github.com/mesh-intelligence/settings-sdk/pkg/extension"
	"github.com/mesh-intelligence/settings-sdk/pkg/types"
	"github.com/mesh-intelligence/settings-sdk/pkg/value"
)

func assertTree(t *testing.T, want string, got value.Value) {
	t.Helper()
	w := value.MustParse(want)
	assert.True(t, value.Equal(w, got), "want %s\n got %s", w, got)
}

func TestExtensionIsConnected(t *testing.T) {
	x := newExtension()
	assert.Equal(t, "netconf", x.Name())
	assert.Empty(t, x.Gaps())

	var versions []types.Version
	for _, info := range x.Versions() {
		versions = append(versions, info.Version)
	}
	assert.Equal(t, types.Versions("v1", "v2", "v3"), versions)
}

func TestMigrations(t *testing.T) {
	x := newExtension()
	tests := []struct {
		name     string
		from, to types.Version
		in       string
		want     string
	}{
		{"v1 to v2", "v1", "v2", `{"mtu": 9000}`, `{"mtu": 9000, "mode": "auto"}`},
		{"v1 to v3", "v1", "v3", `{"mtu": 9000}`, `{"mtu": 9000, "mode": "auto", "interfaces": []}`},
		{"v2 to v1", "v2", "v1", `{"mtu": 1400, "mode": "auto"}`, `{"mtu": 1400}`},
		{"v3 to v1", "v3", "v1", `{"mtu": 1400, "mode": "auto", "interfaces": []}`, `{"mtu": 1400}`},
		{"v2 to v3 keeps manual mode", "v2", "v3", `{"mode": "manual"}`, `{"mtu": 1500, "mode": "manual", "interfaces": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := x.Migrate(value.MustParse(tt.in), tt.from, tt.to)
			require.NoError(t, err)
			assertTree(t, tt.want, out)
		})
	}
}

func TestDowngradeFailures(t *testing.T) {
	x := newExtension()

	_, err := x.Migrate(value.MustParse(`{"mtu": 1500, "mode": "manual"}`), "v2", "v1")
	require.ErrorIs(t, err, types.ErrMigratorFailure)
	assert.ErrorIs(t, err, errDowngrade)
	var mf *types.MigratorFailureError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "v2->v1", mf.Edge())

	_, err = x.Migrate(value.MustParse(`{"interfaces": [{"name": "eth0"}]}`), "v3", "v1")
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "v3->v2", mf.Edge(), "the chain stops at the first failing edge")
}

func TestV3Invariants(t *testing.T) {
	x := newExtension()

	err := x.Validate("v3", value.MustParse(`{"mtu": 1500, "mode": "auto",
		"interfaces": [{"name": "eth0"}, {"name": "eth1", "mtu": 9000}, {"name": "eth0"}]}`), value.Null())
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Violations, 2)

	byRule := map[string]types.Violation{}
	for _, v := range ve.Violations {
		byRule[v.Rule] = v
	}
	assert.Equal(t, ".interfaces[2].name", byRule["unique_interface_names"].Path)
	assert.Equal(t, ".interfaces[1].mtu", byRule["interface_mtu_within_link"].Path)

	assert.NoError(t, x.Validate("v3", value.MustParse(`{"interfaces": [{"name": "eth0", "mtu": 1400}]}`), value.Null()))
}

func TestGenerateV3(t *testing.T) {
	x := newExtension()

	g, err := x.Generate("v3", extension.GenerateInput{})
	require.NoError(t, err)
	assert.True(t, g.Complete)
	assertTree(t, `{"mtu": 1500, "mode": "auto", "interfaces": []}`, g.Value)

	g, err = x.Generate("v3", extension.GenerateInput{Related: value.Object("primary_interface", "eth0")})
	require.NoError(t, err)
	assert.True(t, g.Complete)
	assertTree(t, `{"mtu": 1500, "mode": "auto", "interfaces": [{"name": "eth0"}]}`, g.Value)

	g, err = x.Generate("v3", extension.GenerateInput{Existing: value.MustParse(`{"interfaces": [{"mtu": 1400}]}`)})
	require.NoError(t, err)
	assert.False(t, g.Complete, "an unnamed interface leaves the result partial")
}

func TestHelpers(t *testing.T) {
	x := newExtension()

	out, err := x.Helper("v2", "describe", []value.Value{value.MustParse(`{"mtu": 9000, "mode": "manual"}`)})
	require.NoError(t, err)
	assertTree(t, `"jumbo frames, manual configuration"`, out)

	out, err = x.Helper("v3", "interface_names", []value.Value{value.MustParse(`{"interfaces": [{"name": "eth0"}, {"name": "wlan0"}]}`)})
	require.NoError(t, err)
	assertTree(t, `["eth0", "wlan0"]`, out)

	_, err = x.Helper("v1", "describe", nil)
	assert.ErrorIs(t, err, types.ErrUnknownHelper)
	_, err = x.Helper("v2", "describe", nil)
	assert.Error(t, err)
}

func TestCLIMigrate(t *testing.T) {
	t.Setenv("SETTINGS_EXTENSION_CONFIG_DIR", t.TempDir())
	var stdout, stderr bytes.Buffer
	code := cli.Run(newExtension(),
		[]string{"proto1", "migrate", "--from-version", "v1", "--target-version", "v3"},
		strings.NewReader(`{"mtu": 9000}`), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	result := resp["result"].(map[string]any)
	assert.Equal(t, float64(9000), result["mtu"])
	assert.Equal(t, []any{}, result["interfaces"])
}
