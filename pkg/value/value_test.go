package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertTree compares trees with Equal so that kind differences (Int vs
// Float) are reported, and prints both sides on failure.
func assertTree(t *testing.T, want, got Value) {
	t.Helper()
	assert.True(t, Equal(want, got), "trees differ:\nwant %s\n got %s", want, got)
}

func TestZeroValueIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())
	assert.Equal(t, KindNull, v.Kind())
	assert.True(t, Equal(v, Null()))
	assert.Equal(t, "null", v.String())
}

func TestScalarAccessors(t *testing.T) {
	b, ok := Bool(true).AsBool()
	assert.True(t, ok)
	assert.True(t, b)

	i, ok := Int(1500).AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(1500), i)

	_, ok = Float(1.5).AsInt()
	assert.False(t, ok, "floats are not ints")

	f, ok := Int(3).AsFloat()
	assert.True(t, ok, "ints widen to float")
	assert.Equal(t, 3.0, f)

	s, ok := String("auto").AsString()
	assert.True(t, ok)
	assert.Equal(t, "auto", s)

	_, ok = String("x").AsBool()
	assert.False(t, ok)
}

func TestEqualIsKindSensitive(t *testing.T) {
	assert.False(t, Equal(Int(1), Float(1)))
	assert.True(t, Equal(Float(1), Float(1)))
	assert.False(t, Equal(Sequence(Int(1)), Sequence(Int(1), Int(2))))
	assert.True(t, Equal(
		Object("a", 1, "b", []any{"x", true}),
		Object("b", []any{"x", true}, "a", 1),
	))
	assert.False(t, Equal(Object("a", 1), Object("a", 2)))
	assert.False(t, Equal(Object("a", 1), Object("b", 1)))
}

func TestWithAndWithoutDoNotMutate(t *testing.T) {
	base := Object("mtu", 1500)

	added := base.With("mode", String("auto"))
	removed := added.Without("mtu")

	assertTree(t, Object("mtu", 1500), base)
	assertTree(t, Object("mtu", 1500, "mode", "auto"), added)
	assertTree(t, Object("mode", "auto"), removed)
}

func TestKeysAreSorted(t *testing.T) {
	v := Object("zeta", 1, "alpha", 2, "mid", 3)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, v.Keys())
	assert.Nil(t, Int(1).Keys())
}

func TestLookup(t *testing.T) {
	v := MustParse(`{"net": {"interfaces": [{"name": "eth0"}, {"name": "eth1"}]}}`)

	got, ok := v.Lookup(Path{}.Key("net").Key("interfaces").Index(1).Key("name"))
	require.True(t, ok)
	assertTree(t, String("eth1"), got)

	_, ok = v.Lookup(Path{}.Key("net").Key("interfaces").Index(5))
	assert.False(t, ok)

	root, ok := v.Lookup(nil)
	require.True(t, ok)
	assertTree(t, v, root)
}

func TestPathString(t *testing.T) {
	tests := []struct {
		name string
		path Path
		want string
	}{
		{"root", nil, "."},
		{"single key", Path{}.Key("mtu"), ".mtu"},
		{"nested", Path{}.Key("net").Key("interfaces").Index(2).Key("name"), ".net.interfaces[2].name"},
		{"index at root", Path{}.Index(0), "[0]"},
		{"quoted key", Path{}.Key("labels").Key("a.b"), `.labels["a.b"]`},
		{"empty key", Path{}.Key(""), `[""]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.path.String())
		})
	}
}

func TestPathExtensionDoesNotAlias(t *testing.T) {
	parent := Path{}.Key("a")
	left := parent.Key("left")
	right := parent.Key("right")
	assert.Equal(t, ".a.left", left.String())
	assert.Equal(t, ".a.right", right.String())
	assert.Equal(t, ".a", parent.String())
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		fragment string
		want     string
	}{
		{
			name:     "keys are unioned and fragment wins",
			base:     `{"mtu": 1500, "mode": "auto"}`,
			fragment: `{"mode": "manual", "speed": 10}`,
			want:     `{"mtu": 1500, "mode": "manual", "speed": 10}`,
		},
		{
			name:     "nested mappings merge recursively",
			base:     `{"net": {"mtu": 1500, "dns": {"primary": "1.1.1.1"}}}`,
			fragment: `{"net": {"dns": {"secondary": "8.8.8.8"}}}`,
			want:     `{"net": {"mtu": 1500, "dns": {"primary": "1.1.1.1", "secondary": "8.8.8.8"}}}`,
		},
		{
			name:     "sequences are replaced wholesale",
			base:     `{"servers": ["a", "b", "c"]}`,
			fragment: `{"servers": ["d"]}`,
			want:     `{"servers": ["d"]}`,
		},
		{
			name:     "null in fragment replaces",
			base:     `{"mode": "auto"}`,
			fragment: `{"mode": null}`,
			want:     `{"mode": null}`,
		},
		{
			name:     "scalar fragment replaces mapping",
			base:     `{"mode": "auto"}`,
			fragment: `"motd"`,
			want:     `"motd"`,
		},
		{
			name:     "mapping fragment over null base",
			base:     `null`,
			fragment: `{"mtu": 9001}`,
			want:     `{"mtu": 9001}`,
		},
		{
			name:     "empty fragment keeps base",
			base:     `{"mtu": 1500}`,
			fragment: `{}`,
			want:     `{"mtu": 1500}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(MustParse(tt.base), MustParse(tt.fragment))
			assertTree(t, MustParse(tt.want), got)
		})
	}
}

func TestMergeLeavesInputsUntouched(t *testing.T) {
	base := MustParse(`{"net": {"mtu": 1500, "servers": ["a"]}}`)
	fragment := MustParse(`{"net": {"mtu": 9001, "servers": ["b"]}}`)
	baseCopy := base.Clone()
	fragmentCopy := fragment.Clone()

	_ = Merge(base, fragment)

	assertTree(t, baseCopy, base)
	assertTree(t, fragmentCopy, fragment)
}

func TestParseKeepsIntFloatDistinction(t *testing.T) {
	v := MustParse(`{"i": 1500, "f": 1500.0, "e": 1.5e3, "neg": -7}`)

	i, _ := v.Field("i")
	assert.Equal(t, KindInt, i.Kind())
	f, _ := v.Field("f")
	assert.Equal(t, KindFloat, f.Kind())
	e, _ := v.Field("e")
	assert.Equal(t, KindFloat, e.Kind())
	neg, _ := v.Field("neg")
	assertTree(t, Int(-7), neg)
}

func TestParseAcceptsComments(t *testing.T) {
	v, err := Parse([]byte(`{
		// default link MTU
		"mtu": 1500,
		"mode": "auto", /* trailing comma below */
	}`))
	require.NoError(t, err)
	assertTree(t, Object("mtu", 1500, "mode", "auto"), v)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{"mtu": 1500} {"mtu": 9001}`))
	assert.ErrorIs(t, err, ErrTrailingData)

	_, err = Parse([]byte(`{"mtu": 99999999999999999999}`))
	assert.ErrorIs(t, err, ErrIntOutOfRange)

	_, err = Parse([]byte(`{"mtu":`))
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	original := MustParse(`{"mtu": 1500, "ratio": 0.5, "on": true, "tags": ["a", "b"], "none": null}`)

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.JSONEq(t, `{"mtu": 1500, "ratio": 0.5, "on": true, "tags": ["a", "b"], "none": null}`, string(data))

	var decoded Value
	require.NoError(t, json.Unmarshal(data, &decoded))
	assertTree(t, original, decoded)
}

func TestJSONInsideStruct(t *testing.T) {
	type envelope struct {
		Payload *Value `json:"payload,omitempty"`
	}
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(`{"payload": {"mtu": 1500}}`), &env))
	require.NotNil(t, env.Payload)
	assertTree(t, Object("mtu", 1500), *env.Payload)

	var empty envelope
	require.NoError(t, json.Unmarshal([]byte(`{}`), &empty))
	assert.Nil(t, empty.Payload)
}

func TestCBORRoundTripKeepsKinds(t *testing.T) {
	original := Object("mtu", 1500, "ratio", 1.0, "name", "eth0", "list", []any{1, "x"})

	data, err := original.MarshalCBOR()
	require.NoError(t, err)

	var decoded Value
	require.NoError(t, decoded.UnmarshalCBOR(data))
	assertTree(t, original, decoded)
}

func TestFromNative(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"int", 5, Int(5)},
		{"uint8", uint8(7), Int(7)},
		{"float32", float32(0.5), Float(0.5)},
		{"typed slice", []string{"a", "b"}, Sequence(String("a"), String("b"))},
		{"typed map", map[string]int{"a": 1}, Object("a", 1)},
		{"any-keyed map", map[any]any{"a": true}, Object("a", true)},
		{"nested value", map[string]any{"v": Int(3)}, Object("v", 3)},
		{"json number int", json.Number("12"), Int(12)},
		{"json number float", json.Number("1.25"), Float(1.25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromNative(tt.in)
			require.NoError(t, err)
			assertTree(t, tt.want, got)
		})
	}
}

func TestFromNativeRejects(t *testing.T) {
	_, err := FromNative(struct{ A int }{A: 1})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = FromNative([]byte("raw"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = FromNative(map[any]any{1: "x"})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = FromNative(uint64(1) << 63)
	assert.ErrorIs(t, err, ErrIntOutOfRange)
}

func TestCloneIsDeep(t *testing.T) {
	original := MustParse(`{"a": {"b": [1, 2]}}`)
	clone := original.Clone()
	assertTree(t, original, clone)

	modified := clone.With("a", String("changed"))
	assertTree(t, MustParse(`{"a": {"b": [1, 2]}}`), original)
	assert.False(t, Equal(original, modified))
}

type netV2 struct {
	MTU        int      `json:"mtu"`
	Mode       string   `json:"mode"`
	Interfaces []string `json:"interfaces,omitempty"`
}

func TestBindAndFromStruct(t *testing.T) {
	var cfg netV2
	require.NoError(t, Bind(MustParse(`{"mtu": 9001, "mode": "manual", "interfaces": ["eth0"]}`), &cfg))
	assert.Equal(t, netV2{MTU: 9001, Mode: "manual", Interfaces: []string{"eth0"}}, cfg)

	back, err := FromStruct(cfg)
	require.NoError(t, err)
	assertTree(t, MustParse(`{"mtu": 9001, "mode": "manual", "interfaces": ["eth0"]}`), back)

	omitted, err := FromStruct(netV2{MTU: 1500, Mode: "auto"})
	require.NoError(t, err)
	assertTree(t, Object("mtu", 1500, "mode", "auto"), omitted)
}

func TestBindRejectsUnknownKeysAndMismatches(t *testing.T) {
	var cfg netV2
	assert.Error(t, Bind(MustParse(`{"mtu": 1500, "mode": "auto", "speed": 10}`), &cfg))
	assert.Error(t, Bind(MustParse(`{"mtu": "big", "mode": "auto"}`), &cfg))
}
