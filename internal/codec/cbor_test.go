package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Operation string `cbor:"operation"`
	Version   string `cbor:"version,omitempty"`
	Count     int    `cbor:"count"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleRequest{Operation: "migrate", Version: "v2", Count: 3}

	data, err := Marshal(original)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	var decoded sampleRequest
	require.NoError(t, Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"zeta": 1, "alpha": "a", "mid": []any{true, 2.5}}

	first, err := Marshal(value)
	require.NoError(t, err)
	for range 20 {
		again, err := Marshal(value)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(first, again), "encoding is not deterministic")
	}
}

func TestUnmarshalAnyUsesStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"outer": map[string]any{"inner": "x"}})
	require.NoError(t, err)

	var decoded any
	require.NoError(t, Unmarshal(data, &decoded))

	outer, ok := decoded.(map[string]any)
	require.True(t, ok, "expected map[string]any, got %T", decoded)
	inner, ok := outer["outer"].(map[string]any)
	require.True(t, ok, "expected nested map[string]any, got %T", outer["outer"])
	assert.Equal(t, "x", inner["inner"])
}

func TestStreamEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(sampleRequest{Operation: "get"}))
	require.NoError(t, enc.Encode(sampleRequest{Operation: "set"}))

	dec := NewDecoder(&buf)
	var first, second sampleRequest
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, "get", first.Operation)
	assert.Equal(t, "set", second.Operation)
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[string]any{"mtu": 1500})
	require.NoError(t, err)

	diag, err := Diagnose(data)
	require.NoError(t, err)
	assert.Equal(t, `{"mtu": 1500}`, diag)
}
