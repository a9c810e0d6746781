package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarshal_Profile pins the canonical serialization profile. These bytes
// are a public contract: an independent verifier must be able to reproduce
// them exactly.
func TestMarshal_Profile(t *testing.T) {
	t.Run("sorts object keys", func(t *testing.T) {
		b, err := Marshal(map[string]any{"b": 1, "a": 2, "c": 3})
		require.NoError(t, err)
		assert.Equal(t, `{"a":2,"b":1,"c":3}`, string(b))
	})

	t.Run("emits no insignificant whitespace", func(t *testing.T) {
		b, err := Marshal(map[string]any{"list": []any{1, "two", nil}})
		require.NoError(t, err)
		assert.Equal(t, `{"list":[1,"two",null]}`, string(b))
	})

	t.Run("struct field order never leaks", func(t *testing.T) {
		type ba struct {
			B string `json:"b"`
			A string `json:"a"`
		}
		b, err := Marshal(ba{B: "2", A: "1"})
		require.NoError(t, err)
		assert.Equal(t, `{"a":"1","b":"2"}`, string(b))
	})

	t.Run("preserves numeric literals", func(t *testing.T) {
		// A float64 round-trip would turn this into 9.007199254740993e+15.
		b, err := Marshal(map[string]any{"n": int64(9007199254740993)})
		require.NoError(t, err)
		assert.Equal(t, `{"n":9007199254740993}`, string(b))
	})

	t.Run("nested objects sort at every level", func(t *testing.T) {
		b, err := Marshal(map[string]any{
			"outer": map[string]any{"z": true, "a": false},
			"first": 1,
		})
		require.NoError(t, err)
		assert.Equal(t, `{"first":1,"outer":{"a":false,"z":true}}`, string(b))
	})
}

func TestMarshal_Deterministic(t *testing.T) {
	v := map[string]any{
		"actor_id": "3f2c",
		"delta":    "0.0100",
		"tags":     []any{"x", "y"},
	}
	first, err := Marshal(v)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDigest(t *testing.T) {
	t.Run("identical values digest identically", func(t *testing.T) {
		a, err := Digest(map[string]any{"k": "v", "n": 1})
		require.NoError(t, err)
		b, err := Digest(map[string]any{"n": 1, "k": "v"})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("different values digest differently", func(t *testing.T) {
		a, err := Digest(map[string]any{"k": "v"})
		require.NoError(t, err)
		b, err := Digest(map[string]any{"k": "w"})
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("hex digest is 64 characters", func(t *testing.T) {
		h, err := DigestHex("record")
		require.NoError(t, err)
		assert.Len(t, h, 64)
	})
}
