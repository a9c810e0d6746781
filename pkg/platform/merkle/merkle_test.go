package merkle

import (
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte(fmt.Sprintf("record-%d", i))
	}
	return out
}

func TestRoot(t *testing.T) {
	t.Run("empty record set has no root", func(t *testing.T) {
		_, err := Root(nil)
		require.Error(t, err)
	})

	t.Run("single record roots to its leaf hash", func(t *testing.T) {
		root, err := Root(records(1))
		require.NoError(t, err)
		assert.Equal(t, LeafHash([]byte("record-0")), root)
	})

	t.Run("root is deterministic", func(t *testing.T) {
		a, err := Root(records(7))
		require.NoError(t, err)
		b, err := Root(records(7))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("root depends on record order", func(t *testing.T) {
		rs := records(4)
		a, err := Root(rs)
		require.NoError(t, err)
		rs[0], rs[1] = rs[1], rs[0]
		b, err := Root(rs)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("leaf and interior prefixes are distinct", func(t *testing.T) {
		// A leaf holding the concatenation of two leaf hashes must not
		// collide with the interior node over those leaves.
		left := LeafHash([]byte("l"))
		right := LeafHash([]byte("r"))
		forged := append(append([]byte{}, left...), right...)

		interior, err := Root([][]byte{[]byte("l"), []byte("r")})
		require.NoError(t, err)
		assert.NotEqual(t, interior, LeafHash(forged))
	})

	t.Run("odd node promotes unchanged", func(t *testing.T) {
		// With three records the third leaf pairs with the first interior
		// node at the top level.
		rs := records(3)
		l0, l1, l2 := LeafHash(rs[0]), LeafHash(rs[1]), LeafHash(rs[2])

		n01 := sha256.New()
		n01.Write([]byte{0x01})
		n01.Write(l0)
		n01.Write(l1)

		top := sha256.New()
		top.Write([]byte{0x01})
		top.Write(n01.Sum(nil))
		top.Write(l2)

		root, err := Root(rs)
		require.NoError(t, err)
		assert.Equal(t, top.Sum(nil), root)
	})
}

func TestProve(t *testing.T) {
	t.Run("rejects out-of-range indexes", func(t *testing.T) {
		rs := records(4)
		_, err := Prove(rs, -1)
		assert.Error(t, err)
		_, err = Prove(rs, 4)
		assert.Error(t, err)
	})

	t.Run("every index proves against the root", func(t *testing.T) {
		for _, n := range []int{1, 2, 3, 5, 8, 13} {
			rs := records(n)
			root, err := Root(rs)
			require.NoError(t, err)
			for i := 0; i < n; i++ {
				proof, err := Prove(rs, i)
				require.NoError(t, err)
				assert.True(t, proof.Verify(root, rs[i]), "n=%d index=%d", n, i)
			}
		}
	})
}

func TestProof_Verify(t *testing.T) {
	rs := records(5)
	root, err := Root(rs)
	require.NoError(t, err)
	proof, err := Prove(rs, 2)
	require.NoError(t, err)

	t.Run("rejects a tampered record", func(t *testing.T) {
		assert.False(t, proof.Verify(root, []byte("record-2-tampered")))
	})

	t.Run("rejects a different root", func(t *testing.T) {
		other, err := Root(records(6))
		require.NoError(t, err)
		assert.False(t, proof.Verify(other, rs[2]))
	})

	t.Run("rejects a proof bound to another index", func(t *testing.T) {
		assert.False(t, proof.Verify(root, rs[3]))
	})

	t.Run("rejects a truncated path", func(t *testing.T) {
		short := &Proof{Index: proof.Index, Leaves: proof.Leaves, Path: proof.Path[:len(proof.Path)-1]}
		assert.False(t, short.Verify(root, rs[2]))
	})

	t.Run("rejects a padded path", func(t *testing.T) {
		long := &Proof{Index: proof.Index, Leaves: proof.Leaves, Path: append(append([][]byte{}, proof.Path...), LeafHash([]byte("extra")))}
		assert.False(t, long.Verify(root, rs[2]))
	})

	t.Run("rejects an index outside the leaf count", func(t *testing.T) {
		bad := &Proof{Index: 9, Leaves: 5, Path: proof.Path}
		assert.False(t, bad.Verify(root, rs[2]))
		assert.False(t, (*Proof)(nil).Verify(root, rs[2]))
	})
}
