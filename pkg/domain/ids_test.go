package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseID_Invariants validates parsing at the trust boundary: only
// well-formed UUIDs become typed IDs.
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseActorID("")
		require.Error(t, err)
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		for _, in := range []string{"not-a-uuid", "'; DROP TABLE actors;--", "550e8400"} {
			_, err := ParseActorID(in)
			assert.Error(t, err, "input %q", in)
		}
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		u := uuid.New()
		actorID, err := ParseActorID(u.String())
		require.NoError(t, err)
		assert.Equal(t, ActorID{u}, actorID)
		assert.False(t, actorID.IsNil())
	})

	t.Run("round-trips through String", func(t *testing.T) {
		actorID := NewActorID()
		back, err := ParseActorID(actorID.String())
		require.NoError(t, err)
		assert.Equal(t, actorID, back)
	})
}

func TestIsNil(t *testing.T) {
	assert.True(t, ActorID{}.IsNil())
	assert.True(t, EventID{}.IsNil())
	assert.True(t, DecisionID{}.IsNil())
	assert.True(t, ChamberID{}.IsNil())
	assert.True(t, PoolID{}.IsNil())

	assert.False(t, NewActorID().IsNil())
	assert.False(t, NewDecisionID().IsNil())
}

func TestParseRegionAndOrg(t *testing.T) {
	t.Run("rejects empty values", func(t *testing.T) {
		_, err := ParseRegion("")
		assert.Error(t, err)
		_, err = ParseOrgID("")
		assert.Error(t, err)
	})

	t.Run("accepts non-empty values", func(t *testing.T) {
		r, err := ParseRegion("eu-west")
		require.NoError(t, err)
		assert.Equal(t, Region("eu-west"), r)

		o, err := ParseOrgID("acme")
		require.NoError(t, err)
		assert.Equal(t, OrgID("acme"), o)
	})
}

// TestParseDomainTag verifies the tag whitelist: roots and commitments are
// namespaced only by known record kinds.
func TestParseDomainTag(t *testing.T) {
	t.Run("accepts known tags", func(t *testing.T) {
		for _, tag := range []DomainTag{DomainTrustDeltas, DomainChamberSelections, DomainAmendments} {
			got, err := ParseDomainTag(tag.String())
			require.NoError(t, err)
			assert.Equal(t, tag, got)
		}
	})

	t.Run("rejects unknown tags", func(t *testing.T) {
		for _, in := range []string{"", "trust", "TRUST-DELTAS", "trust-deltas "} {
			_, err := ParseDomainTag(in)
			assert.Error(t, err, "input %q", in)
		}
	})
}
