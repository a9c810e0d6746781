package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trustplane/internal/trust/models"
)

func TestSortByCreation(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("orders by creation time", func(t *testing.T) {
		third := pending(base.Add(2 * time.Minute))
		first := pending(base)
		second := pending(base.Add(time.Minute))

		out := []*models.DeltaGuardDecision{third, first, second}
		sortByCreation(out)
		assert.Equal(t, []*models.DeltaGuardDecision{first, second, third}, out)
	})

	t.Run("equal creation times fall back to decision id", func(t *testing.T) {
		a := pending(base)
		b := pending(base)
		if b.ID.String() < a.ID.String() {
			a, b = b, a
		}

		out := []*models.DeltaGuardDecision{b, a}
		sortByCreation(out)
		assert.Equal(t, []*models.DeltaGuardDecision{a, b}, out)
	})
}
