package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"trustplane/internal/platform/config"
	"trustplane/internal/trust/models"
	id "trustplane/pkg/domain"
)

func testPolicy() config.TrustPolicy {
	return config.TrustPolicy{
		Floor:     0,
		AbsMax:    10000, // 1.0000
		CapStddev: 2.0,
		Alpha:     0.05,
		GainMax:   500, // 0.0500
		DeltaFast: 200, // 0.0200
	}
}

func TestRules_Gain(t *testing.T) {
	rules := NewRules(testPolicy())

	t.Run("no review yields zero gain", func(t *testing.T) {
		assert.Equal(t, id.TrustValue(0), rules.Gain(nil))
	})

	t.Run("unapproved review yields zero gain", func(t *testing.T) {
		review := &models.ProofOfTrust{ReviewRef: "r", Reviewer: id.NewActorID(), Approved: false, Quality: 1.0}
		assert.Equal(t, id.TrustValue(0), rules.Gain(review))
	})

	t.Run("gain scales with verified quality", func(t *testing.T) {
		review := &models.ProofOfTrust{ReviewRef: "r", Reviewer: id.NewActorID(), Approved: true, Quality: 0.5}
		assert.Equal(t, id.TrustValue(250), rules.Gain(review)) // 0.05 * 0.5
	})

	t.Run("gain is capped at the maximum", func(t *testing.T) {
		cfg := testPolicy()
		cfg.Alpha = 0.2
		review := &models.ProofOfTrust{ReviewRef: "r", Reviewer: id.NewActorID(), Approved: true, Quality: 1.0}
		assert.Equal(t, cfg.GainMax, NewRules(cfg).Gain(review))
	})
}

func TestRules_Cap(t *testing.T) {
	rules := NewRules(testPolicy())

	t.Run("empty population caps at the absolute maximum", func(t *testing.T) {
		assert.Equal(t, id.TrustValue(10000), rules.Cap(models.PopulationStats{}))
	})

	t.Run("cap derives from mean and spread", func(t *testing.T) {
		stats := models.PopulationStats{Count: 10, Mean: 0.5, Std: 0.1}
		assert.Equal(t, id.TrustValue(7000), rules.Cap(stats)) // 0.5 + 2*0.1
	})

	t.Run("derived cap never exceeds the absolute maximum", func(t *testing.T) {
		stats := models.PopulationStats{Count: 10, Mean: 0.9, Std: 0.3}
		assert.Equal(t, id.TrustValue(10000), rules.Cap(stats))
	})
}

func TestLinearDormancyDecay(t *testing.T) {
	perDay := id.TrustValue(10) // 0.0010
	grace := 720 * time.Hour    // 30 days
	decay := LinearDormancyDecay(perDay, grace)
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no activity history means no decay", func(t *testing.T) {
		assert.Equal(t, id.TrustValue(0), decay(&models.Actor{}, now))
	})

	t.Run("activity within the grace period does not decay", func(t *testing.T) {
		actor := &models.Actor{LastActiveAt: now.Add(-29 * 24 * time.Hour)}
		assert.Equal(t, id.TrustValue(0), decay(actor, now))
	})

	t.Run("decay charges per full day past the grace period", func(t *testing.T) {
		actor := &models.Actor{LastActiveAt: now.Add(-35 * 24 * time.Hour)}
		assert.Equal(t, id.TrustValue(50), decay(actor, now)) // 5 days * 0.0010
	})

	t.Run("partial days do not charge", func(t *testing.T) {
		actor := &models.Actor{LastActiveAt: now.Add(-30*24*time.Hour - 12*time.Hour)}
		assert.Equal(t, id.TrustValue(0), decay(actor, now))
	})
}
