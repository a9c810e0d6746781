// Package policy centralizes the numeric trust rules so they stay pure and
// testable: gain attribution, the population-derived cap, and the
// penalty/decay functions supplied by configuration.
package policy

import (
	"time"

	"trustplane/internal/platform/config"
	"trustplane/internal/trust/models"
	id "trustplane/pkg/domain"
)

// PenaltyFunc computes a penalty from actor history and the incoming event.
// Pure function of its inputs.
type PenaltyFunc func(actor *models.Actor, event models.TrustEvent) id.TrustValue

// DecayFunc computes dormancy decay from elapsed inactivity at a point in
// time. Pure function of its inputs.
type DecayFunc func(actor *models.Actor, now time.Time) id.TrustValue

// NoPenalty is the default penalty function.
func NoPenalty(*models.Actor, models.TrustEvent) id.TrustValue { return 0 }

// LinearDormancyDecay returns a DecayFunc charging rate-per-day for every
// full day of inactivity past the grace period.
func LinearDormancyDecay(perDay id.TrustValue, grace time.Duration) DecayFunc {
	return func(actor *models.Actor, now time.Time) id.TrustValue {
		if actor.LastActiveAt.IsZero() {
			return 0
		}
		idle := now.Sub(actor.LastActiveAt)
		if idle <= grace {
			return 0
		}
		days := int64((idle - grace) / (24 * time.Hour))
		return perDay * id.TrustValue(days)
	}
}

// Rules evaluates the constitutional trust parameters.
type Rules struct {
	cfg config.TrustPolicy
}

func NewRules(cfg config.TrustPolicy) Rules {
	return Rules{cfg: cfg}
}

// Floor returns T_floor.
func (r Rules) Floor() id.TrustValue { return r.cfg.Floor }

// DeltaFast returns the largest delta magnitude committed without quorum.
func (r Rules) DeltaFast() id.TrustValue { return r.cfg.DeltaFast }

// Gain attributes trust gain exclusively to proof-of-trust evidence:
// absent or unapproved reviews yield zero, whatever the work evidence says.
func (r Rules) Gain(review *models.ProofOfTrust) id.TrustValue {
	if review == nil || !review.Approved {
		return 0
	}
	gain := id.TrustFromFloat(r.cfg.Alpha * review.Quality)
	if gain > r.cfg.GainMax {
		return r.cfg.GainMax
	}
	return gain
}

// Cap derives T_cap from the current human-trust population:
// min(T_abs_max, mean + k*std). An empty population caps at T_abs_max.
func (r Rules) Cap(stats models.PopulationStats) id.TrustValue {
	if stats.Count == 0 {
		return r.cfg.AbsMax
	}
	derived := id.TrustFromFloat(stats.Mean + r.cfg.CapStddev*stats.Std)
	if derived > r.cfg.AbsMax {
		return r.cfg.AbsMax
	}
	return derived
}
