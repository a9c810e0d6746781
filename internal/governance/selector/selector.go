// Package selector implements deterministic chamber selection. Given the
// same pool snapshot and the same public inputs, every honest party computes
// the same committee, so selections are disputable after the fact.
package selector

import (
	"bytes"
	"crypto/sha256"
	"sort"
	"time"

	"trustplane/internal/governance/models"
	id "trustplane/pkg/domain"
	dErrors "trustplane/pkg/domain-errors"
)

// Seed derives the selection seed from the public inputs:
// SHA-256(beacon || prev_anchor || nonce).
func Seed(in models.SelectionInputs) [sha256.Size]byte {
	h := sha256.New()
	h.Write(in.Beacon)
	h.Write(in.PrevAnchor)
	h.Write(in.Nonce)
	var seed [sha256.Size]byte
	copy(seed[:], h.Sum(nil))
	return seed
}

// Constraints bound what counts as a valid chamber: exact seat count, a
// per-region seat cap, and diversity floors over the seated committee.
type Constraints struct {
	Size       int
	RegionCap  int
	MinRegions int
	MinOrgs    int
}

func (c Constraints) validate() error {
	if c.Size < 1 {
		return dErrors.New(dErrors.CodeValidation, "chamber size must be at least 1")
	}
	if c.RegionCap < 1 {
		return dErrors.New(dErrors.CodeValidation, "region cap must be at least 1")
	}
	if c.MinRegions < 1 || c.MinOrgs < 1 {
		return dErrors.New(dErrors.CodeValidation, "region and org diversity floors must be at least 1")
	}
	return nil
}

// rank is a candidate's position in the seeded ordering.
type rank struct {
	candidate models.Candidate
	digest    [sha256.Size]byte
}

// Select picks a chamber of exactly c.Size members from the pool. Recused
// actors are excluded before ranking, then the seeded ranking is walked
// greedily, skipping any candidate whose region already holds RegionCap
// seats. Selection fails closed: if the walk cannot fill every seat under
// the cap, or the seated committee spans fewer than MinRegions regions or
// MinOrgs organizations, no chamber is produced.
func Select(pool *models.EligibilityPool, in models.SelectionInputs, c Constraints, recused map[id.ActorID]bool, now time.Time) (*models.Chamber, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if pool == nil || len(pool.Candidates) == 0 {
		return nil, dErrors.New(dErrors.CodeSelectionInfeasible, "eligibility pool is empty")
	}

	candidates := pool.Candidates
	if len(recused) > 0 {
		candidates = make([]models.Candidate, 0, len(pool.Candidates))
		for _, cand := range pool.Candidates {
			if recused[cand.ActorID] {
				continue
			}
			candidates = append(candidates, cand)
		}
	}
	if len(candidates) == 0 {
		return nil, dErrors.New(dErrors.CodeSelectionInfeasible, "every pool candidate is recused")
	}

	seed := Seed(in)
	ranked := orderCandidates(candidates, seed)

	members := make([]models.Candidate, 0, c.Size)
	perRegion := make(map[id.Region]int)
	orgs := make(map[id.OrgID]bool)
	for _, r := range ranked {
		if perRegion[r.candidate.Region] >= c.RegionCap {
			continue
		}
		members = append(members, r.candidate)
		perRegion[r.candidate.Region]++
		orgs[r.candidate.Org] = true
		if len(members) == c.Size {
			break
		}
	}
	if len(members) < c.Size {
		return nil, dErrors.Newf(dErrors.CodeSelectionInfeasible,
			"pool supports only %d of %d seats under region cap %d", len(members), c.Size, c.RegionCap)
	}
	if len(perRegion) < c.MinRegions {
		return nil, dErrors.Newf(dErrors.CodeSelectionInfeasible,
			"seated committee spans %d regions, %d required", len(perRegion), c.MinRegions)
	}
	if len(orgs) < c.MinOrgs {
		return nil, dErrors.Newf(dErrors.CodeSelectionInfeasible,
			"seated committee spans %d organizations, %d required", len(orgs), c.MinOrgs)
	}

	return &models.Chamber{
		ID:         id.NewChamberID(),
		PoolID:     pool.ID,
		Seed:       seed[:],
		Size:       c.Size,
		RegionCap:  c.RegionCap,
		Members:    members,
		SelectedAt: now,
	}, nil
}

// orderCandidates ranks candidates by SHA-256(seed || actor_id), ascending,
// with equal digests ordered by actor id so the ranking is a total order.
// Duplicate actor ids collapse to one entry so a corrupted snapshot cannot
// double-seat anyone.
func orderCandidates(candidates []models.Candidate, seed [sha256.Size]byte) []rank {
	seen := make(map[id.ActorID]bool, len(candidates))
	ranked := make([]rank, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.ActorID] {
			continue
		}
		seen[c.ActorID] = true

		h := sha256.New()
		h.Write(seed[:])
		h.Write([]byte(c.ActorID.String()))
		var d [sha256.Size]byte
		copy(d[:], h.Sum(nil))
		ranked = append(ranked, rank{candidate: c, digest: d})
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranksBefore(ranked[i], ranked[j])
	})
	return ranked
}

// ranksBefore is the total order over ranked candidates: digest ascending,
// equal digests broken by actor id.
func ranksBefore(a, b rank) bool {
	if cmp := bytes.Compare(a.digest[:], b.digest[:]); cmp != 0 {
		return cmp < 0
	}
	return a.candidate.ActorID.String() < b.candidate.ActorID.String()
}
