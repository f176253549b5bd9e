package chess

import (
	"errors"
	"math/rand"

	"github.com/park285/boardsync/internal/chess/uci"
)

var errNoCandidates = errors.New("no candidates to choose from")

// pickCandidate draws one of the engine's ranked lines using the preset's
// weights. Lines beyond len(weights) are never chosen. A line whose score
// trails the best by more than p.BlunderMarginCP is skipped so weaker levels
// stay plausible without hanging pieces outright.
func pickCandidate(p Preset, candidates []uci.Candidate, r *rand.Rand) (uci.Candidate, error) {
	if len(candidates) == 0 {
		return uci.Candidate{}, errNoCandidates
	}
	limit := len(p.CandidateWeights)
	if limit > len(candidates) {
		limit = len(candidates)
	}
	if limit <= 1 {
		return candidates[0], nil
	}

	best := candidates[0].EvalCP
	total := 0.0
	eligible := make([]int, 0, limit)
	for i := 0; i < limit; i++ {
		if p.BlunderMarginCP > 0 && best-candidates[i].EvalCP > p.BlunderMarginCP {
			continue
		}
		eligible = append(eligible, i)
		total += p.CandidateWeights[i]
	}
	if total <= 0 {
		return candidates[0], nil
	}

	threshold := r.Float64() * total
	for _, i := range eligible {
		threshold -= p.CandidateWeights[i]
		if threshold <= 0 {
			return candidates[i], nil
		}
	}
	return candidates[eligible[len(eligible)-1]], nil
}
