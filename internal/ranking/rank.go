// Package ranking turns collected pipeline results into a ranked top-N
// candidate view.
package ranking

import (
	"sort"

	"github.com/synapse-ai/sourcing-agent/internal/types"
)

// Valid filters pipeline results down to evaluations carrying a coercible
// numeric fit score, preserving discovery order. Failed candidates and
// evaluations whose score never parsed are dropped, not errors.
func Valid(results []types.CandidateResult) []*types.CandidateEvaluation {
	valid := make([]*types.CandidateEvaluation, 0, len(results))
	for _, r := range results {
		if r.Failed() || r.Evaluation == nil {
			continue
		}
		if !r.Evaluation.FitScore.Valid {
			continue
		}
		valid = append(valid, r.Evaluation)
	}
	return valid
}

// Rank returns the top-N valid evaluations sorted by fit score descending.
// The sort is stable: candidates with equal scores keep their discovery
// order. Rank never returns more than topN entries and never includes a
// failed candidate.
func Rank(results []types.CandidateResult, topN int) []*types.CandidateEvaluation {
	ranked := Valid(results)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FitScore.Value > ranked[j].FitScore.Value
	})

	if topN >= 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
