package consensus

import (
	"math"
	"time"

	"github.com/cortexdb/cortex/internal/model"
)

// weightOf is one vote's contribution weight: its stored vote_weight
// (|value| × reputation at vote time, fixed at cast time) times its
// decay factor times an exponential age decay against halflifeDays
// (spec §4.7).
func weightOf(v *model.Vote, halflifeDays float64, now time.Time) float64 {
	ageDays := now.Sub(v.CreatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	decay := 1.0
	if halflifeDays > 0 {
		decay = math.Exp(-ageDays / halflifeDays)
	}
	return v.VoteWeight * v.DecayFactor * decay
}

// score computes the reputation-weighted consensus score and the
// population variance of the participating agents' vote-time
// reputations (spec §4.7, and DESIGN.md's Open Question 6 on population
// vs sample variance).
func score(votes []*model.Vote, halflifeDays float64, now time.Time) (s float64, sumWeight float64, variance float64) {
	if len(votes) == 0 {
		return model.DefaultConsensusScore, 0, 0
	}

	var weightedSum float64
	weights := make([]float64, len(votes))
	for i, v := range votes {
		w := weightOf(v, halflifeDays, now)
		weights[i] = w
		weightedSum += v.Value * w
		sumWeight += w
	}

	normalised := 0.0
	if sumWeight > 0 {
		normalised = weightedSum / sumWeight
	}
	s = 1.0 + normalised

	var mean float64
	for _, v := range votes {
		mean += v.ReputationAtVote
	}
	mean /= float64(len(votes))
	for _, v := range votes {
		d := v.ReputationAtVote - mean
		variance += d * d
	}
	variance /= float64(len(votes))

	return s, sumWeight, variance
}
