package governor

import (
	"math"

	"github.com/aristath/capital-governor/pkg/formulas"
)

// Normalize converts raw scores into capital weights summing to 1.0.
//
// Steps: negative scores are floored at 0, scores become proportional
// shares, each share is clamped to [minAllocation, maxAllocation], and the
// clamped shares are renormalized. Bound enforcement is pre-normalization
// only: after the final division a weight may exceed maxAllocation, which is
// expected and accepted.
//
// When no score is usable (all zero or negative) every present agent gets an
// equal weight.
func Normalize(scores map[string]float64, minAllocation, maxAllocation float64) map[string]float64 {
	if len(scores) == 0 {
		return map[string]float64{}
	}

	// Floor negatives and compute proportional shares.
	total := 0.0
	floored := make(map[string]float64, len(scores))
	for name, score := range scores {
		v := math.Max(0, score)
		floored[name] = v
		total += v
	}

	if total <= 0 {
		return equalWeights(scores)
	}

	clamped := make(map[string]float64, len(scores))
	clampedTotal := 0.0
	for name, v := range floored {
		share := formulas.Clamp(v/total, minAllocation, maxAllocation)
		clamped[name] = share
		clampedTotal += share
	}

	if clampedTotal <= 0 {
		return equalWeights(scores)
	}

	weights := make(map[string]float64, len(scores))
	for name, share := range clamped {
		weights[name] = share / clampedTotal
	}

	return weights
}

func equalWeights(scores map[string]float64) map[string]float64 {
	weights := make(map[string]float64, len(scores))
	for name := range scores {
		weights[name] = 1.0 / float64(len(scores))
	}
	return weights
}

// MaxChange returns the largest absolute per-agent difference between two
// weight maps, treating missing keys as 0.
func MaxChange(next, current map[string]float64) float64 {
	maxChange := 0.0
	seen := make(map[string]struct{}, len(next)+len(current))

	for name := range next {
		seen[name] = struct{}{}
	}
	for name := range current {
		seen[name] = struct{}{}
	}

	for name := range seen {
		change := math.Abs(next[name] - current[name])
		if change > maxChange {
			maxChange = change
		}
	}

	return maxChange
}

// ShouldReallocate applies the hysteresis gate: an empty current allocation
// always reallocates; otherwise only a max per-agent change at or above the
// threshold does.
func ShouldReallocate(next, current map[string]float64, threshold float64) bool {
	if len(current) == 0 {
		return true
	}
	return MaxChange(next, current) >= threshold
}
