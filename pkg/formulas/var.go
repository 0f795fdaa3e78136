package formulas

import (
	"math"
	"sort"
)

// CVaRCap is the upper bound applied to CVaR estimates. Tail averages beyond
// a 50% daily loss are treated as data problems rather than signal.
const CVaRCap = 0.50

// CalculateVaR computes Value at Risk via historical simulation.
//
// Returns are sorted ascending, the return at index floor(n·(1−confidence))
// is taken as the loss quantile, and the result is scaled by sqrt(days)
// (square-root-of-time rule).
//
// Args:
//   - returns: historical daily returns (negative = loss)
//   - confidence: confidence level, e.g. 0.95
//   - days: time horizon in days
//
// Returns VaR as a non-negative decimal (0.05 = 5% loss), 0 for empty input.
func CalculateVaR(returns []float64, confidence float64, days int) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}

	v := -sorted[idx] * math.Sqrt(float64(days))
	return math.Max(0.0, v)
}

// CalculateCVaR computes Conditional VaR (expected shortfall): the average
// loss among returns at or beyond the VaR threshold, scaled by sqrt(days).
// With no returns beyond the threshold it falls back to VaR itself.
// The result is clamped to [0, CVaRCap].
func CalculateCVaR(returns []float64, confidence float64, days int) float64 {
	if len(returns) == 0 {
		return 0.0
	}

	varOneDay := CalculateVaR(returns, confidence, 1)

	sum := 0.0
	count := 0
	for _, r := range returns {
		if r <= -varOneDay {
			sum += r
			count++
		}
	}

	var cvar float64
	if count > 0 {
		cvar = math.Abs(sum/float64(count)) * math.Sqrt(float64(days))
	} else {
		cvar = CalculateVaR(returns, confidence, days)
	}

	return Clamp(cvar, 0.0, CVaRCap)
}
