package riskmetrics

import (
	"github.com/aristath/capital-governor/pkg/formulas"
)

// Fixed stress scenario shocks, expressed as fractional portfolio losses.
// The volatility spike and correlation breakdown scenarios are derived from
// the observed return series; the rest are static.
const (
	marketCrashShock     = -0.20
	flashCrashShock      = -0.10
	liquidityCrisisShock = -0.15
	inflationShock       = -0.08
)

// StressTests evaluates the fixed scenario table against the return series.
// Every value is a signed expected portfolio return under the scenario
// (losses are negative).
func StressTests(returns []float64) map[string]float64 {
	vol := formulas.StdDev(returns)

	return map[string]float64{
		"market_crash":          marketCrashShock,
		"flash_crash":           flashCrashShock,
		"volatility_spike":      -2 * (3 * vol),
		"correlation_breakdown": formulas.Min(returns),
		"liquidity_crisis":      liquidityCrisisShock,
		"inflation_shock":       inflationShock,
	}
}
