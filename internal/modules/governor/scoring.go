package governor

import (
	"github.com/aristath/capital-governor/internal/domain"
	"github.com/aristath/capital-governor/pkg/formulas"
)

// Score weighting factors for the agent composite score.
const (
	pnlWeight      = 0.40
	sharpeWeight   = 0.30
	winRateWeight  = 0.20
	drawdownWeight = 0.10

	// Normalization scales: $10k PnL over 7 days, Sharpe of 3.0, and a 20%
	// drawdown each map to the edge of their unit range.
	pnlScale      = 10000.0
	sharpeScale   = 3.0
	drawdownScale = 20.0
)

// AgentScore computes the composite performance score for one agent.
// Higher score means better performance and more capital. The result is
// always in [0, 1] for valid inputs and rounded to 4 decimals.
func AgentScore(m domain.AgentMetrics) float64 {
	pnlNormalized := formulas.Clamp(m.PnL7d/pnlScale, 0, 1)
	sharpeNormalized := formulas.Clamp(m.Sharpe30d/sharpeScale, 0, 1)
	winRate := formulas.Clamp(m.WinRate30d, 0, 1)

	// Drawdown penalty is inverted: 0% drawdown scores 1.0, 20%+ scores 0.
	ddPenalty := 1 - formulas.Clamp(m.MaxDrawdown30d/drawdownScale, 0, 1)

	score := pnlNormalized*pnlWeight +
		sharpeNormalized*sharpeWeight +
		winRate*winRateWeight +
		ddPenalty*drawdownWeight

	return formulas.Round4(score)
}

// StrategyScore computes the composite score for a strategy. The strategy's
// own pre-computed score is preferred; a Sharpe-derived base is the fallback.
func StrategyScore(m domain.StrategyMetrics) float64 {
	base := m.Score
	if base <= 0 {
		base = formulas.Clamp(m.Sharpe30d/sharpeScale, 0, 1)
	}

	ddPenalty := 1 - formulas.Clamp(m.MaxDrawdown30d/drawdownScale, 0, 1)

	return formulas.Round4(base*0.8 + ddPenalty*0.2)
}
