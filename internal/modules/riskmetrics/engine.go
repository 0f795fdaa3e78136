// Package riskmetrics regenerates the portfolio risk report: historical
// VaR/CVaR, stress scenarios, drawdown analysis and the feedback risk
// scaler consumed by the allocation governor.
package riskmetrics

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/capital-governor/internal/domain"
	"github.com/aristath/capital-governor/pkg/formulas"
)

// VaR/CVaR grid: horizons in days crossed with confidence levels.
var (
	varHorizons    = []int{1, 5}
	varConfidences = []float64{0.95, 0.99}
)

// Engine generates risk reports.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates a risk metrics engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "riskmetrics").Logger()}
}

// GenerateReport computes a fresh risk report from the return and equity
// series plus the live snapshot.
//
// The generator never fails past this boundary: degenerate inputs yield the
// documented neutral default per metric (VaR/CVaR 0, scaler carried over
// from prev), and non-finite inputs return prev unmodified. prev may be nil
// on the first cycle.
func (e *Engine) GenerateReport(
	returns []float64,
	equity []float64,
	snapshot *domain.PortfolioSnapshot,
	prev *domain.RiskReport,
) *domain.RiskReport {
	if !formulas.Finite(returns) || !formulas.Finite(equity) {
		e.log.Error().Msg("Non-finite input series - retaining previous risk report")
		if prev != nil {
			return prev
		}
		return e.neutralReport()
	}

	report := &domain.RiskReport{
		ID:          uuid.NewString(),
		VaR:         make(map[string]float64, len(varHorizons)*len(varConfidences)),
		CVaR:        make(map[string]float64, len(varHorizons)*len(varConfidences)),
		StressTests: StressTests(returns),
		Timestamp:   time.Now().UTC(),
	}

	for _, days := range varHorizons {
		for _, confidence := range varConfidences {
			key := domain.RiskKey(days, confidence)
			report.VaR[key] = formulas.CalculateVaR(returns, confidence, days)
			report.CVaR[key] = formulas.CalculateCVaR(returns, confidence, days)
		}
	}

	dd := formulas.CalculateDrawdownStats(equity)
	report.Drawdown = domain.DrawdownMetrics{
		Current:  dd.Current,
		Max:      dd.Max,
		Average:  dd.Average,
		Duration: dd.Duration,
	}

	report.DrawdownPrediction = PredictDrawdown(returns, dd.Current)
	report.LiquidityRisk = e.liquidityRisk(snapshot)

	if len(returns) == 0 {
		// No history to score risk on; carry the prior damper forward.
		report.RiskScaler = 1.0
		if prev != nil {
			report.RiskScaler = prev.RiskScaler
		}
	} else {
		report.RiskScaler = RiskScaler(report.Drawdown, report.VaR[domain.RiskKey(1, 0.95)])
	}

	e.log.Info().
		Float64("var_1d_95", report.VaR[domain.RiskKey(1, 0.95)]).
		Float64("max_drawdown", report.Drawdown.Max).
		Float64("risk_scaler", report.RiskScaler).
		Msg("Risk report generated")

	return report
}

func (e *Engine) liquidityRisk(snapshot *domain.PortfolioSnapshot) domain.LiquidityRisk {
	risk := domain.LiquidityRisk{Score: 1.0}
	if snapshot == nil {
		return risk
	}

	risk.Equity = snapshot.Equity
	risk.TotalPositionValue = snapshot.TotalNotional()
	if risk.TotalPositionValue > 0 && snapshot.Equity > 0 {
		risk.Score = formulas.Clamp(snapshot.Equity/risk.TotalPositionValue, 0, 1)
	}
	return risk
}

func (e *Engine) neutralReport() *domain.RiskReport {
	report := &domain.RiskReport{
		ID:          uuid.NewString(),
		VaR:         make(map[string]float64),
		CVaR:        make(map[string]float64),
		StressTests: make(map[string]float64),
		LiquidityRisk: domain.LiquidityRisk{
			Score: 1.0,
		},
		RiskScaler: 1.0,
		Timestamp:  time.Now().UTC(),
	}
	report.DrawdownPrediction = domain.DrawdownPrediction{Confidence: predictionConfidence}
	return report
}
