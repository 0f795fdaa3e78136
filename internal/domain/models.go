package domain

import (
	"fmt"
	"math"
	"time"
)

// AgentMetrics is one agent's performance snapshot from the external metrics
// collaborator. Read-only to this core.
type AgentMetrics struct {
	PnL7d          float64 `json:"pnl_7d"`
	Sharpe30d      float64 `json:"sharpe_30d"`
	WinRate30d     float64 `json:"winrate_30d"`
	MaxDrawdown30d float64 `json:"max_dd_30d"` // percentage points, e.g. 12.5 = 12.5%
}

// Valid reports whether the snapshot contains finite, in-range values.
// Invalid records are dropped individually, never the whole feed.
func (m AgentMetrics) Valid() bool {
	for _, v := range []float64{m.PnL7d, m.Sharpe30d, m.WinRate30d, m.MaxDrawdown30d} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return m.WinRate30d >= 0 && m.WinRate30d <= 1
}

// StrategyMetrics is the per-strategy variant of the metrics snapshot.
type StrategyMetrics struct {
	Score          float64 `json:"score"`
	Sharpe30d      float64 `json:"sharpe_30d"`
	MaxDrawdown30d float64 `json:"max_dd_30d"`
}

// Valid reports whether the snapshot contains finite values.
func (m StrategyMetrics) Valid() bool {
	for _, v := range []float64{m.Score, m.Sharpe30d, m.MaxDrawdown30d} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// GuardianState carries the external guardian's pause flag. While paused the
// governor serves the current allocation without recomputation.
type GuardianState struct {
	IsPaused bool `json:"is_paused"`
}

// RegimeSignal is the external market regime classification.
type RegimeSignal struct {
	Regime         string  `json:"regime"`
	RiskMultiplier float64 `json:"risk_multiplier"`
}

// MetricsFeed is the full payload from the metrics collaborator.
type MetricsFeed struct {
	PerAgent    map[string]AgentMetrics    `json:"per_agent"`
	PerStrategy map[string]StrategyMetrics `json:"per_strategy,omitempty"`
	Guardian    GuardianState              `json:"guardian"`
	Regime      RegimeSignal               `json:"market_regime"`
	Timestamp   time.Time                  `json:"timestamp"`
}

// SumTolerance is the allowed deviation of allocation weights from 1.0.
const SumTolerance = 1e-6

// AllocationState is the governor's output document: relative capital weights
// per agent. Weights sum to 1.0 (±SumTolerance) when non-empty.
// DeployedFraction scales the total capital put to work; the residual stays
// in cash, so regime damping never cancels out in renormalization.
type AllocationState struct {
	Allocations      map[string]float64 `json:"allocations"`
	Source           string             `json:"source"`
	Timestamp        time.Time          `json:"timestamp"`
	MinAllocation    float64            `json:"min_allocation"`
	MaxAllocation    float64            `json:"max_allocation"`
	DeployedFraction float64            `json:"deployed_fraction"`
	Degraded         bool               `json:"degraded,omitempty"`
}

// Validate checks the allocation invariant: finite non-negative weights that
// sum to 1.0 when the map is non-empty.
func (a AllocationState) Validate() error {
	if len(a.Allocations) == 0 {
		return nil
	}
	sum := 0.0
	for name, w := range a.Allocations {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return fmt.Errorf("%w: allocation %q is %v", ErrValidation, name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > SumTolerance {
		return fmt.Errorf("%w: allocations sum to %.8f, want 1.0", ErrValidation, sum)
	}
	return nil
}

// Opportunity is one ranked betting/trading opportunity produced by the
// prediction layer. Read-only to this core.
type Opportunity struct {
	ID              string  `json:"id"`
	RecommendedSide string  `json:"recommended_side"`
	WinProbability  float64 `json:"win_probability"`
	DecimalOdds     float64 `json:"decimal_odds"`
	Edge            float64 `json:"edge"`
	Confidence      float64 `json:"confidence"`
	Score           float64 `json:"score,omitempty"`
}

// Valid reports whether the opportunity carries finite, usable numbers.
func (o Opportunity) Valid() bool {
	for _, v := range []float64{o.WinProbability, o.DecimalOdds, o.Edge, o.Confidence} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return o.WinProbability >= 0 && o.WinProbability <= 1
}

// OpportunityFeed is the prediction layer's input document.
type OpportunityFeed struct {
	Opportunities []Opportunity `json:"opportunities"`
	Timestamp     time.Time     `json:"timestamp"`
}

// PlannedStake is one funded opportunity inside a bankroll plan.
type PlannedStake struct {
	ID             string  `json:"id"`
	Side           string  `json:"side"`
	Stake          float64 `json:"stake"`
	DecimalOdds    float64 `json:"decimal_odds"`
	ExpectedValue  float64 `json:"expected_value"`
	RemainingAfter float64 `json:"remaining_after"`
}

// BankrollPlan is the Kelly allocator's output document. A plan is created
// fresh every cycle and never merged with prior plans.
type BankrollPlan struct {
	ID                 string         `json:"id"`
	Bankroll           float64        `json:"bankroll"`
	TotalAllocated     float64        `json:"total_allocated"`
	TotalExpectedValue float64        `json:"total_expected_value"`
	Opportunities      []PlannedStake `json:"opportunities"`
	Timestamp          time.Time      `json:"timestamp"`
}

// PositionInfo is one holding inside a portfolio snapshot.
type PositionInfo struct {
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Sector   string  `json:"sector"`
}

// PortfolioSnapshot is the live portfolio document from the execution
// collaborator. Read-only to this core.
type PortfolioSnapshot struct {
	Positions     map[string]PositionInfo `json:"positions"`
	Equity        float64                 `json:"equity"`
	DayOpenEquity float64                 `json:"day_open_equity,omitempty"`
	Timestamp     time.Time               `json:"timestamp"`
}

// TotalNotional returns the sum of absolute position values.
func (p PortfolioSnapshot) TotalNotional() float64 {
	total := 0.0
	for _, pos := range p.Positions {
		total += math.Abs(pos.Quantity * pos.Price)
	}
	return total
}

// DrawdownMetrics summarizes the equity curve's peak-to-trough behavior.
type DrawdownMetrics struct {
	Current  float64 `json:"current_drawdown"`
	Max      float64 `json:"max_drawdown"`
	Average  float64 `json:"avg_drawdown"`
	Duration int     `json:"drawdown_duration"` // samples with drawdown > 1%
}

// DrawdownPrediction is a coarse heuristic forecast of further drawdown,
// replaceable by a proper model without touching the report format.
type DrawdownPrediction struct {
	PredictedMax float64 `json:"predicted_max_drawdown"`
	Probability  float64 `json:"drawdown_probability"`
	Confidence   float64 `json:"confidence"`
}

// LiquidityRisk relates equity to total position notional.
type LiquidityRisk struct {
	Score              float64 `json:"liquidity_score"` // in [0,1], 1 = fully liquid
	TotalPositionValue float64 `json:"total_position_value"`
	Equity             float64 `json:"equity"`
}

// RiskReport is the risk metrics engine's output document, regenerated each
// cycle. On computation failure the previous report is served unmodified.
type RiskReport struct {
	ID                 string             `json:"id"`
	VaR                map[string]float64 `json:"var"`
	CVaR               map[string]float64 `json:"cvar"`
	StressTests        map[string]float64 `json:"stress_tests"`
	Drawdown           DrawdownMetrics    `json:"drawdown"`
	DrawdownPrediction DrawdownPrediction `json:"drawdown_prediction"`
	LiquidityRisk      LiquidityRisk      `json:"liquidity_risk"`
	RiskScaler         float64            `json:"risk_scaler"`
	Timestamp          time.Time          `json:"timestamp"`
	Degraded           bool               `json:"degraded,omitempty"`
}

// RiskKey builds the map key for a (horizon, confidence) pair,
// e.g. RiskKey(1, 0.95) == "1d_95".
func RiskKey(days int, confidence float64) string {
	return fmt.Sprintf("%dd_%d", days, int(math.Round(confidence*100)))
}
