// Package governor converts per-agent performance metrics into a bounded,
// normalized capital allocation with hysteresis against churn.
package governor

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capital-governor/internal/config"
	"github.com/aristath/capital-governor/internal/domain"
	"github.com/aristath/capital-governor/pkg/formulas"
)

// Source tag stamped into every allocation document this service commits.
const Source = "capital_governor"

// Floor for the deployed fraction; even under maximum damping at least 20%
// of capital stays deployed, mirroring the risk scaler's own lower bound.
const minDeployedFraction = 0.2

// Service computes capital allocations from metrics snapshots.
type Service struct {
	cfg config.GovernorConfig
	log zerolog.Logger
}

// New creates a governor service.
func New(cfg config.GovernorConfig, log zerolog.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log.With().Str("component", "governor").Logger(),
	}
}

// ComputeAllocation runs one governor decision.
//
// It returns the allocation to serve and whether it differs from current
// (changed == false means current is passed through untouched and must not
// be re-persisted). riskScaler is the feedback damper from the latest risk
// report; pass 1.0 when no report exists.
//
// The regime multiplier and risk scaler never rescale relative weights —
// a uniform factor would cancel in renormalization. They scale the deployed
// fraction instead, leaving the residual in cash.
func (s *Service) ComputeAllocation(
	feed *domain.MetricsFeed,
	riskScaler float64,
	current *domain.AllocationState,
) (*domain.AllocationState, bool, error) {
	if feed.Guardian.IsPaused {
		s.log.Info().Msg("Guardian paused - maintaining current allocations")
		return current, false, nil
	}

	scores := make(map[string]float64, len(feed.PerAgent))
	for name, metrics := range feed.PerAgent {
		if !metrics.Valid() {
			s.log.Warn().Str("agent", name).Msg("Dropping agent with non-finite metrics")
			continue
		}
		score := AgentScore(metrics)
		scores[name] = score
		s.log.Debug().
			Str("agent", name).
			Float64("score", score).
			Float64("pnl_7d", metrics.PnL7d).
			Float64("sharpe_30d", metrics.Sharpe30d).
			Float64("winrate_30d", metrics.WinRate30d).
			Msg("Agent scored")
	}

	// Strategies compete for the same weight pool as agents.
	for name, metrics := range feed.PerStrategy {
		if !metrics.Valid() {
			s.log.Warn().Str("strategy", name).Msg("Dropping strategy with non-finite metrics")
			continue
		}
		scores[name] = StrategyScore(metrics)
	}

	if len(scores) == 0 {
		s.log.Warn().Msg("No usable agent metrics - keeping current allocations")
		return current, false, nil
	}

	weights := Normalize(scores, s.cfg.MinAllocation, s.cfg.MaxAllocation)

	var currentWeights map[string]float64
	if current != nil {
		currentWeights = current.Allocations
	}

	if !ShouldReallocate(weights, currentWeights, s.cfg.ReallocationThreshold) {
		s.log.Info().
			Float64("max_change", MaxChange(weights, currentWeights)).
			Float64("threshold", s.cfg.ReallocationThreshold).
			Msg("No reallocation needed")
		return current, false, nil
	}

	next := &domain.AllocationState{
		Allocations:      weights,
		Source:           Source,
		Timestamp:        time.Now().UTC(),
		MinAllocation:    s.cfg.MinAllocation,
		MaxAllocation:    s.cfg.MaxAllocation,
		DeployedFraction: s.deployedFraction(feed.Regime, riskScaler),
	}

	if err := next.Validate(); err != nil {
		return current, false, fmt.Errorf("%w: %v", domain.ErrComputation, err)
	}

	s.log.Info().
		Interface("allocations", next.Allocations).
		Float64("deployed_fraction", next.DeployedFraction).
		Msg("Reallocation computed")

	return next, true, nil
}

// deployedFraction combines the regime multiplier with the risk scaler into
// the fraction of total capital put to work. Multipliers above 1 never lever
// up; the combined damper is clamped to [0.2, 1.0].
func (s *Service) deployedFraction(regime domain.RegimeSignal, riskScaler float64) float64 {
	multiplier := regime.RiskMultiplier
	if multiplier <= 0 || multiplier > 1 {
		multiplier = 1.0
	}

	scaler := riskScaler
	if scaler <= 0 || scaler > 1 {
		scaler = 1.0
	}

	return formulas.Clamp(multiplier*scaler, minDeployedFraction, 1.0)
}
