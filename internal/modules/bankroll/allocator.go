// Package bankroll sizes stakes for ranked opportunities using fractional
// Kelly sizing under a fixed bankroll.
//
// Allocation is greedy and sequential: opportunities are funded one at a
// time in rank order, each stake drawing down the remaining bankroll. This
// is not a jointly optimal multi-bet Kelly portfolio; simultaneous bets are
// sized as if they were placed in sequence.
package bankroll

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/capital-governor/internal/config"
	"github.com/aristath/capital-governor/internal/domain"
	"github.com/aristath/capital-governor/pkg/formulas"
)

// Confidence bands for the ranking score. High-conviction opportunities get
// a boost, shaky ones a haircut.
const (
	highConfidence       = 0.70
	lowConfidence        = 0.55
	highConfidenceBoost  = 1.2
	lowConfidencePenalty = 0.8
)

// Service builds bankroll allocation plans.
type Service struct {
	cfg config.BankrollConfig
	log zerolog.Logger
}

// New creates a bankroll allocator service.
func New(cfg config.BankrollConfig, log zerolog.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log.With().Str("component", "bankroll").Logger(),
	}
}

// RankScore computes the greedy ordering score for an opportunity.
func RankScore(o domain.Opportunity) float64 {
	score := math.Abs(o.Edge) * o.Confidence
	switch {
	case o.Confidence > highConfidence:
		score *= highConfidenceBoost
	case o.Confidence < lowConfidence:
		score *= lowConfidencePenalty
	}
	return score
}

// BuildPlan allocates stakes across the given opportunities. A plan is built
// fresh on every call and never merged with a prior plan; the returned plan
// may be empty when nothing clears the edge filter or sizing floors.
func (s *Service) BuildPlan(feed *domain.OpportunityFeed, bankroll float64) (*domain.BankrollPlan, error) {
	if bankroll <= 0 {
		return nil, domain.ErrValidation
	}

	candidates := make([]domain.Opportunity, 0, len(feed.Opportunities))
	for _, o := range feed.Opportunities {
		if !o.Valid() {
			s.log.Warn().Str("opportunity", o.ID).Msg("Dropping opportunity with non-finite fields")
			continue
		}
		if math.Abs(o.Edge) < s.cfg.MinEdge {
			continue
		}
		candidates = append(candidates, o)
	}

	// Rank descending; ties broken by ID for a deterministic plan.
	sort.Slice(candidates, func(i, j int) bool {
		si, sj := RankScore(candidates[i]), RankScore(candidates[j])
		if si != sj {
			return si > sj
		}
		return candidates[i].ID < candidates[j].ID
	})

	if len(candidates) > s.cfg.MaxOpportunities {
		candidates = candidates[:s.cfg.MaxOpportunities]
	}

	plan := &domain.BankrollPlan{
		ID:        uuid.NewString(),
		Bankroll:  bankroll,
		Timestamp: time.Now().UTC(),
	}

	remaining := bankroll
	for _, o := range candidates {
		if remaining < s.cfg.StopFloor {
			s.log.Debug().Float64("remaining", remaining).Msg("Bankroll below stop floor")
			break
		}

		kelly := formulas.KellyFraction(o.WinProbability, o.DecimalOdds)
		if kelly <= 0 {
			continue
		}

		stake := remaining * kelly * s.cfg.KellyFraction
		maxStake := remaining * s.cfg.MaxStakePct
		if stake > maxStake {
			stake = maxStake
		}
		if stake < s.cfg.MinPracticalStake {
			continue
		}

		remaining -= stake
		plan.Opportunities = append(plan.Opportunities, domain.PlannedStake{
			ID:             o.ID,
			Side:           o.RecommendedSide,
			Stake:          stake,
			DecimalOdds:    o.DecimalOdds,
			ExpectedValue:  stake * (o.WinProbability*o.DecimalOdds - 1),
			RemainingAfter: remaining,
		})
	}

	for _, ps := range plan.Opportunities {
		plan.TotalAllocated += ps.Stake
		plan.TotalExpectedValue += ps.ExpectedValue
	}

	s.log.Info().
		Int("funded", len(plan.Opportunities)).
		Int("candidates", len(candidates)).
		Float64("total_allocated", plan.TotalAllocated).
		Float64("remaining", remaining).
		Msg("Bankroll plan built")

	return plan, nil
}
