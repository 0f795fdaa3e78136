package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capital-governor/internal/domain"
	"github.com/aristath/capital-governor/internal/events"
	"github.com/aristath/capital-governor/internal/modules/bankroll"
	"github.com/aristath/capital-governor/internal/store"
)

// OpportunityFetcher fetches the ranked opportunity feed.
type OpportunityFetcher interface {
	FetchOpportunities(ctx context.Context) (*domain.OpportunityFeed, error)
}

// BankrollJob runs the Kelly allocator cycle: fetch opportunities, size
// stakes, publish a fresh plan.
type BankrollJob struct {
	log      zerolog.Logger
	ctx      context.Context
	fetcher  OpportunityFetcher
	docs     *store.Documents
	svc      *bankroll.Service
	events   *events.Manager
	bankroll float64
}

// BankrollJobConfig holds the bankroll job dependencies.
type BankrollJobConfig struct {
	Log       zerolog.Logger
	Ctx       context.Context
	Fetcher   OpportunityFetcher
	Documents *store.Documents
	Service   *bankroll.Service
	Events    *events.Manager
	Bankroll  float64
}

// NewBankrollJob creates the bankroll cycle job.
func NewBankrollJob(cfg BankrollJobConfig) *BankrollJob {
	return &BankrollJob{
		log:      cfg.Log.With().Str("job", "bankroll_cycle").Logger(),
		ctx:      cfg.Ctx,
		fetcher:  cfg.Fetcher,
		docs:     cfg.Documents,
		svc:      cfg.Service,
		events:   cfg.Events,
		bankroll: cfg.Bankroll,
	}
}

// Name returns the job name
func (j *BankrollJob) Name() string {
	return "bankroll_cycle"
}

// Run executes one bankroll cycle.
func (j *BankrollJob) Run() error {
	ctx, cancel := context.WithTimeout(j.ctx, 30*time.Second)
	defer cancel()

	feed, err := j.fetcher.FetchOpportunities(ctx)
	if err != nil {
		cached, cacheErr := j.docs.Opportunities.Load()
		if cacheErr != nil {
			j.log.Warn().Err(err).Msg("No opportunity feed available - keeping previous plan")
			return nil
		}
		j.log.Info().Msg("Using cached opportunity feed")
		feed = cached
	} else if saveErr := j.docs.Opportunities.Save(feed); saveErr != nil {
		j.log.Warn().Err(saveErr).Msg("Failed to cache opportunity feed")
	}

	plan, err := j.svc.BuildPlan(feed, j.bankroll)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			j.events.EmitError("bankroll", err, nil)
		}
		return err
	}

	if j.ctx.Err() != nil {
		j.log.Warn().Msg("Shutdown before commit - discarding plan")
		return nil
	}

	if err := j.docs.BankrollPlan.Save(plan); err != nil {
		j.events.EmitError("bankroll", err, nil)
		return err
	}

	j.events.Emit(events.BankrollPlanBuilt, "bankroll", map[string]interface{}{
		"funded":          len(plan.Opportunities),
		"total_allocated": plan.TotalAllocated,
	})
	return nil
}
