package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capital-governor/internal/domain"
	"github.com/aristath/capital-governor/internal/events"
	"github.com/aristath/capital-governor/internal/modules/governor"
	"github.com/aristath/capital-governor/internal/store"
)

// MetricsFetcher fetches the upstream metrics feed.
type MetricsFetcher interface {
	FetchMetrics(ctx context.Context) (*domain.MetricsFeed, error)
}

// AuditTrail records committed reallocations.
type AuditTrail interface {
	RecordAllocation(allocations map[string]float64, deployedFraction, maxChange float64, degraded bool, at time.Time) error
}

// GovernorJob runs the allocation governor cycle: fetch metrics, score,
// normalize, gate, persist.
//
// After MaxFailures consecutive fetch failures the job enters degraded
// mode: it polls at half frequency, suppresses reallocation, and flags the
// served allocation document as degraded. The last-known-good allocations
// keep being served throughout.
type GovernorJob struct {
	log     zerolog.Logger
	ctx     context.Context
	fetcher MetricsFetcher
	docs    *store.Documents
	svc     *governor.Service
	events  *events.Manager
	audit   AuditTrail

	maxFailures int
	failures    int
	degraded    bool
	tick        int
}

// GovernorJobConfig holds the governor job dependencies.
type GovernorJobConfig struct {
	Log         zerolog.Logger
	Ctx         context.Context
	Fetcher     MetricsFetcher
	Documents   *store.Documents
	Service     *governor.Service
	Events      *events.Manager
	Audit       AuditTrail
	MaxFailures int
}

// NewGovernorJob creates the governor cycle job.
func NewGovernorJob(cfg GovernorJobConfig) *GovernorJob {
	return &GovernorJob{
		log:         cfg.Log.With().Str("job", "governor_cycle").Logger(),
		ctx:         cfg.Ctx,
		fetcher:     cfg.Fetcher,
		docs:        cfg.Documents,
		svc:         cfg.Service,
		events:      cfg.Events,
		audit:       cfg.Audit,
		maxFailures: cfg.MaxFailures,
	}
}

// Name returns the job name
func (j *GovernorJob) Name() string {
	return "governor_cycle"
}

// Run executes one governor cycle.
func (j *GovernorJob) Run() error {
	j.tick++
	if j.degraded && j.tick%2 == 1 {
		j.log.Debug().Msg("Degraded mode - skipping tick")
		return nil
	}

	feed := j.fetchFeed()
	if feed == nil {
		return nil
	}

	current, err := j.docs.Allocations.Load()
	if err != nil {
		// First cycle ever, or an unreadable document; proceed with no
		// current allocation so the hysteresis gate always reallocates.
		current = nil
	}

	if j.degraded {
		j.log.Warn().Msg("Degraded mode - reallocation suppressed")
		return nil
	}

	next, changed, err := j.svc.ComputeAllocation(feed, j.riskScaler(), current)
	if err != nil {
		j.events.EmitError("governor", err, nil)
		return err
	}
	if !changed {
		j.events.Emit(events.AllocationHeld, "governor", nil)
		return nil
	}

	// Commit point. A shutdown signal before this line means the cycle's
	// result is discarded and the last good document stays in place.
	if j.ctx.Err() != nil {
		j.log.Warn().Msg("Shutdown before commit - discarding cycle result")
		return nil
	}

	if err := j.docs.Allocations.Save(next); err != nil {
		j.events.EmitError("governor", err, nil)
		return err
	}

	maxChange := 1.0
	if current != nil {
		maxChange = governor.MaxChange(next.Allocations, current.Allocations)
	}
	if err := j.audit.RecordAllocation(next.Allocations, next.DeployedFraction, maxChange, next.Degraded, next.Timestamp); err != nil {
		j.log.Error().Err(err).Msg("Failed to record allocation audit entry")
	}

	j.events.Emit(events.AllocationCommitted, "governor", map[string]interface{}{
		"agents":            len(next.Allocations),
		"deployed_fraction": next.DeployedFraction,
		"max_change":        maxChange,
	})
	return nil
}

// fetchFeed retrieves the metrics feed, falling back to the cached document
// and tracking the consecutive failure count. A nil return means the cycle
// has nothing to work with and should end quietly.
func (j *GovernorJob) fetchFeed() *domain.MetricsFeed {
	ctx, cancel := context.WithTimeout(j.ctx, 30*time.Second)
	defer cancel()

	feed, err := j.fetcher.FetchMetrics(ctx)
	if err == nil {
		j.recordSuccess()
		if saveErr := j.docs.MetricsFeed.Save(feed); saveErr != nil {
			j.log.Warn().Err(saveErr).Msg("Failed to cache metrics feed")
		}
		return feed
	}

	j.recordFailure(err)

	cached, cacheErr := j.docs.MetricsFeed.Load()
	if cacheErr != nil {
		j.log.Warn().Err(cacheErr).Msg("No cached metrics feed - skipping cycle")
		return nil
	}
	j.log.Info().Time("feed_timestamp", cached.Timestamp).Msg("Using cached metrics feed")
	return cached
}

func (j *GovernorJob) recordSuccess() {
	j.failures = 0
	if !j.degraded {
		return
	}
	j.degraded = false
	j.events.Emit(events.DegradedExited, "governor", nil)
	j.clearDegradedFlag()
}

func (j *GovernorJob) recordFailure(err error) {
	j.failures++
	j.log.Warn().Err(err).Int("consecutive_failures", j.failures).Msg("Metrics fetch failed")

	if j.degraded || j.failures < j.maxFailures {
		return
	}
	j.degraded = true
	j.events.Emit(events.DegradedEntered, "governor", map[string]interface{}{
		"consecutive_failures": j.failures,
	})
	j.markDegradedFlag()
}

// markDegradedFlag republishes the current allocation document with the
// degraded flag set so readers can see the state without log access.
func (j *GovernorJob) markDegradedFlag() {
	current, err := j.docs.Allocations.Load()
	if err != nil || current.Degraded {
		return
	}
	current.Degraded = true
	if err := j.docs.Allocations.Save(current); err != nil {
		j.log.Error().Err(err).Msg("Failed to flag allocation document as degraded")
	}
}

func (j *GovernorJob) clearDegradedFlag() {
	current, err := j.docs.Allocations.Load()
	if err != nil || !current.Degraded {
		return
	}
	current.Degraded = false
	if err := j.docs.Allocations.Save(current); err != nil {
		j.log.Error().Err(err).Msg("Failed to clear degraded flag")
	}
}

// riskScaler reads the latest risk report's damper, defaulting to neutral.
func (j *GovernorJob) riskScaler() float64 {
	report, err := j.docs.RiskReport.Load()
	if err != nil || report.RiskScaler <= 0 {
		return 1.0
	}
	return report.RiskScaler
}
