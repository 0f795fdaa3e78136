package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capital-governor/internal/domain"
	"github.com/aristath/capital-governor/internal/events"
	"github.com/aristath/capital-governor/internal/modules/risklimits"
	"github.com/aristath/capital-governor/internal/modules/riskmetrics"
	"github.com/aristath/capital-governor/internal/store"
	"github.com/aristath/capital-governor/pkg/formulas"
)

// Samples of equity history fed into the drawdown and VaR calculations.
const equityWindow = 252

// PortfolioFetcher fetches the live portfolio snapshot.
type PortfolioFetcher interface {
	FetchPortfolio(ctx context.Context) (*domain.PortfolioSnapshot, error)
}

// EquityHistory persists and serves the equity curve.
type EquityHistory interface {
	RecordEquity(equity float64, at time.Time) error
	EquitySeries(limit int) ([]float64, error)
}

// RiskMetricsJob runs the risk engine cycle: record equity, regenerate the
// risk report, and check exposure limits. The previous report is retained
// whenever generation cannot proceed.
type RiskMetricsJob struct {
	log        zerolog.Logger
	ctx        context.Context
	fetcher    PortfolioFetcher
	docs       *store.Documents
	engine     *riskmetrics.Engine
	events     *events.Manager
	history    EquityHistory
	limitsPath string
}

// RiskMetricsJobConfig holds the risk metrics job dependencies.
type RiskMetricsJobConfig struct {
	Log        zerolog.Logger
	Ctx        context.Context
	Fetcher    PortfolioFetcher
	Documents  *store.Documents
	Engine     *riskmetrics.Engine
	Events     *events.Manager
	History    EquityHistory
	LimitsPath string
}

// NewRiskMetricsJob creates the risk metrics cycle job.
func NewRiskMetricsJob(cfg RiskMetricsJobConfig) *RiskMetricsJob {
	return &RiskMetricsJob{
		log:        cfg.Log.With().Str("job", "risk_metrics_cycle").Logger(),
		ctx:        cfg.Ctx,
		fetcher:    cfg.Fetcher,
		docs:       cfg.Documents,
		engine:     cfg.Engine,
		events:     cfg.Events,
		history:    cfg.History,
		limitsPath: cfg.LimitsPath,
	}
}

// Name returns the job name
func (j *RiskMetricsJob) Name() string {
	return "risk_metrics_cycle"
}

// Run executes one risk metrics cycle.
func (j *RiskMetricsJob) Run() error {
	snapshot := j.fetchSnapshot()
	if snapshot != nil && snapshot.Equity > 0 {
		if err := j.history.RecordEquity(snapshot.Equity, time.Now().UTC()); err != nil {
			j.log.Error().Err(err).Msg("Failed to record equity sample")
		}
	}

	equity, err := j.history.EquitySeries(equityWindow)
	if err != nil {
		j.log.Error().Err(err).Msg("Failed to load equity history")
		equity = nil
	}
	returns := formulas.CalculateReturns(equity)

	prev, err := j.docs.RiskReport.Load()
	if err != nil {
		prev = nil
	}

	report := j.engine.GenerateReport(returns, equity, snapshot, prev)

	if j.ctx.Err() != nil {
		j.log.Warn().Msg("Shutdown before commit - retaining previous risk report")
		return nil
	}

	if err := j.docs.RiskReport.Save(report); err != nil {
		j.events.EmitError("riskmetrics", err, nil)
		return err
	}
	j.events.Emit(events.RiskReportPublished, "riskmetrics", map[string]interface{}{
		"risk_scaler": report.RiskScaler,
	})

	j.checkLimits(snapshot)
	return nil
}

func (j *RiskMetricsJob) fetchSnapshot() *domain.PortfolioSnapshot {
	ctx, cancel := context.WithTimeout(j.ctx, 30*time.Second)
	defer cancel()

	snapshot, err := j.fetcher.FetchPortfolio(ctx)
	if err == nil {
		if saveErr := j.docs.Portfolio.Save(snapshot); saveErr != nil {
			j.log.Warn().Err(saveErr).Msg("Failed to cache portfolio snapshot")
		}
		return snapshot
	}

	j.log.Warn().Err(err).Msg("Portfolio fetch failed - trying cached snapshot")
	cached, cacheErr := j.docs.Portfolio.Load()
	if cacheErr != nil {
		return nil
	}
	return cached
}

// checkLimits runs every exposure check against the snapshot and emits one
// event per violation. Checks are stateless; nothing is persisted here.
func (j *RiskMetricsJob) checkLimits(snapshot *domain.PortfolioSnapshot) {
	if snapshot == nil {
		return
	}

	limits, err := risklimits.LoadLimits(j.limitsPath, j.log)
	if err != nil {
		j.log.Warn().Err(err).Msg("Falling back to default risk limits")
	}

	for _, violation := range risklimits.Violations(risklimits.CheckAll(snapshot, limits)) {
		j.events.Emit(events.LimitViolation, "risklimits", map[string]interface{}{
			"check":        violation.Check,
			"symbol":       violation.Symbol,
			"metric_value": violation.MetricValue,
			"limit":        violation.Limit,
		})
	}
}
