package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/capital-governor/internal/clients/metrics"
	"github.com/aristath/capital-governor/internal/config"
	"github.com/aristath/capital-governor/internal/database"
	"github.com/aristath/capital-governor/internal/database/repositories"
	"github.com/aristath/capital-governor/internal/events"
	"github.com/aristath/capital-governor/internal/modules/bankroll"
	"github.com/aristath/capital-governor/internal/modules/governor"
	"github.com/aristath/capital-governor/internal/modules/riskmetrics"
	"github.com/aristath/capital-governor/internal/scheduler"
	"github.com/aristath/capital-governor/internal/server"
	"github.com/aristath/capital-governor/internal/store"
	"github.com/aristath/capital-governor/pkg/logger"
)

func main() {
	// Load configuration first so the log level honors it
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Msg("Starting Capital Governor")

	// Initialize the history database
	db, err := database.New(filepath.Join(cfg.DataDir, "governor.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Shutdown context. Jobs check it before committing so a signal never
	// leaves a half-published document behind.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs := store.NewDocuments(cfg.DataDir, log)
	history := repositories.NewHistory(db.Conn(), log)
	eventBus := events.NewManager(log)
	client := metrics.NewClient(cfg.MetricsURL, log)

	sched := scheduler.New(log)
	if err := registerJobs(ctx, sched, cfg, log, docs, history, eventBus, client); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()

	srv := server.New(server.Config{
		Port:       cfg.Port,
		Log:        log,
		Documents:  docs,
		History:    history,
		LimitsPath: cfg.Risk.LimitsPath,
		DevMode:    cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Cancel first so in-flight cycles skip their commit, then drain.
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(
	ctx context.Context,
	sched *scheduler.Scheduler,
	cfg *config.Config,
	log zerolog.Logger,
	docs *store.Documents,
	history *repositories.HistoryRepository,
	eventBus *events.Manager,
	client *metrics.Client,
) error {
	governorJob := scheduler.NewGovernorJob(scheduler.GovernorJobConfig{
		Log:         log,
		Ctx:         ctx,
		Fetcher:     client,
		Documents:   docs,
		Service:     governor.New(cfg.Governor, log),
		Events:      eventBus,
		Audit:       history,
		MaxFailures: cfg.Governor.MaxConsecutiveFailures,
	})
	if err := sched.AddJob(every(cfg.Governor.Interval), governorJob); err != nil {
		return err
	}

	bankrollJob := scheduler.NewBankrollJob(scheduler.BankrollJobConfig{
		Log:       log,
		Ctx:       ctx,
		Fetcher:   client,
		Documents: docs,
		Service:   bankroll.New(cfg.Bankroll, log),
		Events:    eventBus,
		Bankroll:  cfg.Bankroll.Bankroll,
	})
	if err := sched.AddJob(every(cfg.Bankroll.Interval), bankrollJob); err != nil {
		return err
	}

	riskJob := scheduler.NewRiskMetricsJob(scheduler.RiskMetricsJobConfig{
		Log:        log,
		Ctx:        ctx,
		Fetcher:    client,
		Documents:  docs,
		Engine:     riskmetrics.NewEngine(log),
		Events:     eventBus,
		History:    history,
		LimitsPath: cfg.Risk.LimitsPath,
	})
	if err := sched.AddJob(every(cfg.Risk.Interval), riskJob); err != nil {
		return err
	}

	return nil
}

func every(interval time.Duration) string {
	return "@every " + interval.String()
}
