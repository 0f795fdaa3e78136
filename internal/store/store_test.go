package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/capital-governor/internal/domain"
)

func TestFileRepositoryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository[domain.AllocationState](dir, "capital_allocations.json", zerolog.Nop())

	state := &domain.AllocationState{
		Allocations: map[string]float64{
			"alpha": 0.6154,
			"beta":  0.3846,
		},
		Source:           "capital_governor",
		Timestamp:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		MinAllocation:    0.05,
		MaxAllocation:    0.40,
		DeployedFraction: 0.85,
	}

	require.NoError(t, repo.Save(state))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, state, loaded)
	assert.NoError(t, loaded.Validate())
}

func TestFileRepositoryMissingFile(t *testing.T) {
	repo := NewFileRepository[domain.RiskReport](t.TempDir(), "risk_report.json", zerolog.Nop())

	_, err := repo.Load()
	assert.True(t, errors.Is(err, domain.ErrInputUnavailable))
}

func TestFileRepositoryCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portfolio.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	repo := NewFileRepository[domain.PortfolioSnapshot](dir, "portfolio.json", zerolog.Nop())
	_, err := repo.Load()
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestAtomicWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository[domain.BankrollPlan](dir, "bankroll_plan.json", zerolog.Nop())

	require.NoError(t, repo.Save(&domain.BankrollPlan{Bankroll: 1000}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bankroll_plan.json", entries[0].Name())
}
