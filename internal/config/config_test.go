package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.05, cfg.Governor.MinAllocation)
	assert.Equal(t, 0.40, cfg.Governor.MaxAllocation)
	assert.Equal(t, 0.10, cfg.Governor.ReallocationThreshold)
	assert.Equal(t, 300*time.Second, cfg.Governor.Interval)
	assert.Equal(t, 10, cfg.Governor.MaxConsecutiveFailures)

	assert.Equal(t, 0.25, cfg.Bankroll.KellyFraction)
	assert.Equal(t, 0.03, cfg.Bankroll.MinEdge)
	assert.Equal(t, 0.10, cfg.Bankroll.MaxStakePct)
	assert.Equal(t, 10.0, cfg.Bankroll.MinPracticalStake)
	assert.Equal(t, 50.0, cfg.Bankroll.StopFloor)
	assert.Equal(t, 20, cfg.Bankroll.MaxOpportunities)

	assert.Equal(t, 3600*time.Second, cfg.Risk.Interval)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GOVERNOR_MIN_ALLOC", "0.02")
	t.Setenv("GOVERNOR_INTERVAL", "120")
	t.Setenv("KELLY_FRACTION", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.02, cfg.Governor.MinAllocation)
	assert.Equal(t, 120*time.Second, cfg.Governor.Interval)
	assert.Equal(t, 0.5, cfg.Bankroll.KellyFraction)
}

func TestUnparsableValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("GOVERNOR_MAX_ALLOC", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.40, cfg.Governor.MaxAllocation)
}

func TestValidateRejectsInvertedBounds(t *testing.T) {
	t.Setenv("GOVERNOR_MIN_ALLOC", "0.50")
	t.Setenv("GOVERNOR_MAX_ALLOC", "0.10")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateRejectsZeroBankroll(t *testing.T) {
	t.Setenv("BANKROLL_INITIAL", "0")

	_, err := Load()
	assert.Error(t, err)
}
