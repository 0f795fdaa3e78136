package riskmetrics

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/capital-governor/internal/domain"
)

func sampleReturns() []float64 {
	return []float64{
		-0.08, -0.05, -0.03, -0.02, -0.01, -0.005, 0, 0.002, 0.005, 0.008,
		0.01, 0.012, 0.015, 0.018, 0.02, 0.022, 0.025, 0.03, 0.04, 0.05,
	}
}

func TestGenerateReport(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	t.Run("full report from healthy inputs", func(t *testing.T) {
		equity := []float64{100000, 101000, 99000, 102000, 100500}
		snapshot := &domain.PortfolioSnapshot{
			Equity: 100500,
			Positions: map[string]domain.PositionInfo{
				"A": {Quantity: 100, Price: 200},
			},
		}

		report := engine.GenerateReport(sampleReturns(), equity, snapshot, nil)
		require.NotNil(t, report)
		assert.NotEmpty(t, report.ID)

		// All four grid cells present.
		for _, key := range []string{"1d_95", "1d_99", "5d_95", "5d_99"} {
			assert.Contains(t, report.VaR, key)
			assert.Contains(t, report.CVaR, key)
		}

		// 20 returns at 95%: idx 1, second-smallest is -0.05.
		assert.InDelta(t, 0.05, report.VaR["1d_95"], 1e-9)
		assert.InDelta(t, 0.05*math.Sqrt(5), report.VaR["5d_95"], 1e-9)

		assert.Len(t, report.StressTests, 6)
		assert.InDelta(t, -0.20, report.StressTests["market_crash"], 1e-9)
		assert.InDelta(t, -0.08, report.StressTests["correlation_breakdown"], 1e-9)

		assert.GreaterOrEqual(t, report.RiskScaler, 0.2)
		assert.LessOrEqual(t, report.RiskScaler, 1.0)
		assert.InDelta(t, 0.2, report.DrawdownPrediction.Probability, 1e-9)
		assert.InDelta(t, 0.16, report.DrawdownPrediction.PredictedMax, 1e-9)

		// Equity 100500 against 20000 notional is fully liquid.
		assert.InDelta(t, 1.0, report.LiquidityRisk.Score, 1e-9)
	})

	t.Run("cvar dominates var on the grid", func(t *testing.T) {
		report := engine.GenerateReport(sampleReturns(), nil, nil, nil)

		for key, v := range report.VaR {
			assert.GreaterOrEqual(t, report.CVaR[key], v, "key %s", key)
		}
	})

	t.Run("empty series yields neutral defaults", func(t *testing.T) {
		report := engine.GenerateReport(nil, nil, nil, nil)
		require.NotNil(t, report)

		assert.Zero(t, report.VaR["1d_95"])
		assert.Zero(t, report.CVaR["1d_95"])
		assert.Zero(t, report.Drawdown.Max)
		assert.InDelta(t, 1.0, report.RiskScaler, 1e-9)
	})

	t.Run("empty series carries prior scaler forward", func(t *testing.T) {
		prev := &domain.RiskReport{RiskScaler: 0.7}
		report := engine.GenerateReport(nil, nil, nil, prev)
		assert.InDelta(t, 0.7, report.RiskScaler, 1e-9)
	})

	t.Run("non-finite input retains previous report", func(t *testing.T) {
		prev := &domain.RiskReport{ID: "prev", RiskScaler: 0.85}
		report := engine.GenerateReport([]float64{0.01, math.NaN()}, nil, nil, prev)
		assert.Same(t, prev, report)
	})

	t.Run("non-finite input without previous yields neutral report", func(t *testing.T) {
		report := engine.GenerateReport([]float64{math.Inf(1)}, nil, nil, nil)
		require.NotNil(t, report)
		assert.InDelta(t, 1.0, report.RiskScaler, 1e-9)
		assert.Empty(t, report.VaR)
	})
}

func TestRiskScaler(t *testing.T) {
	tests := []struct {
		name     string
		drawdown domain.DrawdownMetrics
		var1d95  float64
		want     float64
	}{
		{"calm portfolio", domain.DrawdownMetrics{}, 0.02, 1.0},
		{"deep max drawdown", domain.DrawdownMetrics{Max: 0.25}, 0.02, 0.5},
		{"moderate max drawdown", domain.DrawdownMetrics{Max: 0.17}, 0.02, 0.7},
		{"mild max drawdown", domain.DrawdownMetrics{Max: 0.12}, 0.02, 0.85},
		{"active current drawdown", domain.DrawdownMetrics{Current: 0.12}, 0.02, 0.8},
		{"elevated var", domain.DrawdownMetrics{}, 0.07, 0.9},
		{"extreme var", domain.DrawdownMetrics{}, 0.12, 0.7},
		{
			"all penalties compound",
			domain.DrawdownMetrics{Max: 0.30, Current: 0.20},
			0.15,
			0.5 * 0.6 * 0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RiskScaler(tt.drawdown, tt.var1d95)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.2)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestPredictDrawdown(t *testing.T) {
	returns := []float64{-0.06, 0.01, 0.02}

	t.Run("probability buckets", func(t *testing.T) {
		assert.InDelta(t, 0.2, PredictDrawdown(returns, 0.02).Probability, 1e-9)
		assert.InDelta(t, 0.4, PredictDrawdown(returns, 0.07).Probability, 1e-9)
		assert.InDelta(t, 0.6, PredictDrawdown(returns, 0.15).Probability, 1e-9)
	})

	t.Run("predicted magnitude doubles worst loss", func(t *testing.T) {
		prediction := PredictDrawdown(returns, 0.02)
		assert.InDelta(t, 0.12, prediction.PredictedMax, 1e-9)
		assert.InDelta(t, 0.7, prediction.Confidence, 1e-9)
	})
}

func TestStressTests(t *testing.T) {
	scenarios := StressTests(sampleReturns())

	assert.InDelta(t, -0.20, scenarios["market_crash"], 1e-9)
	assert.InDelta(t, -0.10, scenarios["flash_crash"], 1e-9)
	assert.InDelta(t, -0.15, scenarios["liquidity_crisis"], 1e-9)
	assert.InDelta(t, -0.08, scenarios["inflation_shock"], 1e-9)
	assert.InDelta(t, -0.08, scenarios["correlation_breakdown"], 1e-9)
	assert.Negative(t, scenarios["volatility_spike"])
}
