package riskmetrics

import (
	"github.com/aristath/capital-governor/internal/domain"
	"github.com/aristath/capital-governor/pkg/formulas"
)

// Risk scaler bounds. The governor consumes the scaler as a damper on the
// deployed capital fraction; 0.2 is the hardest brake applied.
const (
	scalerFloor = 0.2
	scalerCeil  = 1.0
)

// RiskScaler converts headline risk metrics into a multiplicative damper in
// [0.2, 1.0]. Penalties are tiered and compound: a deep max drawdown, an
// active current drawdown, and an elevated 1-day 95% VaR each multiply the
// scaler down independently.
func RiskScaler(drawdown domain.DrawdownMetrics, var1d95 float64) float64 {
	scaler := 1.0

	switch {
	case drawdown.Max > 0.20:
		scaler *= 0.5
	case drawdown.Max > 0.15:
		scaler *= 0.7
	case drawdown.Max > 0.10:
		scaler *= 0.85
	}

	switch {
	case drawdown.Current > 0.15:
		scaler *= 0.6
	case drawdown.Current > 0.10:
		scaler *= 0.8
	}

	switch {
	case var1d95 > 0.10:
		scaler *= 0.7
	case var1d95 > 0.05:
		scaler *= 0.9
	}

	return formulas.Clamp(scaler, scalerFloor, scalerCeil)
}
