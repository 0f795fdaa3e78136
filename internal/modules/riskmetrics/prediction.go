package riskmetrics

import (
	"math"

	"github.com/aristath/capital-governor/internal/domain"
	"github.com/aristath/capital-governor/pkg/formulas"
)

// Fixed confidence tag for the heuristic predictor. The value marks the
// estimate as coarse so downstream consumers can weight it accordingly.
const predictionConfidence = 0.7

// PredictDrawdown is a coarse heuristic: the predicted further drawdown is
// twice the worst observed daily loss, and the probability rises with the
// depth of the drawdown already underway.
func PredictDrawdown(returns []float64, current float64) domain.DrawdownPrediction {
	worst := math.Abs(formulas.Min(returns))

	probability := 0.2
	switch {
	case current > 0.10:
		probability = 0.6
	case current > 0.05:
		probability = 0.4
	}

	return domain.DrawdownPrediction{
		PredictedMax: 2 * worst,
		Probability:  probability,
		Confidence:   predictionConfidence,
	}
}
