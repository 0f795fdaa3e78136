package risklimits

import (
	"math"
	"sort"

	"github.com/aristath/capital-governor/internal/domain"
)

// Positions below this absolute quantity do not count toward
// diversification.
const quantityEpsilon = 1e-9

// CheckResult is the outcome of a single limit check.
type CheckResult struct {
	Check               string  `json:"check"`
	Symbol              string  `json:"symbol,omitempty"`
	Violation           bool    `json:"violation"`
	MetricValue         float64 `json:"metric_value"`
	Limit               float64 `json:"limit"`
	SuggestedCorrection string  `json:"suggested_correction,omitempty"`
	AllowedQuantity     float64 `json:"allowed_quantity,omitempty"`
}

// CheckPosition verifies a single position against the per-position size
// limit and reports the largest quantity that would comply.
func CheckPosition(symbol string, pos domain.PositionInfo, equity float64, limits RiskLimits) CheckResult {
	result := CheckResult{Check: "position_size", Symbol: symbol, Limit: limits.MaxPositionSizePct}
	if equity <= 0 || pos.Price <= 0 {
		return result
	}

	result.MetricValue = math.Abs(pos.Quantity*pos.Price) / equity
	result.AllowedQuantity = equity * limits.MaxPositionSizePct / pos.Price
	if result.MetricValue > limits.MaxPositionSizePct {
		result.Violation = true
		result.SuggestedCorrection = "reduce position to allowed_quantity"
	}
	return result
}

// CheckConcentration verifies that the three largest positions do not
// dominate equity.
func CheckConcentration(snapshot *domain.PortfolioSnapshot, limits RiskLimits) CheckResult {
	result := CheckResult{Check: "concentration", Limit: limits.MaxConcentrationPct}
	if snapshot.Equity <= 0 {
		return result
	}

	values := make([]float64, 0, len(snapshot.Positions))
	for _, pos := range snapshot.Positions {
		values = append(values, math.Abs(pos.Quantity*pos.Price))
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	top := 0.0
	for i, v := range values {
		if i == 3 {
			break
		}
		top += v
	}

	result.MetricValue = top / snapshot.Equity
	if result.MetricValue > limits.MaxConcentrationPct {
		result.Violation = true
		result.SuggestedCorrection = "trim largest positions"
	}
	return result
}

// CheckSectorExposure verifies per-sector aggregate value against total
// position value. One result is returned per sector present.
func CheckSectorExposure(snapshot *domain.PortfolioSnapshot, limits RiskLimits) []CheckResult {
	totals := make(map[string]float64)
	total := 0.0
	for _, pos := range snapshot.Positions {
		value := math.Abs(pos.Quantity * pos.Price)
		sector := pos.Sector
		if sector == "" {
			sector = "unknown"
		}
		totals[sector] += value
		total += value
	}

	sectors := make([]string, 0, len(totals))
	for sector := range totals {
		sectors = append(sectors, sector)
	}
	sort.Strings(sectors)

	results := make([]CheckResult, 0, len(sectors))
	for _, sector := range sectors {
		result := CheckResult{Check: "sector_exposure", Symbol: sector, Limit: limits.MaxSectorExposurePct}
		if total > 0 {
			result.MetricValue = totals[sector] / total
		}
		if result.MetricValue > limits.MaxSectorExposurePct {
			result.Violation = true
			result.SuggestedCorrection = "rebalance away from " + sector
		}
		results = append(results, result)
	}
	return results
}

// CheckDiversification verifies the count of meaningfully sized positions.
func CheckDiversification(snapshot *domain.PortfolioSnapshot, limits RiskLimits) CheckResult {
	count := 0
	for _, pos := range snapshot.Positions {
		if math.Abs(pos.Quantity) > quantityEpsilon {
			count++
		}
	}

	result := CheckResult{
		Check:       "diversification",
		MetricValue: float64(count),
		Limit:       float64(limits.MinDiversification),
	}
	if count < limits.MinDiversification {
		result.Violation = true
		result.SuggestedCorrection = "add positions to reach the minimum count"
	}
	return result
}

// CheckLeverage verifies gross notional against equity.
func CheckLeverage(snapshot *domain.PortfolioSnapshot, limits RiskLimits) CheckResult {
	result := CheckResult{Check: "leverage", Limit: limits.MaxLeverage}
	if snapshot.Equity <= 0 {
		return result
	}

	result.MetricValue = snapshot.TotalNotional() / snapshot.Equity
	if result.MetricValue > limits.MaxLeverage {
		result.Violation = true
		result.SuggestedCorrection = "reduce gross exposure"
	}
	return result
}

// CheckDailyLoss verifies intraday loss against the day-open equity mark.
// A snapshot without a day-open mark always passes.
func CheckDailyLoss(snapshot *domain.PortfolioSnapshot, limits RiskLimits) CheckResult {
	result := CheckResult{Check: "daily_loss", Limit: limits.MaxDailyLossPct}
	if snapshot.DayOpenEquity <= 0 {
		return result
	}

	loss := (snapshot.DayOpenEquity - snapshot.Equity) / snapshot.DayOpenEquity
	result.MetricValue = math.Max(0, loss)
	if result.MetricValue > limits.MaxDailyLossPct {
		result.Violation = true
		result.SuggestedCorrection = "halt new risk for the day"
	}
	return result
}

// CheckAll runs every limit check against the snapshot and returns all
// results, violations and passes alike.
func CheckAll(snapshot *domain.PortfolioSnapshot, limits RiskLimits) []CheckResult {
	results := make([]CheckResult, 0, len(snapshot.Positions)+8)

	symbols := make([]string, 0, len(snapshot.Positions))
	for symbol := range snapshot.Positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		results = append(results, CheckPosition(symbol, snapshot.Positions[symbol], snapshot.Equity, limits))
	}

	results = append(results, CheckConcentration(snapshot, limits))
	results = append(results, CheckSectorExposure(snapshot, limits)...)
	results = append(results, CheckDiversification(snapshot, limits))
	results = append(results, CheckLeverage(snapshot, limits))
	results = append(results, CheckDailyLoss(snapshot, limits))

	return results
}

// Violations filters a result set down to failed checks.
func Violations(results []CheckResult) []CheckResult {
	violations := make([]CheckResult, 0)
	for _, r := range results {
		if r.Violation {
			violations = append(violations, r)
		}
	}
	return violations
}
