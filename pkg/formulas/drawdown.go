package formulas

// DrawdownStats holds drawdown analysis of an equity series.
type DrawdownStats struct {
	Current  float64 // drawdown from the running peak at the last sample
	Max      float64 // worst drawdown over the whole series
	Average  float64 // mean of strictly positive drawdowns
	Duration int     // number of samples with drawdown > 1%
}

// CalculateDrawdownStats walks the equity series with a running peak.
//
// Drawdown at each sample = (peak − value) / peak, as a positive fraction.
// Series shorter than 2 samples yield the zero value for every metric.
func CalculateDrawdownStats(equity []float64) DrawdownStats {
	if len(equity) < 2 {
		return DrawdownStats{}
	}

	peak := equity[0]
	maxDD := 0.0
	sumPositive := 0.0
	countPositive := 0
	duration := 0
	current := 0.0

	for _, value := range equity {
		if value > peak {
			peak = value
		}
		if peak <= 0 {
			continue
		}

		dd := (peak - value) / peak
		current = dd

		if dd > maxDD {
			maxDD = dd
		}
		if dd > 0 {
			sumPositive += dd
			countPositive++
		}
		if dd > 0.01 {
			duration++
		}
	}

	avg := 0.0
	if countPositive > 0 {
		avg = sumPositive / float64(countPositive)
	}

	return DrawdownStats{
		Current:  current,
		Max:      maxDD,
		Average:  avg,
		Duration: duration,
	}
}
