package formulas

// KellyFraction computes the full Kelly criterion stake fraction for a
// binary outcome at decimal odds.
//
// Formula: f = (b·p − q) / b, with b = decimalOdds − 1, p = win probability,
// q = 1 − p.
//
// Returns 0 when the bet has no positive edge: p ≤ 0, decimalOdds ≤ 1, or a
// negative numerator all yield 0, never a negative fraction.
func KellyFraction(winProbability, decimalOdds float64) float64 {
	if winProbability <= 0 || decimalOdds <= 1 {
		return 0.0
	}

	b := decimalOdds - 1
	q := 1 - winProbability
	kelly := (b*winProbability - q) / b

	if kelly <= 0 {
		return 0.0
	}
	return kelly
}
