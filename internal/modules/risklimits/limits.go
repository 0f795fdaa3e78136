// Package risklimits provides stateless exposure-limit checks against a
// live portfolio snapshot. Every check is a pure function of its inputs;
// nothing is retained between calls.
package risklimits

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/aristath/capital-governor/internal/domain"
)

// RiskLimits is the recognized limit configuration. Unknown keys in the
// backing file are ignored; missing keys keep their defaults.
type RiskLimits struct {
	MaxPositionSizePct   float64 `json:"max_position_size_pct"`
	MaxSectorExposurePct float64 `json:"max_sector_exposure_pct"`
	MaxLeverage          float64 `json:"max_leverage"`
	MaxConcentrationPct  float64 `json:"max_concentration_pct"`
	MaxDailyLossPct      float64 `json:"max_daily_loss_pct"`
	MinDiversification   int     `json:"min_diversification"`
}

// DefaultLimits returns the documented default limit set.
func DefaultLimits() RiskLimits {
	return RiskLimits{
		MaxPositionSizePct:   0.20,
		MaxSectorExposurePct: 0.40,
		MaxLeverage:          1.0,
		MaxConcentrationPct:  0.30,
		MaxDailyLossPct:      0.05,
		MinDiversification:   5,
	}
}

// LoadLimits reads limits from a JSON file, overlaying recognized keys on
// the defaults. A missing file yields the defaults; a malformed file is a
// validation error.
func LoadLimits(path string, log zerolog.Logger) (RiskLimits, error) {
	limits := DefaultLimits()
	if path == "" {
		return limits, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", path).Msg("No limits file - using defaults")
		return limits, nil
	}
	if err != nil {
		return limits, fmt.Errorf("%w: reading limits file: %v", domain.ErrInputUnavailable, err)
	}

	if err := json.Unmarshal(data, &limits); err != nil {
		return DefaultLimits(), fmt.Errorf("%w: parsing limits file: %v", domain.ErrValidation, err)
	}

	// Guard against zeroed-out entries in a sparse file.
	defaults := DefaultLimits()
	if limits.MaxPositionSizePct <= 0 {
		limits.MaxPositionSizePct = defaults.MaxPositionSizePct
	}
	if limits.MaxSectorExposurePct <= 0 {
		limits.MaxSectorExposurePct = defaults.MaxSectorExposurePct
	}
	if limits.MaxLeverage <= 0 {
		limits.MaxLeverage = defaults.MaxLeverage
	}
	if limits.MaxConcentrationPct <= 0 {
		limits.MaxConcentrationPct = defaults.MaxConcentrationPct
	}
	if limits.MaxDailyLossPct <= 0 {
		limits.MaxDailyLossPct = defaults.MaxDailyLossPct
	}
	if limits.MinDiversification <= 0 {
		limits.MinDiversification = defaults.MinDiversification
	}

	return limits, nil
}
