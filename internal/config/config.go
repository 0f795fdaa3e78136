package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration. It is constructed once at startup
// and passed into components; computation code never reads the environment.
type Config struct {
	DataDir  string // directory for exchanged documents and the history database
	Port     int
	LogLevel string
	DevMode  bool

	// MetricsURL is the base URL of the external metrics collaborator.
	// Empty disables HTTP fetching; the cached feed document is used instead.
	MetricsURL string

	Governor GovernorConfig
	Bankroll BankrollConfig
	Risk     RiskConfig
}

// GovernorConfig holds the scoring & allocation governor thresholds.
type GovernorConfig struct {
	MinAllocation          float64       // per-agent lower clamp before normalization
	MaxAllocation          float64       // per-agent upper clamp before normalization
	ReallocationThreshold  float64       // hysteresis gate on max per-agent change
	Interval               time.Duration // cycle period
	MaxConsecutiveFailures int           // fetch failures before degraded mode
}

// BankrollConfig holds the Kelly bankroll allocator parameters.
type BankrollConfig struct {
	Bankroll          float64       // fixed bankroll per plan
	KellyFraction     float64       // fraction of full Kelly (0.25 = quarter Kelly)
	MinEdge           float64       // minimum |edge| to consider an opportunity
	MaxStakePct       float64       // cap per stake as fraction of remaining bankroll
	MinPracticalStake float64       // stakes below this are skipped
	StopFloor         float64       // stop funding when remaining drops below this
	MaxOpportunities  int           // top-N cap on candidates per cycle
	Interval          time.Duration // cycle period
}

// RiskConfig holds the risk metrics engine settings.
type RiskConfig struct {
	Interval   time.Duration // cycle period
	LimitsPath string        // JSON file with risk limit overrides
}

// Load reads configuration from environment variables, with .env support.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:    getEnv("DATA_DIR", "./data"),
		Port:       getEnvAsInt("PORT", 8090),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		DevMode:    getEnvAsBool("DEV_MODE", false),
		MetricsURL: getEnv("METRICS_URL", ""),
		Governor: GovernorConfig{
			MinAllocation:          getEnvAsFloat("GOVERNOR_MIN_ALLOC", 0.05),
			MaxAllocation:          getEnvAsFloat("GOVERNOR_MAX_ALLOC", 0.40),
			ReallocationThreshold:  getEnvAsFloat("GOVERNOR_THRESHOLD", 0.10),
			Interval:               getEnvAsDuration("GOVERNOR_INTERVAL", 300*time.Second),
			MaxConsecutiveFailures: getEnvAsInt("GOVERNOR_MAX_FAILURES", 10),
		},
		Bankroll: BankrollConfig{
			Bankroll:          getEnvAsFloat("BANKROLL_INITIAL", 1000),
			KellyFraction:     getEnvAsFloat("KELLY_FRACTION", 0.25),
			MinEdge:           getEnvAsFloat("MIN_EDGE", 0.03),
			MaxStakePct:       getEnvAsFloat("MAX_STAKE_PCT", 0.10),
			MinPracticalStake: getEnvAsFloat("MIN_PRACTICAL_STAKE", 10),
			StopFloor:         getEnvAsFloat("BANKROLL_STOP_FLOOR", 50),
			MaxOpportunities:  getEnvAsInt("MAX_OPPORTUNITIES", 20),
			Interval:          getEnvAsDuration("BANKROLL_INTERVAL", 600*time.Second),
		},
		Risk: RiskConfig{
			Interval:   getEnvAsDuration("RISK_INTERVAL", 3600*time.Second),
			LimitsPath: getEnv("RISK_LIMITS_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	g := c.Governor
	if g.MinAllocation < 0 || g.MaxAllocation <= 0 || g.MinAllocation >= g.MaxAllocation {
		return fmt.Errorf("invalid allocation bounds: min=%.4f max=%.4f", g.MinAllocation, g.MaxAllocation)
	}
	if g.ReallocationThreshold < 0 || g.ReallocationThreshold > 1 {
		return fmt.Errorf("reallocation threshold out of range: %.4f", g.ReallocationThreshold)
	}
	if g.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("max consecutive failures must be positive: %d", g.MaxConsecutiveFailures)
	}

	b := c.Bankroll
	if b.Bankroll <= 0 {
		return fmt.Errorf("bankroll must be positive: %.2f", b.Bankroll)
	}
	if b.KellyFraction <= 0 || b.KellyFraction > 1 {
		return fmt.Errorf("kelly fraction out of range: %.4f", b.KellyFraction)
	}
	if b.MaxStakePct <= 0 || b.MaxStakePct > 1 {
		return fmt.Errorf("max stake pct out of range: %.4f", b.MaxStakePct)
	}
	if b.MaxOpportunities < 1 {
		return fmt.Errorf("max opportunities must be positive: %d", b.MaxOpportunities)
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		// Accept plain seconds for compatibility with the legacy deployment
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
