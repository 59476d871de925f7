// api/engine/config.go
package engine

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// ConfigError reports an invalid engine configuration. Raised once at
// startup, never on a request path.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid engine configuration: " + e.Reason
}

// Config carries every tunable constant of the analytics engine. The
// defaults are hand-tuned business heuristics meant to be adjusted per
// deployment, not reproduced exactly.
type Config struct {
	// Scoring weights. Must sum to 1.
	AffinityWeight   float64
	RecencyWeight    float64
	PopularityWeight float64

	// RecencyHalfLife drives the exponential decay of the recency signal.
	RecencyHalfLife time.Duration

	// RejectUnknownUsers disables the cold-start fallback: recommending for
	// a user with no events returns ErrUnknownUser instead of a
	// popularity-only ranking.
	RejectUnknownUsers bool

	// Persona thresholds.
	PremiumSpendThreshold  float64
	RepeatPurchaseCount    int
	FrequentSessionCount   int
	BargainOrderValue      float64
	QualityOrderValue      float64
	BrowseViewCount        int
	DevoteeCategoryShare   float64
	DevoteeMinCategoryHits int

	// Prediction constants.
	ChurnHalfLifeDays    float64
	RemainingYears       float64
	RepeatPurchaseFactor float64
	// PurchaseSignalsPerSession is how many cart+purchase events per
	// session saturate the purchase probability at 100.
	PurchaseSignalsPerSession float64
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		AffinityWeight:   0.5,
		RecencyWeight:    0.3,
		PopularityWeight: 0.2,

		RecencyHalfLife: 7 * 24 * time.Hour,

		PremiumSpendThreshold:  500,
		RepeatPurchaseCount:    3,
		FrequentSessionCount:   5,
		BargainOrderValue:      25,
		QualityOrderValue:      60,
		BrowseViewCount:        10,
		DevoteeCategoryShare:   0.6,
		DevoteeMinCategoryHits: 5,

		ChurnHalfLifeDays:         14,
		RemainingYears:            2,
		RepeatPurchaseFactor:      1.5,
		PurchaseSignalsPerSession: 3,
	}
}

// ConfigFromEnv starts from the defaults and applies any overrides present
// in the environment. Unset variables keep their default; a variable that
// is set but unparseable is a *ConfigError, not a silent fallback.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	floats := []struct {
		name string
		dst  *float64
	}{
		{"ENGINE_AFFINITY_WEIGHT", &cfg.AffinityWeight},
		{"ENGINE_RECENCY_WEIGHT", &cfg.RecencyWeight},
		{"ENGINE_POPULARITY_WEIGHT", &cfg.PopularityWeight},
		{"ENGINE_PREMIUM_SPEND_THRESHOLD", &cfg.PremiumSpendThreshold},
		{"ENGINE_CHURN_HALF_LIFE_DAYS", &cfg.ChurnHalfLifeDays},
		{"ENGINE_REMAINING_YEARS", &cfg.RemainingYears},
		{"ENGINE_REPEAT_PURCHASE_FACTOR", &cfg.RepeatPurchaseFactor},
	}
	for _, f := range floats {
		if err := envFloat(f.name, f.dst); err != nil {
			return Config{}, err
		}
	}
	if v := os.Getenv("ENGINE_RECENCY_HALF_LIFE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, &ConfigError{Reason: fmt.Sprintf("ENGINE_RECENCY_HALF_LIFE=%q is not a duration", v)}
		}
		cfg.RecencyHalfLife = d
	}
	if v := os.Getenv("ENGINE_REJECT_UNKNOWN_USERS"); v != "" {
		switch v {
		case "true", "1":
			cfg.RejectUnknownUsers = true
		case "false", "0":
			cfg.RejectUnknownUsers = false
		default:
			return Config{}, &ConfigError{Reason: fmt.Sprintf("ENGINE_REJECT_UNKNOWN_USERS=%q is not a boolean", v)}
		}
	}
	return cfg, nil
}

func envFloat(name string, dst *float64) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return &ConfigError{Reason: fmt.Sprintf("%s=%q is not a number", name, v)}
	}
	*dst = f
	return nil
}

// Validate fails fast on configurations that would corrupt scoring at
// request time.
func (c Config) Validate() error {
	sum := c.AffinityWeight + c.RecencyWeight + c.PopularityWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return &ConfigError{Reason: fmt.Sprintf("scoring weights sum to %.4f, want 1", sum)}
	}
	if c.AffinityWeight < 0 || c.RecencyWeight < 0 || c.PopularityWeight < 0 {
		return &ConfigError{Reason: "scoring weights must be non-negative"}
	}
	if c.RecencyHalfLife <= 0 {
		return &ConfigError{Reason: "recency half-life must be positive"}
	}
	if c.ChurnHalfLifeDays <= 0 {
		return &ConfigError{Reason: "churn half-life must be positive"}
	}
	if c.DevoteeCategoryShare <= 0 || c.DevoteeCategoryShare > 1 {
		return &ConfigError{Reason: "devotee category share must be in (0,1]"}
	}
	if c.PurchaseSignalsPerSession <= 0 {
		return &ConfigError{Reason: "purchase signals per session must be positive"}
	}
	return nil
}
