package selection

import (
	"context"

	"github.com/kyle-eros/eros-scheduling-sub002/domain"
)

type Config struct {
	// days a caption must rest after any active assignment, system-wide
	CooldownDays int

	// assignments expire this many days after their scheduled date
	ExpiryDays int

	ExplorationRate float64
	ConfidenceLevel float64

	// weekly usage caps per psychological trigger; untagged captions are uncapped
	TriggerWeeklyCaps map[string]int

	// composite score weights
	WThompson  float64
	WDiversity float64
	WEMV       float64

	// avg_emv is divided by this before weighting
	EMVNormalizer float64

	// how many recent assignments feed the diversity window
	RecentWindowSize int

	DefaultCount int
}

const (
	defaultCooldownDays     = 7
	defaultExpiryDays       = 7
	defaultExplorationRate  = 0.2
	defaultConfidenceLevel  = 0.95
	defaultWThompson        = 0.70
	defaultWDiversity       = 0.15
	defaultWEMV             = 0.15
	defaultEMVNormalizer    = 100.0
	defaultRecentWindowSize = 7
	defaultCount            = 10
)

func DefaultConfig() Config {
	return Config{
		CooldownDays:    defaultCooldownDays,
		ExpiryDays:      defaultExpiryDays,
		ExplorationRate: defaultExplorationRate,
		ConfidenceLevel: defaultConfidenceLevel,

		TriggerWeeklyCaps: DefaultTriggerCaps(),

		WThompson:  defaultWThompson,
		WDiversity: defaultWDiversity,
		WEMV:       defaultWEMV,

		EMVNormalizer:    defaultEMVNormalizer,
		RecentWindowSize: defaultRecentWindowSize,
		DefaultCount:     defaultCount,
	}
}

// DefaultTriggerCaps returns the weekly cap table applied when no
// per-segment override exists.
func DefaultTriggerCaps() map[string]int {
	return map[string]int{
		"scarcity":     3,
		"urgency":      5,
		"fomo":         4,
		"exclusivity":  4,
		"social_proof": 6,
		"curiosity":    7,
		"flash_sale":   2,
	}
}

// read per-segment engine config from DB.
type ConfigRepository interface {
	GetConfig(ctx context.Context, segment string) (domain.SelectionConfig, bool, error)
	UpsertConfig(ctx context.Context, cfg domain.SelectionConfig) error
}
