package domain

import "time"

// Behavioral segments supplied by the performance-analytics layer.
const (
	SegmentBudget      = "BUDGET"
	SegmentExploratory = "EXPLORATORY"
	SegmentStandard    = "STANDARD"
	SegmentPremium     = "PREMIUM"
	SegmentLuxury      = "LUXURY"
)

// Selection strategy tags attached to every chosen caption.
const (
	StrategyExplore  = "explore"
	StrategyExploit  = "exploit"
	StrategyBalanced = "balanced"
)

// SelectionRequest asks for N captions for one creator. TargetDate is the
// delivery date the cooldown window is measured against; zero means
// tomorrow.
type SelectionRequest struct {
	CreatorID         string         `json:"creator_id"`
	CountNeeded       int            `json:"count_needed"`
	LookbackDays      int            `json:"lookback_days"`
	BehavioralSegment string         `json:"behavioral_segment"`
	TierQuotas        map[string]int `json:"price_tier_quota_map,omitempty"`
	TargetDate        time.Time      `json:"target_date,omitempty"`
}

// SelectedCaption is one ranked pick in a selection response.
type SelectedCaption struct {
	CaptionID         uint64  `json:"caption_id"`
	CaptionText       string  `json:"caption_text"`
	PriceTier         string  `json:"price_tier"`
	TriggerTag        string  `json:"trigger_tag,omitempty"`
	ContentCategory   string  `json:"category"`
	CompositeScore    float64 `json:"composite_score"`
	SelectionStrategy string  `json:"selection_strategy"`
	SelectionReason   string  `json:"selection_reason,omitempty"`
	WilsonLower       float64 `json:"wilson_lower"`
	WilsonUpper       float64 `json:"wilson_upper"`
	TotalObservations int64   `json:"total_observations"`
	Flagged           bool    `json:"flagged,omitempty"`
}

// PoolHealth counts how the candidate pool shrank through each filter
// stage. A tier shortfall means the final sequence carries fewer picks of
// that tier than its quota, whether the eligible pool was too small or a
// diversity swap changed the mix; the gap was filled from other tiers.
type PoolHealth struct {
	TotalAvailable         int            `json:"total_available"`
	AfterCooldownFilter    int            `json:"after_cooldown_filter"`
	AfterRestrictionFilter int            `json:"after_restriction_filter"`
	AfterBudgetFilter      int            `json:"after_budget_filter"`
	FinalSelected          int            `json:"final_selected"`
	TierShortfalls         map[string]int `json:"tier_shortfalls,omitempty"`
}

// SelectionResult is the full response to a selection request. When the
// eligible pool is smaller than CountNeeded the result is partial and
// Reason explains why; the caller decides whether partial is acceptable.
type SelectionResult struct {
	CreatorID string            `json:"creator_id"`
	Captions  []SelectedCaption `json:"captions"`
	Health    PoolHealth        `json:"pool_health"`
	Reason    string            `json:"reason,omitempty"`
}
