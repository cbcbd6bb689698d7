package selection

import (
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/domain"
)

// Lookback depths for each diversity dimension.
const (
	triggerLookback  = 5
	categoryLookback = 3
	tierLookback     = 7
)

// RecentWindow is the per-creator view of what was recently assigned,
// newest first. Derived from active assignment history on each selection
// call; cached briefly in redis, never persisted.
type RecentWindow struct {
	TriggerTags []string `json:"trigger_tags"`
	Categories  []string `json:"categories"`
	PriceTiers  []string `json:"price_tiers"`
	SendHours   []int    `json:"send_hours"`
}

// BuildRecentWindow derives the window from assignments ordered newest
// first, joined against their captions for tags and tiers.
func BuildRecentWindow(assignments []domain.ActiveAssignment, captions map[uint64]domain.Caption) RecentWindow {
	w := RecentWindow{}

	for _, a := range assignments {
		c, ok := captions[a.CaptionID]
		if !ok {
			continue
		}
		if len(w.TriggerTags) < triggerLookback {
			w.TriggerTags = append(w.TriggerTags, c.PsychologicalTrigger)
		}
		if len(w.Categories) < categoryLookback {
			w.Categories = append(w.Categories, c.ContentCategory)
		}
		if len(w.PriceTiers) < tierLookback {
			w.PriceTiers = append(w.PriceTiers, c.PriceTier)
		}
		w.SendHours = append(w.SendHours, a.SendHour)
	}

	return w
}

// DiversityBonus scores a candidate's novelty against the recent window.
// Range is roughly [-0.5, +0.2].
func DiversityBonus(candidate domain.Caption, window RecentWindow) float64 {
	bonus := 0.0

	if candidate.PsychologicalTrigger != "" && contains(window.TriggerTags, candidate.PsychologicalTrigger) {
		bonus -= 0.3
	} else {
		bonus += 0.1
	}

	if contains(window.Categories, candidate.ContentCategory) {
		bonus -= 0.2
	} else {
		bonus += 0.1
	}

	tierCount := 0
	for _, t := range window.PriceTiers {
		if t == candidate.PriceTier {
			tierCount++
		}
	}
	bonus -= 0.1 * float64(tierCount)

	return bonus
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// ---- send-hour energy matching ----

func timePeriod(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "morning"
	case hour >= 12 && hour < 17:
		return "afternoon"
	case hour >= 17 && hour < 22:
		return "evening"
	default:
		return "late_night"
	}
}

// content categories that land best in each period
var periodContentPreference = map[string][]string{
	"morning":    {"solo", "tease", "shower", "bed"},
	"afternoon":  {"boy_girl", "solo", "bundle", "premium"},
	"evening":    {"boy_girl", "girl_girl", "premium", "exclusive"},
	"late_night": {"fetish", "extreme", "dirty", "raw"},
}

// energyMatchBonus rewards a candidate whose category fits the target send
// hour's energy profile. Small on purpose, it only breaks near-ties.
func energyMatchBonus(candidate domain.Caption, targetDate time.Time) float64 {
	period := timePeriod(targetDate.Hour())
	for _, pref := range periodContentPreference[period] {
		if candidate.ContentCategory == pref {
			return 0.05
		}
	}
	return 0
}
