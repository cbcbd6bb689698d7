package selection

import (
	"encoding/json"

	"github.com/kyle-eros/eros-scheduling-sub002/domain"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/logger"
)

// filterPool walks the active caption pool through the cooldown,
// restriction, and trigger-budget gates, counting survivors at each stage.
// onCooldown is the system-wide set of caption ids resting near the target
// date, regardless of which creator holds the reservation.
func filterPool(
	pool []domain.Caption,
	creatorID string,
	onCooldown map[uint64]struct{},
	triggerUsage map[string]int,
	triggerCaps map[string]int,
) ([]domain.Caption, domain.PoolHealth) {

	health := domain.PoolHealth{TotalAvailable: len(pool)}

	afterCooldown := make([]domain.Caption, 0, len(pool))
	for _, c := range pool {
		if _, held := onCooldown[c.ID]; held {
			continue
		}
		afterCooldown = append(afterCooldown, c)
	}
	health.AfterCooldownFilter = len(afterCooldown)

	afterRestriction := make([]domain.Caption, 0, len(afterCooldown))
	for _, c := range afterCooldown {
		if isRestricted(c, creatorID) {
			continue
		}
		afterRestriction = append(afterRestriction, c)
	}
	health.AfterRestrictionFilter = len(afterRestriction)

	afterBudget := make([]domain.Caption, 0, len(afterRestriction))
	for _, c := range afterRestriction {
		cap := triggerCaps[c.PsychologicalTrigger]
		if TriggerPenalty(c.PsychologicalTrigger, triggerUsage[c.PsychologicalTrigger], cap) == PenaltyExclude {
			continue
		}
		afterBudget = append(afterBudget, c)
	}
	health.AfterBudgetFilter = len(afterBudget)

	return afterBudget, health
}

// isRestricted reports whether the caption's restriction list names this
// creator. Malformed restriction data must never halt selection: bad JSON
// is logged and treated as "no restriction".
func isRestricted(c domain.Caption, creatorID string) bool {
	if len(c.RestrictedCreators) == 0 {
		return false
	}

	var restricted []string
	if err := json.Unmarshal(c.RestrictedCreators, &restricted); err != nil {
		logger.Warn("malformed restriction list, treating as unrestricted",
			"caption_id", c.ID,
			"error", err,
		)
		return false
	}

	for _, r := range restricted {
		if r == creatorID {
			return true
		}
	}
	return false
}
