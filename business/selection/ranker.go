package selection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kyle-eros/eros-scheduling-sub002/domain"
)

// Strategy tag thresholds.
const (
	exploreObsThreshold   = 10
	exploreWidthThreshold = 0.3
	exploitEMVThreshold   = 25.0
	exploitLowerThreshold = 0.15
)

type scoredCandidate struct {
	caption     domain.Caption
	stat        domain.BanditStat
	thompson    float64
	wilsonLower float64
	wilsonUpper float64
	diversity   float64
	composite   float64
}

// compositeScore blends the bandit draw, novelty, and monetary value, then
// applies the behavioral-segment multiplier.
func compositeScore(c *scoredCandidate, cfg Config, segment string) float64 {
	score := cfg.WThompson*c.thompson +
		cfg.WDiversity*c.diversity +
		cfg.WEMV*(c.stat.AvgEMV/cfg.EMVNormalizer)

	return score * segmentMultiplier(segment, c.caption.PriceTier)
}

// segmentMultiplier boosts tiers that match the creator's audience price
// sensitivity.
func segmentMultiplier(segment, tier string) float64 {
	switch segment {
	case domain.SegmentPremium, domain.SegmentLuxury:
		if tier == domain.TierPremium || tier == domain.TierLuxury || tier == domain.TierVIP {
			return 1.3
		}
	case domain.SegmentBudget, domain.SegmentExploratory:
		if tier == domain.TierBudget || tier == domain.TierStandard {
			return 1.2
		}
	}
	return 1.0
}

// TierQuotasForSegment derives a default price-tier mix when the caller
// supplies none, following the segment distributions the schedule builder
// uses.
func TierQuotasForSegment(segment string, total int) map[string]int {
	var budget, standard, premium float64

	switch segment {
	case domain.SegmentBudget, domain.SegmentExploratory:
		budget, standard, premium = 0.60, 0.30, 0.10
	case domain.SegmentPremium, domain.SegmentLuxury:
		budget, standard, premium = 0.15, 0.35, 0.50
	default: // STANDARD
		budget, standard, premium = 0.30, 0.45, 0.25
	}

	return map[string]int{
		domain.TierBudget:   int(float64(total) * budget),
		domain.TierStandard: int(float64(total) * standard),
		domain.TierPremium:  int(float64(total) * premium),
	}
}

// sortCandidates orders by composite descending; ties prefer fresher data
// (fewer observations) then lower caption id for determinism.
func sortCandidates(list []*scoredCandidate) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].composite != list[j].composite {
			return list[i].composite > list[j].composite
		}
		if list[i].stat.TotalObservations != list[j].stat.TotalObservations {
			return list[i].stat.TotalObservations < list[j].stat.TotalObservations
		}
		return list[i].caption.ID < list[j].caption.ID
	})
}

// rankAndPick draws from each tier up to its quota, fills remaining slots
// from the global order, interleaves tiers so the run rule can hold, then
// enforces the hard diversity rules over the final sequence. Shortfalls
// report the final sequence against the quotas, so a swap that changes the
// tier mix is visible to the caller.
func rankAndPick(
	candidates []*scoredCandidate,
	quotas map[string]int,
	count int,
	window RecentWindow,
) ([]*scoredCandidate, map[string]int, []bool) {

	if count > len(candidates) {
		count = len(candidates)
	}

	byTier := make(map[string][]*scoredCandidate)
	for _, c := range candidates {
		byTier[c.caption.PriceTier] = append(byTier[c.caption.PriceTier], c)
	}
	for tier := range byTier {
		sortCandidates(byTier[tier])
	}

	global := make([]*scoredCandidate, len(candidates))
	copy(global, candidates)
	sortCandidates(global)

	picked := make([]*scoredCandidate, 0, count)
	chosen := make(map[uint64]bool)

	// stable tier iteration order
	tiers := make([]string, 0, len(quotas))
	for tier := range quotas {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)

	for _, tier := range tiers {
		quota := quotas[tier]
		taken := 0
		for _, c := range byTier[tier] {
			if taken >= quota || len(picked) >= count {
				break
			}
			picked = append(picked, c)
			chosen[c.caption.ID] = true
			taken++
		}
	}

	// fall back to the global ranked order for any remaining slots
	for _, c := range global {
		if len(picked) >= count {
			break
		}
		if chosen[c.caption.ID] {
			continue
		}
		picked = append(picked, c)
		chosen[c.caption.ID] = true
	}

	remaining := make([]*scoredCandidate, 0, len(global)-len(picked))
	for _, c := range global {
		if !chosen[c.caption.ID] {
			remaining = append(remaining, c)
		}
	}

	picked = orderPicks(picked, window)
	flagged := enforceHardRules(picked, remaining, window)

	return picked, tierShortfalls(picked, quotas), flagged
}

// orderPicks arranges the chosen set so same-tier runs never reach three
// when the mix allows it: each position takes the tier with the most
// unplaced picks among tiers that would not extend a run to three, and
// within that tier the best-scored candidate that repeats no recent
// trigger or category.
func orderPicks(selected []*scoredCandidate, window RecentWindow) []*scoredCandidate {
	byTier := make(map[string][]*scoredCandidate)
	for _, c := range selected {
		byTier[c.caption.PriceTier] = append(byTier[c.caption.PriceTier], c)
	}
	tiers := make([]string, 0, len(byTier))
	for tier := range byTier {
		sortCandidates(byTier[tier])
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)

	tierSeq := reversed(window.PriceTiers)
	triggerSeq := reversed(window.TriggerTags)
	categorySeq := reversed(window.Categories)

	ordered := make([]*scoredCandidate, 0, len(selected))
	for len(ordered) < len(selected) {
		best := ""
		for _, tier := range tiers {
			pool := byTier[tier]
			if len(pool) == 0 {
				continue
			}
			if n := len(tierSeq); n >= 2 && tierSeq[n-1] == tier && tierSeq[n-2] == tier {
				continue
			}
			if best == "" ||
				len(pool) > len(byTier[best]) ||
				(len(pool) == len(byTier[best]) && pool[0].composite > byTier[best][0].composite) {
				best = tier
			}
		}
		if best == "" {
			// only run-extending tiers remain; the swap pass resolves it
			for _, tier := range tiers {
				if len(byTier[tier]) > len(byTier[best]) {
					best = tier
				}
			}
		}

		pool := byTier[best]
		idx := 0
		for i, c := range pool {
			if ruleViolation(c.caption, tierSeq, triggerSeq, categorySeq) == "" {
				idx = i
				break
			}
		}
		c := pool[idx]
		byTier[best] = append(pool[:idx], pool[idx+1:]...)

		ordered = append(ordered, c)
		tierSeq = append(tierSeq, c.caption.PriceTier)
		triggerSeq = append(triggerSeq, c.caption.PsychologicalTrigger)
		categorySeq = append(categorySeq, c.caption.ContentCategory)
	}

	return ordered
}

// tierShortfalls compares the final sequence against the quotas.
func tierShortfalls(picked []*scoredCandidate, quotas map[string]int) map[string]int {
	counts := make(map[string]int)
	for _, c := range picked {
		counts[c.caption.PriceTier]++
	}

	shortfalls := make(map[string]int)
	for tier, quota := range quotas {
		if counts[tier] < quota {
			shortfalls[tier] = quota - counts[tier]
		}
	}
	return shortfalls
}

// Hard diversity rules over the final ordered pick, seeded with the
// creator's recent history:
//   - same price tier: never more than 2 consecutive
//   - same trigger tag: never within a 3-assignment lookback
//   - same content category: never back-to-back
//
// A violating pick is swapped for the best unchosen alternative that
// differs on the violating attribute; if none exists it stays, flagged.
func enforceHardRules(picked, remaining []*scoredCandidate, window RecentWindow) []bool {
	flagged := make([]bool, len(picked))

	// seed the running sequences with the most recent history, oldest last
	tierSeq := reversed(window.PriceTiers)
	triggerSeq := reversed(window.TriggerTags)
	categorySeq := reversed(window.Categories)

	for i := 0; i < len(picked); i++ {
		violation := ruleViolation(picked[i].caption, tierSeq, triggerSeq, categorySeq)

		if violation != "" {
			trySwap := func(sameTierOnly bool) bool {
				for j, alt := range remaining {
					if sameTierOnly && alt.caption.PriceTier != picked[i].caption.PriceTier {
						continue
					}
					if !resolvesViolation(violation, picked[i].caption, alt.caption) {
						continue
					}
					if ruleViolation(alt.caption, tierSeq, triggerSeq, categorySeq) != "" {
						continue
					}
					picked[i], remaining[j] = remaining[j], picked[i]
					return true
				}
				return false
			}

			// a trigger or category swap keeps the tier mix intact when an
			// in-tier alternative exists
			swapped := violation != "tier" && trySwap(true)
			if !swapped {
				swapped = trySwap(false)
			}
			if !swapped {
				flagged[i] = true
			}
		}

		tierSeq = append(tierSeq, picked[i].caption.PriceTier)
		triggerSeq = append(triggerSeq, picked[i].caption.PsychologicalTrigger)
		categorySeq = append(categorySeq, picked[i].caption.ContentCategory)
	}

	return flagged
}

// ruleViolation names the first hard rule a candidate would break if
// appended to the running sequences, or "" if clean.
func ruleViolation(c domain.Caption, tierSeq, triggerSeq, categorySeq []string) string {
	n := len(tierSeq)
	if n >= 2 && tierSeq[n-1] == c.PriceTier && tierSeq[n-2] == c.PriceTier {
		return "tier"
	}

	if c.PsychologicalTrigger != "" {
		start := len(triggerSeq) - 3
		if start < 0 {
			start = 0
		}
		for _, t := range triggerSeq[start:] {
			if t == c.PsychologicalTrigger {
				return "trigger"
			}
		}
	}

	if m := len(categorySeq); m >= 1 && categorySeq[m-1] == c.ContentCategory {
		return "category"
	}

	return ""
}

// resolvesViolation requires the alternative to differ on the attribute
// that caused the violation.
func resolvesViolation(violation string, original, alt domain.Caption) bool {
	switch violation {
	case "tier":
		return alt.PriceTier != original.PriceTier
	case "trigger":
		return alt.PsychologicalTrigger != original.PsychologicalTrigger
	case "category":
		return alt.ContentCategory != original.ContentCategory
	}
	return false
}

func reversed(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

// strategyTag classifies each pick for downstream reporting.
func strategyTag(c *scoredCandidate) string {
	if c.stat.TotalObservations < exploreObsThreshold ||
		(c.wilsonUpper-c.wilsonLower) > exploreWidthThreshold {
		return domain.StrategyExplore
	}
	if c.stat.AvgEMV > exploitEMVThreshold && c.wilsonLower > exploitLowerThreshold {
		return domain.StrategyExploit
	}
	return domain.StrategyBalanced
}

// selectionReason builds the human-readable explanation attached to each
// pick.
func selectionReason(c *scoredCandidate, strategy string) string {
	reasons := []string{}

	switch strategy {
	case domain.StrategyExplore:
		reasons = append(reasons, "under-observed, exploring")
	case domain.StrategyExploit:
		reasons = append(reasons, fmt.Sprintf("proven earner ($%.2f avg EMV)", c.stat.AvgEMV))
	default:
		reasons = append(reasons, "balanced pick")
	}

	if c.diversity > 0 {
		reasons = append(reasons, "fresh pattern for this creator")
	}
	if c.wilsonLower > 0.5 {
		reasons = append(reasons, "high confidence floor")
	}

	return strings.Join(reasons, " | ")
}
