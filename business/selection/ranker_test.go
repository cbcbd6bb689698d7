package selection

import (
	"fmt"
	"testing"

	"github.com/kyle-eros/eros-scheduling-sub002/domain"
)

func mkCandidate(id uint64, tier, trigger, category string, composite float64, obs int64) *scoredCandidate {
	return &scoredCandidate{
		caption: domain.Caption{
			ID:                   id,
			PriceTier:            tier,
			PsychologicalTrigger: trigger,
			ContentCategory:      category,
		},
		stat:      domain.BanditStat{CaptionID: id, TotalObservations: obs},
		composite: composite,
	}
}

func TestSortCandidates_TieBreaks(t *testing.T) {
	list := []*scoredCandidate{
		mkCandidate(3, "budget", "", "a", 0.5, 20),
		mkCandidate(1, "budget", "", "b", 0.5, 5),
		mkCandidate(2, "budget", "", "c", 0.9, 50),
		mkCandidate(5, "budget", "", "d", 0.5, 5),
	}

	sortCandidates(list)

	wantOrder := []uint64{2, 1, 5, 3} // score desc, then fewer obs, then id
	for i, want := range wantOrder {
		if list[i].caption.ID != want {
			t.Fatalf("position %d: got caption %d, want %d", i, list[i].caption.ID, want)
		}
	}
}

func TestTierQuotasForSegment(t *testing.T) {
	cases := []struct {
		segment string
		total   int
		want    map[string]int
	}{
		{domain.SegmentBudget, 10, map[string]int{"budget": 6, "standard": 3, "premium": 1}},
		{domain.SegmentPremium, 20, map[string]int{"budget": 3, "standard": 7, "premium": 10}},
		{domain.SegmentStandard, 20, map[string]int{"budget": 6, "standard": 9, "premium": 5}},
		{"", 10, map[string]int{"budget": 3, "standard": 4, "premium": 2}},
	}

	for _, tc := range cases {
		got := TierQuotasForSegment(tc.segment, tc.total)
		for tier, want := range tc.want {
			if got[tier] != want {
				t.Errorf("%s/%d: tier %s got %d, want %d", tc.segment, tc.total, tier, got[tier], want)
			}
		}
	}
}

func TestRankAndPick_QuotasAndShortfalls(t *testing.T) {
	// 4 budget, 2 standard, 0 premium candidates
	candidates := []*scoredCandidate{
		mkCandidate(1, "budget", "", "a", 0.9, 0),
		mkCandidate(2, "budget", "", "b", 0.8, 0),
		mkCandidate(3, "budget", "", "c", 0.7, 0),
		mkCandidate(4, "budget", "", "d", 0.6, 0),
		mkCandidate(5, "standard", "", "e", 0.5, 0),
		mkCandidate(6, "standard", "", "f", 0.4, 0),
	}
	quotas := map[string]int{"budget": 2, "standard": 2, "premium": 2}

	picked, shortfalls, _ := rankAndPick(candidates, quotas, 6, RecentWindow{})

	if len(picked) != 6 {
		t.Fatalf("got %d picks, want 6", len(picked))
	}
	if shortfalls["premium"] != 2 {
		t.Errorf("premium shortfall: got %d, want 2", shortfalls["premium"])
	}
	if _, ok := shortfalls["budget"]; ok {
		t.Errorf("budget met its quota, shortfall map: %v", shortfalls)
	}

	// the premium gap must be filled from the global order, not dropped
	seen := map[uint64]bool{}
	for _, p := range picked {
		if seen[p.caption.ID] {
			t.Fatalf("caption %d picked twice", p.caption.ID)
		}
		seen[p.caption.ID] = true
	}
}

func TestRankAndPick_ExactQuotaMixHoldsWithHardRules(t *testing.T) {
	// a deep pool in every tier: the requested 10/15/5 mix must come back
	// exactly, with no same-tier run of three and nothing flagged
	var candidates []*scoredCandidate
	var id uint64
	addTier := func(tier string, n int, base float64) {
		for i := 0; i < n; i++ {
			id++
			candidates = append(candidates, mkCandidate(
				id, tier,
				fmt.Sprintf("t%d", id), fmt.Sprintf("c%d", id),
				base-float64(i)*0.001, 0,
			))
		}
	}
	addTier("budget", 40, 0.9)
	addTier("standard", 60, 0.8)
	addTier("premium", 100, 0.7)

	quotas := map[string]int{"budget": 10, "standard": 15, "premium": 5}

	picked, shortfalls, flagged := rankAndPick(candidates, quotas, 30, RecentWindow{})

	if len(picked) != 30 {
		t.Fatalf("got %d picks, want 30", len(picked))
	}
	counts := map[string]int{}
	for _, p := range picked {
		counts[p.caption.PriceTier]++
	}
	for tier, quota := range quotas {
		if counts[tier] != quota {
			t.Errorf("tier %s: got %d picks, want exactly %d (counts %v)", tier, counts[tier], quota, counts)
		}
	}
	if len(shortfalls) != 0 {
		t.Errorf("shortfalls %v, want none", shortfalls)
	}
	for i := 2; i < len(picked); i++ {
		a, b, c := picked[i-2].caption.PriceTier, picked[i-1].caption.PriceTier, picked[i].caption.PriceTier
		if a == b && b == c {
			t.Fatalf("positions %d-%d run three %s picks", i-2, i, c)
		}
	}
	for i, f := range flagged {
		if f {
			t.Errorf("position %d flagged in a pool this deep", i)
		}
	}
}

func TestRankAndPick_SwapDeviationReportedAsShortfall(t *testing.T) {
	// the creator's last two assignments were premium, so the lone premium
	// quota pick gets swapped out; the lost quota slot must be reported
	window := RecentWindow{PriceTiers: []string{"premium", "premium"}}
	candidates := []*scoredCandidate{
		mkCandidate(1, "premium", "t1", "a", 0.9, 0),
		mkCandidate(2, "budget", "t2", "b", 0.5, 0),
	}

	picked, shortfalls, _ := rankAndPick(candidates, map[string]int{"premium": 1}, 1, window)

	if len(picked) != 1 || picked[0].caption.PriceTier != "budget" {
		t.Fatalf("history-seeded premium run was not broken: %+v", picked)
	}
	if shortfalls["premium"] != 1 {
		t.Errorf("premium shortfall: got %d, want 1 (map %v)", shortfalls["premium"], shortfalls)
	}
}

func TestRankAndPick_CountCappedByPool(t *testing.T) {
	candidates := []*scoredCandidate{
		mkCandidate(1, "budget", "", "a", 0.9, 0),
		mkCandidate(2, "standard", "", "b", 0.8, 0),
	}

	picked, _, _ := rankAndPick(candidates, map[string]int{"budget": 1, "standard": 1}, 10, RecentWindow{})
	if len(picked) != 2 {
		t.Fatalf("got %d picks from a pool of 2, want 2", len(picked))
	}
}

func TestEnforceHardRules_TierRun(t *testing.T) {
	// three premiums in a row with a standard alternative available
	picked := []*scoredCandidate{
		mkCandidate(1, "premium", "t1", "a", 0.9, 0),
		mkCandidate(2, "premium", "t2", "b", 0.8, 0),
		mkCandidate(3, "premium", "t3", "c", 0.7, 0),
	}
	remaining := []*scoredCandidate{
		mkCandidate(4, "standard", "t4", "d", 0.6, 0),
	}

	flagged := enforceHardRules(picked, remaining, RecentWindow{})

	for i := 0; i < len(picked); i++ {
		if flagged[i] {
			t.Errorf("position %d flagged despite an available swap", i)
		}
	}
	tiers := []string{picked[0].caption.PriceTier, picked[1].caption.PriceTier, picked[2].caption.PriceTier}
	if tiers[0] == "premium" && tiers[1] == "premium" && tiers[2] == "premium" {
		t.Fatalf("three consecutive premium picks survived: %v", tiers)
	}
}

func TestEnforceHardRules_FlagsWhenNoSwapExists(t *testing.T) {
	picked := []*scoredCandidate{
		mkCandidate(1, "premium", "t1", "a", 0.9, 0),
		mkCandidate(2, "premium", "t2", "b", 0.8, 0),
		mkCandidate(3, "premium", "t3", "c", 0.7, 0),
	}

	flagged := enforceHardRules(picked, nil, RecentWindow{})
	if !flagged[2] {
		t.Fatal("third consecutive same-tier pick should be flagged when no alternative exists")
	}
}

func TestEnforceHardRules_SeededByHistory(t *testing.T) {
	// creator's last two assignments were premium; the very first pick of a
	// premium caption already makes a run of three
	window := RecentWindow{PriceTiers: []string{"premium", "premium"}}

	picked := []*scoredCandidate{
		mkCandidate(1, "premium", "t1", "a", 0.9, 0),
	}
	remaining := []*scoredCandidate{
		mkCandidate(2, "budget", "t2", "b", 0.5, 0),
	}

	enforceHardRules(picked, remaining, window)

	if picked[0].caption.PriceTier == "premium" {
		t.Fatal("history-seeded tier run was not broken")
	}
}

func TestEnforceHardRules_TriggerLookback(t *testing.T) {
	picked := []*scoredCandidate{
		mkCandidate(1, "budget", "urgency", "a", 0.9, 0),
		mkCandidate(2, "standard", "fomo", "b", 0.8, 0),
		mkCandidate(3, "premium", "urgency", "c", 0.7, 0), // within 3 of pick 1
	}
	remaining := []*scoredCandidate{
		mkCandidate(4, "premium", "scarcity", "d", 0.6, 0),
	}

	flagged := enforceHardRules(picked, remaining, RecentWindow{})

	if picked[2].caption.PsychologicalTrigger == "urgency" && !flagged[2] {
		t.Fatal("repeated trigger within lookback neither swapped nor flagged")
	}
}

func TestStrategyTag(t *testing.T) {
	cases := []struct {
		name string
		c    *scoredCandidate
		want string
	}{
		{
			"under-observed explores",
			&scoredCandidate{stat: domain.BanditStat{TotalObservations: 3}, wilsonLower: 0.4, wilsonUpper: 0.6},
			domain.StrategyExplore,
		},
		{
			"wide interval explores",
			&scoredCandidate{stat: domain.BanditStat{TotalObservations: 50}, wilsonLower: 0.2, wilsonUpper: 0.6},
			domain.StrategyExplore,
		},
		{
			"proven earner exploits",
			&scoredCandidate{stat: domain.BanditStat{TotalObservations: 50, AvgEMV: 30}, wilsonLower: 0.4, wilsonUpper: 0.6},
			domain.StrategyExploit,
		},
		{
			"middling is balanced",
			&scoredCandidate{stat: domain.BanditStat{TotalObservations: 50, AvgEMV: 10}, wilsonLower: 0.4, wilsonUpper: 0.6},
			domain.StrategyBalanced,
		},
	}

	for _, tc := range cases {
		if got := strategyTag(tc.c); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestSegmentMultiplier(t *testing.T) {
	cases := []struct {
		segment, tier string
		want          float64
	}{
		{domain.SegmentPremium, domain.TierPremium, 1.3},
		{domain.SegmentLuxury, domain.TierVIP, 1.3},
		{domain.SegmentPremium, domain.TierBudget, 1.0},
		{domain.SegmentBudget, domain.TierBudget, 1.2},
		{domain.SegmentExploratory, domain.TierStandard, 1.2},
		{domain.SegmentBudget, domain.TierLuxury, 1.0},
		{domain.SegmentStandard, domain.TierPremium, 1.0},
	}

	for _, tc := range cases {
		if got := segmentMultiplier(tc.segment, tc.tier); got != tc.want {
			t.Errorf("segmentMultiplier(%q, %q) = %v, want %v", tc.segment, tc.tier, got, tc.want)
		}
	}
}
