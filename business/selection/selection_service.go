package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/domain"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/logger"
)

// ---- Repository interfaces ----

type CaptionRepository interface {
	FindActive(ctx context.Context) ([]domain.Caption, error)
	FindByIDs(ctx context.Context, ids []uint64) (map[uint64]domain.Caption, error)
}

type StatRepository interface {
	GetByCreator(ctx context.Context, creatorID string) (map[uint64]domain.BanditStat, error)
}

// AssignmentReader is the selection path's read-only view of the
// reservation ledger.
type AssignmentReader interface {
	// CaptionsOnCooldown returns every caption id holding an active
	// assignment within cooldownDays of the target date, system-wide.
	CaptionsOnCooldown(ctx context.Context, target time.Time, cooldownDays int) (map[uint64]struct{}, error)

	RecentByCreator(ctx context.Context, creatorID string, limit int, lookbackDays int) ([]domain.ActiveAssignment, error)

	// TriggerUsageForWeek counts active assignments per trigger tag for
	// this creator inside [weekStart, weekEnd).
	TriggerUsageForWeek(ctx context.Context, creatorID string, weekStart, weekEnd time.Time) (map[string]int, error)
}

// PatternCache is an optional short-TTL cache of recent windows.
type PatternCache interface {
	Get(ctx context.Context, creatorID string) (*RecentWindow, error)
	Set(ctx context.Context, creatorID string, window RecentWindow) error
}

// Notifier receives ops alerts for degraded pool health.
type Notifier interface {
	SendAlert(event string, payload map[string]any) error
}

// ---- Service ----

type Service struct {
	captionRepo    CaptionRepository
	statRepo       StatRepository
	assignmentRepo AssignmentReader
	cfgRepo        ConfigRepository
	patternCache   PatternCache
	notifier       Notifier
	sampler        *Sampler
	defaultCfg     Config
}

func NewService(
	captionRepo CaptionRepository,
	statRepo StatRepository,
	assignmentRepo AssignmentReader,
	cfgRepo ConfigRepository,
	patternCache PatternCache,
	notifier Notifier,
	sampler *Sampler,
	defaultCfg Config,
) *Service {
	if sampler == nil {
		sampler = NewSampler(nil)
	}
	return &Service{
		captionRepo:    captionRepo,
		statRepo:       statRepo,
		assignmentRepo: assignmentRepo,
		cfgRepo:        cfgRepo,
		patternCache:   patternCache,
		notifier:       notifier,
		sampler:        sampler,
		defaultCfg:     defaultCfg,
	}
}

// Select runs the full pipeline: filter the pool, score each candidate, rank
// with tier quotas, and report pool health. A pool smaller than the
// requested count returns partial results with a reason, not an error.
func (s *Service) Select(ctx context.Context, req domain.SelectionRequest) (domain.SelectionResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.SelectionResult{}, fmt.Errorf("context error: %w", err)
	}
	if req.CreatorID == "" {
		return domain.SelectionResult{}, fmt.Errorf("creator_id is required")
	}

	cfg := s.loadConfigForSegment(ctx, req.BehavioralSegment)

	if req.CountNeeded <= 0 {
		req.CountNeeded = cfg.DefaultCount
	}
	if req.TargetDate.IsZero() {
		req.TargetDate = time.Now().AddDate(0, 0, 1)
	}
	if req.LookbackDays <= 0 {
		req.LookbackDays = 30
	}
	quotas := req.TierQuotas
	if len(quotas) == 0 {
		quotas = TierQuotasForSegment(req.BehavioralSegment, req.CountNeeded)
	}

	// 1) load the active pool
	pool, err := s.captionRepo.FindActive(ctx)
	if err != nil {
		return domain.SelectionResult{}, fmt.Errorf("load caption pool: %w", err)
	}

	// 2) system-wide cooldown set
	onCooldown, err := s.assignmentRepo.CaptionsOnCooldown(ctx, req.TargetDate, cfg.CooldownDays)
	if err != nil {
		return domain.SelectionResult{}, fmt.Errorf("load cooldown set: %w", err)
	}

	// 3) weekly trigger usage for this creator
	weekStart, weekEnd := isoWeekBounds(req.TargetDate)
	triggerUsage, err := s.assignmentRepo.TriggerUsageForWeek(ctx, req.CreatorID, weekStart, weekEnd)
	if err != nil {
		return domain.SelectionResult{}, fmt.Errorf("load trigger usage: %w", err)
	}

	eligible, health := filterPool(pool, req.CreatorID, onCooldown, triggerUsage, cfg.TriggerWeeklyCaps)

	tid := TraceIDFromContext(ctx)
	logger.Debug("caption_selection",
		"trace_id", tid,
		"creator_id", req.CreatorID,
		"segment", req.BehavioralSegment,
		"count_needed", req.CountNeeded,
		"pool_total", health.TotalAvailable,
		"pool_eligible", health.AfterBudgetFilter,
	)

	if len(eligible) == 0 {
		health.TierShortfalls = map[string]int{}
		result := domain.SelectionResult{
			CreatorID: req.CreatorID,
			Captions:  []domain.SelectedCaption{},
			Health:    health,
			Reason:    "insufficient eligible captions",
		}
		PoolExhaustedTotal.Inc()
		s.alertPoolExhausted(req.CreatorID, health)
		return result, nil
	}

	// 4) bandit stats and recent window
	stats, err := s.statRepo.GetByCreator(ctx, req.CreatorID)
	if err != nil {
		return domain.SelectionResult{}, fmt.Errorf("load bandit stats: %w", err)
	}

	window, err := s.recentWindow(ctx, req.CreatorID, cfg, req.LookbackDays)
	if err != nil {
		return domain.SelectionResult{}, fmt.Errorf("load recent window: %w", err)
	}

	// 5) score every eligible candidate
	candidates := make([]*scoredCandidate, 0, len(eligible))
	for _, c := range eligible {
		stat, ok := stats[c.ID]
		if !ok {
			stat = domain.NewPriorStat(c.ID, req.CreatorID)
		}

		sc := &scoredCandidate{caption: c, stat: stat}
		sc.wilsonLower, sc.wilsonUpper, _ = WilsonBounds(stat.Successes, stat.Failures, cfg.ConfidenceLevel)
		sc.thompson = s.sampler.Sample(stat.Successes, stat.Failures, cfg.ExplorationRate)

		sc.diversity = DiversityBonus(c, window) + energyMatchBonus(c, req.TargetDate)
		sc.composite = compositeScore(sc, cfg, req.BehavioralSegment)

		// budget penalties land on the composite at full value, after the
		// weighted blend, so a near-cap trigger drops the whole rank by
		// its -0.5 or -0.2
		cap := cfg.TriggerWeeklyCaps[c.PsychologicalTrigger]
		sc.composite += TriggerPenalty(c.PsychologicalTrigger, triggerUsage[c.PsychologicalTrigger], cap)
		candidates = append(candidates, sc)
	}

	// 6) rank with tier quotas and hard diversity rules
	picked, shortfalls, flagged := rankAndPick(candidates, quotas, req.CountNeeded, window)

	out := make([]domain.SelectedCaption, 0, len(picked))
	for i, c := range picked {
		strategy := strategyTag(c)
		out = append(out, domain.SelectedCaption{
			CaptionID:         c.caption.ID,
			CaptionText:       c.caption.CaptionText,
			PriceTier:         c.caption.PriceTier,
			TriggerTag:        c.caption.PsychologicalTrigger,
			ContentCategory:   c.caption.ContentCategory,
			CompositeScore:    c.composite,
			SelectionStrategy: strategy,
			SelectionReason:   selectionReason(c, strategy),
			WilsonLower:       c.wilsonLower,
			WilsonUpper:       c.wilsonUpper,
			TotalObservations: c.stat.TotalObservations,
			Flagged:           flagged[i],
		})
		SelectionsTotal.WithLabelValues(req.BehavioralSegment, strategy).Inc()
	}

	health.FinalSelected = len(out)
	health.TierShortfalls = shortfalls

	result := domain.SelectionResult{
		CreatorID: req.CreatorID,
		Captions:  out,
		Health:    health,
	}
	if len(out) < req.CountNeeded {
		result.Reason = "insufficient eligible captions"
		s.alertPoolExhausted(req.CreatorID, health)
	}

	return result, nil
}

// SelectBatch runs Select for several creators with per-creator error
// isolation: one creator failing never aborts the rest.
func (s *Service) SelectBatch(ctx context.Context, reqs []domain.SelectionRequest) []domain.SelectionResult {
	results := make([]domain.SelectionResult, 0, len(reqs))

	for _, req := range reqs {
		res, err := s.Select(ctx, req)
		if err != nil {
			logger.Error("batch selection failed for creator",
				"creator_id", req.CreatorID,
				"error", err,
			)
			results = append(results, domain.SelectionResult{
				CreatorID: req.CreatorID,
				Captions:  []domain.SelectedCaption{},
				Reason:    err.Error(),
			})
			continue
		}
		results = append(results, res)
	}

	return results
}

// recentWindow pulls from the cache first, rebuilding from assignment
// history on a miss.
func (s *Service) recentWindow(ctx context.Context, creatorID string, cfg Config, lookbackDays int) (RecentWindow, error) {
	if s.patternCache != nil {
		if w, err := s.patternCache.Get(ctx, creatorID); err == nil && w != nil {
			return *w, nil
		}
	}

	recent, err := s.assignmentRepo.RecentByCreator(ctx, creatorID, cfg.RecentWindowSize, lookbackDays)
	if err != nil {
		return RecentWindow{}, err
	}

	ids := make([]uint64, 0, len(recent))
	for _, a := range recent {
		ids = append(ids, a.CaptionID)
	}

	captions := map[uint64]domain.Caption{}
	if len(ids) > 0 {
		captions, err = s.captionRepo.FindByIDs(ctx, ids)
		if err != nil {
			return RecentWindow{}, err
		}
	}

	window := BuildRecentWindow(recent, captions)

	if s.patternCache != nil {
		if err := s.patternCache.Set(ctx, creatorID, window); err != nil {
			logger.Warn("failed to cache recent window", "creator_id", creatorID, "error", err)
		}
	}

	return window, nil
}

func (s *Service) alertPoolExhausted(creatorID string, health domain.PoolHealth) {
	if s.notifier == nil {
		return
	}
	go func() {
		err := s.notifier.SendAlert("pool_exhausted", map[string]any{
			"creator_id":               creatorID,
			"total_available":          health.TotalAvailable,
			"after_cooldown_filter":    health.AfterCooldownFilter,
			"after_restriction_filter": health.AfterRestrictionFilter,
			"after_budget_filter":      health.AfterBudgetFilter,
			"final_selected":           health.FinalSelected,
		})
		if err != nil {
			logger.Warn("pool exhaustion alert failed", "creator_id", creatorID, "error", err)
		}
	}()
}

// isoWeekBounds returns [Monday 00:00, next Monday 00:00) of the date's
// ISO week.
func isoWeekBounds(t time.Time) (time.Time, time.Time) {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).
		AddDate(0, 0, -daysSinceMonday)
	return start, start.AddDate(0, 0, 7)
}
