package feedback

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/business/selection"
	"github.com/kyle-eros/eros-scheduling-sub002/domain"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/logger"
)

// ---- Repository interfaces ----

type OutcomeRepository interface {
	// UnprocessedSince bounds each run's work: only outcomes observed
	// after `since`, at most `limit` rows.
	UnprocessedSince(ctx context.Context, since time.Time, limit int) ([]domain.DeliveryOutcome, error)
	MarkProcessed(ctx context.Context, ids []uint64, at time.Time) error

	// CreatorMedianEMV is precomputed once per creator per run, never per
	// caption row.
	CreatorMedianEMV(ctx context.Context, creatorID string, since time.Time) (float64, error)
}

type StatRepository interface {
	Get(ctx context.Context, captionID uint64, creatorID string) (*domain.BanditStat, error)
	Upsert(ctx context.Context, stat domain.BanditStat) error
	ListByCreator(ctx context.Context, creatorID string) ([]domain.BanditStat, error)
}

type Config struct {
	HalfLifeDays    float64
	UpdatesPerDay   float64
	CountCap        float64
	LookbackHours   int
	BatchLimit      int
	ConfidenceLevel float64
	MedianWindow    time.Duration
}

func DefaultConfig() Config {
	return Config{
		HalfLifeDays:    14,
		UpdatesPerDay:   4,
		CountCap:        100,
		LookbackHours:   48,
		BatchLimit:      10000,
		ConfidenceLevel: 0.95,
		MedianWindow:    30 * 24 * time.Hour,
	}
}

// DecayFactor is the per-update multiplier that halves accumulated counts
// over the configured half-life. A 14-day half-life at 4 updates/day gives
// ~0.9876 per update.
func DecayFactor(halfLifeDays, updatesPerDay float64) float64 {
	if halfLifeDays <= 0 || updatesPerDay <= 0 {
		return 1.0
	}
	return math.Pow(0.5, 1/(halfLifeDays*updatesPerDay))
}

// Updater folds newly observed delivery outcomes into the bandit ledger on
// a fixed cadence. Runs never overlap: stat rows are not designed for
// concurrent writers, so a tick that fires mid-run is skipped.
type Updater struct {
	outcomes OutcomeRepository
	stats    StatRepository
	cfg      Config

	running sync.Mutex
}

func NewUpdater(outcomes OutcomeRepository, stats StatRepository, cfg Config) *Updater {
	return &Updater{
		outcomes: outcomes,
		stats:    stats,
		cfg:      cfg,
	}
}

// RunIfIdle runs one update pass unless another is in flight, in which
// case it reports skipped=true and does nothing.
func (u *Updater) RunIfIdle(ctx context.Context) (skipped bool, err error) {
	if !u.running.TryLock() {
		RunsSkippedTotal.Inc()
		logger.Warn("feedback run still in flight, skipping this tick")
		return true, nil
	}
	defer u.running.Unlock()

	return false, u.run(ctx)
}

func (u *Updater) run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	started := time.Now()
	since := started.Add(-time.Duration(u.cfg.LookbackHours) * time.Hour)

	rows, err := u.outcomes.UnprocessedSince(ctx, since, u.cfg.BatchLimit)
	if err != nil {
		return fmt.Errorf("load unprocessed outcomes: %w", err)
	}
	if len(rows) == 0 {
		RunsTotal.Inc()
		return nil
	}

	// group outcomes per (caption, creator), creators first so the median
	// is computed once per creator
	type pairKey struct {
		captionID uint64
		creatorID string
	}
	byPair := make(map[pairKey][]domain.DeliveryOutcome)
	creators := make(map[string]bool)

	for _, o := range rows {
		k := pairKey{o.CaptionID, o.CreatorID}
		byPair[k] = append(byPair[k], o)
		creators[o.CreatorID] = true
	}

	medians := make(map[string]float64, len(creators))
	for creatorID := range creators {
		m, err := u.outcomes.CreatorMedianEMV(ctx, creatorID, started.Add(-u.cfg.MedianWindow))
		if err != nil {
			return fmt.Errorf("median emv for %s: %w", creatorID, err)
		}
		medians[creatorID] = m
	}

	decay := DecayFactor(u.cfg.HalfLifeDays, u.cfg.UpdatesPerDay)

	keys := make([]pairKey, 0, len(byPair))
	for k := range byPair {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].creatorID != keys[j].creatorID {
			return keys[i].creatorID < keys[j].creatorID
		}
		return keys[i].captionID < keys[j].captionID
	})

	// each pair is marked processed as soon as it folds; an error later in
	// the run cannot fold the same outcomes a second time
	for _, k := range keys {
		outcomes := byPair[k]
		if err := u.foldPair(ctx, k.captionID, k.creatorID, outcomes, medians[k.creatorID], decay, started); err != nil {
			return err
		}

		ids := make([]uint64, 0, len(outcomes))
		for _, o := range outcomes {
			ids = append(ids, o.ID)
		}
		if err := u.outcomes.MarkProcessed(ctx, ids, started); err != nil {
			return fmt.Errorf("mark outcomes processed: %w", err)
		}
	}

	for creatorID := range creators {
		if err := u.recomputePercentiles(ctx, creatorID); err != nil {
			return err
		}
	}

	OutcomesProcessedTotal.Add(float64(len(rows)))
	RunsTotal.Inc()
	logger.Info("feedback run complete",
		"outcomes", len(rows),
		"pairs", len(byPair),
		"creators", len(creators),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)

	return nil
}

func (u *Updater) foldPair(
	ctx context.Context,
	captionID uint64,
	creatorID string,
	outcomes []domain.DeliveryOutcome,
	medianEMV float64,
	decay float64,
	now time.Time,
) error {

	var newSuccesses, newFailures float64
	var earnings, emvSum float64

	for _, o := range outcomes {
		if o.EMV() > medianEMV {
			newSuccesses++
		} else {
			newFailures++
		}
		earnings += o.Earnings
		emvSum += o.EMV()
	}

	stat, err := u.stats.Get(ctx, captionID, creatorID)
	if err != nil {
		return fmt.Errorf("load stat %d/%s: %w", captionID, creatorID, err)
	}
	if stat == nil {
		prior := domain.NewPriorStat(captionID, creatorID)
		stat = &prior
	}

	stat.Successes = foldCount(stat.Successes, newSuccesses, decay, u.cfg.CountCap)
	stat.Failures = foldCount(stat.Failures, newFailures, decay, u.cfg.CountCap)

	n := float64(len(outcomes))
	prevWeight := float64(stat.TotalObservations) * decay
	if prevWeight+n > 0 {
		stat.AvgEMV = (stat.AvgEMV*prevWeight + emvSum) / (prevWeight + n)
	}
	stat.TotalRevenue += earnings
	stat.TotalObservations += int64(len(outcomes))

	stat.ConfidenceLower, stat.ConfidenceUpper, _ = selection.WilsonBounds(
		stat.Successes, stat.Failures, u.cfg.ConfidenceLevel,
	)
	stat.LastUpdated = now

	if err := u.stats.Upsert(ctx, *stat); err != nil {
		return fmt.Errorf("upsert stat %d/%s: %w", captionID, creatorID, err)
	}

	return nil
}

// foldCount applies decay then adds new observations, clamped to
// [0, cap]. Counts can never go negative and never exceed the cap, so a
// long-lived top performer cannot accumulate unbounded confidence.
func foldCount(current, added, decay, cap float64) float64 {
	v := current*decay + added
	if v < 0 {
		v = 0
	}
	if cap > 0 && v > cap {
		v = cap
	}
	return v
}

// recomputePercentiles ranks the creator's captions by avg EMV and stores
// each one's percentile position.
func (u *Updater) recomputePercentiles(ctx context.Context, creatorID string) error {
	stats, err := u.stats.ListByCreator(ctx, creatorID)
	if err != nil {
		return fmt.Errorf("list stats for %s: %w", creatorID, err)
	}
	if len(stats) == 0 {
		return nil
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].AvgEMV < stats[j].AvgEMV
	})

	for i := range stats {
		pct := 1.0
		if len(stats) > 1 {
			pct = float64(i) / float64(len(stats)-1)
		}
		if stats[i].EMVPercentile == pct {
			continue
		}
		stats[i].EMVPercentile = pct
		if err := u.stats.Upsert(ctx, stats[i]); err != nil {
			return fmt.Errorf("upsert percentile %d/%s: %w", stats[i].CaptionID, creatorID, err)
		}
	}

	return nil
}
