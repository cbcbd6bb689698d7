package assignment

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/domain"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for the reservation ledger.
//
// LockBatch must perform one conditional insert per candidate inside a
// single transaction: the insert succeeds only if no active assignment for
// that caption overlaps the requested date within the cooldown window. Any
// rejected insert rolls the whole batch back and returns the conflicting
// caption ids. A separate existence check followed by an insert is not
// acceptable: a concurrent caller can interleave between the two steps.
type Repository interface {
	LockBatch(ctx context.Context, batch []domain.ActiveAssignment, cooldownDays int) (conflicts []uint64, err error)

	// WindowViolations finds captions among the given assignments whose
	// active row overlaps an earlier-locked active assignment of another
	// batch. Used as post-hoc verification against write skew between
	// two batches inserting different dates inside the same window.
	WindowViolations(ctx context.Context, assignmentIDs []string, cooldownDays int) ([]uint64, error)

	// CountActiveByIDs and DeactivateByIDs scope verification and rollback
	// to the rows this batch inserted; a schedule id may lock more than
	// one batch and earlier batches must survive.
	CountActiveByIDs(ctx context.Context, assignmentIDs []string) (int64, error)
	DeactivateByIDs(ctx context.Context, assignmentIDs []string) (int64, error)
	Deactivate(ctx context.Context, assignmentID string) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// Notifier receives an ops alert when lock conflicts come in bursts.
type Notifier interface {
	SendAlert(event string, payload map[string]any) error
}

// PatternInvalidator drops a creator's cached recent-pattern window once a
// lock changes their assignment history, so the next selection rebuilds it.
type PatternInvalidator interface {
	Invalidate(ctx context.Context, creatorID string) error
}

// conflictBurstThreshold consecutive conflicts without a successful lock
// raise one alert, then the streak restarts.
const conflictBurstThreshold = 5

type Locker struct {
	repo           Repository
	notifier       Notifier
	patterns       PatternInvalidator
	cooldownDays   int
	expiryDays     int
	conflictStreak atomic.Int64
}

func NewLocker(repo Repository, notifier Notifier, patterns PatternInvalidator, cooldownDays, expiryDays int) *Locker {
	return &Locker{
		repo:         repo,
		notifier:     notifier,
		patterns:     patterns,
		cooldownDays: cooldownDays,
		expiryDays:   expiryDays,
	}
}

// Lock atomically reserves every candidate or none of them. On conflict
// the caller receives the offending caption ids and should reselect before
// retrying: the losing race may find its candidates already consumed.
func (l *Locker) Lock(ctx context.Context, scheduleID, creatorID string, candidates []domain.LockCandidate) ([]domain.ActiveAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if scheduleID == "" || creatorID == "" {
		return nil, fmt.Errorf("schedule_id and creator_id are required")
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("empty lock batch")
	}

	// a batch may not reserve the same caption twice
	seen := make(map[uint64]bool, len(candidates))
	for _, c := range candidates {
		if seen[c.CaptionID] {
			return nil, &domain.ConflictError{ScheduleID: scheduleID, CaptionIDs: []uint64{c.CaptionID}}
		}
		seen[c.CaptionID] = true
	}

	now := time.Now()
	batch := make([]domain.ActiveAssignment, 0, len(candidates))
	batchIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		batch = append(batch, domain.ActiveAssignment{
			AssignmentID:      uuid.NewString(),
			CaptionID:         c.CaptionID,
			CreatorID:         creatorID,
			ScheduleID:        scheduleID,
			ScheduledDate:     c.ScheduledDate,
			SendHour:          c.SendHour,
			SelectionStrategy: c.SelectionStrategy,
			IsActive:          true,
			LockedAt:          now,
			ExpiresAt:         c.ScheduledDate.AddDate(0, 0, l.expiryDays),
		})
		batchIDs = append(batchIDs, batch[len(batch)-1].AssignmentID)
	}

	conflicts, err := l.repo.LockBatch(ctx, batch, l.cooldownDays)
	if err != nil {
		return nil, fmt.Errorf("lock batch: %w", err)
	}
	if len(conflicts) > 0 {
		l.noteConflict(scheduleID, creatorID, len(conflicts))
		logger.Info("lock batch rolled back on conflict",
			"schedule_id", scheduleID,
			"creator_id", creatorID,
			"conflicting_captions", len(conflicts),
		)
		return nil, &domain.ConflictError{ScheduleID: scheduleID, CaptionIDs: conflicts}
	}

	// every requested row must exist after commit; a shortfall means the
	// batch partially applied and must be undone
	inserted, err := l.repo.CountActiveByIDs(ctx, batchIDs)
	if err != nil {
		return nil, fmt.Errorf("verify lock batch: %w", err)
	}
	if inserted != int64(len(batch)) {
		if _, derr := l.repo.DeactivateByIDs(ctx, batchIDs); derr != nil {
			logger.Error("failed to roll back partially applied batch",
				"schedule_id", scheduleID,
				"error", derr,
			)
		}
		l.noteConflict(scheduleID, creatorID, len(candidates))
		ids := make([]uint64, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.CaptionID)
		}
		return nil, &domain.ConflictError{ScheduleID: scheduleID, CaptionIDs: ids}
	}

	// post-hoc overlap verification: if a racing batch slipped a nearby
	// date past our snapshot, the later locker yields
	violations, err := l.repo.WindowViolations(ctx, batchIDs, l.cooldownDays)
	if err != nil {
		return nil, fmt.Errorf("verify lock windows: %w", err)
	}
	if len(violations) > 0 {
		if _, derr := l.repo.DeactivateByIDs(ctx, batchIDs); derr != nil {
			logger.Error("failed to roll back batch after window violation",
				"schedule_id", scheduleID,
				"error", derr,
			)
		}
		l.noteConflict(scheduleID, creatorID, len(violations))
		return nil, &domain.ConflictError{ScheduleID: scheduleID, CaptionIDs: violations}
	}

	l.conflictStreak.Store(0)
	LocksTotal.Add(float64(len(batch)))

	// the creator's recent-pattern window just changed
	if l.patterns != nil {
		if err := l.patterns.Invalidate(ctx, creatorID); err != nil {
			logger.Warn("failed to invalidate pattern cache",
				"creator_id", creatorID,
				"error", err,
			)
		}
	}

	return batch, nil
}

func (l *Locker) noteConflict(scheduleID, creatorID string, conflicting int) {
	LockConflictsTotal.Inc()
	if l.notifier == nil || l.conflictStreak.Add(1) != conflictBurstThreshold {
		return
	}
	l.conflictStreak.Store(0)
	go func() {
		err := l.notifier.SendAlert("lock_conflict_burst", map[string]any{
			"schedule_id":           scheduleID,
			"creator_id":            creatorID,
			"conflicting_captions":  conflicting,
			"consecutive_conflicts": conflictBurstThreshold,
		})
		if err != nil {
			logger.Warn("lock conflict alert failed", "schedule_id", scheduleID, "error", err)
		}
	}()
}

// Cancel deactivates one assignment. The row stays for audit.
func (l *Locker) Cancel(ctx context.Context, assignmentID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if assignmentID == "" {
		return fmt.Errorf("assignment_id is required")
	}

	if err := l.repo.Deactivate(ctx, assignmentID); err != nil {
		return fmt.Errorf("cancel assignment: %w", err)
	}

	return nil
}
