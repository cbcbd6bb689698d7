package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/business/assignment"
	"github.com/kyle-eros/eros-scheduling-sub002/business/selection"
	"github.com/kyle-eros/eros-scheduling-sub002/domain"

	"gorm.io/gorm"
)

// errLockConflict forces the surrounding transaction to roll back when any
// conditional insert in the batch is rejected.
var errLockConflict = errors.New("lock conflict")

type AssignmentRepository struct {
	DB *gorm.DB
}

var (
	_ assignment.Repository      = (*AssignmentRepository)(nil)
	_ selection.AssignmentReader = (*AssignmentRepository)(nil)
)

func NewAssignmentRepository(db *gorm.DB) *AssignmentRepository {
	return &AssignmentRepository{DB: db}
}

// LockBatch inserts every assignment with a single conditional statement
// per row: the INSERT..SELECT applies only when no active assignment for
// that caption sits within the cooldown window, and the partial unique
// index on (caption_id, scheduled_date) WHERE is_active rejects the
// exact-date race two concurrent batches can produce. Zero rows affected
// means conflict; one conflict rolls back the whole batch.
func (r *AssignmentRepository) LockBatch(ctx context.Context, batch []domain.ActiveAssignment, cooldownDays int) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var conflicts []uint64

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range batch {
			res := tx.Exec(`
				INSERT INTO active_caption_assignments
					(assignment_id, caption_id, creator_id, schedule_id, scheduled_date,
					 send_hour, selection_strategy, is_active, locked_at, expires_at)
				SELECT ?, ?, ?, ?, ?::date, ?, ?, TRUE, ?, ?
				WHERE NOT EXISTS (
					SELECT 1 FROM active_caption_assignments
					WHERE caption_id = ?
					  AND is_active = TRUE
					  AND scheduled_date BETWEEN ?::date - ? AND ?::date + ?
				)
				ON CONFLICT (caption_id, scheduled_date) WHERE is_active DO NOTHING`,
				a.AssignmentID, a.CaptionID, a.CreatorID, a.ScheduleID, a.ScheduledDate,
				a.SendHour, a.SelectionStrategy, a.LockedAt, a.ExpiresAt,
				a.CaptionID,
				a.ScheduledDate, cooldownDays, a.ScheduledDate, cooldownDays,
			)
			if res.Error != nil {
				return fmt.Errorf("conditional insert caption %d: %w", a.CaptionID, res.Error)
			}
			if res.RowsAffected == 0 {
				conflicts = append(conflicts, a.CaptionID)
			}
		}

		if len(conflicts) > 0 {
			return errLockConflict
		}

		// verify inside the transaction before committing; count only the
		// rows this batch inserted so earlier batches of the same schedule
		// do not skew the check
		ids := make([]string, 0, len(batch))
		for _, a := range batch {
			ids = append(ids, a.AssignmentID)
		}
		var inserted int64
		if err := tx.Model(&domain.ActiveAssignment{}).
			Where("assignment_id IN ? AND is_active = ?", ids, true).
			Count(&inserted).Error; err != nil {
			return fmt.Errorf("verify batch count: %w", err)
		}
		if inserted != int64(len(batch)) {
			return errLockConflict
		}

		return nil
	})

	if errors.Is(err, errLockConflict) {
		if len(conflicts) == 0 {
			// verification mismatch without a named conflict
			for _, a := range batch {
				conflicts = append(conflicts, a.CaptionID)
			}
		}
		return conflicts, nil
	}
	if err != nil {
		return nil, err
	}

	return nil, nil
}

// WindowViolations detects write skew after commit: rows of this batch
// overlapping an earlier-locked active assignment from any other batch.
func (r *AssignmentRepository) WindowViolations(ctx context.Context, assignmentIDs []string, cooldownDays int) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(assignmentIDs) == 0 {
		return nil, nil
	}

	var ids []uint64
	err := r.DB.WithContext(ctx).Raw(`
		SELECT DISTINCT a.caption_id
		FROM active_caption_assignments a
		JOIN active_caption_assignments b
		  ON b.caption_id = a.caption_id
		 AND b.is_active = TRUE
		 AND b.assignment_id NOT IN ?
		 AND ABS(a.scheduled_date - b.scheduled_date) <= ?
		 AND b.locked_at < a.locked_at
		WHERE a.assignment_id IN ?
		  AND a.is_active = TRUE`,
		assignmentIDs, cooldownDays, assignmentIDs,
	).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check window violations: %w", err)
	}

	return ids, nil
}

func (r *AssignmentRepository) CountActiveByIDs(ctx context.Context, assignmentIDs []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}
	if len(assignmentIDs) == 0 {
		return 0, nil
	}

	var n int64
	err := r.DB.WithContext(ctx).
		Model(&domain.ActiveAssignment{}).
		Where("assignment_id IN ? AND is_active = ?", assignmentIDs, true).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count batch assignments: %w", err)
	}

	return n, nil
}

func (r *AssignmentRepository) DeactivateByIDs(ctx context.Context, assignmentIDs []string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}
	if len(assignmentIDs) == 0 {
		return 0, nil
	}

	res := r.DB.WithContext(ctx).
		Model(&domain.ActiveAssignment{}).
		Where("assignment_id IN ? AND is_active = ?", assignmentIDs, true).
		Update("is_active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to deactivate batch assignments: %w", res.Error)
	}

	return res.RowsAffected, nil
}

func (r *AssignmentRepository) Deactivate(ctx context.Context, assignmentID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	res := r.DB.WithContext(ctx).
		Model(&domain.ActiveAssignment{}).
		Where("assignment_id = ?", assignmentID).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate assignment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.New("assignment_id not found")
	}

	return nil
}

func (r *AssignmentRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	res := r.DB.WithContext(ctx).
		Model(&domain.ActiveAssignment{}).
		Where("is_active = ? AND expires_at < ?", true, now).
		Update("is_active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to deactivate expired assignments: %w", res.Error)
	}

	return res.RowsAffected, nil
}

// ---- selection-path reads ----

func (r *AssignmentRepository) CaptionsOnCooldown(ctx context.Context, target time.Time, cooldownDays int) (map[uint64]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var ids []uint64
	err := r.DB.WithContext(ctx).Raw(`
		SELECT DISTINCT caption_id
		FROM active_caption_assignments
		WHERE is_active = TRUE
		  AND expires_at > NOW()
		  AND scheduled_date BETWEEN ?::date - ? AND ?::date + ?`,
		target, cooldownDays, target, cooldownDays,
	).Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query cooldown set: %w", err)
	}

	out := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}

	return out, nil
}

func (r *AssignmentRepository) RecentByCreator(ctx context.Context, creatorID string, limit int, lookbackDays int) ([]domain.ActiveAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var assignments []domain.ActiveAssignment
	err := r.DB.WithContext(ctx).
		Where("creator_id = ? AND scheduled_date >= ?", creatorID, time.Now().AddDate(0, 0, -lookbackDays)).
		Order("scheduled_date DESC, locked_at DESC").
		Limit(limit).
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query recent assignments: %w", err)
	}

	return assignments, nil
}

func (r *AssignmentRepository) TriggerUsageForWeek(ctx context.Context, creatorID string, weekStart, weekEnd time.Time) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []struct {
		Trigger string `gorm:"column:psychological_trigger"`
		Count   int    `gorm:"column:count"`
	}
	err := r.DB.WithContext(ctx).Raw(`
		SELECT c.psychological_trigger, COUNT(*) AS count
		FROM active_caption_assignments a
		JOIN captions c ON c.id = a.caption_id
		WHERE a.creator_id = ?
		  AND a.is_active = TRUE
		  AND a.scheduled_date >= ?::date
		  AND a.scheduled_date < ?::date
		  AND c.psychological_trigger <> ''
		GROUP BY c.psychological_trigger`,
		creatorID, weekStart, weekEnd,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query trigger usage: %w", err)
	}

	usage := make(map[string]int, len(rows))
	for _, row := range rows {
		usage[row.Trigger] = row.Count
	}

	return usage, nil
}
