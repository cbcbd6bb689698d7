package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/kyle-eros/eros-scheduling-sub002/business/feedback"
	"github.com/kyle-eros/eros-scheduling-sub002/domain"

	"gorm.io/gorm"
)

type OutcomeRepository struct {
	DB *gorm.DB
}

var _ feedback.OutcomeRepository = (*OutcomeRepository)(nil)

func NewOutcomeRepository(db *gorm.DB) *OutcomeRepository {
	return &OutcomeRepository{DB: db}
}

func (r *OutcomeRepository) Save(ctx context.Context, outcome domain.DeliveryOutcome) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(&outcome).Error; err != nil {
		return 0, fmt.Errorf("failed to save delivery outcome: %w", err)
	}

	return outcome.ID, nil
}

func (r *OutcomeRepository) UnprocessedSince(ctx context.Context, since time.Time, limit int) ([]domain.DeliveryOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var outcomes []domain.DeliveryOutcome
	err := r.DB.WithContext(ctx).
		Where("processed_at IS NULL AND sent_at >= ?", since).
		Order("sent_at ASC").
		Limit(limit).
		Find(&outcomes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed outcomes: %w", err)
	}

	return outcomes, nil
}

func (r *OutcomeRepository) MarkProcessed(ctx context.Context, ids []uint64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	err := r.DB.WithContext(ctx).
		Model(&domain.DeliveryOutcome{}).
		Where("id IN ?", ids).
		Update("processed_at", at).Error
	if err != nil {
		return fmt.Errorf("failed to mark outcomes processed: %w", err)
	}

	return nil
}

// CreatorMedianEMV computes the trailing median earnings-per-send for a
// creator. Outcomes with zero sends are excluded rather than counted as
// zero-value observations.
func (r *OutcomeRepository) CreatorMedianEMV(ctx context.Context, creatorID string, since time.Time) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	var median *float64
	err := r.DB.WithContext(ctx).Raw(`
		SELECT PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY earnings / NULLIF(sent_count, 0))
		FROM delivery_outcomes
		WHERE creator_id = ?
		  AND sent_count > 0
		  AND sent_at >= ?`,
		creatorID, since,
	).Scan(&median).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute median emv: %w", err)
	}
	if median == nil {
		return 0, nil
	}

	return *median, nil
}
