package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/kyle-eros/eros-scheduling-sub002/business/feedback"
	"github.com/kyle-eros/eros-scheduling-sub002/business/selection"
	"github.com/kyle-eros/eros-scheduling-sub002/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BanditStatRepository struct {
	DB *gorm.DB
}

var (
	_ selection.StatRepository = (*BanditStatRepository)(nil)
	_ feedback.StatRepository  = (*BanditStatRepository)(nil)
)

func NewBanditStatRepository(db *gorm.DB) *BanditStatRepository {
	return &BanditStatRepository{DB: db}
}

func (r *BanditStatRepository) GetByCreator(ctx context.Context, creatorID string) (map[uint64]domain.BanditStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var stats []domain.BanditStat
	err := r.DB.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Find(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query bandit stats: %w", err)
	}

	out := make(map[uint64]domain.BanditStat, len(stats))
	for _, s := range stats {
		out[s.CaptionID] = s
	}

	return out, nil
}

// Get returns nil when no stat row exists for the pair; the caller seeds
// the uniform prior in that case.
func (r *BanditStatRepository) Get(ctx context.Context, captionID uint64, creatorID string) (*domain.BanditStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var stat domain.BanditStat
	err := r.DB.WithContext(ctx).
		Where("caption_id = ? AND creator_id = ?", captionID, creatorID).
		First(&stat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query bandit stat: %w", err)
	}

	return &stat, nil
}

func (r *BanditStatRepository) Upsert(ctx context.Context, stat domain.BanditStat) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "caption_id"}, {Name: "creator_id"}},
			UpdateAll: true,
		}).
		Create(&stat).Error
	if err != nil {
		return fmt.Errorf("failed to upsert bandit stat: %w", err)
	}

	return nil
}

func (r *BanditStatRepository) ListByCreator(ctx context.Context, creatorID string) ([]domain.BanditStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var stats []domain.BanditStat
	err := r.DB.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("caption_id ASC").
		Find(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list bandit stats: %w", err)
	}

	return stats, nil
}
