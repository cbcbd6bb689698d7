package postgres

import (
	"context"
	"fmt"

	"github.com/kyle-eros/eros-scheduling-sub002/business/selection"
	"github.com/kyle-eros/eros-scheduling-sub002/domain"

	"gorm.io/gorm"
)

type CaptionRepository struct {
	DB *gorm.DB
}

var _ selection.CaptionRepository = (*CaptionRepository)(nil)

func NewCaptionRepository(db *gorm.DB) *CaptionRepository {
	return &CaptionRepository{DB: db}
}

func (r *CaptionRepository) FindActive(ctx context.Context) ([]domain.Caption, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var captions []domain.Caption
	err := r.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&captions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query captions: %w", err)
	}

	return captions, nil
}

func (r *CaptionRepository) FindByIDs(ctx context.Context, ids []uint64) (map[uint64]domain.Caption, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(ids) == 0 {
		return map[uint64]domain.Caption{}, nil
	}

	var captions []domain.Caption
	err := r.DB.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&captions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query captions by id: %w", err)
	}

	out := make(map[uint64]domain.Caption, len(captions))
	for _, c := range captions {
		out[c.ID] = c
	}

	return out, nil
}
