package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kyle-eros/eros-scheduling-sub002/business/selection"
	"github.com/kyle-eros/eros-scheduling-sub002/domain"
	"github.com/kyle-eros/eros-scheduling-sub002/pkg/logger"

	"gorm.io/gorm"
)

type SelectionConfigRepository struct {
	DB *gorm.DB
}

var _ selection.ConfigRepository = (*SelectionConfigRepository)(nil)

func NewSelectionConfigRepository(db *gorm.DB) *SelectionConfigRepository {
	return &SelectionConfigRepository{DB: db}
}

// GetConfig returns (config, found, error). Not-found is not an error so
// the service can fall back to compiled defaults.
func (r *SelectionConfigRepository) GetConfig(ctx context.Context, segment string) (domain.SelectionConfig, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.SelectionConfig{}, false, fmt.Errorf("context error: %w", err)
	}

	var cfg domain.SelectionConfig
	err := r.DB.WithContext(ctx).
		Where("segment = ?", segment).
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SelectionConfig{}, false, nil
		}
		return domain.SelectionConfig{}, false, fmt.Errorf("failed to query selection config: %w", err)
	}

	if len(cfg.TriggerCapsRaw) > 0 {
		if err := json.Unmarshal(cfg.TriggerCapsRaw, &cfg.TriggerCaps); err != nil {
			logger.Warn("invalid trigger caps payload, ignoring", "segment", segment, "error", err)
			cfg.TriggerCaps = nil
		}
	}

	return cfg, true, nil
}

func (r *SelectionConfigRepository) UpsertConfig(ctx context.Context, cfg domain.SelectionConfig) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if cfg.TriggerCaps != nil {
		raw, err := json.Marshal(cfg.TriggerCaps)
		if err != nil {
			return fmt.Errorf("failed to encode trigger caps: %w", err)
		}
		cfg.TriggerCapsRaw = raw
	}

	err := r.DB.WithContext(ctx).Save(&cfg).Error
	if err != nil {
		return fmt.Errorf("failed to upsert selection config: %w", err)
	}

	return nil
}
