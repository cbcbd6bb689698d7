package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Price tiers a caption can belong to, cheapest first.
const (
	TierBudget   = "budget"
	TierStandard = "standard"
	TierMid      = "mid"
	TierPremium  = "premium"
	TierLuxury   = "luxury"
	TierVIP      = "vip"
)

// CREATE TABLE public.captions (
//     id                    BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     caption_text          TEXT NOT NULL,
//     price_tier            TEXT NOT NULL,
//     content_category      TEXT NOT NULL,
//     psychological_trigger TEXT,
//     is_active             BOOLEAN DEFAULT TRUE,
//     restricted_creators   JSONB,
//     created_at            TIMESTAMPTZ DEFAULT NOW()
// );

// Caption is an immutable content unit owned by content ingestion.
// This service only ever reads it.
type Caption struct {
	ID                   uint64         `gorm:"primaryKey;autoIncrement" json:"caption_id"`
	CaptionText          string         `gorm:"column:caption_text;type:text" json:"caption_text"`
	PriceTier            string         `gorm:"column:price_tier" json:"price_tier"`
	ContentCategory      string         `gorm:"column:content_category" json:"content_category"`
	PsychologicalTrigger string         `gorm:"column:psychological_trigger" json:"psychological_trigger"`
	IsActive             bool           `gorm:"column:is_active;default:true" json:"is_active"`
	RestrictedCreators   datatypes.JSON `gorm:"column:restricted_creators;type:jsonb" json:"restricted_creators,omitempty"`
	CreatedAt            time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Caption) TableName() string {
	return "captions"
}
