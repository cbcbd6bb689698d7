package domain

import (
	"time"

	"gorm.io/datatypes"
)

// DeliveryOutcome is one observed delivery result from the analytics layer.
// Rows are append-only; ProcessedAt stays NULL until the feedback updater
// has folded the row into the bandit ledger.
type DeliveryOutcome struct {
	ID             uint64            `gorm:"primaryKey;autoIncrement" json:"id"`
	CaptionID      uint64            `gorm:"column:caption_id;not null" json:"caption_id"`
	CreatorID      string            `gorm:"column:creator_id;not null" json:"creator_id"`
	SentCount      int64             `gorm:"column:sent_count" json:"sent_count"`
	ViewedCount    int64             `gorm:"column:viewed_count" json:"viewed_count"`
	PurchasedCount int64             `gorm:"column:purchased_count" json:"purchased_count"`
	Earnings       float64           `gorm:"column:earnings" json:"earnings"`
	SentAt         time.Time         `gorm:"column:sent_at" json:"sent_at"`
	ProcessedAt    *time.Time        `gorm:"column:processed_at" json:"processed_at,omitempty"`
	Context        datatypes.JSONMap `gorm:"column:context;type:jsonb" json:"context,omitempty"`
}

func (DeliveryOutcome) TableName() string {
	return "delivery_outcomes"
}

// EMV is the realized expected monetary value per delivered message.
func (o DeliveryOutcome) EMV() float64 {
	if o.SentCount <= 0 {
		return 0
	}
	return o.Earnings / float64(o.SentCount)
}
