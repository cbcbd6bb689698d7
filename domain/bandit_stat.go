package domain

import "time"

// BanditStat is the decayed performance ledger for one (caption, creator)
// pair. Counts are real-valued: they decay every updater run and are capped
// so long-lived winners never reach unbounded confidence. A missing row is
// equivalent to the uniform prior (successes=1, failures=1).
type BanditStat struct {
	CaptionID         uint64    `gorm:"column:caption_id;primaryKey" json:"caption_id"`
	CreatorID         string    `gorm:"column:creator_id;primaryKey" json:"creator_id"`
	Successes         float64   `gorm:"column:successes" json:"successes"`
	Failures          float64   `gorm:"column:failures" json:"failures"`
	TotalObservations int64     `gorm:"column:total_observations" json:"total_observations"`
	AvgEMV            float64   `gorm:"column:avg_emv" json:"avg_emv"`
	TotalRevenue      float64   `gorm:"column:total_revenue" json:"total_revenue"`
	ConfidenceLower   float64   `gorm:"column:confidence_lower" json:"confidence_lower"`
	ConfidenceUpper   float64   `gorm:"column:confidence_upper" json:"confidence_upper"`
	EMVPercentile     float64   `gorm:"column:emv_percentile" json:"emv_percentile"`
	LastUpdated       time.Time `gorm:"column:last_updated" json:"last_updated"`
}

func (BanditStat) TableName() string {
	return "caption_bandit_stats"
}

// NewPriorStat returns the cold-start ledger entry for a pair that has
// never been observed.
func NewPriorStat(captionID uint64, creatorID string) BanditStat {
	return BanditStat{
		CaptionID:       captionID,
		CreatorID:       creatorID,
		Successes:       1,
		Failures:        1,
		ConfidenceLower: 0,
		ConfidenceUpper: 1,
	}
}
