package domain

// SelectionConfig is the per-segment engine config row. Any field left at
// zero falls back to the compiled default when loaded.
type SelectionConfig struct {
	Segment         string  `json:"segment" gorm:"column:segment;primaryKey"`
	CooldownDays    int     `json:"cooldown_days" gorm:"column:cooldown_days"`
	HalfLifeDays    float64 `json:"half_life_days" gorm:"column:half_life_days"`
	UpdatesPerDay   float64 `json:"updates_per_day" gorm:"column:updates_per_day"`
	ExplorationRate float64 `json:"exploration_rate" gorm:"column:exploration_rate"`
	ConfidenceLevel float64 `json:"confidence_level" gorm:"column:confidence_level"`
	CountCap        float64 `json:"count_cap" gorm:"column:count_cap"`

	// weekly caps per psychological trigger, stored as jsonb
	TriggerCapsRaw []byte         `json:"-" gorm:"column:trigger_caps"`
	TriggerCaps    map[string]int `json:"trigger_caps" gorm:"-"`
}

func (SelectionConfig) TableName() string {
	return "selection_configs"
}
