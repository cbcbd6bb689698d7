package selection

// Trigger budget penalty levels.
const (
	PenaltyExclude = -1.0
	PenaltyHeavy   = -0.5
	PenaltyLight   = -0.2
	PenaltyNone    = 0.0
)

// TriggerPenalty maps this week's usage of a trigger tag against its weekly
// cap. Exclusion (-1.0) is applied upstream by the filter; the softer
// penalties flow into the composite score.
func TriggerPenalty(tag string, usageThisWeek, weeklyCap int) float64 {
	if tag == "" || weeklyCap <= 0 {
		return PenaltyNone
	}

	usage := float64(usageThisWeek)
	cap := float64(weeklyCap)

	switch {
	case usage >= cap:
		return PenaltyExclude
	case usage >= 0.8*cap:
		return PenaltyHeavy
	case usage >= 0.6*cap:
		return PenaltyLight
	default:
		return PenaltyNone
	}
}
