package selection

import (
	"context"
	"encoding/json"
)

// loadConfigForSegment reads the per-segment config row, falling back to
// the service defaults for anything missing or unreadable.
func (s *Service) loadConfigForSegment(ctx context.Context, segment string) Config {
	if s.cfgRepo == nil {
		return s.defaultCfg
	}

	dbCfg, ok, err := s.cfgRepo.GetConfig(ctx, segment)
	if err != nil || !ok {
		return s.defaultCfg
	}

	// start from defaults to keep sane fallbacks for any missing fields
	cfg := s.defaultCfg

	if dbCfg.CooldownDays > 0 {
		cfg.CooldownDays = dbCfg.CooldownDays
	}
	if dbCfg.ExplorationRate > 0 {
		cfg.ExplorationRate = dbCfg.ExplorationRate
	}
	if dbCfg.ConfidenceLevel > 0 {
		cfg.ConfidenceLevel = dbCfg.ConfidenceLevel
	}

	if len(dbCfg.TriggerCaps) > 0 {
		cfg.TriggerWeeklyCaps = dbCfg.TriggerCaps
	} else if len(dbCfg.TriggerCapsRaw) > 0 {
		caps := map[string]int{}
		if err := json.Unmarshal(dbCfg.TriggerCapsRaw, &caps); err == nil && len(caps) > 0 {
			cfg.TriggerWeeklyCaps = caps
		}
	}

	return cfg
}
