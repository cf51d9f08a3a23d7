package domain

// DefaultSettings returns the settings a fresh scope starts from.
func DefaultSettings() Settings {
	return Settings{
		ThemeID:            "obsidian",
		Prefer24h:          true,
		WeekStartsOnMonday: true,
	}
}

func clampMinutes(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// NormalizeSettings clamps negative targets, derives the weekly target when it
// was never set, and fills presentation defaults. Persisted payloads always go
// through this before use, so a malformed document degrades to something sane
// instead of erroring.
func NormalizeSettings(s Settings) Settings {
	s.DailyTargets.Mon = clampMinutes(s.DailyTargets.Mon)
	s.DailyTargets.Tue = clampMinutes(s.DailyTargets.Tue)
	s.DailyTargets.Wed = clampMinutes(s.DailyTargets.Wed)
	s.DailyTargets.Thu = clampMinutes(s.DailyTargets.Thu)
	s.DailyTargets.Fri = clampMinutes(s.DailyTargets.Fri)
	s.DailyTargets.Sat = clampMinutes(s.DailyTargets.Sat)
	s.DailyTargets.Sun = clampMinutes(s.DailyTargets.Sun)

	if s.WeeklyTargetMinutes <= 0 {
		weekly := s.DailyTargets.Mon + s.DailyTargets.Tue + s.DailyTargets.Wed +
			s.DailyTargets.Thu + s.DailyTargets.Fri
		if s.WeekendEnabled {
			weekly += s.DailyTargets.Sat + s.DailyTargets.Sun
		}
		s.WeeklyTargetMinutes = weekly
	} else {
		s.WeeklyTargetMinutes = clampMinutes(s.WeeklyTargetMinutes)
	}

	if s.ThemeID == "" {
		s.ThemeID = DefaultSettings().ThemeID
	}
	if s.Checkpoint != nil && s.Checkpoint.Date == "" {
		s.Checkpoint = nil
	}
	return s
}
