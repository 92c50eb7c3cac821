package models

import "time"

const skipResetWindow = 24 * time.Hour

// SkipState tracks daily skip counts and the resulting earnings penalty.
// Not safe for concurrent use; the owning engine serializes access.
type SkipState struct {
	DailySkips            int       `json:"daily_skips"`
	TotalSkips            int       `json:"total_skips"`
	LastSkipTime          time.Time `json:"last_skip_time"`
	SkipPenaltyMultiplier float64   `json:"skip_penalty_multiplier"`
	LastSkipResetTime     time.Time `json:"last_skip_reset_time"`
}

func NewSkipState(now time.Time) *SkipState {
	return &SkipState{
		SkipPenaltyMultiplier: 1.0,
		LastSkipResetTime:     now,
	}
}

// OnSkip counts one skip and recomputes the penalty multiplier.
func (s *SkipState) OnSkip(now time.Time) {
	s.DailySkips++
	s.TotalSkips++
	s.LastSkipTime = now
	s.SkipPenaltyMultiplier = penaltyForSkips(s.DailySkips)
}

// MaybeResetDaily clears the daily counter once 24h have passed since the
// last reset anchor. Idempotent within a window. Returns true on reset.
func (s *SkipState) MaybeResetDaily(now time.Time) bool {
	if now.Sub(s.LastSkipResetTime) < skipResetWindow {
		return false
	}
	s.DailySkips = 0
	s.SkipPenaltyMultiplier = 1.0
	s.LastSkipResetTime = now
	return true
}

func penaltyForSkips(daily int) float64 {
	switch daily {
	case 0:
		return 1.0
	case 1:
		return 0.9
	case 2:
		return 0.7
	case 3:
		return 0.5
	case 4:
		return 0.3
	default:
		return 0.1
	}
}
