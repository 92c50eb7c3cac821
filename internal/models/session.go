package models

import "time"

// SessionState is the lifecycle phase of a listening session.
type SessionState string

const (
	SessionIdle   SessionState = "idle"
	SessionActive SessionState = "active"
	SessionPaused SessionState = "paused"
	SessionEnded  SessionState = "ended"
)

// Session is one contiguous interval of active/paused listening. Mutated on
// each accrual tick while live, archived read-only once ended.
type Session struct {
	ID                 string        `json:"id"`
	StartTime          time.Time     `json:"start_time"`
	EndTime            time.Time     `json:"end_time,omitempty"`
	Duration           time.Duration `json:"duration"`
	TracksPlayed       int           `json:"tracks_played"`
	ParaEarned         float64       `json:"para_earned"`
	XfgMined           float64       `json:"xfg_mined"`
	HumanScoreSnapshot float64       `json:"human_score_snapshot"`
	IsPremium          bool          `json:"is_premium"`
	State              SessionState  `json:"state"`
}

// Finalize stamps the end of the session and freezes its duration.
func (s *Session) Finalize(now time.Time, humanScore float64) {
	s.EndTime = now
	s.Duration = now.Sub(s.StartTime)
	s.HumanScoreSnapshot = humanScore
	s.State = SessionEnded
}
