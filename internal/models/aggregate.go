package models

import (
	"fmt"
	"time"
)

// PeriodBucket is one weekly rollup of ended sessions.
type PeriodBucket struct {
	Earned        float64       `json:"earned"`
	Mined         float64       `json:"mined"`
	ListeningTime time.Duration `json:"listening_time"`
	Sessions      int           `json:"sessions"`
}

// MonthlyBucket extends the weekly rollup with a running average of the
// human score observed at session end.
type MonthlyBucket struct {
	PeriodBucket
	AvgHumanScore float64 `json:"avg_human_score"`
	ScoreSamples  int     `json:"score_samples"`
}

// HistoricalAggregate accumulates lifetime, weekly and monthly listening
// totals for one user. Values only grow, except via explicit import.
// Not safe for concurrent use; the owning engine serializes access.
type HistoricalAggregate struct {
	LifetimeEarned       float64                   `json:"lifetime_earned"`
	LifetimeMined        float64                   `json:"lifetime_mined"`
	ListeningTime        time.Duration             `json:"listening_time"`
	TotalSessions        int                       `json:"total_sessions"`
	LongestSession       time.Duration             `json:"longest_session"`
	AverageSessionLength time.Duration             `json:"average_session_length"`
	StreakDays           int                       `json:"streak_days"`
	JoinDate             time.Time                 `json:"join_date"`
	LastActiveDate       time.Time                 `json:"last_active_date"`
	Weekly               map[string]*PeriodBucket  `json:"weekly"`
	Monthly              map[string]*MonthlyBucket `json:"monthly"`
	Tracks               *TrackSet                 `json:"tracks"`
}

func NewHistoricalAggregate() *HistoricalAggregate {
	return &HistoricalAggregate{
		Weekly:  make(map[string]*PeriodBucket),
		Monthly: make(map[string]*MonthlyBucket),
		Tracks:  NewTrackSet(),
	}
}

// WeekKey formats t's ISO week as e.g. "2026-W35".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// MonthKey formats t's calendar month as e.g. "2026-08".
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// TouchDay updates the activity streak for a session starting at now.
// Same day: unchanged; previous day: +1; any larger gap: reset to 1.
func (h *HistoricalAggregate) TouchDay(now time.Time) {
	switch {
	case h.LastActiveDate.IsZero():
		h.StreakDays = 1
	case sameDay(h.LastActiveDate, now):
		// second session today, streak already counted
	case sameDay(h.LastActiveDate, now.AddDate(0, 0, -1)):
		h.StreakDays++
	default:
		h.StreakDays = 1
	}
	h.LastActiveDate = now
	if h.JoinDate.IsZero() {
		h.JoinDate = now
	}
}

// RegisterSessionStart counts a new session toward the lifetime total.
func (h *HistoricalAggregate) RegisterSessionStart(now time.Time) {
	h.TotalSessions++
	h.TouchDay(now)
}

// ApplySession rolls an ended session into the lifetime, weekly and monthly
// buckets.
func (h *HistoricalAggregate) ApplySession(s *Session) {
	if s == nil {
		return
	}

	h.LifetimeEarned += s.ParaEarned
	h.LifetimeMined += s.XfgMined
	h.ListeningTime += s.Duration
	if s.Duration > h.LongestSession {
		h.LongestSession = s.Duration
	}
	if h.TotalSessions > 0 {
		h.AverageSessionLength = h.ListeningTime / time.Duration(h.TotalSessions)
	}

	wk := WeekKey(s.EndTime)
	wb, ok := h.Weekly[wk]
	if !ok {
		wb = &PeriodBucket{}
		h.Weekly[wk] = wb
	}
	wb.Earned += s.ParaEarned
	wb.Mined += s.XfgMined
	wb.ListeningTime += s.Duration
	wb.Sessions++

	mk := MonthKey(s.EndTime)
	mb, ok := h.Monthly[mk]
	if !ok {
		mb = &MonthlyBucket{}
		h.Monthly[mk] = mb
	}
	mb.Earned += s.ParaEarned
	mb.Mined += s.XfgMined
	mb.ListeningTime += s.Duration
	mb.Sessions++
	mb.AvgHumanScore = (mb.AvgHumanScore*float64(mb.ScoreSamples) + s.HumanScoreSnapshot) / float64(mb.ScoreSamples+1)
	mb.ScoreSamples++
}

// AddTrack records a distinct track play.
func (h *HistoricalAggregate) AddTrack(id uint32) {
	if h.Tracks == nil {
		h.Tracks = NewTrackSet()
	}
	h.Tracks.Add(id)
}
