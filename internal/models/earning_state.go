package models

import "time"

// EarningState tracks the live earning figures for one user.
// Not safe for concurrent use; the owning engine serializes access.
type EarningState struct {
	CurrentRate   float64   `json:"current_rate"`
	AverageRate   float64   `json:"average_rate"`
	RateSamples   int       `json:"rate_samples"`
	SessionEarned float64   `json:"session_earned"`
	DailyEarnings float64   `json:"daily_earnings"`
	LastClaimTime time.Time `json:"last_claim_time"`
	TotalClaims   int       `json:"total_claims"`
}

func NewEarningState() *EarningState {
	return &EarningState{}
}

// ObserveRate records the rate used by one accrual tick and folds it into
// the running average.
func (e *EarningState) ObserveRate(rate float64) {
	e.CurrentRate = rate
	e.RateSamples++
	e.AverageRate += (rate - e.AverageRate) / float64(e.RateSamples)
}

// MaybeResetDailyEarnings clears the daily earnings bucket once the rolling
// 24h claim window anchored to the last claim has elapsed.
func (e *EarningState) MaybeResetDailyEarnings(now time.Time, window time.Duration) bool {
	if e.LastClaimTime.IsZero() || e.DailyEarnings == 0 {
		return false
	}
	if now.Sub(e.LastClaimTime) < window {
		return false
	}
	e.DailyEarnings = 0
	return true
}
