package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEarningState_ObserveRate(t *testing.T) {
	e := NewEarningState()

	e.ObserveRate(0.1)
	e.ObserveRate(0.2)
	e.ObserveRate(0.3)

	assert.Equal(t, 0.3, e.CurrentRate)
	assert.Equal(t, 3, e.RateSamples)
	assert.InDelta(t, 0.2, e.AverageRate, 1e-9)
}

func TestEarningState_MaybeResetDailyEarnings(t *testing.T) {
	e := NewEarningState()
	now := time.Now()
	window := 24 * time.Hour

	// nothing claimed yet
	assert.False(t, e.MaybeResetDailyEarnings(now, window))

	e.LastClaimTime = now
	e.DailyEarnings = 42

	assert.False(t, e.MaybeResetDailyEarnings(now.Add(23*time.Hour), window))
	assert.Equal(t, 42.0, e.DailyEarnings)

	assert.True(t, e.MaybeResetDailyEarnings(now.Add(25*time.Hour), window))
	assert.Equal(t, 0.0, e.DailyEarnings)

	// already empty
	assert.False(t, e.MaybeResetDailyEarnings(now.Add(48*time.Hour), window))
}
