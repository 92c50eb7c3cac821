package models

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *UserRecord {
	now := time.Date(2026, time.August, 26, 10, 30, 0, 0, time.UTC)

	trust := NewTrustProfile()
	trust.HumanScore = 87
	trust.ReputationScore = 62
	trust.StakedAmount = 25
	trust.PeerVerifications = 3
	trust.BreakCount = 4
	trust.SessionCount = 12
	trust.BehavioralSignature = "deadbeefdeadbeefdeadbeefdeadbeef"
	trust.Samples = []IntervalSample{
		{At: now.Add(-time.Minute), IntervalMs: 4500},
		{At: now, IntervalMs: 61000},
	}

	skip := NewSkipState(now.Add(-2 * time.Hour))
	skip.OnSkip(now.Add(-time.Hour))
	skip.OnSkip(now)

	earning := NewEarningState()
	earning.ObserveRate(0.12)
	earning.SessionEarned = 3.25
	earning.DailyEarnings = 9.5
	earning.LastClaimTime = now.Add(-6 * time.Hour)
	earning.TotalClaims = 2

	agg := NewHistoricalAggregate()
	agg.RegisterSessionStart(now.Add(-time.Hour))
	agg.ApplySession(&Session{
		ID:                 "s1",
		StartTime:          now.Add(-time.Hour),
		EndTime:            now,
		Duration:           time.Hour,
		ParaEarned:         6,
		XfgMined:           0.006,
		HumanScoreSnapshot: 87,
		State:              SessionEnded,
	})
	agg.AddTrack(42)
	agg.AddTrack(7)

	return &UserRecord{
		Trust:   trust,
		Skip:    skip,
		Earning: earning,
		Aggregate: agg,
		SessionLog: []*Session{{
			ID:                 "s1",
			StartTime:          now.Add(-time.Hour),
			EndTime:            now,
			Duration:           time.Hour,
			TracksPlayed:       9,
			ParaEarned:         6,
			XfgMined:           0.006,
			HumanScoreSnapshot: 87,
			IsPremium:          true,
			State:              SessionEnded,
		}},
	}
}

func TestUserRecord_BinaryRoundtrip(t *testing.T) {
	rec := sampleRecord()

	var buf bytes.Buffer
	require.NoError(t, WriteUserRecord(&buf, rec))

	loaded, err := ReadUserRecord(&buf)
	require.NoError(t, err)

	assert.Equal(t, rec.Trust.HumanScore, loaded.Trust.HumanScore)
	assert.Equal(t, rec.Trust.BehavioralSignature, loaded.Trust.BehavioralSignature)
	require.Len(t, loaded.Trust.Samples, 2)
	assert.Equal(t, rec.Trust.Samples[1].IntervalMs, loaded.Trust.Samples[1].IntervalMs)
	assert.True(t, rec.Trust.Samples[0].At.Equal(loaded.Trust.Samples[0].At))

	assert.Equal(t, rec.Skip.DailySkips, loaded.Skip.DailySkips)
	assert.Equal(t, rec.Skip.SkipPenaltyMultiplier, loaded.Skip.SkipPenaltyMultiplier)
	assert.True(t, rec.Skip.LastSkipResetTime.Equal(loaded.Skip.LastSkipResetTime))

	assert.Equal(t, rec.Earning.SessionEarned, loaded.Earning.SessionEarned)
	assert.Equal(t, rec.Earning.DailyEarnings, loaded.Earning.DailyEarnings)
	assert.True(t, rec.Earning.LastClaimTime.Equal(loaded.Earning.LastClaimTime))

	assert.Equal(t, rec.Aggregate.LifetimeEarned, loaded.Aggregate.LifetimeEarned)
	assert.Equal(t, rec.Aggregate.StreakDays, loaded.Aggregate.StreakDays)
	assert.Equal(t, rec.Aggregate.Weekly, loaded.Aggregate.Weekly)
	assert.Equal(t, rec.Aggregate.Monthly, loaded.Aggregate.Monthly)
	assert.Equal(t, uint64(2), loaded.Aggregate.Tracks.Cardinality())
	assert.True(t, loaded.Aggregate.Tracks.Contains(42))

	require.Len(t, loaded.SessionLog, 1)
	assert.Equal(t, rec.SessionLog[0].ID, loaded.SessionLog[0].ID)
	assert.Equal(t, rec.SessionLog[0].TracksPlayed, loaded.SessionLog[0].TracksPlayed)
	assert.True(t, loaded.SessionLog[0].IsPremium)
	assert.Equal(t, SessionEnded, loaded.SessionLog[0].State)
}

func TestUserRecord_BinaryRoundtrip_EmptyRecord(t *testing.T) {
	rec := &UserRecord{}
	var buf bytes.Buffer
	require.NoError(t, WriteUserRecord(&buf, rec))

	loaded, err := ReadUserRecord(&buf)
	require.NoError(t, err)
	assert.Equal(t, 100.0, loaded.Trust.HumanScore)
	assert.Equal(t, 1.0, loaded.Skip.SkipPenaltyMultiplier)
	assert.Empty(t, loaded.SessionLog)
}

func TestWriteUserRecord_Nil(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteUserRecord(&buf, nil))
}

func TestReadUserRecord_BadVersion(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0xFF, 0xFF})
	_, err := ReadUserRecord(buf)
	assert.Error(t, err)
}

func TestReadUserRecord_Truncated(t *testing.T) {
	rec := sampleRecord()
	var buf bytes.Buffer
	require.NoError(t, WriteUserRecord(&buf, rec))

	truncated := bytes.NewBuffer(buf.Bytes()[:buf.Len()/2])
	_, err := ReadUserRecord(truncated)
	assert.Error(t, err)
}

func TestNormalize_FillsNilSections(t *testing.T) {
	rec := &UserRecord{Aggregate: &HistoricalAggregate{}}
	rec.Normalize()

	require.NotNil(t, rec.Trust)
	require.NotNil(t, rec.Skip)
	require.NotNil(t, rec.Earning)
	require.NotNil(t, rec.Aggregate.Weekly)
	require.NotNil(t, rec.Aggregate.Monthly)
	require.NotNil(t, rec.Aggregate.Tracks)
}
