package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrd/internal/models"
	"lrd/internal/testutil"
)

func newTestEngine() (*Engine, *testutil.MockLogger) {
	conf := testutil.TestConfig()
	logger := &testutil.MockLogger{}
	rc := NewRateCalculator(conf.Engine.BaseRate, &testutil.StaticCatalog{}, &testutil.StaticListeners{})
	return New("u1", conf, logger, rc, nil), logger
}

func TestEngine_StartSession(t *testing.T) {
	e, _ := newTestEngine()
	now := time.Now()

	s := e.StartSession(now)
	require.NotNil(t, s)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, models.SessionActive, s.State)
	assert.True(t, e.Active())

	// starting again while live is a no-op
	again := e.StartSession(now.Add(time.Minute))
	assert.Equal(t, s.ID, again.ID)

	trust := e.TrustSnapshot()
	assert.Equal(t, 1, trust.SessionCount)
}

func TestEngine_TickAccrual(t *testing.T) {
	e, _ := newTestEngine()
	e.SetSubscription(true, 0)
	now := time.Now()

	e.StartSession(now)
	e.Tick(now.Add(10 * time.Minute))

	earning := e.EarningSnapshot()
	assert.InDelta(t, 1.0, earning.SessionEarned, 1e-9)
	assert.Equal(t, 0.1, earning.CurrentRate)

	s, live := e.SessionSnapshot()
	require.True(t, live)
	assert.InDelta(t, 1.0, s.ParaEarned, 1e-9)
	assert.InDelta(t, 0.001, s.XfgMined, 1e-9)
	assert.Equal(t, 10*time.Minute, s.Duration)
}

func TestEngine_TickWithoutSession(t *testing.T) {
	e, _ := newTestEngine()
	e.Tick(time.Now())
	assert.Equal(t, 0.0, e.EarningSnapshot().SessionEarned)
}

func TestEngine_NonPremiumEarnsNothing(t *testing.T) {
	e, _ := newTestEngine()
	now := time.Now()

	e.StartSession(now)
	e.Tick(now.Add(30 * time.Minute))

	assert.Equal(t, 0.0, e.EarningSnapshot().SessionEarned)
	s, _ := e.SessionSnapshot()
	assert.Equal(t, 0.0, s.XfgMined)
}

func TestEngine_PauseStopsAccrual(t *testing.T) {
	e, _ := newTestEngine()
	e.SetSubscription(true, 0)
	now := time.Now()

	e.StartSession(now)
	e.Pause(now.Add(5 * time.Minute))
	e.Tick(now.Add(10 * time.Minute))

	assert.InDelta(t, 0.5, e.EarningSnapshot().SessionEarned, 1e-9)
	s, _ := e.SessionSnapshot()
	assert.Equal(t, models.SessionPaused, s.State)
}

func TestEngine_ResumeKeepsEarnings(t *testing.T) {
	e, _ := newTestEngine()
	e.SetSubscription(true, 0)
	now := time.Now()

	e.StartSession(now)
	e.Pause(now.Add(5 * time.Minute))
	e.Resume(now.Add(6 * time.Minute))
	e.Tick(now.Add(11 * time.Minute))

	// 5 active minutes before the pause, 5 after
	assert.InDelta(t, 1.0, e.EarningSnapshot().SessionEarned, 1e-9)
}

func TestEngine_LongPauseCountsAsBreak(t *testing.T) {
	e, _ := newTestEngine()
	now := time.Now()

	e.StartSession(now)
	e.Pause(now.Add(5 * time.Minute))
	e.Resume(now.Add(12 * time.Minute))

	assert.Equal(t, 1, e.TrustSnapshot().BreakCount)
}

func TestEngine_EndSession(t *testing.T) {
	e, _ := newTestEngine()
	e.SetSubscription(true, 0)
	now := time.Now()

	e.StartSession(now)
	e.PlayTrack(now, "t1")
	ended := e.EndSession(now.Add(20 * time.Minute))

	require.NotNil(t, ended)
	assert.Equal(t, models.SessionEnded, ended.State)
	assert.InDelta(t, 2.0, ended.ParaEarned, 1e-9)
	assert.Equal(t, 100.0, ended.HumanScoreSnapshot)
	assert.False(t, e.Active())

	rec := e.Export()
	assert.InDelta(t, 2.0, rec.Aggregate.LifetimeEarned, 1e-9)
	assert.Equal(t, 1, rec.Aggregate.TotalSessions)
	require.Len(t, rec.SessionLog, 1)

	// no live session left to end
	assert.Nil(t, e.EndSession(now.Add(21*time.Minute)))
}

func TestEngine_MonotonicClamp(t *testing.T) {
	e, _ := newTestEngine()
	e.SetSubscription(true, 0)
	now := time.Now()

	e.StartSession(now)
	// a stale timestamp must never produce negative accrual
	e.Tick(now.Add(-time.Hour))
	assert.Equal(t, 0.0, e.EarningSnapshot().SessionEarned)

	e.Tick(now.Add(time.Minute))
	assert.InDelta(t, 0.1, e.EarningSnapshot().SessionEarned, 1e-9)
}

func TestEngine_BackgroundTicksDoNotMarkActivity(t *testing.T) {
	e, _ := newTestEngine()
	now := time.Now()

	e.StartSession(now)
	e.PlayTrack(now, "t1")
	e.EndSession(now.Add(time.Minute))
	last := e.LastEvent()

	e.Tick(now.Add(time.Hour))
	e.Maintenance(now.Add(time.Hour))
	assert.Equal(t, last, e.LastEvent())

	// an external event moves the clock again
	e.RecordInteraction(now.Add(2 * time.Hour))
	assert.Equal(t, now.Add(2*time.Hour), e.LastEvent())
}

func TestEngine_PlayTrack(t *testing.T) {
	e, _ := newTestEngine()
	now := time.Now()

	e.StartSession(now)
	e.PlayTrack(now, "t1")
	e.PlayTrack(now, "t2")
	e.PlayTrack(now, "t1")
	e.PlayTrack(now, "")

	s, _ := e.SessionSnapshot()
	assert.Equal(t, 3, s.TracksPlayed)
	assert.Equal(t, "t2", e.CurrentTrack())

	rec := e.Export()
	assert.Equal(t, uint64(2), rec.Aggregate.Tracks.Cardinality())
}

func TestEngine_SkipPenaltyLowersRate(t *testing.T) {
	e, _ := newTestEngine()
	e.SetSubscription(true, 0)
	now := time.Now()

	require.Equal(t, 0.1, e.CurrentRate())

	e.SkipTrack(now)
	assert.Equal(t, 0.9, e.SkipSnapshot().SkipPenaltyMultiplier)
	assert.Equal(t, 0.09, e.CurrentRate())

	e.SkipTrack(now)
	assert.Equal(t, 0.07, e.CurrentRate())
}

func TestEngine_MaintenanceResetsSkips(t *testing.T) {
	e, _ := newTestEngine()
	now := time.Now()

	e.SkipTrack(now)
	e.SkipTrack(now)
	require.Equal(t, 2, e.SkipSnapshot().DailySkips)

	e.Maintenance(now.Add(25 * time.Hour))
	assert.Equal(t, 0, e.SkipSnapshot().DailySkips)
	assert.Equal(t, 1.0, e.SkipSnapshot().SkipPenaltyMultiplier)
}

func TestEngine_RecordInteraction_BotTiming(t *testing.T) {
	e, logger := newTestEngine()
	now := time.Now()

	// perfectly regular sub-minute cadence
	for i := 0; i <= 12; i++ {
		e.RecordInteraction(now.Add(time.Duration(i) * 5 * time.Second))
	}

	trust := e.TrustSnapshot()
	assert.Less(t, trust.HumanScore, 100.0)

	var warned bool
	for _, entry := range logger.Entries() {
		if entry.Level == "warn" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestEngine_StakeAndPeerVerification(t *testing.T) {
	e, _ := newTestEngine()

	e.Stake(30)
	e.AddPeerVerification()

	trust := e.TrustSnapshot()
	assert.Equal(t, 30.0, trust.StakedAmount)
	assert.Equal(t, 1, trust.PeerVerifications)
	assert.Equal(t, 55.0, trust.ReputationScore)
}

func TestEngine_Proof(t *testing.T) {
	e, _ := newTestEngine()
	assert.NotEmpty(t, e.Proof(time.Now()))
}

func TestEngine_ExportImportRoundtrip(t *testing.T) {
	e, _ := newTestEngine()
	e.SetSubscription(true, 2)
	now := time.Now()

	e.StartSession(now)
	e.PlayTrack(now, "t1")
	e.SkipTrack(now)
	e.Stake(20)
	e.EndSession(now.Add(15 * time.Minute))

	rec := e.Export()

	restored, _ := newTestEngine()
	restored.Import(rec)

	assert.Equal(t, e.TrustSnapshot().StakedAmount, restored.TrustSnapshot().StakedAmount)
	assert.Equal(t, e.SkipSnapshot().DailySkips, restored.SkipSnapshot().DailySkips)
	assert.Equal(t, e.EarningSnapshot().SessionEarned, restored.EarningSnapshot().SessionEarned)

	out := restored.Export()
	assert.Equal(t, rec.Aggregate.LifetimeEarned, out.Aggregate.LifetimeEarned)
	assert.Equal(t, rec.Aggregate.StreakDays, out.Aggregate.StreakDays)
	require.Len(t, out.SessionLog, 1)
	assert.Equal(t, rec.SessionLog[0].ID, out.SessionLog[0].ID)
}

func TestEngine_ExportIsDeepCopy(t *testing.T) {
	e, _ := newTestEngine()
	now := time.Now()

	e.StartSession(now)
	e.PlayTrack(now, "t1")
	e.EndSession(now.Add(time.Minute))

	rec := e.Export()
	tracksBefore := rec.Aggregate.Tracks.Cardinality()

	// mutations after export must not leak into the snapshot
	e.StartSession(now.Add(2 * time.Minute))
	e.PlayTrack(now.Add(2*time.Minute), "t2")
	e.Stake(50)

	assert.Equal(t, tracksBefore, rec.Aggregate.Tracks.Cardinality())
	assert.Equal(t, 0.0, rec.Trust.StakedAmount)
}

func TestEngine_FromRecord(t *testing.T) {
	conf := testutil.TestConfig()
	logger := &testutil.MockLogger{}
	rc := NewRateCalculator(conf.Engine.BaseRate, &testutil.StaticCatalog{}, &testutil.StaticListeners{})

	rec := &models.UserRecord{
		Earning: &models.EarningState{SessionEarned: 12.5},
	}
	e := FromRecord("u2", rec, conf, logger, rc, nil)

	assert.Equal(t, "u2", e.UserID())
	assert.Equal(t, 12.5, e.EarningSnapshot().SessionEarned)
	// normalized sections come back with defaults
	assert.Equal(t, 100.0, e.TrustSnapshot().HumanScore)
}
