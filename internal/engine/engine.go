package engine

import (
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lrd/internal/models"
	"lrd/internal/providers"
	"lrd/internal/structures"
)

const maxClaimRecords = 50

// Engine is the per-user rewards actor. All state mutations for one user go
// through its mutex, giving the serialized tick-loop semantics the rest of
// the daemon relies on. Event timestamps are clamped monotonic to tolerate
// clock skew from the player.
type Engine struct {
	mu     sync.Mutex
	userID string
	conf   *structures.Config
	logger providers.Logger
	rate   *RateCalculator
	disp   *SettlementDispatcher

	trust      *models.TrustProfile
	skip       *models.SkipState
	earning    *models.EarningState
	agg        *models.HistoricalAggregate
	sessionLog []*models.Session

	session      *models.Session
	state        models.SessionState
	currentTrack string
	destination  string
	premium      bool
	cores        int

	claims     map[string]*ClaimRecord
	claimOrder []string
	challenge  *Challenge

	lastTick        time.Time
	lastInteraction time.Time
	pausedAt        time.Time
	lastEvent       time.Time
}

func New(userID string, conf *structures.Config, logger providers.Logger, rate *RateCalculator, disp *SettlementDispatcher) *Engine {
	now := time.Now()
	return &Engine{
		userID:  userID,
		conf:    conf,
		logger:  logger,
		rate:    rate,
		disp:    disp,
		trust:   models.NewTrustProfile(),
		skip:    models.NewSkipState(now),
		earning: models.NewEarningState(),
		agg:     models.NewHistoricalAggregate(),
		state:   models.SessionIdle,
		claims:  make(map[string]*ClaimRecord),
	}
}

// FromRecord rebuilds an engine from a persisted user record.
func FromRecord(userID string, rec *models.UserRecord, conf *structures.Config, logger providers.Logger, rate *RateCalculator, disp *SettlementDispatcher) *Engine {
	e := New(userID, conf, logger, rate, disp)
	e.importRecord(rec)
	return e
}

func (e *Engine) UserID() string {
	return e.userID
}

// clamp enforces monotonic non-decreasing time against the last external
// event. Scheduler-driven work uses it directly so background ticks never
// count as user activity and idle engines stay eligible for eviction.
func (e *Engine) clamp(now time.Time) time.Time {
	if now.Before(e.lastEvent) {
		return e.lastEvent
	}
	return now
}

// clampNow is clamp plus an activity mark; externally sourced operations
// (telemetry, claims, account changes) go through it.
func (e *Engine) clampNow(now time.Time) time.Time {
	now = e.clamp(now)
	e.lastEvent = now
	return now
}

// StartSession opens a new listening session. A second start while a session
// is live is a no-op returning the existing session.
func (e *Engine) StartSession(now time.Time) *models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	now = e.clampNow(now)

	if e.session != nil {
		return e.session
	}

	e.session = &models.Session{
		ID:        uuid.NewString(),
		StartTime: now,
		State:     models.SessionActive,
		IsPremium: e.premium,
	}
	e.state = models.SessionActive
	e.lastTick = now
	e.agg.RegisterSessionStart(now)
	e.trust.SessionCount++

	e.logger.Debugf(providers.TypeTelemetry, "user %s: session %s started (streak %d)", e.userID, e.session.ID, e.agg.StreakDays)
	return e.session
}

// Tick accrues earnings for the elapsed interval. Valid only while Active;
// a tick with no live session is a no-op.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickLocked(e.clamp(now))
}

func (e *Engine) tickLocked(now time.Time) {
	if e.session == nil || e.state != models.SessionActive {
		return
	}
	elapsed := now.Sub(e.lastTick)
	if elapsed <= 0 {
		return
	}
	e.lastTick = now

	rate := e.currentRateLocked()
	minutes := elapsed.Minutes()
	earned := rate * minutes

	e.session.ParaEarned += earned
	e.earning.SessionEarned += earned
	e.earning.ObserveRate(rate)
	if e.premium {
		e.session.XfgMined += rate * xfgMiningRatio * minutes
	}
	e.session.Duration = now.Sub(e.session.StartTime)
	e.trust.AddActiveTime(float64(elapsed.Milliseconds()))
}

// Pause suspends accrual and starts the natural-break timer.
func (e *Engine) Pause(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now = e.clampNow(now)

	if e.session == nil || e.state != models.SessionActive {
		return
	}
	e.tickLocked(now)
	e.state = models.SessionPaused
	e.session.State = models.SessionPaused
	e.pausedAt = now
}

// Resume re-enters Active without resetting accrued earnings. Long pauses
// credit the trust score as natural breaks.
func (e *Engine) Resume(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now = e.clampNow(now)

	if e.session == nil || e.state != models.SessionPaused {
		return
	}
	e.trust.RewardNaturalBreak(float64(now.Sub(e.pausedAt).Milliseconds()))
	e.state = models.SessionActive
	e.session.State = models.SessionActive
	e.lastTick = now
}

// EndSession finalizes the live session and rolls it into the aggregates.
// Returns nil when no session is live.
func (e *Engine) EndSession(now time.Time) *models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	now = e.clampNow(now)

	if e.session == nil {
		return nil
	}
	if e.state == models.SessionActive {
		e.tickLocked(now)
	}

	ended := e.session
	ended.Finalize(now, e.trust.HumanScore)
	e.agg.ApplySession(ended)
	e.sessionLog = models.AppendSession(e.sessionLog, ended, e.conf.Engine.SessionLogSize)

	e.session = nil
	e.state = models.SessionIdle

	e.logger.Debugf(providers.TypeTelemetry, "user %s: session %s ended, %.3f earned over %s", e.userID, ended.ID, ended.ParaEarned, ended.Duration)
	return ended
}

// RecordInteraction scores the gap since the previous interaction and runs
// bot-pattern detection over the recent window.
func (e *Engine) RecordInteraction(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now = e.clampNow(now)

	if !e.lastInteraction.IsZero() {
		interval := float64(now.Sub(e.lastInteraction).Milliseconds())
		e.trust.RecordInteraction(now, interval)
		if e.trust.DetectBotPattern(now) {
			e.logger.Warnf(providers.TypeTelemetry, "user %s: bot-like interaction timing, human score now %.0f", e.userID, e.trust.HumanScore)
		}
	}
	e.lastInteraction = now
}

// PlayTrack switches the current track and counts the play.
func (e *Engine) PlayTrack(now time.Time, trackID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clampNow(now)

	if trackID == "" {
		return
	}
	e.currentTrack = trackID
	if e.session != nil {
		e.session.TracksPlayed++
	}
	e.agg.AddTrack(trackKey(trackID))
}

// SkipTrack counts a skip against the daily penalty table.
func (e *Engine) SkipTrack(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now = e.clampNow(now)

	e.skip.MaybeResetDaily(now)
	e.skip.OnSkip(now)
}

func (e *Engine) SetSubscription(premium bool, cores int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.premium = premium
	if cores < 0 {
		cores = 0
	}
	e.cores = cores
	if e.session != nil {
		e.session.IsPremium = premium
	}
}

func (e *Engine) SetDestination(destination string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destination = destination
}

func (e *Engine) Stake(amount float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trust.Stake(amount)
}

func (e *Engine) AddPeerVerification() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trust.AddPeerVerification()
}

// Maintenance runs the window resets: skip penalties and the rolling daily
// earnings bucket. Called from the minute tick; idempotent within a window.
func (e *Engine) Maintenance(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now = e.clamp(now)

	if e.skip.MaybeResetDaily(now) {
		e.logger.Debugf(providers.TypeTelemetry, "user %s: daily skip penalty reset", e.userID)
	}
	e.earning.MaybeResetDailyEarnings(now, e.conf.Engine.ClaimWindow)
	if e.session != nil && e.state == models.SessionActive {
		e.earning.CurrentRate = e.currentRateLocked()
	}
}

func (e *Engine) currentRateLocked() float64 {
	return e.rate.Rate(e.currentTrack, e.trust.TrustTier(), e.skip.SkipPenaltyMultiplier, e.premium, e.cores)
}

// CurrentRate reports the instantaneous per-minute rate.
func (e *Engine) CurrentRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentRateLocked()
}

// RequestClaim runs the withdrawal gates in order and, when they pass, debits
// the session earnings and enqueues async settlement. Internal bookkeeping is
// not rolled back if settlement later fails; the claim stays visible as
// failed for reconciliation.
func (e *Engine) RequestClaim(now time.Time) ClaimResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requestClaimLocked(e.clampNow(now))
}

func (e *Engine) requestClaimLocked(now time.Time) ClaimResult {
	amount := e.earning.SessionEarned
	cfg := &e.conf.Engine

	if e.destination == "" {
		return ClaimResult{Outcome: OutcomeNoDestination}
	}
	if !e.earning.LastClaimTime.IsZero() &&
		now.Sub(e.earning.LastClaimTime) < cfg.ClaimWindow &&
		e.earning.DailyEarnings >= cfg.DailyCap {
		return ClaimResult{Outcome: OutcomeCapReached}
	}
	if amount+e.earning.DailyEarnings > cfg.VerifyThreshold &&
		(e.trust.HumanScore < 70 || e.trust.ReputationScore < 50) {
		ch := pickChallenge()
		e.challenge = &ch
		return ClaimResult{Outcome: OutcomeNeedsVerification, Challenge: ch.Question}
	}
	if amount > cfg.StakeGateAmount && e.trust.StakedAmount < cfg.StakeMinimum {
		return ClaimResult{Outcome: OutcomeInsufficientStake}
	}

	if amount <= 0 {
		return ClaimResult{Outcome: OutcomeOk}
	}

	claimID := uuid.NewString()
	e.earning.SessionEarned = 0
	e.earning.DailyEarnings += amount
	e.earning.LastClaimTime = now
	e.earning.TotalClaims++

	rec := &ClaimRecord{
		ID:          claimID,
		Amount:      amount,
		Destination: e.destination,
		Status:      ClaimPending,
		RequestedAt: now,
	}
	e.trackClaim(rec)

	if e.disp != nil {
		if !e.disp.Enqueue(SettlementRequest{
			UserID:      e.userID,
			ClaimID:     claimID,
			Amount:      amount,
			Destination: e.destination,
		}) {
			e.logger.Warnf(providers.TypeClaim, "user %s: settlement queue full, claim %s left pending", e.userID, claimID)
		}
	}

	e.logger.Infof(providers.TypeClaim, "user %s: claim %s accepted for %.3f", e.userID, claimID, amount)
	return ClaimResult{Outcome: OutcomeOk, ClaimID: claimID, Amount: amount}
}

func (e *Engine) trackClaim(rec *ClaimRecord) {
	e.claims[rec.ID] = rec
	e.claimOrder = append(e.claimOrder, rec.ID)
	if len(e.claimOrder) > maxClaimRecords {
		delete(e.claims, e.claimOrder[0])
		e.claimOrder = append(e.claimOrder[:0], e.claimOrder[1:]...)
	}
}

// AnswerChallenge resolves a pending verification challenge. A correct
// answer restores trust and retries the claim; a wrong one costs trust and
// aborts.
func (e *Engine) AnswerChallenge(now time.Time, answer string) ClaimResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	now = e.clampNow(now)

	if e.challenge == nil {
		return ClaimResult{Outcome: OutcomeNoChallenge}
	}
	expected := e.challenge.Answer
	e.challenge = nil

	if strings.EqualFold(strings.TrimSpace(answer), expected) {
		e.trust.HumanScore = clamp100(e.trust.HumanScore + 20)
		return e.requestClaimLocked(now)
	}
	e.trust.HumanScore = clamp100(e.trust.HumanScore - 10)
	e.logger.Warnf(providers.TypeClaim, "user %s: wrong challenge answer, human score now %.0f", e.userID, e.trust.HumanScore)
	return ClaimResult{Outcome: OutcomeNeedsVerification}
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ResolveClaim records the settlement result for an accepted claim.
func (e *Engine) ResolveClaim(claimID, txID string, settleErr error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.claims[claimID]
	if !ok {
		return
	}
	if settleErr != nil {
		rec.Status = ClaimFailed
		e.logger.Errorf(providers.TypeClaim, "user %s: claim %s settlement failed: %s", e.userID, claimID, settleErr)
		return
	}
	rec.Status = ClaimConfirmed
	rec.TxID = txID
}

// Claim returns the tracked record for a claim ID.
func (e *Engine) Claim(claimID string) (ClaimRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.claims[claimID]
	if !ok {
		return ClaimRecord{}, false
	}
	return *rec, true
}

// CurrentTrack returns the track the user last played.
func (e *Engine) CurrentTrack() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTrack
}

// Active reports whether a session is live (active or paused).
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// LastEvent is the most recent clamped event time, used for idle eviction.
func (e *Engine) LastEvent() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastEvent
}

// Proof issues the current proof-of-humanity display token.
func (e *Engine) Proof(now time.Time) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trust.GenerateBehavioralSignature()
	return e.trust.GenerateProofOfHumanity(now)
}

// TrustSnapshot returns a copy of the trust profile.
func (e *Engine) TrustSnapshot() models.TrustProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := *e.trust
	t.Samples = append([]models.IntervalSample(nil), e.trust.Samples...)
	return t
}

// EarningSnapshot returns a copy of the earning state.
func (e *Engine) EarningSnapshot() models.EarningState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.earning
}

// SkipSnapshot returns a copy of the skip state.
func (e *Engine) SkipSnapshot() models.SkipState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.skip
}

// SessionSnapshot returns a copy of the live session, if any.
func (e *Engine) SessionSnapshot() (models.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return models.Session{}, false
	}
	return *e.session, true
}

// Export builds a deep copy of the persisted user record.
func (e *Engine) Export() *models.UserRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exportLocked()
}

func (e *Engine) exportLocked() *models.UserRecord {
	trust := *e.trust
	trust.Samples = append([]models.IntervalSample(nil), e.trust.Samples...)
	skip := *e.skip
	earning := *e.earning

	agg := *e.agg
	agg.Weekly = make(map[string]*models.PeriodBucket, len(e.agg.Weekly))
	for k, v := range e.agg.Weekly {
		b := *v
		agg.Weekly[k] = &b
	}
	agg.Monthly = make(map[string]*models.MonthlyBucket, len(e.agg.Monthly))
	for k, v := range e.agg.Monthly {
		b := *v
		agg.Monthly[k] = &b
	}
	agg.Tracks = e.agg.Tracks.Clone()

	log := make([]*models.Session, len(e.sessionLog))
	for i, s := range e.sessionLog {
		c := *s
		log[i] = &c
	}

	return &models.UserRecord{
		Trust:      &trust,
		Skip:       &skip,
		Earning:    &earning,
		Aggregate:  &agg,
		SessionLog: log,
	}
}

// Import replaces the persisted sections of engine state from a record.
// The live session handle, subscription and destination are untouched.
func (e *Engine) Import(rec *models.UserRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.importRecord(rec)
}

func (e *Engine) importRecord(rec *models.UserRecord) {
	if rec == nil {
		return
	}
	rec.Normalize()
	e.trust = rec.Trust
	e.skip = rec.Skip
	e.earning = rec.Earning
	e.agg = rec.Aggregate
	e.sessionLog = rec.SessionLog
}

func trackKey(trackID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(trackID))
	return h.Sum32()
}
