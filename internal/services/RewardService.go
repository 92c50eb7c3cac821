package services

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"lrd/internal/engine"
	"lrd/internal/engine/interfaces"
	"lrd/internal/models"
	"lrd/internal/providers"
	"lrd/internal/structures"
)

type RewardServiceInterface interface {
	AddEvent(ev *models.TelemetryEvent)
	QueueDepth() int
	DrainTelemetry(now time.Time)
	TickAll(now time.Time)
	MaintainAll(now time.Time)
	EvictIdle(now time.Time)
	Engine(userID string) *engine.Engine
	Lookup(userID string) (*engine.Engine, bool)
	Users() []string
	ActiveSessions() int
	Snapshot() *models.StorageV2
	PutUserRecord(userID string, rec *models.UserRecord)
	ExportUser(userID string) (*models.UserRecord, bool)
	ImportUser(userID string, rec *models.UserRecord)
}

// RewardService owns the per-user engine registry and the telemetry queue.
// Incoming events land in the active buffer and are applied strictly in
// arrival order by the accrual tick, so HTTP handlers never mutate engine
// state directly.
type RewardService struct {
	conf    *structures.Config
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	rate    *engine.RateCalculator
	disp    *engine.SettlementDispatcher
	cold    interfaces.ColdStorageInterface
	tracks  *ListenerRegistry

	mu      sync.RWMutex
	engines map[string]*engine.Engine

	bufMu      sync.Mutex
	buf1Active atomic.Bool
	buffer1    []*models.TelemetryEvent
	buffer2    []*models.TelemetryEvent
}

func NewRewardService(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, rate *engine.RateCalculator, disp *engine.SettlementDispatcher, cold interfaces.ColdStorageInterface, tracks *ListenerRegistry) RewardServiceInterface {
	s := &RewardService{
		conf:    conf,
		logger:  logger,
		metrics: metrics,
		rate:    rate,
		disp:    disp,
		cold:    cold,
		tracks:  tracks,
		engines: make(map[string]*engine.Engine),
		buffer1: make([]*models.TelemetryEvent, 0),
		buffer2: make([]*models.TelemetryEvent, 0),
	}
	s.buf1Active.Store(true)
	if disp != nil {
		disp.SetResultFunc(s.resolveClaim)
	}
	return s
}

// AddEvent queues one telemetry event for the next accrual tick.
func (s *RewardService) AddEvent(ev *models.TelemetryEvent) {
	if ev == nil || ev.UserID == "" {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	if s.buf1Active.Load() {
		s.buffer1 = append(s.buffer1, ev)
	} else {
		s.buffer2 = append(s.buffer2, ev)
	}
}

func (s *RewardService) QueueDepth() int {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	if s.buf1Active.Load() {
		return len(s.buffer1)
	}
	return len(s.buffer2)
}

// swapBuffers flips the active buffer and returns the drained one.
func (s *RewardService) swapBuffers() []*models.TelemetryEvent {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	var drained []*models.TelemetryEvent
	if s.buf1Active.Load() {
		drained = s.buffer1
		s.buffer1 = make([]*models.TelemetryEvent, 0)
	} else {
		drained = s.buffer2
		s.buffer2 = make([]*models.TelemetryEvent, 0)
	}
	s.buf1Active.Store(!s.buf1Active.Load())
	return drained
}

// DrainTelemetry applies queued events in arrival order.
func (s *RewardService) DrainTelemetry(now time.Time) {
	events := s.swapBuffers()
	for _, ev := range events {
		s.applyEvent(ev)
	}
	s.metrics.SetTelemetryQueueDepth(s.QueueDepth())
}

func (s *RewardService) applyEvent(ev *models.TelemetryEvent) {
	eng := s.Engine(ev.UserID)
	s.metrics.IncTelemetryEvents(ev.Kind)

	switch ev.Kind {
	case models.EventPlay:
		eng.StartSession(ev.At)
		if ev.TrackID != "" {
			eng.PlayTrack(ev.At, ev.TrackID)
			s.tracks.SetListening(ev.UserID, ev.TrackID)
		}
	case models.EventTrack:
		eng.PlayTrack(ev.At, ev.TrackID)
		if eng.Active() {
			s.tracks.SetListening(ev.UserID, ev.TrackID)
		}
	case models.EventPause:
		eng.Pause(ev.At)
		s.tracks.ClearListening(ev.UserID)
	case models.EventResume:
		eng.Resume(ev.At)
		if track := eng.CurrentTrack(); track != "" {
			s.tracks.SetListening(ev.UserID, track)
		}
	case models.EventSkip:
		eng.SkipTrack(ev.At)
	case models.EventInteraction:
		eng.RecordInteraction(ev.At)
	case models.EventEnd:
		eng.EndSession(ev.At)
		s.tracks.ClearListening(ev.UserID)
	default:
		s.logger.Warnf(providers.TypeTelemetry, "user %s: dropping unknown event kind %q", ev.UserID, ev.Kind)
	}
}

// TickAll accrues earnings on every live session and refreshes gauges.
func (s *RewardService) TickAll(now time.Time) {
	s.mu.RLock()
	engines := make([]*engine.Engine, 0, len(s.engines))
	for _, e := range s.engines {
		engines = append(engines, e)
	}
	s.mu.RUnlock()

	active := 0
	for _, e := range engines {
		e.Tick(now)
		if e.Active() {
			active++
		}
	}
	s.metrics.SetActiveSessions(active)
	s.metrics.SetUsersTotal(len(engines))
}

// MaintainAll runs the daily-window resets on every engine.
func (s *RewardService) MaintainAll(now time.Time) {
	s.mu.RLock()
	engines := make([]*engine.Engine, 0, len(s.engines))
	for _, e := range s.engines {
		engines = append(engines, e)
	}
	s.mu.RUnlock()

	for _, e := range engines {
		e.Maintenance(now)
	}
}

// EvictIdle parks engines with no live session and no recent events into
// cold storage.
func (s *RewardService) EvictIdle(now time.Time) {
	ttl := s.conf.Engine.IdleTTL
	if ttl <= 0 || s.cold == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, e := range s.engines {
		if e.Active() {
			continue
		}
		last := e.LastEvent()
		if last.IsZero() || now.Sub(last) < ttl {
			continue
		}
		s.cold.Evict(userID, e.Export())
		delete(s.engines, userID)
		s.tracks.ClearListening(userID)
		s.logger.Debugf(providers.TypeApp, "user %s: evicted to cold storage after %s idle", userID, now.Sub(last))
	}
}

// Engine returns the engine for a user, restoring from cold storage or
// creating a fresh one as needed.
func (s *RewardService) Engine(userID string) *engine.Engine {
	s.mu.RLock()
	e, ok := s.engines[userID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[userID]; ok {
		return e
	}

	if s.cold != nil && s.cold.Has(userID) {
		rec, err := s.cold.Restore(userID)
		if err != nil {
			s.logger.Errorf(providers.TypeApp, "user %s: cold restore failed, starting fresh: %s", userID, err)
		} else {
			e = engine.FromRecord(userID, rec, s.conf, s.logger, s.rate, s.disp)
			s.engines[userID] = e
			return e
		}
	}

	e = engine.New(userID, s.conf, s.logger, s.rate, s.disp)
	s.engines[userID] = e
	return e
}

func (s *RewardService) Lookup(userID string) (*engine.Engine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.engines[userID]
	return e, ok
}

func (s *RewardService) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]string, 0, len(s.engines))
	for userID := range s.engines {
		users = append(users, userID)
	}
	return users
}

func (s *RewardService) ActiveSessions() int {
	s.mu.RLock()
	engines := make([]*engine.Engine, 0, len(s.engines))
	for _, e := range s.engines {
		engines = append(engines, e)
	}
	s.mu.RUnlock()

	active := 0
	for _, e := range engines {
		if e.Active() {
			active++
		}
	}
	return active
}

// Snapshot builds the full-state persistence envelope.
func (s *RewardService) Snapshot() *models.StorageV2 {
	s.mu.RLock()
	engines := make(map[string]*engine.Engine, len(s.engines))
	for userID, e := range s.engines {
		engines[userID] = e
	}
	s.mu.RUnlock()

	snap := &models.StorageV2{
		Version: models.StorageVersion,
		Users:   make(map[string]*models.UserRecord, len(engines)),
	}
	for userID, e := range engines {
		snap.Users[userID] = e.Export()
	}
	return snap
}

// PutUserRecord installs a restored record, replacing any resident engine.
func (s *RewardService) PutUserRecord(userID string, rec *models.UserRecord) {
	if userID == "" || rec == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engines[userID] = engine.FromRecord(userID, rec, s.conf, s.logger, s.rate, s.disp)
}

func (s *RewardService) ExportUser(userID string) (*models.UserRecord, bool) {
	e, ok := s.Lookup(userID)
	if !ok {
		return nil, false
	}
	return e.Export(), true
}

func (s *RewardService) ImportUser(userID string, rec *models.UserRecord) {
	if rec == nil {
		return
	}
	s.Engine(userID).Import(rec)
}

func (s *RewardService) resolveClaim(userID, claimID, txID string, err error) {
	e, ok := s.Lookup(userID)
	if !ok {
		s.logger.Warnf(providers.TypeClaim, "user %s: settlement result for %s arrived after eviction", userID, claimID)
		return
	}
	e.ResolveClaim(claimID, txID, err)
}
