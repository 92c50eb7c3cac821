package storage

import (
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"lrd/internal/engine/interfaces"
	"lrd/internal/providers"
	"lrd/internal/services"
	"lrd/internal/structures"
)

// Scheduler drives the cooperative tick loops: a fast accrual tick that
// drains telemetry and accrues live sessions, a maintenance tick for daily
// window resets and idle eviction, and a snapshot tick for persistence.
type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	metrics     providers.MetricsProviderInterface
	service     services.RewardServiceInterface
	fileManager *FileManager
	cold        interfaces.ColdStorageInterface
	cron        *gron.Cron
	opsMu       sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	accrual := s.config.Engine.AccrualInterval
	maintenance := s.config.Engine.MaintenanceInterval
	save := s.config.Persistence.SaveInterval

	s.cron.AddFunc(gron.Every(accrual), func() {
		now := time.Now()
		s.service.DrainTelemetry(now)
		s.service.TickAll(now)
	})

	s.cron.AddFunc(gron.Every(maintenance), func() {
		now := time.Now()
		s.service.MaintainAll(now)
		s.service.EvictIdle(now)
	})

	s.cron.AddFunc(gron.Every(save), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		start := time.Now()
		if err := s.fileManager.SaveToFile(s.config.Persistence.FilePath); err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
			return
		}
		if err := s.cold.Flush(); err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while flushing cold storage: %s", err)
		}
		s.metrics.ObservePersistenceDuration(time.Since(start))
		s.logger.Debugf(providers.TypeApp, "Persisted snapshot to %s", s.config.Persistence.FilePath)
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	if err := s.cold.RestoreIndex(); err != nil {
		return err
	}
	return s.fileManager.LoadFromFile(s.config.Persistence.FilePath)
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting engine state to file...")
	if err := s.fileManager.SaveToFile(s.config.Persistence.FilePath); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting data: %s", err)
		return err
	}
	return s.cold.Close()
}

func NewScheduler(config *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, service services.RewardServiceInterface, fileManager *FileManager, cold interfaces.ColdStorageInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		metrics:     metrics,
		service:     service,
		fileManager: fileManager,
		cold:        cold,
	}
}
