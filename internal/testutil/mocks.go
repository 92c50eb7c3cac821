package testutil

import (
	"errors"
	"sync"
	"time"

	"lrd/internal/engine/interfaces"
	"lrd/internal/models"
	"lrd/internal/providers"
	"lrd/internal/structures"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Entries returns a copy of the recorded log entries.
func (m *MockLogger) Entries() []LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LogEntry, len(m.Logs))
	copy(out, m.Logs)
	return out
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu                sync.Mutex
	Requests          int
	CacheHits         int
	CacheMisses       int
	Persists          int
	ActiveSessions    int
	UsersTotal        int
	QueueDepth        int
	Events            map[string]int
	Claims            map[string]int
	SettlementRetries int
	Settlements       map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		Events:      make(map[string]int),
		Claims:      make(map[string]int),
		Settlements: make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}
func (m *MockMetrics) ObserveRequestDuration(string, time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}
func (m *MockMetrics) ObservePersistenceDuration(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persists++
}
func (m *MockMetrics) SetActiveSessions(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ActiveSessions = count
}
func (m *MockMetrics) SetUsersTotal(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UsersTotal = count
}
func (m *MockMetrics) SetTelemetryQueueDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QueueDepth = depth
}
func (m *MockMetrics) IncTelemetryEvents(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events[kind]++
}
func (m *MockMetrics) IncClaims(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Claims[outcome]++
}
func (m *MockMetrics) IncSettlementRetries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SettlementRetries++
}
func (m *MockMetrics) IncSettlementResults(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Settlements[status]++
}

// MockSettlement implements interfaces.SettlementInterface with injectable behavior.
type MockSettlement struct {
	mu       sync.Mutex
	SubmitFn func(amount float64, destination string) (string, error)
	Calls    []SettlementCall
}

type SettlementCall struct {
	Amount      float64
	Destination string
}

func (m *MockSettlement) Submit(amount float64, destination string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, SettlementCall{Amount: amount, Destination: destination})
	fn := m.SubmitFn
	m.mu.Unlock()
	if fn != nil {
		return fn(amount, destination)
	}
	return "tx-mock", nil
}

func (m *MockSettlement) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// StaticCatalog implements interfaces.CatalogInterface from a fixed table.
type StaticCatalog struct {
	Streams  map[string]int
	Earnings map[string]float64
}

func (c *StaticCatalog) TrackStats(trackID string) (int, float64) {
	return c.Streams[trackID], c.Earnings[trackID]
}

// StaticListeners implements interfaces.ListenerFeedInterface from a fixed table.
type StaticListeners struct {
	Counts map[string]int
}

func (l *StaticListeners) Listeners(trackID string) int {
	return l.Counts[trackID]
}

// MockColdStorage implements interfaces.ColdStorageInterface in memory.
type MockColdStorage struct {
	mu       sync.Mutex
	Records  map[string]*models.UserRecord
	Flushes  int
	FailNext bool
}

func NewMockColdStorage() *MockColdStorage {
	return &MockColdStorage{Records: make(map[string]*models.UserRecord)}
}

func (m *MockColdStorage) Has(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Records[userID]
	return ok
}

func (m *MockColdStorage) Evict(userID string, rec *models.UserRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records[userID] = rec
}

func (m *MockColdStorage) Restore(userID string) (*models.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		m.FailNext = false
		return nil, errors.New("cold storage unavailable")
	}
	rec, ok := m.Records[userID]
	if !ok {
		return nil, nil
	}
	delete(m.Records, userID)
	return rec, nil
}

func (m *MockColdStorage) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
	return nil
}

func (m *MockColdStorage) RestoreIndex() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext {
		m.FailNext = false
		return errors.New("cold storage unavailable")
	}
	return nil
}

func (m *MockColdStorage) Close() error { return m.Flush() }

var _ interfaces.ColdStorageInterface = (*MockColdStorage)(nil)

// TestConfig returns a config with the production engine defaults, suitable
// for constructing engines and services directly in tests.
func TestConfig() *structures.Config {
	return &structures.Config{
		AppName: "lrd-test",
		Engine: structures.EngineConfig{
			BaseRate:            0.1,
			AccrualInterval:     time.Second,
			MaintenanceInterval: time.Minute,
			DailyCap:            100,
			ClaimWindow:         24 * time.Hour,
			VerifyThreshold:     10,
			StakeMinimum:        10,
			StakeGateAmount:     50,
			SessionLogSize:      100,
			IdleTTL:             30 * time.Minute,
		},
		Settlement: structures.SettlementConfig{
			QueueSize:       16,
			MaxRetryElapsed: 200 * time.Millisecond,
		},
		Persistence: structures.Persistence{
			SaveInterval: 30 * time.Second,
		},
	}
}
