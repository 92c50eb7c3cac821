package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrd/internal/engine"
	"lrd/internal/models"
	"lrd/internal/services"
	"lrd/internal/testutil"
)

func newTestService() services.RewardServiceInterface {
	conf := testutil.TestConfig()
	logger := &testutil.MockLogger{}
	registry := services.NewListenerRegistry()
	rate := engine.NewRateCalculator(conf.Engine.BaseRate, services.NewCatalogStore(), registry)
	return services.NewRewardService(conf, logger, testutil.NewMockMetrics(), rate, nil, testutil.NewMockColdStorage(), registry)
}

func newFileManager(service services.RewardServiceInterface) *FileManager {
	return NewFileManager(&testutil.MockCompressor{}, service, &testutil.MockLogger{})
}

func seedUser(service services.RewardServiceInterface, userID string) {
	now := time.Now()
	eng := service.Engine(userID)
	eng.SetSubscription(true, 0)
	eng.StartSession(now)
	eng.PlayTrack(now, "t1")
	eng.EndSession(now.Add(10 * time.Minute))
}

func TestFileManager_SaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lrd.dat")

	source := newTestService()
	seedUser(source, "u1")
	seedUser(source, "u2")
	require.NoError(t, newFileManager(source).SaveToFile(path))

	target := newTestService()
	require.NoError(t, newFileManager(target).LoadFromFile(path))

	assert.Len(t, target.Users(), 2)
	rec, ok := target.ExportUser("u1")
	require.True(t, ok)
	assert.Equal(t, 1, rec.Aggregate.TotalSessions)
	assert.InDelta(t, 1.0, rec.Aggregate.LifetimeEarned, 1e-9)
	require.Len(t, rec.SessionLog, 1)
}

func TestFileManager_SaveIsAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lrd.dat")
	service := newTestService()
	seedUser(service, "u1")

	require.NoError(t, newFileManager(service).SaveToFile(path))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileManager_LoadMissingFile(t *testing.T) {
	fm := newFileManager(newTestService())
	assert.NoError(t, fm.LoadFromFile(filepath.Join(t.TempDir(), "absent.dat")))
}

func TestFileManager_LoadLegacySingleUser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.dat")

	legacy := &models.UserRecord{
		Trust:   models.NewTrustProfile(),
		Earning: &models.EarningState{SessionEarned: 4.2},
	}
	legacy.Normalize()
	raw, err := json.Marshal(legacy)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	target := newTestService()
	require.NoError(t, newFileManager(target).LoadFromFile(path))

	rec, ok := target.ExportUser("default")
	require.True(t, ok)
	assert.Equal(t, 4.2, rec.Earning.SessionEarned)
}

func TestFileManager_LoadUnrecognizedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.dat")
	require.NoError(t, os.WriteFile(path, []byte(`{"foo": 1}`), 0o644))

	fm := newFileManager(newTestService())
	assert.Error(t, fm.LoadFromFile(path))
}

func TestFileManager_LoadCorruptCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.dat")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	compressor, err := NewZstdCompressor()
	require.NoError(t, err)
	defer compressor.Close()

	fm := NewFileManager(compressor, newTestService(), &testutil.MockLogger{})
	assert.Error(t, fm.LoadFromFile(path))
}

func TestFileManager_RealCompressorRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lrd.zst")

	compressor, err := NewZstdCompressor()
	require.NoError(t, err)
	defer compressor.Close()

	source := newTestService()
	seedUser(source, "u1")
	require.NoError(t, NewFileManager(compressor, source, &testutil.MockLogger{}).SaveToFile(path))

	target := newTestService()
	require.NoError(t, NewFileManager(compressor, target, &testutil.MockLogger{}).LoadFromFile(path))
	_, ok := target.ExportUser("u1")
	assert.True(t, ok)
}
