package storage

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"lrd/internal/engine/interfaces"
	"lrd/internal/models"
	"lrd/internal/providers"
	"lrd/internal/services"
)

// FileManager persists the full multi-user snapshot envelope as compressed
// JSON with an atomic tmp+rename write, and migrates legacy layouts on load.
type FileManager struct {
	service    services.RewardServiceInterface
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, service services.RewardServiceInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		service:    service,
		logger:     logger,
	}
}

func (f *FileManager) SaveToFile(fileName string) error {
	snapshot := f.service.Snapshot()

	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

func (f *FileManager) Close() {
	f.compressor.Close()
}

func (f *FileManager) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	// Current format: versioned multi-user envelope
	var snapshot models.StorageV2
	if err := json.Unmarshal(decompressedData, &snapshot); err == nil && snapshot.Users != nil {
		for userID, rec := range snapshot.Users {
			rec.Normalize()
			f.service.PutUserRecord(userID, rec)
		}
		return nil
	}

	// Legacy format: one flat user record at the top level
	f.logger.Warnf(providers.TypeApp, "Inconsistent snapshot found, try to migrate from old data format")
	var legacy models.UserRecord
	if err := json.Unmarshal(decompressedData, &legacy); err == nil &&
		(legacy.Trust != nil || legacy.Aggregate != nil) {
		legacy.Normalize()
		f.service.PutUserRecord("default", &legacy)
		f.logger.Warnf(providers.TypeApp, "Migration from single-user format successful")
		return nil
	}

	f.logger.Warnf(providers.TypeApp, "Migration failed")
	return fmt.Errorf("unrecognized snapshot format in %s", fileName)
}
