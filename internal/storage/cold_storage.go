package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lrd/internal/engine/interfaces"
	"lrd/internal/models"
	"lrd/internal/providers"
	"lrd/internal/structures"
)

const coldShards = 16

// coldEntry is a single parked user record.
type coldEntry struct {
	record    *models.UserRecord
	evictedAt time.Time
}

// ColdStorage parks idle user records in sharded, compressed binary files.
// Evict and Restore only touch in-memory maps; disk I/O happens on Flush and
// lazily on the first Restore per shard.
type ColdStorage struct {
	mu         sync.RWMutex
	dir        string
	ttl        time.Duration
	compressor interfaces.CompressorInterface
	logger     providers.Logger

	index    map[string]struct{}          // users known to be cold
	pending  map[string]*coldEntry        // evicted, not yet flushed
	restored map[string]struct{}          // restored, lazy-delete on flush
	loaded   map[uint32]map[string]*coldEntry // shard → cached file contents
	dirty    map[uint32]struct{}
}

// NewColdStorage builds cold storage under conf.Engine.ColdStorageDir. An
// empty dir disables parking entirely (noop implementation).
func NewColdStorage(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) interfaces.ColdStorageInterface {
	if conf.Engine.ColdStorageDir == "" {
		logger.Infof(providers.TypeApp, "Cold storage disabled")
		return &noopColdStorage{}
	}
	return &ColdStorage{
		dir:        conf.Engine.ColdStorageDir,
		ttl:        conf.Engine.IdleTTL * 48,
		compressor: compressor,
		logger:     logger,
		index:      make(map[string]struct{}),
		pending:    make(map[string]*coldEntry),
		restored:   make(map[string]struct{}),
		loaded:     make(map[uint32]map[string]*coldEntry),
		dirty:      make(map[uint32]struct{}),
	}
}

func coldShard(userID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return h.Sum32() % coldShards
}

func (cs *ColdStorage) shardPath(shard uint32) string {
	return filepath.Join(cs.dir, fmt.Sprintf("cold-%02d.dat", shard))
}

// Has checks the index without touching disk.
func (cs *ColdStorage) Has(userID string) bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	_, ok := cs.index[userID]
	return ok
}

// Evict buffers a record for the next flush.
func (cs *ColdStorage) Evict(userID string, rec *models.UserRecord) {
	if userID == "" || rec == nil {
		return
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.pending[userID] = &coldEntry{record: rec, evictedAt: time.Now()}
	cs.index[userID] = struct{}{}
	delete(cs.restored, userID)
	cs.dirty[coldShard(userID)] = struct{}{}
}

// Restore pulls a record back out, loading the shard file on first access.
func (cs *ColdStorage) Restore(userID string) (*models.UserRecord, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if entry, ok := cs.pending[userID]; ok {
		delete(cs.pending, userID)
		delete(cs.index, userID)
		return entry.record, nil
	}

	shard := coldShard(userID)
	entries, ok := cs.loaded[shard]
	if !ok {
		var err error
		entries, err = cs.loadShard(shard)
		if err != nil {
			return nil, err
		}
		cs.loaded[shard] = entries
	}

	entry, ok := entries[userID]
	if !ok {
		delete(cs.index, userID)
		return nil, fmt.Errorf("user %s not found in cold storage", userID)
	}

	cs.restored[userID] = struct{}{}
	cs.dirty[shard] = struct{}{}
	delete(cs.index, userID)
	return entry.record, nil
}

// Flush merges pending entries into their shard files, dropping restored and
// expired entries, and rewrites only dirty shards.
func (cs *ColdStorage) Flush() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if len(cs.dirty) == 0 {
		return nil
	}

	if err := os.MkdirAll(cs.dir, 0o755); err != nil {
		return err
	}

	cutoff := time.Now().Add(-cs.ttl)
	for shard := range cs.dirty {
		entries, ok := cs.loaded[shard]
		if !ok {
			var err error
			entries, err = cs.loadShard(shard)
			if err != nil {
				cs.logger.Errorf(providers.TypeApp, "cold shard %02d unreadable, rebuilding: %s", shard, err)
				entries = make(map[string]*coldEntry)
			}
			cs.loaded[shard] = entries
		}

		for userID, entry := range cs.pending {
			if coldShard(userID) == shard {
				entries[userID] = entry
				delete(cs.pending, userID)
			}
		}
		for userID := range cs.restored {
			if coldShard(userID) == shard {
				delete(entries, userID)
				delete(cs.restored, userID)
			}
		}
		if cs.ttl > 0 {
			for userID, entry := range entries {
				if entry.evictedAt.Before(cutoff) {
					delete(entries, userID)
					delete(cs.index, userID)
				}
			}
		}

		if err := cs.writeShard(shard, entries); err != nil {
			return err
		}
		delete(cs.dirty, shard)
	}
	return nil
}

// RestoreIndex scans the shard files on boot and rebuilds the user index.
func (cs *ColdStorage) RestoreIndex() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for shard := uint32(0); shard < coldShards; shard++ {
		entries, err := cs.loadShard(shard)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			continue
		}
		for userID := range entries {
			cs.index[userID] = struct{}{}
		}
		cs.loaded[shard] = entries
	}
	cs.logger.Infof(providers.TypeApp, "Cold storage index restored: %d users", len(cs.index))
	return nil
}

func (cs *ColdStorage) Close() error {
	return cs.Flush()
}

func (cs *ColdStorage) loadShard(shard uint32) (map[string]*coldEntry, error) {
	raw, err := os.ReadFile(cs.shardPath(shard))
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*coldEntry), nil
		}
		return nil, err
	}
	data, err := cs.compressor.Decompress(raw)
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(data)
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	entries := make(map[string]*coldEntry, count)
	for i := uint32(0); i < count; i++ {
		var idLen uint16
		if err := binary.Read(r, binary.LittleEndian, &idLen); err != nil {
			return nil, err
		}
		idBuf := make([]byte, idLen)
		if _, err := io.ReadFull(r, idBuf); err != nil {
			return nil, err
		}
		var evictedAt int64
		if err := binary.Read(r, binary.LittleEndian, &evictedAt); err != nil {
			return nil, err
		}
		rec, err := models.ReadUserRecord(r)
		if err != nil {
			return nil, err
		}
		entries[string(idBuf)] = &coldEntry{
			record:    rec,
			evictedAt: time.UnixMilli(evictedAt).UTC(),
		}
	}
	return entries, nil
}

func (cs *ColdStorage) writeShard(shard uint32, entries map[string]*coldEntry) error {
	path := cs.shardPath(shard)
	if len(entries) == 0 {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(entries))); err != nil {
		return err
	}
	for userID, entry := range entries {
		if err := binary.Write(&buf, binary.LittleEndian, uint16(len(userID))); err != nil {
			return err
		}
		buf.WriteString(userID)
		if err := binary.Write(&buf, binary.LittleEndian, entry.evictedAt.UnixMilli()); err != nil {
			return err
		}
		if err := models.WriteUserRecord(&buf, entry.record); err != nil {
			return err
		}
	}

	data, err := cs.compressor.Compress(buf.Bytes())
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

type noopColdStorage struct{}

func (n *noopColdStorage) Has(string) bool                                 { return false }
func (n *noopColdStorage) Evict(string, *models.UserRecord)                {}
func (n *noopColdStorage) Restore(string) (*models.UserRecord, error)      { return nil, fmt.Errorf("cold storage disabled") }
func (n *noopColdStorage) Flush() error                                    { return nil }
func (n *noopColdStorage) RestoreIndex() error                             { return nil }
func (n *noopColdStorage) Close() error                                    { return nil }
