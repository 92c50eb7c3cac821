package services

import "sync"

// TrackStats is the popularity input for one track, fed from the external
// catalog service.
type TrackStats struct {
	StreamCount    int     `json:"stream_count"`
	ArtistEarnings float64 `json:"artist_earnings"`
}

// CatalogStore caches per-track popularity figures pushed by the catalog
// service. Unknown tracks read as zero, which leaves the popularity terms at
// their 1.0 floor.
type CatalogStore struct {
	mu     sync.RWMutex
	tracks map[string]TrackStats
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{tracks: make(map[string]TrackStats)}
}

// Put replaces the stats for a track.
func (c *CatalogStore) Put(trackID string, stats TrackStats) {
	if trackID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks[trackID] = stats
}

// TrackStats implements interfaces.CatalogInterface.
func (c *CatalogStore) TrackStats(trackID string) (int, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	stats := c.tracks[trackID]
	return stats.StreamCount, stats.ArtistEarnings
}

// Len reports how many tracks have known stats.
func (c *CatalogStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tracks)
}
