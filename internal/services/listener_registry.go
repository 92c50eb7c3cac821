package services

import "sync"

// ListenerRegistry tracks which track each user is actively listening to and
// answers concurrent-listener counts for the rate formula. It is fed from
// applied telemetry, so the rate calculator never depends on simulated
// numbers and never has to lock an engine.
type ListenerRegistry struct {
	mu      sync.RWMutex
	byTrack map[string]int
	byUser  map[string]string
}

func NewListenerRegistry() *ListenerRegistry {
	return &ListenerRegistry{
		byTrack: make(map[string]int),
		byUser:  make(map[string]string),
	}
}

// SetListening moves a user's live listen onto trackID.
func (r *ListenerRegistry) SetListening(userID, trackID string) {
	if userID == "" || trackID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked(userID)
	r.byUser[userID] = trackID
	r.byTrack[trackID]++
}

// ClearListening drops a user's live listen (pause, session end, eviction).
func (r *ListenerRegistry) ClearListening(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearLocked(userID)
}

func (r *ListenerRegistry) clearLocked(userID string) {
	track, ok := r.byUser[userID]
	if !ok {
		return
	}
	delete(r.byUser, userID)
	if n := r.byTrack[track]; n <= 1 {
		delete(r.byTrack, track)
	} else {
		r.byTrack[track] = n - 1
	}
}

// Listeners reports live concurrent listeners for a track.
func (r *ListenerRegistry) Listeners(trackID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byTrack[trackID]
}
