package models

import "time"

// Telemetry event kinds emitted by a player front end.
const (
	EventPlay        = "play"
	EventPause       = "pause"
	EventResume      = "resume"
	EventSkip        = "skip"
	EventInteraction = "interaction"
	EventTrack       = "track"
	EventEnd         = "end"
)

// TelemetryEvent is one queued player event. Events are applied strictly in
// arrival order per user; timestamps are clamped monotonic by the engine.
type TelemetryEvent struct {
	UserID  string    `json:"u"`
	Kind    string    `json:"k"`
	TrackID string    `json:"t,omitempty"`
	At      time.Time `json:"at"`
}
