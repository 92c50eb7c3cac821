package interfaces

import "lrd/internal/models"

// SchedulerInterface drives the cooperative tick loops and owns snapshot
// restore/persist at the process boundary.
type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
}

type CompressorInterface interface {
	Compress(val []byte) ([]byte, error)
	Decompress(val []byte) ([]byte, error)
	Close()
}

// SettlementInterface is the external ledger client. Submission is
// fire-and-forget-with-retry; success is only assumed once Submit returns a
// transaction ID.
type SettlementInterface interface {
	Submit(amount float64, destination string) (txID string, err error)
}

// CatalogInterface supplies popularity inputs for the rate formula.
type CatalogInterface interface {
	TrackStats(trackID string) (streamCount int, artistEarnings float64)
}

// ListenerFeedInterface reports live concurrent listeners for a track. Real
// deployments back this with telemetry; tests use a static feed.
type ListenerFeedInterface interface {
	Listeners(trackID string) int
}

// ColdStorageInterface parks idle user records outside the hot registry.
type ColdStorageInterface interface {
	Has(userID string) bool
	Evict(userID string, rec *models.UserRecord)
	Restore(userID string) (*models.UserRecord, error)
	Flush() error
	RestoreIndex() error
	Close() error
}
