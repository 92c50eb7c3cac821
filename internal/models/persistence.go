package models

// UserRecord is the full persisted state for one user.
type UserRecord struct {
	Trust      *TrustProfile        `json:"trust"`
	Skip       *SkipState           `json:"skip"`
	Earning    *EarningState        `json:"earning"`
	Aggregate  *HistoricalAggregate `json:"aggregate"`
	SessionLog []*Session           `json:"session_log,omitempty"`
}

// StorageV2 is the current snapshot envelope with an explicit version field.
// V1 files carried a single flat UserRecord; they load under the "default"
// user key.
type StorageV2 struct {
	Version int                    `json:"version"`
	Users   map[string]*UserRecord `json:"users"`
}

const StorageVersion = 2

// Normalize fills nil sections so loaded records are safe to use directly.
func (r *UserRecord) Normalize() {
	if r.Trust == nil {
		r.Trust = NewTrustProfile()
	}
	if r.Skip == nil {
		r.Skip = &SkipState{SkipPenaltyMultiplier: 1.0}
	}
	if r.Earning == nil {
		r.Earning = NewEarningState()
	}
	if r.Aggregate == nil {
		r.Aggregate = NewHistoricalAggregate()
	}
	if r.Aggregate.Weekly == nil {
		r.Aggregate.Weekly = make(map[string]*PeriodBucket)
	}
	if r.Aggregate.Monthly == nil {
		r.Aggregate.Monthly = make(map[string]*MonthlyBucket)
	}
	if r.Aggregate.Tracks == nil {
		r.Aggregate.Tracks = NewTrackSet()
	}
}
