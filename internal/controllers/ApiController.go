package controllers

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"

	"lrd/internal/models"
	"lrd/internal/providers"
	"lrd/internal/services"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger  providers.Logger
	service services.RewardServiceInterface
	cache   providers.CacheProviderInterface
	catalog *services.CatalogStore
	metrics providers.MetricsProviderInterface
}

func NewApiController(logger providers.Logger, service services.RewardServiceInterface, cache providers.CacheProviderInterface, catalog *services.CatalogStore, metrics providers.MetricsProviderInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		cache:   cache,
		catalog: catalog,
		metrics: metrics,
	}
}

func getUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	u := r.URL.Query().Get("u")
	if u == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return "", false
	}
	return u, true
}

func writeJSON(w http.ResponseWriter, v any) {
	gson, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

type telemetryPayload struct {
	UserID  string `json:"u"`
	Kind    string `json:"k"`
	TrackID string `json:"t,omitempty"`
	At      any    `json:"at,omitempty"`
}

// parseEventTime accepts RFC3339 strings or unix timestamps; values beyond
// the year 33658 in seconds are treated as milliseconds.
func parseEventTime(v any) time.Time {
	switch ts := v.(type) {
	case nil:
		return time.Now()
	case float64:
		if ts > 1e12 {
			return time.UnixMilli(int64(ts))
		}
		return time.Unix(int64(ts), 0)
	default:
		t := cast.ToTime(v)
		if t.IsZero() {
			return time.Now()
		}
		return t
	}
}

// ReceiveTelemetry queues one player event for the accrual tick.
func (ac *ApiController) ReceiveTelemetry(w http.ResponseWriter, r *http.Request) {
	var payload telemetryPayload
	if !ac.decode(w, r, &payload) {
		return
	}
	if payload.UserID == "" || payload.Kind == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.service.AddEvent(&models.TelemetryEvent{
		UserID:  payload.UserID,
		Kind:    payload.Kind,
		TrackID: payload.TrackID,
		At:      parseEventTime(payload.At),
	})
	// a finished session folds into the daily buckets on the next drain
	if payload.Kind == models.EventEnd {
		ac.cache.Del("aggregate:" + payload.UserID)
		ac.cache.Del("earnings:" + payload.UserID)
	}
	w.WriteHeader(http.StatusAccepted)
}

type userPayload struct {
	UserID string `json:"u"`
}

// RequestClaim runs the withdrawal gates synchronously and reports the
// tagged outcome.
func (ac *ApiController) RequestClaim(w http.ResponseWriter, r *http.Request) {
	var payload userPayload
	if !ac.decode(w, r, &payload) {
		return
	}
	if payload.UserID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	result := ac.service.Engine(payload.UserID).RequestClaim(time.Now())
	ac.metrics.IncClaims(string(result.Outcome))
	ac.cache.Del("earnings:" + payload.UserID)
	writeJSON(w, result)
}

type answerPayload struct {
	UserID string `json:"u"`
	Answer string `json:"answer"`
}

func (ac *ApiController) AnswerChallenge(w http.ResponseWriter, r *http.Request) {
	var payload answerPayload
	if !ac.decode(w, r, &payload) {
		return
	}
	if payload.UserID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	result := ac.service.Engine(payload.UserID).AnswerChallenge(time.Now(), payload.Answer)
	ac.metrics.IncClaims(string(result.Outcome))
	ac.cache.Del("earnings:" + payload.UserID)
	ac.cache.Del("trust:" + payload.UserID)
	writeJSON(w, result)
}

type subscriptionPayload struct {
	UserID  string `json:"u"`
	Premium bool   `json:"premium"`
	Cores   int    `json:"cores"`
}

func (ac *ApiController) SetSubscription(w http.ResponseWriter, r *http.Request) {
	var payload subscriptionPayload
	if !ac.decode(w, r, &payload) {
		return
	}
	if payload.UserID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.service.Engine(payload.UserID).SetSubscription(payload.Premium, payload.Cores)
	ac.cache.Del("earnings:" + payload.UserID)
	w.WriteHeader(http.StatusNoContent)
}

type stakePayload struct {
	UserID string  `json:"u"`
	Amount float64 `json:"amount"`
}

func (ac *ApiController) Stake(w http.ResponseWriter, r *http.Request) {
	var payload stakePayload
	if !ac.decode(w, r, &payload) {
		return
	}
	if payload.UserID == "" || payload.Amount <= 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.service.Engine(payload.UserID).Stake(payload.Amount)
	ac.cache.Del("trust:" + payload.UserID)
	w.WriteHeader(http.StatusNoContent)
}

type destinationPayload struct {
	UserID  string `json:"u"`
	Address string `json:"address"`
}

func (ac *ApiController) SetDestination(w http.ResponseWriter, r *http.Request) {
	var payload destinationPayload
	if !ac.decode(w, r, &payload) {
		return
	}
	if payload.UserID == "" || payload.Address == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.service.Engine(payload.UserID).SetDestination(payload.Address)
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) PeerVerify(w http.ResponseWriter, r *http.Request) {
	var payload userPayload
	if !ac.decode(w, r, &payload) {
		return
	}
	if payload.UserID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.service.Engine(payload.UserID).AddPeerVerification()
	ac.cache.Del("trust:" + payload.UserID)
	w.WriteHeader(http.StatusNoContent)
}

type catalogPayload struct {
	TrackID        string  `json:"track"`
	StreamCount    int     `json:"stream_count"`
	ArtistEarnings float64 `json:"artist_earnings"`
}

// UpdateCatalog ingests popularity figures pushed by the catalog service.
func (ac *ApiController) UpdateCatalog(w http.ResponseWriter, r *http.Request) {
	var payload catalogPayload
	if !ac.decode(w, r, &payload) {
		return
	}
	if payload.TrackID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.catalog.Put(payload.TrackID, services.TrackStats{
		StreamCount:    payload.StreamCount,
		ArtistEarnings: payload.ArtistEarnings,
	})
	w.WriteHeader(http.StatusNoContent)
}

type earningsResponse struct {
	models.EarningState
	CurrentRate float64         `json:"current_rate"`
	Session     *models.Session `json:"session,omitempty"`
}

func (ac *ApiController) GetEarnings(w http.ResponseWriter, r *http.Request) {
	u, ok := getUser(w, r)
	if !ok {
		return
	}
	ac.serveFromCacheOrCompute(w, "earnings:"+u, func() (any, error) {
		eng := ac.service.Engine(u)
		resp := earningsResponse{
			EarningState: eng.EarningSnapshot(),
			CurrentRate:  eng.CurrentRate(),
		}
		if sess, live := eng.SessionSnapshot(); live {
			resp.Session = &sess
		}
		return resp, nil
	})
}

func (ac *ApiController) GetTrust(w http.ResponseWriter, r *http.Request) {
	u, ok := getUser(w, r)
	if !ok {
		return
	}
	ac.serveFromCacheOrCompute(w, "trust:"+u, func() (any, error) {
		eng := ac.service.Engine(u)
		trust := eng.TrustSnapshot()
		skip := eng.SkipSnapshot()
		return map[string]any{
			"trust":          trust,
			"combined_score": trust.CombinedScore(),
			"trust_tier":     trust.TrustTier(),
			"skip":           skip,
		}, nil
	})
}

func (ac *ApiController) GetAggregate(w http.ResponseWriter, r *http.Request) {
	u, ok := getUser(w, r)
	if !ok {
		return
	}
	ac.serveFromCacheOrCompute(w, "aggregate:"+u, func() (any, error) {
		rec, found := ac.service.ExportUser(u)
		if !found {
			return &models.HistoricalAggregate{}, nil
		}
		return rec.Aggregate, nil
	})
}

func (ac *ApiController) GetProof(w http.ResponseWriter, r *http.Request) {
	u, ok := getUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]string{"proof": ac.service.Engine(u).Proof(time.Now())})
}

func (ac *ApiController) GetClaimStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := getUser(w, r)
	if !ok {
		return
	}
	claimID := r.URL.Query().Get("id")
	eng, found := ac.service.Lookup(u)
	if !found {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	rec, found := eng.Claim(claimID)
	if !found {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	writeJSON(w, rec)
}

// ExportState returns the full persisted record for one user.
func (ac *ApiController) ExportState(w http.ResponseWriter, r *http.Request) {
	u, ok := getUser(w, r)
	if !ok {
		return
	}
	rec, found := ac.service.ExportUser(u)
	if !found {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	writeJSON(w, rec)
}

type importPayload struct {
	UserID string             `json:"u"`
	Record *models.UserRecord `json:"record"`
}

// ImportState replaces a user's persisted record from an export.
func (ac *ApiController) ImportState(w http.ResponseWriter, r *http.Request) {
	var payload importPayload
	if !ac.decode(w, r, &payload) {
		return
	}
	if payload.UserID == "" || payload.Record == nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.service.ImportUser(payload.UserID, payload.Record)
	ac.cache.Del("earnings:" + payload.UserID)
	ac.cache.Del("trust:" + payload.UserID)
	ac.cache.Del("aggregate:" + payload.UserID)
	w.WriteHeader(http.StatusNoContent)
}
