package models

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// MaxIntervalSamples bounds the interaction-interval log.
	MaxIntervalSamples = 100

	burstIntervalMs      = 1000
	naturalIntervalMinMs = 30000
	naturalIntervalMaxMs = 300000

	botWindow        = 60 * time.Second
	botMinSamples    = 10
	botStddevFloorMs = 1000

	continuousLimitMs = 3600000
	naturalBreakMs    = 300000
)

// IntervalSample is one observed gap between two user interactions.
type IntervalSample struct {
	At         time.Time `json:"at"`
	IntervalMs float64   `json:"ms"`
}

// TrustProfile holds the behavioral trust state for one user. Scores are
// heuristic display values, not security primitives. Not safe for concurrent
// use; the owning engine serializes access.
type TrustProfile struct {
	HumanScore          float64          `json:"human_score"`
	ReputationScore     float64          `json:"reputation_score"`
	StakedAmount        float64          `json:"staked_amount"`
	PeerVerifications   int              `json:"peer_verifications"`
	BehavioralSignature string           `json:"behavioral_signature,omitempty"`
	Samples             []IntervalSample `json:"samples,omitempty"`
	BreakCount          int              `json:"break_count"`
	SessionCount        int              `json:"session_count"`
	ContinuousActiveMs  float64          `json:"continuous_active_ms"`
}

func NewTrustProfile() *TrustProfile {
	return &TrustProfile{
		HumanScore:      100,
		ReputationScore: 50,
		Samples:         make([]IntervalSample, 0, MaxIntervalSamples),
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (t *TrustProfile) adjustHuman(delta float64) {
	t.HumanScore = clampScore(t.HumanScore + delta)
}

func (t *TrustProfile) adjustReputation(delta float64) {
	t.ReputationScore = clampScore(t.ReputationScore + delta)
}

// RecordInteraction scores a single interaction interval. Sub-second gaps
// look bot-like, gaps in the 30s..5m band look like natural listening.
func (t *TrustProfile) RecordInteraction(now time.Time, intervalMs float64) {
	t.pushSample(IntervalSample{At: now, IntervalMs: intervalMs})

	switch {
	case intervalMs < burstIntervalMs:
		t.adjustHuman(-1)
	case intervalMs >= naturalIntervalMinMs && intervalMs <= naturalIntervalMaxMs:
		t.adjustHuman(+2)
	}
}

func (t *TrustProfile) pushSample(s IntervalSample) {
	if len(t.Samples) >= MaxIntervalSamples {
		copy(t.Samples, t.Samples[1:])
		t.Samples = t.Samples[:MaxIntervalSamples-1]
	}
	t.Samples = append(t.Samples, s)
}

// DetectBotPattern inspects the last 60s of interval samples. Too-regular
// timing (stddev under 1s across 10+ samples) reads as automation.
// Returns true when a penalty was applied.
func (t *TrustProfile) DetectBotPattern(now time.Time) bool {
	cutoff := now.Add(-botWindow)
	window := make([]float64, 0, len(t.Samples))
	for _, s := range t.Samples {
		if s.At.After(cutoff) || s.At.Equal(cutoff) {
			window = append(window, s.IntervalMs)
		}
	}
	if len(window) < botMinSamples {
		return false
	}

	mean := meanOf(window)
	variance := 0.0
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(window))

	if math.Sqrt(variance) < botStddevFloorMs {
		t.adjustHuman(-10)
		return true
	}
	return false
}

// AddActiveTime accrues continuous listening time. Crossing one hour without
// a break costs 5 points and restarts the counter.
func (t *TrustProfile) AddActiveTime(activeMs float64) {
	t.ContinuousActiveMs += activeMs
	if t.ContinuousActiveMs > continuousLimitMs {
		t.adjustHuman(-5)
		t.ContinuousActiveMs = 0
	}
}

// RewardNaturalBreak credits pauses longer than five minutes and resets the
// continuous-listening counter.
func (t *TrustProfile) RewardNaturalBreak(pausedMs float64) {
	if pausedMs > naturalBreakMs {
		t.adjustHuman(+3)
		t.BreakCount++
		t.ContinuousActiveMs = 0
	}
}

// Stake adds to the staked amount; every 10 staked raises reputation by 1.
func (t *TrustProfile) Stake(amount float64) {
	if amount <= 0 {
		return
	}
	t.StakedAmount += amount
	t.adjustReputation(amount / 10)
}

// AddPeerVerification records one peer attestation.
func (t *TrustProfile) AddPeerVerification() {
	t.PeerVerifications++
	t.adjustReputation(+2)
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// GenerateBehavioralSignature derives an opaque digest from aggregate
// interaction statistics. It is irreversible to individual events and is
// only a display/consistency token. Requires at least 10 samples.
func (t *TrustProfile) GenerateBehavioralSignature() (string, bool) {
	if len(t.Samples) < botMinSamples {
		return "", false
	}

	intervals := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		intervals[i] = s.IntervalMs
	}
	mean := meanOf(intervals)
	variance := 0.0
	for _, v := range intervals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(intervals))

	buf := make([]byte, 0, 32)
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(mean))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(variance))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(t.BreakCount))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(t.SessionCount))

	sum := sha256.Sum256(buf)
	t.BehavioralSignature = hex.EncodeToString(sum[:16])
	return t.BehavioralSignature, true
}

// ProofOfHumanity is a UX signal bundling the current trust checkpoints.
// It is explicitly not a verifiable credential.
type ProofOfHumanity struct {
	SignaturePresent bool  `json:"signature_present"`
	HumanOK          bool  `json:"human_ok"`
	ReputationOK     bool  `json:"reputation_ok"`
	IssuedAt         int64 `json:"issued_at"`
}

// GenerateProofOfHumanity bundles the trust checkpoints into an opaque token.
func (t *TrustProfile) GenerateProofOfHumanity(now time.Time) string {
	proof := ProofOfHumanity{
		SignaturePresent: t.BehavioralSignature != "",
		HumanOK:          t.HumanScore >= 70,
		ReputationOK:     t.ReputationScore >= 50,
		IssuedAt:         now.UnixMilli(),
	}
	raw, err := json.Marshal(proof)
	if err != nil {
		return ""
	}
	return base64.RawStdEncoding.EncodeToString(raw)
}

// CombinedScore weighs human-likeness over reputation 70/30.
func (t *TrustProfile) CombinedScore() float64 {
	return 0.7*t.HumanScore + 0.3*t.ReputationScore
}

// TrustTier maps the combined score onto the earnings multiplier.
func (t *TrustProfile) TrustTier() float64 {
	switch combined := t.CombinedScore(); {
	case combined >= 80:
		return 1.0
	case combined >= 60:
		return 0.7
	case combined >= 40:
		return 0.4
	default:
		return 0.1
	}
}
