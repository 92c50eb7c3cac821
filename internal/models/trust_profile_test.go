package models

import (
	"encoding/base64"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrustProfile_Defaults(t *testing.T) {
	p := NewTrustProfile()
	assert.Equal(t, 100.0, p.HumanScore)
	assert.Equal(t, 50.0, p.ReputationScore)
	assert.Empty(t, p.Samples)
}

func TestTrustProfile_RecordInteraction_BurstPenalty(t *testing.T) {
	p := NewTrustProfile()
	now := time.Now()

	p.RecordInteraction(now, 500)
	assert.Equal(t, 99.0, p.HumanScore)
}

func TestTrustProfile_RecordInteraction_NaturalReward(t *testing.T) {
	p := NewTrustProfile()
	p.HumanScore = 50
	now := time.Now()

	p.RecordInteraction(now, 60000)
	assert.Equal(t, 52.0, p.HumanScore)

	// band edges count as natural
	p.RecordInteraction(now, 30000)
	p.RecordInteraction(now, 300000)
	assert.Equal(t, 56.0, p.HumanScore)
}

func TestTrustProfile_RecordInteraction_NeutralBand(t *testing.T) {
	p := NewTrustProfile()
	p.HumanScore = 50
	now := time.Now()

	// between 1s and 30s: no score change
	p.RecordInteraction(now, 5000)
	assert.Equal(t, 50.0, p.HumanScore)
}

func TestTrustProfile_ScoreClamped(t *testing.T) {
	p := NewTrustProfile()
	now := time.Now()

	// already at 100, rewards cannot push past the ceiling
	p.RecordInteraction(now, 60000)
	assert.Equal(t, 100.0, p.HumanScore)

	p.HumanScore = 0.5
	p.RecordInteraction(now, 100)
	assert.Equal(t, 0.0, p.HumanScore)
}

func TestTrustProfile_SampleRingBounded(t *testing.T) {
	p := NewTrustProfile()
	now := time.Now()

	for i := 0; i < MaxIntervalSamples+20; i++ {
		p.pushSample(IntervalSample{At: now, IntervalMs: float64(i)})
	}
	require.Len(t, p.Samples, MaxIntervalSamples)
	// oldest entries dropped
	assert.Equal(t, 20.0, p.Samples[0].IntervalMs)
	assert.Equal(t, float64(MaxIntervalSamples+19), p.Samples[len(p.Samples)-1].IntervalMs)
}

func TestTrustProfile_DetectBotPattern_RegularTiming(t *testing.T) {
	p := NewTrustProfile()
	now := time.Now()

	for i := 0; i < 12; i++ {
		p.pushSample(IntervalSample{At: now.Add(-time.Duration(i) * time.Second), IntervalMs: 5000})
	}

	require.True(t, p.DetectBotPattern(now))
	assert.Equal(t, 90.0, p.HumanScore)
}

func TestTrustProfile_DetectBotPattern_TooFewSamples(t *testing.T) {
	p := NewTrustProfile()
	now := time.Now()

	for i := 0; i < 5; i++ {
		p.pushSample(IntervalSample{At: now, IntervalMs: 5000})
	}
	assert.False(t, p.DetectBotPattern(now))
	assert.Equal(t, 100.0, p.HumanScore)
}

func TestTrustProfile_DetectBotPattern_VariedTiming(t *testing.T) {
	p := NewTrustProfile()
	now := time.Now()

	intervals := []float64{1000, 9000, 2500, 30000, 500, 15000, 60000, 4000, 22000, 800, 45000, 3000}
	for _, ms := range intervals {
		p.pushSample(IntervalSample{At: now, IntervalMs: ms})
	}
	assert.False(t, p.DetectBotPattern(now))
}

func TestTrustProfile_DetectBotPattern_OldSamplesIgnored(t *testing.T) {
	p := NewTrustProfile()
	now := time.Now()

	// regular but all outside the 60s window
	for i := 0; i < 12; i++ {
		p.pushSample(IntervalSample{At: now.Add(-2 * time.Minute), IntervalMs: 5000})
	}
	assert.False(t, p.DetectBotPattern(now))
}

func TestTrustProfile_AddActiveTime_HourlyPenalty(t *testing.T) {
	p := NewTrustProfile()

	p.AddActiveTime(continuousLimitMs)
	assert.Equal(t, 100.0, p.HumanScore)

	p.AddActiveTime(1)
	assert.Equal(t, 95.0, p.HumanScore)
	assert.Equal(t, 0.0, p.ContinuousActiveMs)
}

func TestTrustProfile_RewardNaturalBreak(t *testing.T) {
	p := NewTrustProfile()
	p.HumanScore = 50
	p.ContinuousActiveMs = 100000

	// short pause does nothing
	p.RewardNaturalBreak(60000)
	assert.Equal(t, 50.0, p.HumanScore)
	assert.Equal(t, 0, p.BreakCount)

	// longer than five minutes
	p.RewardNaturalBreak(301000)
	assert.Equal(t, 53.0, p.HumanScore)
	assert.Equal(t, 1, p.BreakCount)
	assert.Equal(t, 0.0, p.ContinuousActiveMs)
}

func TestTrustProfile_Stake(t *testing.T) {
	p := NewTrustProfile()

	p.Stake(30)
	assert.Equal(t, 30.0, p.StakedAmount)
	assert.Equal(t, 53.0, p.ReputationScore)

	p.Stake(-5)
	assert.Equal(t, 30.0, p.StakedAmount)

	p.Stake(1000)
	assert.Equal(t, 100.0, p.ReputationScore)
}

func TestTrustProfile_AddPeerVerification(t *testing.T) {
	p := NewTrustProfile()
	p.AddPeerVerification()
	p.AddPeerVerification()
	assert.Equal(t, 2, p.PeerVerifications)
	assert.Equal(t, 54.0, p.ReputationScore)
}

func TestTrustProfile_CombinedScore(t *testing.T) {
	p := NewTrustProfile()
	p.HumanScore = 90
	p.ReputationScore = 70
	assert.InDelta(t, 84.0, p.CombinedScore(), 1e-9)
}

func TestTrustProfile_TrustTier(t *testing.T) {
	p := NewTrustProfile()

	cases := []struct {
		human, rep, tier float64
	}{
		{90, 70, 1.0},  // combined 84
		{80, 80, 1.0},  // combined 80, boundary
		{70, 50, 0.7},  // combined 64
		{50, 40, 0.4},  // combined 47
		{20, 30, 0.1},  // combined 23
		{0, 0, 0.1},
	}
	for _, c := range cases {
		p.HumanScore = c.human
		p.ReputationScore = c.rep
		assert.Equal(t, c.tier, p.TrustTier(), "human=%v rep=%v", c.human, c.rep)
	}
}

func TestTrustProfile_GenerateBehavioralSignature(t *testing.T) {
	p := NewTrustProfile()
	now := time.Now()

	_, ok := p.GenerateBehavioralSignature()
	assert.False(t, ok)

	for i := 0; i < 10; i++ {
		p.pushSample(IntervalSample{At: now, IntervalMs: float64(1000 * (i + 1))})
	}
	sig, ok := p.GenerateBehavioralSignature()
	require.True(t, ok)
	assert.Len(t, sig, 32) // 16 bytes hex
	assert.Equal(t, sig, p.BehavioralSignature)

	// deterministic over the same aggregates
	sig2, ok := p.GenerateBehavioralSignature()
	require.True(t, ok)
	assert.Equal(t, sig, sig2)
}

func TestTrustProfile_GenerateProofOfHumanity(t *testing.T) {
	p := NewTrustProfile()
	now := time.Now()

	token := p.GenerateProofOfHumanity(now)
	require.NotEmpty(t, token)

	raw, err := base64.RawStdEncoding.DecodeString(token)
	require.NoError(t, err)

	var proof ProofOfHumanity
	require.NoError(t, json.Unmarshal(raw, &proof))
	assert.False(t, proof.SignaturePresent)
	assert.True(t, proof.HumanOK)
	assert.True(t, proof.ReputationOK)
	assert.Equal(t, now.UnixMilli(), proof.IssuedAt)

	p.HumanScore = 40
	raw, err = base64.RawStdEncoding.DecodeString(p.GenerateProofOfHumanity(now))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &proof))
	assert.False(t, proof.HumanOK)
}
