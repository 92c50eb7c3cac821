package engine

import (
	"math"

	"lrd/internal/engine/interfaces"
	"lrd/internal/structures"
)

// Rate formula caps. Popularity terms saturate so a viral track cannot
// dominate the multiplier stack.
const (
	popularityCap   = 2.0
	artistCap       = 1.5
	listenerCap     = 1.3
	subscriptionCap = 2.0
	corePremium     = 0.125
	xfgMiningRatio  = 0.001
)

// RateCalculator turns track popularity, trust, skip and subscription state
// into an instantaneous per-minute reward rate.
type RateCalculator struct {
	baseRate  float64
	catalog   interfaces.CatalogInterface
	listeners interfaces.ListenerFeedInterface
}

func NewRateCalculator(baseRate float64, catalog interfaces.CatalogInterface, listeners interfaces.ListenerFeedInterface) *RateCalculator {
	return &RateCalculator{
		baseRate:  baseRate,
		catalog:   catalog,
		listeners: listeners,
	}
}

// NewRateCalculatorFromConfig is the DI constructor.
func NewRateCalculatorFromConfig(conf *structures.Config, catalog interfaces.CatalogInterface, listeners interfaces.ListenerFeedInterface) *RateCalculator {
	return NewRateCalculator(conf.Engine.BaseRate, catalog, listeners)
}

// Rate computes the current per-minute rate, rounded to 3 decimals.
// A lapsed subscription earns exactly 0 regardless of every other factor.
func (rc *RateCalculator) Rate(trackID string, trustTier, skipMultiplier float64, premium bool, cores int) float64 {
	if !premium {
		return 0
	}

	streams, artistEarnings := rc.catalog.TrackStats(trackID)
	concurrent := rc.listeners.Listeners(trackID)

	popularity := math.Min(1+float64(streams)/1000, popularityCap)
	artistSuccess := math.Min(1+artistEarnings/100, artistCap)
	listenerBonus := math.Min(1+float64(concurrent)/20, listenerCap)
	subscription := math.Min(1+float64(cores)*corePremium, subscriptionCap)

	rate := rc.baseRate * popularity * artistSuccess * listenerBonus *
		trustTier * skipMultiplier * subscription

	return math.Round(rate*1000) / 1000
}
