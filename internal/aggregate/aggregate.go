// Package aggregate reduces a campaign's raw signals to count, weighted-sum,
// and price-ceiling summaries.
package aggregate

import (
	"fmt"
	"math"
	"sort"

	"github.com/crowdwant/pulse/internal/classify"
	"github.com/crowdwant/pulse/internal/domain"
)

const (
	reasoningPercentile   = "set below median willingness-to-pay to maximize conversion while preserving margin"
	reasoningMeanFallback = "too few price points for percentile estimation, using the mean instead"
	reasoningNoData       = "insufficient pricing data, collect price ceilings from pledges"
)

// Aggregator produces MarketSizing and PricingInsights from raw signal
// lists. It holds only configuration and is safe for concurrent use.
type Aggregator struct {
	cfg domain.EngineConfig
}

// New creates an Aggregator with the given engine tunables.
func New(cfg domain.EngineConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// MarketSizing computes raw and conviction-weighted demand totals.
// An unknown intensity or pledge type aborts the whole computation; a
// partial sum over corrupt data would be worse than no report.
func (a *Aggregator) MarketSizing(lobbies []domain.LobbySignal, pledges []domain.PledgeSignal) (domain.MarketSizing, error) {
	var ms domain.MarketSizing

	for _, l := range lobbies {
		w, err := classify.LobbyWeight(l.Intensity)
		if err != nil {
			return domain.MarketSizing{}, fmt.Errorf("lobby signal %s: %w", l.ID, err)
		}
		ms.WeightedDemand += w
		switch l.Intensity {
		case domain.IntensityNeatIdea:
			ms.LobbyBreakdown.NeatIdea++
		case domain.IntensityProbablyBuy:
			ms.LobbyBreakdown.ProbablyBuy++
		case domain.IntensityTakeMyMoney:
			ms.LobbyBreakdown.TakeMyMoney++
		}
	}
	ms.LobbyBreakdown.Total = len(lobbies)

	for _, p := range pledges {
		w, err := classify.PledgeWeight(p.Type)
		if err != nil {
			return domain.MarketSizing{}, fmt.Errorf("pledge signal %s: %w", p.ID, err)
		}
		ms.WeightedDemand += w
		switch p.Type {
		case domain.PledgeSupport:
			ms.PledgeBreakdown.Support++
		case domain.PledgeIntent:
			ms.PledgeBreakdown.Intent++
		}
	}
	ms.PledgeBreakdown.Total = len(pledges)

	ms.TotalDemandSignals = ms.LobbyBreakdown.Total + ms.PledgeBreakdown.Total
	return ms, nil
}

// PricingInsights derives price statistics from the pledges that carry a
// price ceiling. Empty input yields zero values and an explanatory
// reasoning string, never an error.
func (a *Aggregator) PricingInsights(pledges []domain.PledgeSignal) domain.PricingInsights {
	var prices []float64
	for _, p := range pledges {
		if p.PriceCeiling != nil {
			prices = append(prices, *p.PriceCeiling)
		}
	}

	if len(prices) == 0 {
		return domain.PricingInsights{Reasoning: reasoningNoData}
	}

	sort.Float64s(prices)

	var sum float64
	for _, v := range prices {
		sum += v
	}
	mean := sum / float64(len(prices))

	pi := domain.PricingInsights{
		AvgPriceCeiling:    mean,
		MedianPriceCeiling: median(prices),
		PriceRange: domain.PriceRange{
			Min: prices[0],
			Max: prices[len(prices)-1],
		},
		DataPoints: len(prices),
	}

	if len(prices) < a.cfg.MinPricePointsForPercentile {
		pi.SuggestedPricePoint = mean
		pi.Reasoning = reasoningMeanFallback
		return pi
	}

	pi.SuggestedPricePoint = percentile(prices, a.cfg.SuggestedPricePercentile)
	pi.Reasoning = reasoningPercentile
	return pi
}

// median of a sorted slice, averaging the two middle elements when the
// length is even.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// percentile returns the nearest-rank percentile of a sorted slice.
// For p=0.40 over [50 60 70 80 90] the rank is ceil(0.4*5)=2, yielding 60,
// which sits below the median as the conservative anchor requires.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(p * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}
