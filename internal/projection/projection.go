// Package projection builds the three revenue scenarios and the break-even
// analysis on top of aggregated demand.
package projection

import (
	"math"

	"github.com/crowdwant/pulse/internal/domain"
)

// Default per-cohort conversion assumptions for the moderate scenario,
// used when no observed funnel data exists. Lobby rates scale with
// intensity; pledge rates are flat per type.
const (
	defaultNeatIdeaRate    = 0.05
	defaultProbablyBuyRate = 0.20
	defaultTakeMyMoneyRate = 0.60

	moderateIntentRate     = 0.70
	conservativeIntentRate = 0.45
	optimisticIntentRate   = 0.90

	moderateSupportRate     = 0.15
	conservativeSupportRate = 0.08
	optimisticSupportRate   = 0.25

	// Lobby-rate multipliers relative to moderate. The cap keeps the
	// optimistic TAKE_MY_MONEY cohort from projecting above-certainty
	// conversion.
	conservativeScale = 0.5
	optimisticScale   = 1.5
	optimisticRateCap = 0.90
)

// Break-even timeframe labels. "Units over moderate customers" expresses
// how many campaigns of the current size must repeat before the fixed cost
// is recovered.
const (
	TimeframeCurrentCampaign = "within current campaign"
	TimeframeShort           = "3-6 months"
	TimeframeMedium          = "6-12 months"
	TimeframeLong            = "12+ months"
	TimeframeUnsustainable   = "pricing unsustainable"

	warningUneconomic = "suggested price does not cover unit cost, break-even is unreachable at this price point"
)

// Projector derives scenario projections and break-even figures. Stateless
// apart from configuration.
type Projector struct {
	cfg domain.EngineConfig
}

// New creates a Projector with the given engine tunables.
func New(cfg domain.EngineConfig) *Projector {
	return &Projector{cfg: cfg}
}

// scenarioParams fully determines one scenario. All three scenarios are
// built from the same constructor so the ordering invariant (conservative
// never exceeds moderate, moderate never exceeds optimistic) holds by
// construction rather than by convention.
type scenarioParams struct {
	name        string
	description string
	lobbyScale  float64 // multiplier on the moderate lobby rates
	lobbyCap    float64 // upper bound after scaling
	intentRate  float64
	supportRate float64
	margin      float64
}

// Scenarios produces the conservative, moderate, and optimistic revenue
// projections. observed carries per-intensity lobbied-to-ordered fractions
// from the live funnel; a cohort with a positive observed rate overrides
// the default assumption for that cohort, scaled per scenario like the
// defaults.
func (p *Projector) Scenarios(ms domain.MarketSizing, pricing domain.PricingInsights, observed map[domain.LobbyIntensity]float64) []domain.ScenarioProjection {
	params := []scenarioParams{
		{
			name:        domain.ScenarioConservative,
			description: "Pessimistic assumptions, halved conversion rates",
			lobbyScale:  conservativeScale,
			lobbyCap:    1,
			intentRate:  conservativeIntentRate,
			supportRate: conservativeSupportRate,
			margin:      p.cfg.ConservativeMargin,
		},
		{
			name:        domain.ScenarioModerate,
			description: "Expected case based on observed demand signals",
			lobbyScale:  1,
			lobbyCap:    1,
			intentRate:  moderateIntentRate,
			supportRate: moderateSupportRate,
			margin:      p.cfg.ModerateMargin,
		},
		{
			name:        domain.ScenarioOptimistic,
			description: "Strong momentum, conversion rates scaled up",
			lobbyScale:  optimisticScale,
			lobbyCap:    optimisticRateCap,
			intentRate:  optimisticIntentRate,
			supportRate: optimisticSupportRate,
			margin:      p.cfg.OptimisticMargin,
		},
	}

	out := make([]domain.ScenarioProjection, 0, len(params))
	for _, sp := range params {
		out = append(out, p.project(sp, ms, pricing, observed))
	}
	return out
}

func (p *Projector) project(sp scenarioParams, ms domain.MarketSizing, pricing domain.PricingInsights, observed map[domain.LobbyIntensity]float64) domain.ScenarioProjection {
	customers := 0.0
	customers += float64(ms.LobbyBreakdown.NeatIdea) * p.lobbyRate(sp, domain.IntensityNeatIdea, defaultNeatIdeaRate, observed)
	customers += float64(ms.LobbyBreakdown.ProbablyBuy) * p.lobbyRate(sp, domain.IntensityProbablyBuy, defaultProbablyBuyRate, observed)
	customers += float64(ms.LobbyBreakdown.TakeMyMoney) * p.lobbyRate(sp, domain.IntensityTakeMyMoney, defaultTakeMyMoneyRate, observed)
	customers += float64(ms.PledgeBreakdown.Intent) * sp.intentRate
	customers += float64(ms.PledgeBreakdown.Support) * sp.supportRate

	return domain.ScenarioProjection{
		Scenario:     sp.name,
		Description:  sp.description,
		Customers:    customers,
		Revenue:      customers * pricing.SuggestedPricePoint,
		ProfitMargin: sp.margin,
	}
}

// lobbyRate resolves the conversion rate for one intensity cohort: the
// observed funnel rate when one exists, the default assumption otherwise,
// then scaled and capped per scenario.
func (p *Projector) lobbyRate(sp scenarioParams, tier domain.LobbyIntensity, def float64, observed map[domain.LobbyIntensity]float64) float64 {
	base := def
	if r, ok := observed[tier]; ok && r > 0 {
		base = r
	}
	r := base * sp.lobbyScale
	if r > sp.lobbyCap {
		r = sp.lobbyCap
	}
	// An observed rate above the cap must not let an upscaled scenario fall
	// below the base rate, or the scenario ordering would invert.
	if sp.lobbyScale >= 1 && r < base {
		r = base
	}
	return r
}

// BreakEven derives the units and revenue needed to recover the fixed cost
// baseline, using the moderate scenario's volume to bucket a timeframe.
// Uneconomic pricing (price at or below unit cost, including a zero price)
// is a degraded-data condition, not an error: units come back nil with a
// warning.
func (p *Projector) BreakEven(moderate domain.ScenarioProjection, pricing domain.PricingInsights) domain.BreakEvenAnalysis {
	price := pricing.SuggestedPricePoint
	unitCost := price * (1 - p.cfg.ModerateMargin)
	contribution := price - unitCost

	if contribution <= 0 {
		return domain.BreakEvenAnalysis{
			UnitsSoldToBreakEven: nil,
			RevenueNeeded:        0,
			EstimatedTimeframe:   TimeframeUnsustainable,
			Warning:              warningUneconomic,
		}
	}

	units := p.cfg.FixedCostBaseline / contribution

	return domain.BreakEvenAnalysis{
		UnitsSoldToBreakEven: &units,
		RevenueNeeded:        units * price,
		EstimatedTimeframe:   timeframe(units, moderate.Customers),
	}
}

// timeframe buckets how many moderate-sized cohorts must repeat to reach
// the break-even volume.
func timeframe(units, moderateCustomers float64) string {
	ratio := math.Inf(1)
	if moderateCustomers > 0 {
		ratio = units / moderateCustomers
	}
	switch {
	case ratio < 1:
		return TimeframeCurrentCampaign
	case ratio <= 3:
		return TimeframeShort
	case ratio <= 10:
		return TimeframeMedium
	default:
		return TimeframeLong
	}
}
