// Package report assembles the business case report from a campaign
// snapshot. Pure orchestration: every number comes from the aggregate,
// funnel, confidence, and projection packages.
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/crowdwant/pulse/internal/aggregate"
	"github.com/crowdwant/pulse/internal/confidence"
	"github.com/crowdwant/pulse/internal/domain"
	"github.com/crowdwant/pulse/internal/funnel"
	"github.com/crowdwant/pulse/internal/insight"
	"github.com/crowdwant/pulse/internal/projection"
)

// ErrInvalidInput is returned for call-boundary misuse, a missing campaign
// identifier or nil snapshot. Degraded data (empty signal sets, zero
// visitors) is never an error; it resolves to documented zero values
// inside the report.
var ErrInvalidInput = errors.New("invalid input")

// Builder assembles reports. It holds no per-campaign state; a single
// Builder serves concurrent requests for any number of campaigns.
type Builder struct {
	agg       *aggregate.Aggregator
	funnel    *funnel.Calculator
	projector *projection.Projector
	insight   *insight.Engine
	cfg       domain.EngineConfig
}

// NewBuilder creates a report builder. The insight engine is optional;
// with a nil engine reports simply carry no operator-defined flags.
func NewBuilder(cfg domain.EngineConfig, engine *insight.Engine) *Builder {
	return &Builder{
		agg:       aggregate.New(cfg),
		funnel:    funnel.New(cfg),
		projector: projection.New(cfg),
		insight:   engine,
		cfg:       cfg,
	}
}

// Build computes a complete report from one immutable snapshot. The output
// is a pure function of the input: no IDs, timestamps, or randomness, so
// identical snapshots marshal to byte-identical reports.
func (b *Builder) Build(ctx context.Context, snap *domain.CampaignSnapshot) (*domain.BusinessCaseReport, error) {
	if snap == nil {
		return nil, fmt.Errorf("%w: snapshot is required", ErrInvalidInput)
	}
	if snap.CampaignID == "" {
		return nil, fmt.Errorf("%w: campaign ID is required", ErrInvalidInput)
	}

	ms, err := b.agg.MarketSizing(snap.Lobbies, snap.Pledges)
	if err != nil {
		return nil, fmt.Errorf("market sizing for campaign %s: %w", snap.CampaignID, err)
	}
	pricing := b.agg.PricingInsights(snap.Pledges)

	conversion := b.funnel.Metrics(snap.Funnel, snap.Cohorts, snap.Trends)

	quality := confidence.Score(ms.TotalDemandSignals, pricing.DataPoints)

	scenarios := b.projector.Scenarios(ms, pricing, observedRates(conversion.ByIntensity))
	breakEven := b.projector.BreakEven(scenarios[1], pricing)

	report := &domain.BusinessCaseReport{
		CampaignID:         snap.CampaignID,
		MarketSizing:       ms,
		RevenueProjections: scenarios,
		PricingInsights:    pricing,
		ConversionMetrics:  conversion,
		DataQuality:        quality,
		BreakEvenAnalysis:  breakEven,
		Insights:           b.insights(ms, pricing, quality),
	}

	if b.insight != nil {
		report.Insights.Flags = b.insight.Evaluate(ctx, report)
	}

	return report, nil
}

// insights derives the boolean flags and the recommendation. The survey
// recommendation string also drives a UI call-to-action and must not
// drift.
func (b *Builder) insights(ms domain.MarketSizing, pricing domain.PricingInsights, quality domain.DataQuality) domain.Insights {
	highConfidence := quality.ConfidenceLevel == domain.ConfidenceHigh ||
		quality.ConfidenceLevel == domain.ConfidenceVeryHigh

	action := domain.ActionRunSurvey
	if highConfidence {
		action = domain.ActionPlanProduction
	}

	return domain.Insights{
		HasStrongSignals:  ms.WeightedDemand >= b.cfg.StrongSignalWeightedDemand,
		HasPricingData:    pricing.DataPoints >= b.cfg.PricingDataMinPoints,
		HasHighConfidence: highConfidence,
		RecommendedAction: action,
	}
}

// observedRates converts per-intensity funnel percentages back to the
// fractions the projector consumes.
func observedRates(byIntensity map[string]float64) map[domain.LobbyIntensity]float64 {
	if len(byIntensity) == 0 {
		return nil
	}
	out := make(map[domain.LobbyIntensity]float64, len(byIntensity))
	for tier, pct := range byIntensity {
		out[domain.LobbyIntensity(tier)] = pct / 100
	}
	return out
}
