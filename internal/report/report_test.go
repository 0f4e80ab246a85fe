package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/crowdwant/pulse/internal/domain"
	"github.com/crowdwant/pulse/internal/insight"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(domain.DefaultEngineConfig(), nil)
}

// referenceSnapshot mirrors the worked example used across the test suite:
// 17 lobbyists across three tiers, 5 support pledges with a 50-90 price
// spread, 1000 visitors, 2 orders.
func referenceSnapshot() *domain.CampaignSnapshot {
	snap := &domain.CampaignSnapshot{
		CampaignID: "camp-001",
		Funnel: domain.FunnelCounts{
			Visitors:  1000,
			Lobbyists: 17,
			Pledgers:  5,
			Orderers:  2,
		},
	}
	add := func(n int, intensity domain.LobbyIntensity) {
		for i := 0; i < n; i++ {
			snap.Lobbies = append(snap.Lobbies, domain.LobbySignal{Intensity: intensity})
		}
	}
	add(10, domain.IntensityNeatIdea)
	add(5, domain.IntensityProbablyBuy)
	add(2, domain.IntensityTakeMyMoney)

	for _, price := range []float64{50, 60, 70, 80, 90} {
		p := price
		snap.Pledges = append(snap.Pledges, domain.PledgeSignal{
			Type:         domain.PledgeSupport,
			PriceCeiling: &p,
		})
	}
	return snap
}

func TestBuildReferenceScenario(t *testing.T) {
	b := newTestBuilder(t)

	report, err := b.Build(context.Background(), referenceSnapshot())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if report.MarketSizing.LobbyBreakdown.Total != 17 {
		t.Errorf("expected 17 lobbies, got %d", report.MarketSizing.LobbyBreakdown.Total)
	}
	// 10x1 + 5x2 + 2x5 from lobbies, plus 5 support pledges at weight 1
	if report.MarketSizing.WeightedDemand != 35 {
		t.Errorf("expected weighted demand 35, got %v", report.MarketSizing.WeightedDemand)
	}
	if report.PricingInsights.MedianPriceCeiling != 70 {
		t.Errorf("expected median 70, got %v", report.PricingInsights.MedianPriceCeiling)
	}
	if report.PricingInsights.SuggestedPricePoint != 60 {
		t.Errorf("expected suggested price 60, got %v", report.PricingInsights.SuggestedPricePoint)
	}
	if report.ConversionMetrics.Rates.OverallConversion != 0.2 {
		t.Errorf("expected overall conversion 0.2, got %v", report.ConversionMetrics.Rates.OverallConversion)
	}
	if report.ConversionMetrics.Benchmarks.CampaignPerformance != domain.PerformanceBelow {
		t.Errorf("expected below benchmark, got %q", report.ConversionMetrics.Benchmarks.CampaignPerformance)
	}
	// 22 signals and 5 price points: min(44,60) + min(20,40) = 64
	if report.DataQuality.ConfidenceScore != 64 {
		t.Errorf("expected confidence 64, got %d", report.DataQuality.ConfidenceScore)
	}
	if report.DataQuality.ConfidenceLevel != domain.ConfidenceHigh {
		t.Errorf("expected high confidence, got %q", report.DataQuality.ConfidenceLevel)
	}
	if report.Insights.RecommendedAction != domain.ActionPlanProduction {
		t.Errorf("expected production recommendation, got %q", report.Insights.RecommendedAction)
	}
	if !report.Insights.HasPricingData {
		t.Error("expected hasPricingData with 5 price points")
	}
	if report.Insights.HasStrongSignals {
		t.Error("weighted demand 35 should not count as strong signals")
	}
}

func TestBuildEmptyCampaign(t *testing.T) {
	b := newTestBuilder(t)

	report, err := b.Build(context.Background(), &domain.CampaignSnapshot{CampaignID: "camp-empty"})
	if err != nil {
		t.Fatalf("empty snapshot should not error: %v", err)
	}

	if report.MarketSizing.TotalDemandSignals != 0 {
		t.Errorf("expected 0 signals, got %d", report.MarketSizing.TotalDemandSignals)
	}
	if report.DataQuality.ConfidenceLevel != domain.ConfidenceLow {
		t.Errorf("expected low confidence, got %q", report.DataQuality.ConfidenceLevel)
	}
	if !strings.Contains(report.Insights.RecommendedAction, "survey") {
		t.Errorf("expected survey recommendation, got %q", report.Insights.RecommendedAction)
	}
	// zero suggested price must not divide by zero
	if report.BreakEvenAnalysis.UnitsSoldToBreakEven != nil {
		t.Errorf("expected nil break-even units, got %v", *report.BreakEvenAnalysis.UnitsSoldToBreakEven)
	}
	if report.BreakEvenAnalysis.EstimatedTimeframe != "pricing unsustainable" {
		t.Errorf("expected unsustainable timeframe, got %q", report.BreakEvenAnalysis.EstimatedTimeframe)
	}
	for _, s := range report.RevenueProjections {
		if s.Customers != 0 || s.Revenue != 0 {
			t.Errorf("expected zero projections, got %+v", s)
		}
	}
}

func TestBuildInvalidInput(t *testing.T) {
	b := newTestBuilder(t)

	if _, err := b.Build(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil snapshot, got %v", err)
	}
	if _, err := b.Build(context.Background(), &domain.CampaignSnapshot{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty campaign ID, got %v", err)
	}
}

func TestBuildIdempotent(t *testing.T) {
	b := newTestBuilder(t)
	ctx := context.Background()

	first, err := b.Build(ctx, referenceSnapshot())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	second, err := b.Build(ctx, referenceSnapshot())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	a, _ := json.Marshal(first)
	bb, _ := json.Marshal(second)
	if !bytes.Equal(a, bb) {
		t.Error("identical snapshots should produce byte-identical reports")
	}
}

func TestBuildJSONShape(t *testing.T) {
	b := newTestBuilder(t)

	report, err := b.Build(context.Background(), referenceSnapshot())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	for _, key := range []string{
		"marketSizing", "revenueProjections", "pricingInsights",
		"conversionMetrics", "dataQuality", "breakEvenAnalysis", "insights",
	} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("report JSON missing %q", key)
		}
	}
}

func TestBuildObservedRatesFeedProjections(t *testing.T) {
	b := newTestBuilder(t)

	snap := referenceSnapshot()
	// every TAKE_MY_MONEY lobbyist ordered
	snap.Cohorts = map[domain.LobbyIntensity]domain.CohortCounts{
		domain.IntensityTakeMyMoney: {Lobbied: 2, Ordered: 2},
	}

	withObserved, err := b.Build(context.Background(), snap)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	baseline, err := b.Build(context.Background(), referenceSnapshot())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	// observed 100% beats the 60% default, so moderate customers rise
	if withObserved.RevenueProjections[1].Customers <= baseline.RevenueProjections[1].Customers {
		t.Errorf("observed cohort rate should lift moderate projection: %v <= %v",
			withObserved.RevenueProjections[1].Customers, baseline.RevenueProjections[1].Customers)
	}
}

func TestBuildWithInsightEngine(t *testing.T) {
	engine, err := insight.NewEngine(5)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Close()

	err = engine.LoadRule(&domain.InsightRule{
		ID:         "thin-pricing-001",
		Name:       "Thin Pricing Evidence",
		Severity:   "warning",
		Expression: "price_points < 10",
		Enabled:    true,
	})
	if err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}

	b := NewBuilder(domain.DefaultEngineConfig(), engine)
	report, err := b.Build(context.Background(), referenceSnapshot())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if len(report.Insights.Flags) != 1 || report.Insights.Flags[0].RuleID != "thin-pricing-001" {
		t.Errorf("expected thin-pricing flag, got %+v", report.Insights.Flags)
	}
}
