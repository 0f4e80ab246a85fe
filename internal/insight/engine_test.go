package insight

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/crowdwant/pulse/internal/domain"
)

func testReport() *domain.BusinessCaseReport {
	units := 1200.0
	return &domain.BusinessCaseReport{
		CampaignID: "camp-001",
		MarketSizing: domain.MarketSizing{
			TotalDemandSignals: 40,
			WeightedDemand:     85,
		},
		PricingInsights: domain.PricingInsights{
			SuggestedPricePoint: 60,
			DataPoints:          8,
		},
		ConversionMetrics: domain.ConversionMetrics{
			Funnel: domain.FunnelCounts{Visitors: 1000, Orderers: 30},
			Rates:  domain.ConversionRates{OverallConversion: 3.0},
			Benchmarks: domain.Benchmarks{
				IndustryAvg:         2.5,
				CampaignPerformance: domain.PerformanceAverage,
			},
		},
		DataQuality: domain.DataQuality{
			ConfidenceScore: 80,
			ConfidenceLevel: domain.ConfidenceVeryHigh,
		},
		RevenueProjections: []domain.ScenarioProjection{
			{Scenario: domain.ScenarioConservative, Revenue: 900},
			{Scenario: domain.ScenarioModerate, Revenue: 1800},
			{Scenario: domain.ScenarioOptimistic, Revenue: 2700},
		},
		BreakEvenAnalysis: domain.BreakEvenAnalysis{UnitsSoldToBreakEven: &units},
	}
}

func TestEngineCreation(t *testing.T) {
	engine, err := NewEngine(5)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	defer engine.Close()

	if engine.RulesCount() != 0 {
		t.Errorf("expected 0 rules, got %d", engine.RulesCount())
	}
}

func TestLoadRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.InsightRule{
		ID:         "strong-demand-001",
		Name:       "Strong Demand",
		Expression: "weighted_demand >= 50.0",
		Enabled:    true,
	}

	if err := engine.LoadRule(rule); err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}
	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule, got %d", engine.RulesCount())
	}
}

func TestLoadInvalidRule(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.InsightRule{
		ID:         "invalid-rule",
		Name:       "Invalid Rule",
		Expression: "this is not valid CEL !!!",
		Enabled:    true,
	}

	if err := engine.LoadRule(rule); err == nil {
		t.Error("expected error for invalid CEL expression")
	}
}

func TestNonBooleanRuleRejected(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.InsightRule{
		ID:         "numeric-rule",
		Name:       "Numeric Rule",
		Expression: "weighted_demand * 2.0",
		Enabled:    true,
	}

	if err := engine.LoadRule(rule); err == nil {
		t.Error("expected error for non-boolean expression")
	}
}

func TestEvaluate(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rules := []*domain.InsightRule{
		{
			ID:          "strong-demand-001",
			Name:        "Strong Demand",
			Description: "Weighted demand crossed the production-planning bar",
			Severity:    "info",
			Expression:  "weighted_demand >= 50.0",
			Enabled:     true,
		},
		{
			ID:         "weak-pricing-001",
			Name:       "Weak Pricing Evidence",
			Severity:   "warning",
			Expression: "price_points < 5",
			Enabled:    true,
		},
	}
	if err := engine.LoadRules(rules); err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}

	flags := engine.Evaluate(context.Background(), testReport())

	if len(flags) != 1 {
		t.Fatalf("expected 1 flag, got %d", len(flags))
	}
	if flags[0].RuleID != "strong-demand-001" {
		t.Errorf("expected strong-demand-001 to fire, got %s", flags[0].RuleID)
	}
	if flags[0].Severity != "info" {
		t.Errorf("expected info severity, got %q", flags[0].Severity)
	}
	if flags[0].Note == "" {
		t.Error("expected flag note from rule description")
	}
}

func TestEvaluateFlagsSorted(t *testing.T) {
	engine, _ := NewEngine(3)
	defer engine.Close()

	for i := 9; i >= 0; i-- {
		rule := &domain.InsightRule{
			ID:         fmt.Sprintf("rule-%d", i),
			Name:       fmt.Sprintf("Rule %d", i),
			Expression: "total_signals > 0",
			Enabled:    true,
		}
		if err := engine.LoadRule(rule); err != nil {
			t.Fatalf("failed to load rule: %v", err)
		}
	}

	flags := engine.Evaluate(context.Background(), testReport())
	if len(flags) != 10 {
		t.Fatalf("expected 10 flags, got %d", len(flags))
	}
	if !sort.SliceIsSorted(flags, func(i, j int) bool { return flags[i].RuleID < flags[j].RuleID }) {
		t.Error("flags should be sorted by rule ID")
	}
}

func TestEvaluateBreakEvenVariable(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.InsightRule{
		ID:         "uneconomic-001",
		Name:       "Uneconomic Pricing",
		Expression: "break_even_units < 0.0",
		Enabled:    true,
	}
	engine.LoadRule(rule)

	report := testReport()
	flags := engine.Evaluate(context.Background(), report)
	if len(flags) != 0 {
		t.Errorf("expected no flags with healthy break-even, got %d", len(flags))
	}

	// nil break-even units surfaces as -1 to rules
	report.BreakEvenAnalysis.UnitsSoldToBreakEven = nil
	flags = engine.Evaluate(context.Background(), report)
	if len(flags) != 1 {
		t.Errorf("expected uneconomic flag, got %d flags", len(flags))
	}
}

func TestReloadRules(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	engine.LoadRule(&domain.InsightRule{
		ID:         "old-rule",
		Expression: "total_signals > 0",
		Enabled:    true,
	})

	newRules := []*domain.InsightRule{
		{ID: "new-rule-1", Expression: "visitors > 100", Enabled: true},
		{ID: "new-rule-2", Expression: "orderers > 5", Enabled: true},
		{ID: "disabled-rule", Expression: "true", Enabled: false},
	}
	if err := engine.ReloadRules(newRules); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if engine.RulesCount() != 2 {
		t.Errorf("expected 2 rules after reload, got %d", engine.RulesCount())
	}
	for _, r := range engine.GetLoadedRules() {
		if r.ID == "old-rule" {
			t.Error("old rule should be gone after reload")
		}
	}
}

func TestValidateRuleDoesNotLoad(t *testing.T) {
	engine, _ := NewEngine(5)
	defer engine.Close()

	rule := &domain.InsightRule{
		ID:         "validate-only",
		Expression: "confidence_level == \"high\"",
		Enabled:    true,
	}
	if err := engine.ValidateRule(rule); err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if engine.RulesCount() != 0 {
		t.Errorf("validate should not load the rule, got %d rules", engine.RulesCount())
	}
}
