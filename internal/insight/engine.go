// Package insight provides the CEL-Go based insight rule engine.
//
// Operators define boolean CEL expressions over a finished report's
// aggregates; rules that fire attach flags to the report's insights
// section.
package insight

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/crowdwant/pulse/internal/domain"
)

// Engine compiles and evaluates insight rules.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
	maxWorkers    int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Rule    *domain.InsightRule
	Program cel.Program
}

// NewEngine creates an insight rule engine.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	// CEL environment exposing the report aggregates rules may inspect
	env, err := cel.NewEnv(
		cel.Variable("weighted_demand", cel.DoubleType),
		cel.Variable("total_signals", cel.IntType),
		cel.Variable("overall_conversion", cel.DoubleType),
		cel.Variable("confidence_score", cel.IntType),
		cel.Variable("confidence_level", cel.StringType),
		cel.Variable("suggested_price", cel.DoubleType),
		cel.Variable("price_points", cel.IntType),
		cel.Variable("visitors", cel.IntType),
		cel.Variable("orderers", cel.IntType),
		cel.Variable("moderate_revenue", cel.DoubleType),
		cel.Variable("break_even_units", cel.DoubleType),
		cel.Variable("campaign_performance", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
		maxWorkers:    maxWorkers,
	}, nil
}

// ValidateRule compiles a rule without mutating loaded engine rules.
func (e *Engine) ValidateRule(rule *domain.InsightRule) error {
	if rule == nil {
		return fmt.Errorf("insight rule is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(rule)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(rule *domain.InsightRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(rule)
	if err != nil {
		return err
	}

	e.compiledRules[rule.ID] = compiled

	return nil
}

// LoadRules compiles and loads multiple rules, skipping disabled ones.
func (e *Engine) LoadRules(rules []*domain.InsightRule) error {
	for _, rule := range rules {
		if rule.Enabled {
			if err := e.LoadRule(rule); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules clears all existing rules and loads new ones.
// This enables hot-reloading of rules from the database.
func (e *Engine) ReloadRules(rules []*domain.InsightRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		compiled, err := e.compileRule(rule)
		if err != nil {
			return err
		}
		newRules[rule.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// Evaluate runs all loaded rules against a finished report and returns the
// flags of the rules that fired, sorted by rule ID so identical reports
// always carry identically ordered flags. A rule whose evaluation errors
// is skipped; one bad rule must not take down the report.
func (e *Engine) Evaluate(ctx context.Context, report *domain.BusinessCaseReport) []domain.InsightFlag {
	e.mu.RLock()
	rules := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		rules = append(rules, rule)
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	activation := activationFor(report)

	fired := make([]bool, len(rules))
	var wg sync.WaitGroup

	// Limit concurrency with semaphore
	sem := make(chan struct{}, e.maxWorkers)

	for i, rule := range rules {
		wg.Add(1)
		go func(idx int, r *CompiledRule) {
			defer wg.Done()

			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			out, _, err := r.Program.Eval(activation)
			if err != nil {
				return
			}
			fired[idx] = isTrue(out)
		}(i, rule)
	}

	wg.Wait()

	var flags []domain.InsightFlag
	for i, rule := range rules {
		if !fired[i] {
			continue
		}
		flags = append(flags, domain.InsightFlag{
			RuleID:   rule.Rule.ID,
			Name:     rule.Rule.Name,
			Severity: rule.Rule.Severity,
			Note:     rule.Rule.Description,
		})
	}

	sort.Slice(flags, func(i, j int) bool { return flags[i].RuleID < flags[j].RuleID })

	return flags
}

// activationFor flattens the report aggregates into CEL variables.
func activationFor(report *domain.BusinessCaseReport) map[string]any {
	breakEvenUnits := -1.0
	if report.BreakEvenAnalysis.UnitsSoldToBreakEven != nil {
		breakEvenUnits = *report.BreakEvenAnalysis.UnitsSoldToBreakEven
	}

	moderateRevenue := 0.0
	for _, s := range report.RevenueProjections {
		if s.Scenario == domain.ScenarioModerate {
			moderateRevenue = s.Revenue
		}
	}

	return map[string]any{
		"weighted_demand":      report.MarketSizing.WeightedDemand,
		"total_signals":        report.MarketSizing.TotalDemandSignals,
		"overall_conversion":   report.ConversionMetrics.Rates.OverallConversion,
		"confidence_score":     report.DataQuality.ConfidenceScore,
		"confidence_level":     string(report.DataQuality.ConfidenceLevel),
		"suggested_price":      report.PricingInsights.SuggestedPricePoint,
		"price_points":         report.PricingInsights.DataPoints,
		"visitors":             report.ConversionMetrics.Funnel.Visitors,
		"orderers":             report.ConversionMetrics.Funnel.Orderers,
		"moderate_revenue":     moderateRevenue,
		"break_even_units":     breakEvenUnits,
		"campaign_performance": report.ConversionMetrics.Benchmarks.CampaignPerformance,
	}
}

func isTrue(val ref.Val) bool {
	b, ok := val.(types.Bool)
	return ok && bool(b)
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// GetLoadedRules returns the currently loaded rule configurations.
func (e *Engine) GetLoadedRules() []*domain.InsightRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.InsightRule, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Rule)
	}
	return rules
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(rule *domain.InsightRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile insight rule %s: %w", rule.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("insight rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for insight rule %s: %w", rule.ID, err)
	}

	return &CompiledRule{
		Rule:    rule,
		Program: program,
	}, nil
}
