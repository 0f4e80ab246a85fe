package domain

// BusinessCaseReport is the assembled output of the demand signal engine.
// It is ephemeral: recomputed from a CampaignSnapshot on each request, never
// persisted, and a pure function of its inputs. Identical snapshots must
// marshal to byte-identical reports, so nothing time- or ID-dependent may
// live inside it.
type BusinessCaseReport struct {
	CampaignID         string               `json:"campaignId"`
	MarketSizing       MarketSizing         `json:"marketSizing"`
	RevenueProjections []ScenarioProjection `json:"revenueProjections"`
	PricingInsights    PricingInsights      `json:"pricingInsights"`
	ConversionMetrics  ConversionMetrics    `json:"conversionMetrics"`
	DataQuality        DataQuality          `json:"dataQuality"`
	BreakEvenAnalysis  BreakEvenAnalysis    `json:"breakEvenAnalysis"`
	Insights           Insights             `json:"insights"`
}

// MarketSizing summarizes raw and conviction-weighted demand.
type MarketSizing struct {
	TotalDemandSignals int             `json:"totalDemandSignals"`
	WeightedDemand     float64         `json:"weightedDemand"`
	LobbyBreakdown     LobbyBreakdown  `json:"lobbyBreakdown"`
	PledgeBreakdown    PledgeBreakdown `json:"pledgeBreakdown"`
}

// LobbyBreakdown partitions lobby signals by intensity tier.
type LobbyBreakdown struct {
	NeatIdea    int `json:"neatIdea"`
	ProbablyBuy int `json:"probablyBuy"`
	TakeMyMoney int `json:"takeMyMoney"`
	Total       int `json:"total"`
}

// PledgeBreakdown partitions pledge signals by type.
type PledgeBreakdown struct {
	Support int `json:"support"`
	Intent  int `json:"intent"`
	Total   int `json:"total"`
}

// PricingInsights is derived from the subset of pledges carrying a price
// ceiling.
type PricingInsights struct {
	AvgPriceCeiling     float64    `json:"avgPriceCeiling"`
	MedianPriceCeiling  float64    `json:"medianPriceCeiling"`
	PriceRange          PriceRange `json:"priceRange"`
	SuggestedPricePoint float64    `json:"suggestedPricePoint"`
	DataPoints          int        `json:"dataPoints"`
	Reasoning           string     `json:"reasoning"`
}

// PriceRange is the observed min/max price ceiling.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ConversionMetrics holds the multi-stage funnel, stage rates, cohort
// conversion, the 30-day trend series, and the industry benchmark verdict.
type ConversionMetrics struct {
	Funnel      FunnelCounts       `json:"funnel"`
	Rates       ConversionRates    `json:"rates"`
	ByIntensity map[string]float64 `json:"byIntensity"`
	Trends      []DailyTrend       `json:"trends"`
	Benchmarks  Benchmarks         `json:"benchmarks"`
}

// ConversionRates are stage-to-stage rates expressed as percentages in
// [0, 100]. A zero denominator yields 0, never an error.
type ConversionRates struct {
	VisitToLobby      float64 `json:"visitToLobby"`
	LobbyToPledge     float64 `json:"lobbyToPledge"`
	PledgeToOrder     float64 `json:"pledgeToOrder"`
	OverallConversion float64 `json:"overallConversion"`
}

// Benchmarks compares overall conversion against a fixed industry baseline.
type Benchmarks struct {
	IndustryAvg         float64 `json:"industryAvg"`
	CampaignPerformance string  `json:"campaignPerformance"`
}

// Benchmark performance labels.
const (
	PerformanceBelow       = "below"
	PerformanceAverage     = "average"
	PerformanceAbove       = "above"
	PerformanceExceptional = "exceptional"
)

// DataQuality scores how much evidence backs the projections.
type DataQuality struct {
	ConfidenceScore int             `json:"confidenceScore"`
	ConfidenceLevel ConfidenceLevel `json:"confidenceLevel"`
	DataSufficiency string          `json:"dataSufficiency"`
}

// ConfidenceLevel is the qualitative band for a confidence score.
type ConfidenceLevel string

const (
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceMedium   ConfidenceLevel = "medium"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
)

// ScenarioProjection is one of the three revenue scenarios.
type ScenarioProjection struct {
	Scenario     string  `json:"scenario"`
	Description  string  `json:"description"`
	Customers    float64 `json:"customers"`
	Revenue      float64 `json:"revenue"`
	ProfitMargin float64 `json:"profitMargin"`
}

// Scenario names, ordered weakest to strongest.
const (
	ScenarioConservative = "conservative"
	ScenarioModerate     = "moderate"
	ScenarioOptimistic   = "optimistic"
)

// BreakEvenAnalysis derives the sales volume needed to cover the assumed
// fixed cost baseline. UnitsSoldToBreakEven is nil when pricing cannot
// sustain a margin; the condition is surfaced via Warning, not an error.
type BreakEvenAnalysis struct {
	UnitsSoldToBreakEven *float64 `json:"unitsSoldToBreakEven"`
	RevenueNeeded        float64  `json:"revenueNeeded"`
	EstimatedTimeframe   string   `json:"estimatedTimeframe"`
	Warning              string   `json:"warning,omitempty"`
}

// Insights holds the derived boolean flags, the recommendation, and any
// operator-defined insight rule hits.
type Insights struct {
	HasStrongSignals  bool          `json:"hasStrongSignals"`
	HasPricingData    bool          `json:"hasPricingData"`
	HasHighConfidence bool          `json:"hasHighConfidence"`
	RecommendedAction string        `json:"recommendedAction"`
	Flags             []InsightFlag `json:"flags,omitempty"`
}

// Recommendation strings. The survey wording also drives a UI
// call-to-action, so it must not drift.
const (
	ActionPlanProduction = "sufficient data to justify production planning"
	ActionRunSurvey      = "run a survey to collect more data"
)

// InsightFlag is the result of one triggered insight rule.
type InsightFlag struct {
	RuleID   string `json:"ruleId"`
	Name     string `json:"name"`
	Severity string `json:"severity,omitempty"`
	Note     string `json:"note,omitempty"`
}
