// Package funnel computes stage-to-stage conversion rates and benchmarks
// them against the industry baseline.
package funnel

import (
	"github.com/crowdwant/pulse/internal/domain"
)

// Calculator derives ConversionMetrics from funnel counts, cohort counts,
// and the daily trend series. Stateless apart from configuration.
type Calculator struct {
	cfg domain.EngineConfig
}

// New creates a Calculator with the given engine tunables.
func New(cfg domain.EngineConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Metrics computes the full conversion section of a report. The trend
// series passes through unmodified for charting.
func (c *Calculator) Metrics(counts domain.FunnelCounts, cohorts map[domain.LobbyIntensity]domain.CohortCounts, trends []domain.DailyTrend) domain.ConversionMetrics {
	overall := rate(counts.Orderers, max(counts.Visitors, 1))

	m := domain.ConversionMetrics{
		Funnel: counts,
		Rates: domain.ConversionRates{
			VisitToLobby:      rate(counts.Lobbyists, counts.Visitors),
			LobbyToPledge:     rate(counts.Pledgers, counts.Lobbyists),
			PledgeToOrder:     rate(counts.Orderers, counts.Pledgers),
			OverallConversion: overall,
		},
		ByIntensity: byIntensity(cohorts),
		Trends:      trends,
		Benchmarks: domain.Benchmarks{
			IndustryAvg:         c.cfg.IndustryAvgConversion,
			CampaignPerformance: c.classify(overall),
		},
	}
	return m
}

// classify maps an overall conversion percentage onto the benchmark bands.
func (c *Calculator) classify(overall float64) string {
	avg := c.cfg.IndustryAvgConversion
	switch {
	case overall < avg:
		return domain.PerformanceBelow
	case overall < avg*c.cfg.BenchmarkAverageMult:
		return domain.PerformanceAverage
	case overall < avg*c.cfg.BenchmarkAboveMult:
		return domain.PerformanceAbove
	default:
		return domain.PerformanceExceptional
	}
}

// byIntensity computes the lobbied-to-ordered conversion rate for each
// intensity cohort. All three tiers are always present so the report shape
// is stable for consumers.
func byIntensity(cohorts map[domain.LobbyIntensity]domain.CohortCounts) map[string]float64 {
	out := make(map[string]float64, 3)
	for _, tier := range []domain.LobbyIntensity{
		domain.IntensityNeatIdea,
		domain.IntensityProbablyBuy,
		domain.IntensityTakeMyMoney,
	} {
		cc := cohorts[tier]
		out[string(tier)] = rate(cc.Ordered, cc.Lobbied)
	}
	return out
}

// rate is the one conversion formula used everywhere: percentage in
// [0, 100], zero denominator yields 0 rather than an error.
func rate(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	// Multiply before dividing so exact ratios (17/1000 → 1.7) round once.
	r := float64(num) * 100 / float64(den)
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}
