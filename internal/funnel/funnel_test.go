package funnel

import (
	"testing"

	"github.com/crowdwant/pulse/internal/domain"
)

func newTestCalculator() *Calculator {
	return New(domain.DefaultEngineConfig())
}

func TestMetricsRates(t *testing.T) {
	calc := newTestCalculator()

	m := calc.Metrics(domain.FunnelCounts{
		Visitors:  1000,
		Lobbyists: 17,
		Pledgers:  5,
		Orderers:  2,
	}, nil, nil)

	if m.Rates.VisitToLobby != 1.7 {
		t.Errorf("expected visitToLobby 1.7, got %v", m.Rates.VisitToLobby)
	}
	if got := m.Rates.LobbyToPledge; got < 29.41 || got > 29.42 {
		t.Errorf("expected lobbyToPledge ~29.41, got %v", got)
	}
	if m.Rates.PledgeToOrder != 40 {
		t.Errorf("expected pledgeToOrder 40, got %v", m.Rates.PledgeToOrder)
	}
	if m.Rates.OverallConversion != 0.2 {
		t.Errorf("expected overallConversion 0.2, got %v", m.Rates.OverallConversion)
	}
	if m.Benchmarks.CampaignPerformance != domain.PerformanceBelow {
		t.Errorf("expected below performance, got %q", m.Benchmarks.CampaignPerformance)
	}
	if m.Benchmarks.IndustryAvg != 2.5 {
		t.Errorf("expected industryAvg 2.5, got %v", m.Benchmarks.IndustryAvg)
	}
}

func TestMetricsZeroVisitors(t *testing.T) {
	calc := newTestCalculator()

	m := calc.Metrics(domain.FunnelCounts{Orderers: 3}, nil, nil)
	if m.Rates.OverallConversion != 100 {
		// 3 orderers over max(0,1) visitors, clamped
		t.Errorf("expected clamped 100, got %v", m.Rates.OverallConversion)
	}

	m = calc.Metrics(domain.FunnelCounts{}, nil, nil)
	if m.Rates.OverallConversion != 0 {
		t.Errorf("expected 0 overall conversion for empty funnel, got %v", m.Rates.OverallConversion)
	}
	if m.Rates.VisitToLobby != 0 || m.Rates.LobbyToPledge != 0 || m.Rates.PledgeToOrder != 0 {
		t.Errorf("expected all-zero rates, got %+v", m.Rates)
	}
}

func TestBenchmarkBands(t *testing.T) {
	calc := newTestCalculator()

	tests := []struct {
		name     string
		visitors int
		orderers int
		want     string
	}{
		{"below", 1000, 10, domain.PerformanceBelow},           // 1.0%
		{"average at threshold", 1000, 25, domain.PerformanceAverage}, // 2.5%
		{"average", 1000, 30, domain.PerformanceAverage},       // 3.0%
		{"above at threshold", 1000, 38, domain.PerformanceAbove},     // 3.8% >= 3.75
		{"above", 1000, 50, domain.PerformanceAbove},           // 5.0%
		{"exceptional at threshold", 1000, 75, domain.PerformanceExceptional}, // 7.5%
		{"exceptional", 1000, 120, domain.PerformanceExceptional},             // 12%
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := calc.Metrics(domain.FunnelCounts{Visitors: tt.visitors, Orderers: tt.orderers}, nil, nil)
			if m.Benchmarks.CampaignPerformance != tt.want {
				t.Errorf("expected %q, got %q", tt.want, m.Benchmarks.CampaignPerformance)
			}
		})
	}
}

func TestByIntensityCohorts(t *testing.T) {
	calc := newTestCalculator()

	cohorts := map[domain.LobbyIntensity]domain.CohortCounts{
		domain.IntensityTakeMyMoney: {Lobbied: 4, Ordered: 2},
		domain.IntensityNeatIdea:    {Lobbied: 10, Ordered: 0},
	}
	m := calc.Metrics(domain.FunnelCounts{Visitors: 100}, cohorts, nil)

	if got := m.ByIntensity[string(domain.IntensityTakeMyMoney)]; got != 50 {
		t.Errorf("expected TAKE_MY_MONEY cohort rate 50, got %v", got)
	}
	if got := m.ByIntensity[string(domain.IntensityNeatIdea)]; got != 0 {
		t.Errorf("expected NEAT_IDEA cohort rate 0, got %v", got)
	}
	// missing cohort is present at zero, not absent
	if got, ok := m.ByIntensity[string(domain.IntensityProbablyBuy)]; !ok || got != 0 {
		t.Errorf("expected PROBABLY_BUY cohort present at 0, got %v (present=%v)", got, ok)
	}
}

func TestTrendsPassThrough(t *testing.T) {
	calc := newTestCalculator()

	trends := []domain.DailyTrend{
		{Date: "2026-08-30", Visits: 40, Lobbies: 3},
		{Date: "2026-08-31", Visits: 55, Orders: 1},
	}
	m := calc.Metrics(domain.FunnelCounts{Visitors: 95}, nil, trends)
	if len(m.Trends) != 2 || m.Trends[1].Visits != 55 {
		t.Errorf("expected trends passed through unmodified, got %+v", m.Trends)
	}
}
