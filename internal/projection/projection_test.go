package projection

import (
	"testing"

	"github.com/crowdwant/pulse/internal/domain"
)

func newTestProjector() *Projector {
	return New(domain.DefaultEngineConfig())
}

func sizing(neat, probably, take, support, intent int) domain.MarketSizing {
	return domain.MarketSizing{
		LobbyBreakdown: domain.LobbyBreakdown{
			NeatIdea:    neat,
			ProbablyBuy: probably,
			TakeMyMoney: take,
			Total:       neat + probably + take,
		},
		PledgeBreakdown: domain.PledgeBreakdown{
			Support: support,
			Intent:  intent,
			Total:   support + intent,
		},
	}
}

func pricingAt(price float64) domain.PricingInsights {
	return domain.PricingInsights{SuggestedPricePoint: price, DataPoints: 3}
}

func TestScenariosDefaults(t *testing.T) {
	p := newTestProjector()

	// 10 NEAT_IDEA, 5 PROBABLY_BUY, 2 TAKE_MY_MONEY, no pledges
	scenarios := p.Scenarios(sizing(10, 5, 2, 0, 0), pricingAt(60), nil)
	if len(scenarios) != 3 {
		t.Fatalf("expected 3 scenarios, got %d", len(scenarios))
	}

	moderate := scenarios[1]
	if moderate.Scenario != domain.ScenarioModerate {
		t.Fatalf("expected moderate second, got %q", moderate.Scenario)
	}
	// 10*0.05 + 5*0.20 + 2*0.60 = 2.7
	if got := moderate.Customers; got < 2.699 || got > 2.701 {
		t.Errorf("expected moderate customers 2.7, got %v", got)
	}
	if got := moderate.Revenue; got < 161.9 || got > 162.1 {
		t.Errorf("expected moderate revenue 162, got %v", got)
	}
	if moderate.ProfitMargin != 0.35 {
		t.Errorf("expected moderate margin 0.35, got %v", moderate.ProfitMargin)
	}

	conservative := scenarios[0]
	// halved rates: 10*0.025 + 5*0.10 + 2*0.30 = 1.35
	if got := conservative.Customers; got < 1.349 || got > 1.351 {
		t.Errorf("expected conservative customers 1.35, got %v", got)
	}

	optimistic := scenarios[2]
	// 1.5x: 10*0.075 + 5*0.30 + 2*0.90 = 4.05
	if got := optimistic.Customers; got < 4.049 || got > 4.051 {
		t.Errorf("expected optimistic customers 4.05, got %v", got)
	}
}

func TestScenariosPledgeRates(t *testing.T) {
	p := newTestProjector()

	scenarios := p.Scenarios(sizing(0, 0, 0, 10, 10), pricingAt(100), nil)

	// conservative: 10*0.08 + 10*0.45 = 5.3
	if got := scenarios[0].Customers; got < 5.299 || got > 5.301 {
		t.Errorf("expected conservative customers 5.3, got %v", got)
	}
	// moderate: 10*0.15 + 10*0.70 = 8.5
	if got := scenarios[1].Customers; got < 8.499 || got > 8.501 {
		t.Errorf("expected moderate customers 8.5, got %v", got)
	}
	// optimistic: 10*0.25 + 10*0.90 = 11.5
	if got := scenarios[2].Customers; got < 11.499 || got > 11.501 {
		t.Errorf("expected optimistic customers 11.5, got %v", got)
	}
}

func TestScenariosOrderingInvariant(t *testing.T) {
	p := newTestProjector()

	inputs := []domain.MarketSizing{
		sizing(0, 0, 0, 0, 0),
		sizing(1, 0, 0, 0, 0),
		sizing(100, 50, 20, 30, 15),
		sizing(0, 0, 500, 0, 0),
	}
	for _, ms := range inputs {
		s := p.Scenarios(ms, pricingAt(75), nil)
		if s[0].Customers > s[1].Customers || s[1].Customers > s[2].Customers {
			t.Errorf("customer ordering violated for %+v: %v / %v / %v",
				ms, s[0].Customers, s[1].Customers, s[2].Customers)
		}
		if s[0].Revenue > s[1].Revenue || s[1].Revenue > s[2].Revenue {
			t.Errorf("revenue ordering violated for %+v", ms)
		}
	}
}

func TestScenariosObservedRateOverride(t *testing.T) {
	p := newTestProjector()

	observed := map[domain.LobbyIntensity]float64{
		domain.IntensityTakeMyMoney: 0.80, // better than the 0.60 default
	}
	s := p.Scenarios(sizing(0, 0, 10, 0, 0), pricingAt(50), observed)

	// moderate uses the observed rate directly
	if got := s[1].Customers; got < 7.999 || got > 8.001 {
		t.Errorf("expected moderate customers 8 from observed rate, got %v", got)
	}
	// optimistic scales 0.80*1.5 but caps at 0.90
	if got := s[2].Customers; got < 8.999 || got > 9.001 {
		t.Errorf("expected optimistic customers 9 from capped rate, got %v", got)
	}
	// a zero observed rate keeps the default assumption
	s = p.Scenarios(sizing(0, 0, 10, 0, 0), pricingAt(50),
		map[domain.LobbyIntensity]float64{domain.IntensityTakeMyMoney: 0})
	if got := s[1].Customers; got < 5.999 || got > 6.001 {
		t.Errorf("expected moderate customers 6 from default rate, got %v", got)
	}

	// an observed rate above the optimistic cap must not invert the ordering
	s = p.Scenarios(sizing(0, 0, 10, 0, 0), pricingAt(50),
		map[domain.LobbyIntensity]float64{domain.IntensityTakeMyMoney: 1.0})
	if s[1].Customers > s[2].Customers {
		t.Errorf("optimistic (%v) fell below moderate (%v) at a full observed rate",
			s[2].Customers, s[1].Customers)
	}
}

func TestBreakEven(t *testing.T) {
	p := newTestProjector()

	t.Run("healthy pricing", func(t *testing.T) {
		be := p.BreakEven(domain.ScenarioProjection{Customers: 100}, pricingAt(60))
		if be.UnitsSoldToBreakEven == nil {
			t.Fatal("expected units, got nil")
		}
		// 50000 / (60 * 0.35) = 2380.95...
		units := *be.UnitsSoldToBreakEven
		if units < 2380 || units > 2382 {
			t.Errorf("expected ~2381 units, got %v", units)
		}
		if be.RevenueNeeded < units*60-0.01 || be.RevenueNeeded > units*60+0.01 {
			t.Errorf("expected revenueNeeded = units*price, got %v", be.RevenueNeeded)
		}
		// 2381/100 = 23.8 cohorts
		if be.EstimatedTimeframe != TimeframeLong {
			t.Errorf("expected %q, got %q", TimeframeLong, be.EstimatedTimeframe)
		}
		if be.Warning != "" {
			t.Errorf("expected no warning, got %q", be.Warning)
		}
	})

	t.Run("zero price", func(t *testing.T) {
		be := p.BreakEven(domain.ScenarioProjection{Customers: 10}, pricingAt(0))
		if be.UnitsSoldToBreakEven != nil {
			t.Errorf("expected nil units, got %v", *be.UnitsSoldToBreakEven)
		}
		if be.EstimatedTimeframe != TimeframeUnsustainable {
			t.Errorf("expected %q, got %q", TimeframeUnsustainable, be.EstimatedTimeframe)
		}
		if be.Warning == "" {
			t.Error("expected a warning for uneconomic pricing")
		}
	})

	t.Run("zero moderate customers", func(t *testing.T) {
		be := p.BreakEven(domain.ScenarioProjection{Customers: 0}, pricingAt(60))
		if be.EstimatedTimeframe != TimeframeLong {
			t.Errorf("expected %q for zero-volume campaign, got %q", TimeframeLong, be.EstimatedTimeframe)
		}
	})

	t.Run("timeframe buckets", func(t *testing.T) {
		tests := []struct {
			name      string
			customers float64
			want      string
		}{
			{"within campaign", 3000, TimeframeCurrentCampaign},
			{"short", 1000, TimeframeShort},
			{"medium", 300, TimeframeMedium},
			{"long", 100, TimeframeLong},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				be := p.BreakEven(domain.ScenarioProjection{Customers: tt.customers}, pricingAt(60))
				if be.EstimatedTimeframe != tt.want {
					t.Errorf("expected %q, got %q", tt.want, be.EstimatedTimeframe)
				}
			})
		}
	})
}
