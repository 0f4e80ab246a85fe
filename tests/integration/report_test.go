//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Pulse demand signal
// engine.
//
// These tests verify the COMPLETE reporting pipeline:
//
//	Signals → Snapshot → Aggregation → Funnel → Projections → Report
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
// 1. LOBBY SIGNAL: Declared interest at one of three conviction levels.
//    NEAT_IDEA weighs 1, PROBABLY_BUY weighs 2, TAKE_MY_MONEY weighs 5.
//
// 2. PLEDGE SIGNAL: A stronger commitment. SUPPORT weighs 1, INTENT weighs 3.
//    Pledges optionally carry a price ceiling that drives pricing insights.
//
// 3. FUNNEL: visitors → lobbyists → pledgers → orderers, all distinct actors.
//
// 4. REPORT: A pure function of the campaign snapshot. Identical snapshots
//    produce byte-identical reports, and the cache is addressed by the last
//    signal timestamp, so stale reports can never be served.
//
// The tests run against a live server with a fresh database. Reuse of a
// seeded database will shift the counts and fail the assertions.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL  string
	TenantID string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("PULSE_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{
		BaseURL:  baseURL,
		TenantID: "test-tenant",
	}
}

// ============================================================================
// API Request/Response Types (matching Pulse's API contract)
// ============================================================================

type LobbyRequest struct {
	SupporterID string `json:"supporterId"`
	Intensity   string `json:"intensity"`
	Verified    bool   `json:"verified,omitempty"`
}

type PledgeRequest struct {
	SupporterID   string   `json:"supporterId"`
	Type          string   `json:"type"`
	PriceCeiling  *float64 `json:"priceCeiling,omitempty"`
	TimeframeDays *int     `json:"timeframeDays,omitempty"`
}

type VisitRequest struct {
	VisitorID string `json:"visitorId"`
}

type OrderRequest struct {
	BuyerID string  `json:"buyerId"`
	Amount  float64 `json:"amount"`
}

// Report mirrors the GET /campaigns/{id}/report response.
type Report struct {
	CampaignID   string `json:"campaignId"`
	MarketSizing struct {
		TotalDemandSignals int     `json:"totalDemandSignals"`
		WeightedDemand     float64 `json:"weightedDemand"`
		LobbyBreakdown     struct {
			NeatIdea    int `json:"neatIdea"`
			ProbablyBuy int `json:"probablyBuy"`
			TakeMyMoney int `json:"takeMyMoney"`
			Total       int `json:"total"`
		} `json:"lobbyBreakdown"`
	} `json:"marketSizing"`
	RevenueProjections []struct {
		Scenario  string  `json:"scenario"`
		Customers float64 `json:"customers"`
		Revenue   float64 `json:"revenue"`
	} `json:"revenueProjections"`
	PricingInsights struct {
		AvgPriceCeiling     float64 `json:"avgPriceCeiling"`
		MedianPriceCeiling  float64 `json:"medianPriceCeiling"`
		SuggestedPricePoint float64 `json:"suggestedPricePoint"`
		DataPoints          int     `json:"dataPoints"`
	} `json:"pricingInsights"`
	ConversionMetrics struct {
		Funnel struct {
			Visitors  int `json:"visitors"`
			Lobbyists int `json:"lobbyists"`
			Pledgers  int `json:"pledgers"`
			Orderers  int `json:"orderers"`
		} `json:"funnel"`
		Rates struct {
			OverallConversion float64 `json:"overallConversion"`
		} `json:"rates"`
		Benchmarks struct {
			IndustryAvg         float64 `json:"industryAvg"`
			CampaignPerformance string  `json:"campaignPerformance"`
		} `json:"benchmarks"`
	} `json:"conversionMetrics"`
	DataQuality struct {
		ConfidenceScore int    `json:"confidenceScore"`
		ConfidenceLevel string `json:"confidenceLevel"`
	} `json:"dataQuality"`
	BreakEvenAnalysis struct {
		UnitsSoldToBreakEven *float64 `json:"unitsSoldToBreakEven"`
		RevenueNeeded        float64  `json:"revenueNeeded"`
		EstimatedTimeframe   string   `json:"estimatedTimeframe"`
	} `json:"breakEvenAnalysis"`
	Insights struct {
		HasStrongSignals  bool   `json:"hasStrongSignals"`
		HasPricingData    bool   `json:"hasPricingData"`
		RecommendedAction string `json:"recommendedAction"`
	} `json:"insights"`
}

// ============================================================================
// Test Helper Functions
// ============================================================================

func post(t *testing.T, config TestConfig, path string, req any) {
	t.Helper()

	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequest("POST", config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", config.TenantID)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		t.Fatalf("POST %s returned %d: %s", path, resp.StatusCode, respBody)
	}
}

func getReport(t *testing.T, config TestConfig, campaignID string) (Report, string) {
	t.Helper()

	httpReq, err := http.NewRequest("GET", fmt.Sprintf("%s/campaigns/%s/report", config.BaseURL, campaignID), nil)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	httpReq.Header.Set("X-Tenant-ID", config.TenantID)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET report returned %d: %s", resp.StatusCode, respBody)
	}

	var report Report
	if err := json.Unmarshal(respBody, &report); err != nil {
		t.Fatalf("Failed to parse report: %v", err)
	}

	return report, resp.Header.Get("X-Cache")
}

func checkServerRunning(t *testing.T, config TestConfig) {
	t.Helper()

	resp, err := http.Get(config.BaseURL + "/health")
	if err != nil {
		t.Skipf("Pulse not running at %s, skipping integration tests", config.BaseURL)
	}
	defer resp.Body.Close()
}

// ============================================================================
// End-to-End Tests
// ============================================================================

// TestReferenceCampaign seeds the canonical mid-campaign scenario and checks
// every derived metric: 10 NEAT_IDEA + 5 PROBABLY_BUY + 2 TAKE_MY_MONEY
// lobbies, 5 SUPPORT pledges with ceilings 50..90, 1000 visitors, 2 orders.
func TestReferenceCampaign(t *testing.T) {
	config := getTestConfig()
	checkServerRunning(t, config)

	campaignID := fmt.Sprintf("camp-ref-%d", time.Now().UnixNano())
	base := "/campaigns/" + campaignID

	// Seeding order matters: the funnel stages must be made of distinct
	// actors, so id ranges never overlap across stage roles
	for i := 0; i < 1000; i++ {
		post(t, config, base+"/events/visit", VisitRequest{
			VisitorID: fmt.Sprintf("visitor-%04d", i),
		})
	}

	intensity := func(i int) string {
		switch {
		case i < 10:
			return "NEAT_IDEA"
		case i < 15:
			return "PROBABLY_BUY"
		default:
			return "TAKE_MY_MONEY"
		}
	}
	for i := 0; i < 17; i++ {
		post(t, config, base+"/signals/lobby", LobbyRequest{
			SupporterID: fmt.Sprintf("visitor-%04d", i),
			Intensity:   intensity(i),
		})
	}

	for i, price := range []float64{50, 60, 70, 80, 90} {
		p := price
		post(t, config, base+"/signals/pledge", PledgeRequest{
			SupporterID:  fmt.Sprintf("visitor-%04d", i),
			Type:         "SUPPORT",
			PriceCeiling: &p,
		})
	}

	for i := 0; i < 2; i++ {
		post(t, config, base+"/events/order", OrderRequest{
			BuyerID: fmt.Sprintf("visitor-%04d", i),
			Amount:  60,
		})
	}

	report, cacheState := getReport(t, config, campaignID)

	t.Run("MarketSizing", func(t *testing.T) {
		if report.MarketSizing.TotalDemandSignals != 22 {
			t.Errorf("expected 22 total signals, got %d", report.MarketSizing.TotalDemandSignals)
		}
		// 10*1 + 5*2 + 2*5 lobby weight plus 5*1 pledge weight
		if report.MarketSizing.WeightedDemand != 35 {
			t.Errorf("expected weighted demand 35, got %.1f", report.MarketSizing.WeightedDemand)
		}
		if report.MarketSizing.LobbyBreakdown.TakeMyMoney != 2 {
			t.Errorf("expected 2 TAKE_MY_MONEY, got %d", report.MarketSizing.LobbyBreakdown.TakeMyMoney)
		}
	})

	t.Run("Pricing", func(t *testing.T) {
		if report.PricingInsights.MedianPriceCeiling != 70 {
			t.Errorf("expected median 70, got %.1f", report.PricingInsights.MedianPriceCeiling)
		}
		// 40th percentile, nearest rank, of [50 60 70 80 90]
		if report.PricingInsights.SuggestedPricePoint != 60 {
			t.Errorf("expected suggested price 60, got %.1f", report.PricingInsights.SuggestedPricePoint)
		}
		if report.PricingInsights.DataPoints != 5 {
			t.Errorf("expected 5 data points, got %d", report.PricingInsights.DataPoints)
		}
	})

	t.Run("Funnel", func(t *testing.T) {
		f := report.ConversionMetrics.Funnel
		if f.Visitors != 1000 || f.Lobbyists != 17 || f.Pledgers != 5 || f.Orderers != 2 {
			t.Errorf("expected funnel 1000/17/5/2, got %d/%d/%d/%d",
				f.Visitors, f.Lobbyists, f.Pledgers, f.Orderers)
		}
		if report.ConversionMetrics.Rates.OverallConversion != 0.2 {
			t.Errorf("expected overall conversion 0.2, got %.2f", report.ConversionMetrics.Rates.OverallConversion)
		}
		// 0.2% against a 2.5% industry average
		if report.ConversionMetrics.Benchmarks.CampaignPerformance != "below" {
			t.Errorf("expected performance 'below', got %q", report.ConversionMetrics.Benchmarks.CampaignPerformance)
		}
	})

	t.Run("Confidence", func(t *testing.T) {
		// min(22*2, 60) + min(5*4, 40) = 44 + 20
		if report.DataQuality.ConfidenceScore != 64 {
			t.Errorf("expected confidence 64, got %d", report.DataQuality.ConfidenceScore)
		}
		if report.DataQuality.ConfidenceLevel != "high" {
			t.Errorf("expected level 'high', got %q", report.DataQuality.ConfidenceLevel)
		}
	})

	t.Run("Scenarios", func(t *testing.T) {
		if len(report.RevenueProjections) != 3 {
			t.Fatalf("expected 3 scenarios, got %d", len(report.RevenueProjections))
		}
		order := []string{"conservative", "moderate", "optimistic"}
		for i, s := range report.RevenueProjections {
			if s.Scenario != order[i] {
				t.Errorf("expected scenario %q at position %d, got %q", order[i], i, s.Scenario)
			}
		}
		if report.RevenueProjections[0].Revenue > report.RevenueProjections[2].Revenue {
			t.Error("conservative revenue must not exceed optimistic")
		}
	})

	t.Run("BreakEven", func(t *testing.T) {
		if report.BreakEvenAnalysis.UnitsSoldToBreakEven == nil {
			t.Fatal("expected break-even units with viable pricing")
		}
		// 50000 / (60 * 0.35)
		got := *report.BreakEvenAnalysis.UnitsSoldToBreakEven
		if got < 2380 || got > 2382 {
			t.Errorf("expected break-even units near 2381, got %.1f", got)
		}
	})

	t.Run("CacheBehavior", func(t *testing.T) {
		if cacheState != "miss" {
			t.Errorf("expected first read to miss the cache, got %q", cacheState)
		}

		_, second := getReport(t, config, campaignID)
		if second != "hit" {
			t.Errorf("expected second read to hit the cache, got %q", second)
		}

		post(t, config, base+"/signals/lobby", LobbyRequest{
			SupporterID: "visitor-late",
			Intensity:   "TAKE_MY_MONEY",
		})

		fresh, third := getReport(t, config, campaignID)
		if third != "miss" {
			t.Errorf("expected read after new signal to miss the cache, got %q", third)
		}
		if fresh.MarketSizing.WeightedDemand != 40 {
			t.Errorf("expected weighted demand 40 after extra signal, got %.1f", fresh.MarketSizing.WeightedDemand)
		}
	})
}

// TestTenantIsolation verifies that one tenant's signals never leak into
// another tenant's report.
func TestTenantIsolation(t *testing.T) {
	config := getTestConfig()
	checkServerRunning(t, config)

	campaignID := fmt.Sprintf("camp-iso-%d", time.Now().UnixNano())

	post(t, config, "/campaigns/"+campaignID+"/signals/lobby", LobbyRequest{
		SupporterID: "supporter-a",
		Intensity:   "TAKE_MY_MONEY",
	})

	other := config
	other.TenantID = "other-tenant"
	report, _ := getReport(t, other, campaignID)

	if report.MarketSizing.TotalDemandSignals != 0 {
		t.Errorf("expected 0 signals for other tenant, got %d", report.MarketSizing.TotalDemandSignals)
	}
}

// TestEmptyCampaign verifies a campaign with no signals still yields a
// complete, survey-recommending report.
func TestEmptyCampaign(t *testing.T) {
	config := getTestConfig()
	checkServerRunning(t, config)

	campaignID := fmt.Sprintf("camp-empty-%d", time.Now().UnixNano())
	report, _ := getReport(t, config, campaignID)

	if report.DataQuality.ConfidenceLevel != "low" {
		t.Errorf("expected low confidence, got %q", report.DataQuality.ConfidenceLevel)
	}
	if report.Insights.RecommendedAction != "run a survey to collect more data" {
		t.Errorf("unexpected recommendation: %q", report.Insights.RecommendedAction)
	}
	if report.BreakEvenAnalysis.UnitsSoldToBreakEven != nil {
		t.Error("expected nil break-even units without pricing data")
	}
}
