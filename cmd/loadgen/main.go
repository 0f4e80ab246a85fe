// Load generator for exercising Pulse with synthetic campaign traffic.
//
// Usage:
//   go run cmd/loadgen/main.go -campaign camp-001 -url http://localhost:8080
//
// This tool:
//   1. Seeds synthetic visits, lobby signals, pledges, and orders over HTTP
//   2. Fetches the assembled business case report
//   3. Prints demand, pricing, funnel, and confidence summaries
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// signalRequest covers all four intake endpoints; unused fields are omitted.
type signalRequest struct {
	SupporterID   string   `json:"supporterId,omitempty"`
	Intensity     string   `json:"intensity,omitempty"`
	Verified      bool     `json:"verified,omitempty"`
	Type          string   `json:"type,omitempty"`
	PriceCeiling  *float64 `json:"priceCeiling,omitempty"`
	TimeframeDays *int     `json:"timeframeDays,omitempty"`
	VisitorID     string   `json:"visitorId,omitempty"`
	BuyerID       string   `json:"buyerId,omitempty"`
	Amount        float64  `json:"amount,omitempty"`
}

type workItem struct {
	path string
	body signalRequest
}

// metrics tracks seeding results
type metrics struct {
	TotalSent   int64
	TotalErrors int64
	LatencyMs   int64
}

var intensities = []string{"NEAT_IDEA", "PROBABLY_BUY", "TAKE_MY_MONEY"}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Pulse base URL")
	tenantID := flag.String("tenant", "loadgen-test", "Tenant ID for requests")
	campaignID := flag.String("campaign", "camp-loadgen", "Campaign ID to seed")
	visits := flag.Int("visits", 1000, "Number of visit events to seed")
	lobbies := flag.Int("lobbies", 120, "Number of lobby signals to seed")
	pledges := flag.Int("pledges", 40, "Number of pledge signals to seed")
	orders := flag.Int("orders", 15, "Number of order events to seed")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	priceMin := flag.Float64("price-min", 40, "Lower bound for pledge price ceilings")
	priceMax := flag.Float64("price-max", 120, "Upper bound for pledge price ceilings")
	seed := flag.Int64("seed", 42, "Random seed for reproducible runs")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║          PULSE LOADGEN - Synthetic Campaign Traffic           ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nPulse URL:   %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Campaign:    %s\n", *campaignID)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Traffic:     %d visits, %d lobbies, %d pledges, %d orders\n",
		*visits, *lobbies, *pledges, *orders)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Pulse not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Pulse is running:")
		fmt.Println("  go run cmd/pulse/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Pulse is healthy")

	rng := rand.New(rand.NewSource(*seed))
	items := buildWorkItems(rng, *campaignID, *visits, *lobbies, *pledges, *orders, *priceMin, *priceMax)

	fmt.Printf("\nSeeding %d signals with %d workers...\n", len(items), *workers)
	startTime := time.Now()
	m := runSeed(items, *baseURL, *tenantID, *workers)
	duration := time.Since(startTime)

	fmt.Printf("✓ Seeded %d signals in %v (%d errors)\n",
		m.TotalSent-m.TotalErrors, duration.Round(time.Millisecond), m.TotalErrors)
	if m.TotalSent > 0 {
		fmt.Printf("  Avg Latency: %.2f ms, Throughput: %.2f req/sec\n",
			float64(m.LatencyMs)/float64(m.TotalSent),
			float64(m.TotalSent)/duration.Seconds())
	}

	fmt.Println("\nFetching business case report...")
	report, cacheState, err := fetchReport(*baseURL, *tenantID, *campaignID)
	if err != nil {
		fmt.Printf("ERROR: Failed to fetch report: %v\n", err)
		os.Exit(1)
	}

	printReport(report, cacheState)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func buildWorkItems(rng *rand.Rand, campaignID string, visits, lobbies, pledges, orders int, priceMin, priceMax float64) []workItem {
	base := fmt.Sprintf("/campaigns/%s", campaignID)
	var items []workItem

	for i := 0; i < visits; i++ {
		items = append(items, workItem{
			path: base + "/events/visit",
			body: signalRequest{VisitorID: fmt.Sprintf("visitor-%04d", i)},
		})
	}

	for i := 0; i < lobbies; i++ {
		// Skew toward the weaker tiers the way real campaigns do
		intensity := intensities[0]
		switch r := rng.Float64(); {
		case r < 0.15:
			intensity = intensities[2]
		case r < 0.45:
			intensity = intensities[1]
		}
		items = append(items, workItem{
			path: base + "/signals/lobby",
			body: signalRequest{
				SupporterID: fmt.Sprintf("visitor-%04d", i),
				Intensity:   intensity,
				Verified:    rng.Float64() < 0.3,
			},
		})
	}

	for i := 0; i < pledges; i++ {
		pledgeType := "SUPPORT"
		if rng.Float64() < 0.4 {
			pledgeType = "INTENT"
		}
		body := signalRequest{
			SupporterID: fmt.Sprintf("visitor-%04d", i),
			Type:        pledgeType,
		}
		// Two thirds of pledgers state a price ceiling
		if rng.Float64() < 0.66 {
			ceiling := priceMin + rng.Float64()*(priceMax-priceMin)
			body.PriceCeiling = &ceiling
			days := 7 + rng.Intn(90)
			body.TimeframeDays = &days
		}
		items = append(items, workItem{path: base + "/signals/pledge", body: body})
	}

	for i := 0; i < orders; i++ {
		items = append(items, workItem{
			path: base + "/events/order",
			body: signalRequest{
				BuyerID: fmt.Sprintf("visitor-%04d", i),
				Amount:  priceMin + rng.Float64()*(priceMax-priceMin),
			},
		})
	}

	return items
}

func runSeed(items []workItem, baseURL, tenantID string, numWorkers int) *metrics {
	m := &metrics{}

	work := make(chan workItem, 100)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for item := range work {
				start := time.Now()
				err := postSignal(client, baseURL, tenantID, item)
				atomic.AddInt64(&m.LatencyMs, time.Since(start).Milliseconds())
				atomic.AddInt64(&m.TotalSent, 1)
				if err != nil {
					atomic.AddInt64(&m.TotalErrors, 1)
				}
			}
		}()
	}

	for _, item := range items {
		work <- item
	}
	close(work)
	wg.Wait()

	return m
}

func postSignal(client *http.Client, baseURL, tenantID string, item workItem) error {
	body, err := json.Marshal(item.body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+item.path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// reportSummary mirrors the report fields the summary cares about.
type reportSummary struct {
	MarketSizing struct {
		TotalDemandSignals int     `json:"totalDemandSignals"`
		WeightedDemand     float64 `json:"weightedDemand"`
	} `json:"marketSizing"`
	RevenueProjections []struct {
		Scenario  string  `json:"scenario"`
		Customers float64 `json:"customers"`
		Revenue   float64 `json:"revenue"`
	} `json:"revenueProjections"`
	PricingInsights struct {
		SuggestedPricePoint float64 `json:"suggestedPricePoint"`
		DataPoints          int     `json:"dataPoints"`
		Reasoning           string  `json:"reasoning"`
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
			CampaignPerformance string `json:"campaignPerformance"`
		} `json:"benchmarks"`
	} `json:"conversionMetrics"`
	DataQuality struct {
		ConfidenceScore int    `json:"confidenceScore"`
		ConfidenceLevel string `json:"confidenceLevel"`
	} `json:"dataQuality"`
	BreakEvenAnalysis struct {
		UnitsSoldToBreakEven *float64 `json:"unitsSoldToBreakEven"`
		EstimatedTimeframe   string   `json:"estimatedTimeframe"`
		Warning              string   `json:"warning"`
	} `json:"breakEvenAnalysis"`
	Insights struct {
		RecommendedAction string `json:"recommendedAction"`
	} `json:"insights"`
}

func fetchReport(baseURL, tenantID, campaignID string) (*reportSummary, string, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/campaigns/%s/report", baseURL, campaignID), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("X-Tenant-ID", tenantID)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var report reportSummary
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, "", err
	}

	return &report, resp.Header.Get("X-Cache"), nil
}

func printReport(r *reportSummary, cacheState string) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                    BUSINESS CASE REPORT                       ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 MARKET SIZING\n")
	fmt.Printf("   Demand Signals:   %d\n", r.MarketSizing.TotalDemandSignals)
	fmt.Printf("   Weighted Demand:  %.1f\n", r.MarketSizing.WeightedDemand)

	fmt.Printf("\n💰 PRICING\n")
	fmt.Printf("   Suggested Price:  $%.2f (%d data points)\n",
		r.PricingInsights.SuggestedPricePoint, r.PricingInsights.DataPoints)
	fmt.Printf("   Reasoning:        %s\n", r.PricingInsights.Reasoning)

	fmt.Printf("\n📈 REVENUE SCENARIOS\n")
	for _, s := range r.RevenueProjections {
		fmt.Printf("   %-13s %8.0f customers  $%12.2f\n", s.Scenario+":", s.Customers, s.Revenue)
	}

	f := r.ConversionMetrics.Funnel
	fmt.Printf("\n🔻 FUNNEL\n")
	fmt.Printf("   Visitors → Lobbyists → Pledgers → Orderers\n")
	fmt.Printf("   %8d   %9d   %8d   %8d\n", f.Visitors, f.Lobbyists, f.Pledgers, f.Orderers)
	fmt.Printf("   Overall Conversion: %.2f%% (%s industry average)\n",
		r.ConversionMetrics.Rates.OverallConversion,
		r.ConversionMetrics.Benchmarks.CampaignPerformance)

	fmt.Printf("\n⚖️  BREAK-EVEN\n")
	if r.BreakEvenAnalysis.UnitsSoldToBreakEven != nil {
		fmt.Printf("   Units Needed:     %.0f\n", *r.BreakEvenAnalysis.UnitsSoldToBreakEven)
	} else {
		fmt.Printf("   Units Needed:     n/a (%s)\n", r.BreakEvenAnalysis.Warning)
	}
	fmt.Printf("   Timeframe:        %s\n", r.BreakEvenAnalysis.EstimatedTimeframe)

	fmt.Printf("\n🎯 CONFIDENCE\n")
	fmt.Printf("   Score:            %d (%s)\n", r.DataQuality.ConfidenceScore, r.DataQuality.ConfidenceLevel)
	fmt.Printf("   Recommendation:   %s\n", r.Insights.RecommendedAction)

	fmt.Printf("\n   (report cache: %s)\n", cacheState)
	fmt.Println()
}
