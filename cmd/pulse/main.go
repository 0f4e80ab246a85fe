// Pulse - Demand signals in, business cases out.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/crowdwant/pulse/internal/api"
	"github.com/crowdwant/pulse/internal/bus"
	"github.com/crowdwant/pulse/internal/cache"
	"github.com/crowdwant/pulse/internal/domain"
	"github.com/crowdwant/pulse/internal/insight"
	"github.com/crowdwant/pulse/internal/report"
	"github.com/crowdwant/pulse/internal/repository"
	"github.com/crowdwant/pulse/internal/trends"
	"github.com/crowdwant/pulse/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("PULSE_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting pulse",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("PULSE_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Insight Engine
	engine, err := insight.NewEngine(100)
	if err != nil {
		slog.Error("failed to initialize insight engine", "error", err)
		os.Exit(1)
	}

	// Load insight rules from database (no hardcoded defaults - configure via API)
	if err := loadInsightRulesFromDatabase(ctx, repo, engine); err != nil {
		slog.Error("failed to load insight rules", "error", err)
		os.Exit(1)
	}
	slog.Info("insight engine initialized", "rules_count", engine.RulesCount())

	// Initialize trend series and report builder
	trendsSvc := trends.NewService(repo)
	builder := report.NewBuilder(cfg.Engine, engine)
	slog.Info("report builder initialized",
		"industry_avg", cfg.Engine.IndustryAvgConversion,
		"trend_window_days", cfg.Engine.TrendWindowDays,
	)

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("PULSE_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, repo, cacheImpl, builder, trendsSvc)

		// Get tenant IDs to process (from environment or default)
		tenantIDs := []string{}
		if envTenants := os.Getenv("PULSE_TENANTS"); envTenants != "" {
			tenantIDs = strings.Split(envTenants, ",")
		}

		workerCfg := worker.Config{
			TenantIDs:       tenantIDs,
			TrendWindowDays: cfg.Engine.TrendWindowDays,
			ReportTTL:       cfg.Cache.ReportTTL,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(*cfg, repo, cacheImpl, busImpl, engine, builder, trendsSvc, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("pulse is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("pulse shutdown complete")
}

// GlobalTenantID is used for insight rules that apply to all tenants.
const GlobalTenantID = "*"

// loadInsightRulesFromDatabase loads insight rules from the database into
// the engine. All rules must be configured via POST /insight-rules - no
// hardcoded defaults.
func loadInsightRulesFromDatabase(ctx context.Context, repo domain.Repository, engine *insight.Engine) error {
	dbRules, err := repo.ListInsightRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Warn("failed to list insight rules from database", "error", err)
		return nil // Start with empty rules - they can be added via API
	}

	if len(dbRules) > 0 {
		slog.Info("loading insight rules from database", "count", len(dbRules))
		return engine.LoadRules(dbRules)
	}

	slog.Info("no insight rules in database - configure via POST /insight-rules")
	return nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               📈 PULSE                    ║")
	fmt.Println("  ║     Demand Signal & Business Case Engine  ║")
	fmt.Println("  ║      Every signal tells a story.          ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /campaigns/{id}/signals/lobby   - Record a lobby signal")
	fmt.Println("    POST /campaigns/{id}/signals/pledge  - Record a pledge signal")
	fmt.Println("    POST /campaigns/{id}/events/visit    - Record a page visit")
	fmt.Println("    POST /campaigns/{id}/events/order    - Record an order")
	fmt.Println("    GET  /campaigns/{id}/report          - Assemble the business case report")
	fmt.Println("    GET  /campaigns/{id}/funnel          - Conversion funnel metrics")
	fmt.Println("    GET  /insight-rules                  - List insight rules")
	fmt.Println("    POST /insight-rules                  - Create an insight rule")
	fmt.Println("    POST /insight-rules/reload           - Hot-reload rules from database")
	fmt.Println("    DELETE /insight-rules/{id}           - Delete an insight rule")
	fmt.Println("    GET  /health                         - Health check")
	fmt.Println()
}
