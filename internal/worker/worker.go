// Package worker provides async report rebuilding for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/crowdwant/pulse/internal/domain"
	"github.com/crowdwant/pulse/internal/report"
	"github.com/crowdwant/pulse/internal/trends"
)

// Worker listens for recorded signals and rebuilds the affected campaign's
// report in the background, warming the cache so the next read is served
// without recomputation.
type Worker struct {
	bus     domain.EventBus
	repo    domain.Repository
	cache   domain.Cache
	builder *report.Builder
	trends  *trends.Service

	trendWindowDays int
	reportTTL       time.Duration

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// TrendWindowDays bounds the trend series attached to rebuilt reports.
	TrendWindowDays int

	// ReportTTL bounds cache residency for warmed reports.
	ReportTTL time.Duration
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, cache domain.Cache, builder *report.Builder, trendsSvc *trends.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:     bus,
		repo:    repo,
		cache:   cache,
		builder: builder,
		trends:  trendsSvc,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins processing signal events for the given tenants.
func (w *Worker) Start(cfg Config) error {
	w.trendWindowDays = cfg.TrendWindowDays
	if w.trendWindowDays <= 0 {
		w.trendWindowDays = 30
	}
	w.reportTTL = cfg.ReportTTL
	if w.reportTTL <= 0 {
		w.reportTTL = time.Hour
	}

	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	// Subscribe using a special "global" tenant ID
	// In production, you'd want to subscribe with wildcards or JetStream
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicSignalRecorded, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicSignalRecorded, func(ctx context.Context, msg *domain.Message) error {
		return w.rebuildReport(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicSignalRecorded,
	)

	return nil
}

// handleMessage handles messages from global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.rebuildReport(ctx, msg.TenantID, msg)
}

// SignalMessage is the payload published whenever a signal or event is
// recorded for a campaign.
type SignalMessage struct {
	CampaignID string `json:"campaignId"`
	TenantID   string `json:"tenantId"`
	SignalKind string `json:"signalKind"` // lobby, pledge, visit, order
	TraceID    string `json:"traceId,omitempty"`
}

// rebuildReport recomputes and caches a campaign's report after a signal.
func (w *Worker) rebuildReport(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var sigMsg SignalMessage
	if err := json.Unmarshal(msg.Payload, &sigMsg); err != nil {
		slog.Error("failed to parse signal message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if sigMsg.TenantID != "" {
		tenantID = sigMsg.TenantID
	}

	traceID := sigMsg.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("rebuilding report",
		"campaign_id", sigMsg.CampaignID,
		"tenant_id", tenantID,
		"signal_kind", sigMsg.SignalKind,
		"trace_id", traceID,
	)

	snap, err := w.repo.CampaignSnapshot(ctx, tenantID, sigMsg.CampaignID)
	if err != nil {
		slog.Error("failed to load campaign snapshot",
			"campaign_id", sigMsg.CampaignID,
			"error", err,
		)
		return err
	}

	if w.trends != nil {
		series, err := w.trends.Series(ctx, tenantID, sigMsg.CampaignID, w.trendWindowDays)
		if err != nil {
			slog.Warn("failed to load trend series, report will carry none",
				"campaign_id", sigMsg.CampaignID,
				"error", err,
			)
		} else {
			snap.Trends = series
		}
	}

	rpt, err := w.builder.Build(ctx, snap)
	if err != nil {
		slog.Error("report build failed",
			"campaign_id", sigMsg.CampaignID,
			"error", err,
		)
		return err
	}

	// Warm the cache for the snapshot version just computed
	if w.cache != nil {
		if err := w.cache.SetReport(ctx, tenantID, sigMsg.CampaignID, snap.LastSignalAt, rpt, w.reportTTL); err != nil {
			slog.Error("failed to cache report",
				"campaign_id", sigMsg.CampaignID,
				"error", err,
			)
		}
	}

	resultPayload, _ := json.Marshal(rpt)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicReportReady, resultPayload); err != nil {
		slog.Error("failed to publish report",
			"campaign_id", sigMsg.CampaignID,
			"error", err,
		)
	}

	// Operator-defined insight rules that fired get their own topic
	if len(rpt.Insights.Flags) > 0 {
		if err := w.bus.Publish(ctx, tenantID, domain.TopicReportFlagged, resultPayload); err != nil {
			slog.Error("failed to publish flagged report",
				"campaign_id", sigMsg.CampaignID,
				"error", err,
			)
		}
	}

	slog.Info("report rebuilt",
		"campaign_id", sigMsg.CampaignID,
		"tenant_id", tenantID,
		"confidence", rpt.DataQuality.ConfidenceScore,
		"flags", len(rpt.Insights.Flags),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
