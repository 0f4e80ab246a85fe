package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crowdwant/pulse/internal/classify"
	"github.com/crowdwant/pulse/internal/domain"
	"github.com/crowdwant/pulse/internal/funnel"
	"github.com/crowdwant/pulse/internal/insight"
	"github.com/crowdwant/pulse/internal/report"
	"github.com/crowdwant/pulse/internal/trends"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	engine  *insight.Engine
	builder *report.Builder
	trends  *trends.Service
	funnel  *funnel.Calculator

	trendWindowDays int
	reportTTL       time.Duration
	version         string
}

// NewHandler creates a new API handler.
func NewHandler(cfg domain.EngineConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, engine *insight.Engine, builder *report.Builder, trendsSvc *trends.Service, reportTTL time.Duration, version string) *Handler {
	if reportTTL <= 0 {
		reportTTL = time.Hour
	}
	return &Handler{
		repo:            repo,
		cache:           cache,
		bus:             bus,
		engine:          engine,
		builder:         builder,
		trends:          trendsSvc,
		funnel:          funnel.New(cfg),
		trendWindowDays: cfg.TrendWindowDays,
		reportTTL:       reportTTL,
		version:         version,
	}
}

// LobbySignalRequest is the request body for POST /campaigns/{id}/signals/lobby.
type LobbySignalRequest struct {
	SupporterID string                `json:"supporterId"`
	Intensity   domain.LobbyIntensity `json:"intensity"`
	Verified    bool                  `json:"verified"`
}

// PledgeSignalRequest is the request body for POST /campaigns/{id}/signals/pledge.
type PledgeSignalRequest struct {
	SupporterID   string            `json:"supporterId"`
	Type          domain.PledgeType `json:"type"`
	PriceCeiling  *float64          `json:"priceCeiling,omitempty"`
	TimeframeDays *int              `json:"timeframeDays,omitempty"`
}

// VisitEventRequest is the request body for POST /campaigns/{id}/events/visit.
type VisitEventRequest struct {
	VisitorID string `json:"visitorId"`
}

// OrderEventRequest is the request body for POST /campaigns/{id}/events/order.
type OrderEventRequest struct {
	BuyerID string  `json:"buyerId"`
	Amount  float64 `json:"amount"`
}

// SignalResponse is returned whenever a signal or event is recorded.
type SignalResponse struct {
	ID         string  `json:"id"`
	CampaignID string  `json:"campaignId"`
	Kind       string  `json:"kind"`
	Weight     float64 `json:"weight,omitempty"`
	Recorded   bool    `json:"recorded"`
}

// RecordLobbySignal handles POST /campaigns/{id}/signals/lobby.
func (h *Handler) RecordLobbySignal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	campaignID := chi.URLParam(r, "id")

	var req LobbySignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.SupporterID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "supporterId is required",
		})
		return
	}
	if !classify.ValidLobbyIntensity(req.Intensity) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "intensity must be one of NEAT_IDEA, PROBABLY_BUY, TAKE_MY_MONEY",
		})
		return
	}

	sig := &domain.LobbySignal{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		CampaignID:  campaignID,
		SupporterID: req.SupporterID,
		Intensity:   req.Intensity,
		Verified:    req.Verified,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.repo.SaveLobbySignal(ctx, tenantID, sig); err != nil {
		slog.Error("failed to save lobby signal", "campaign_id", campaignID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to record signal",
		})
		return
	}

	h.publishSignal(ctx, tenantID, campaignID, "lobby")

	weight, _ := classify.LobbyWeight(req.Intensity)
	writeJSON(w, http.StatusCreated, SignalResponse{
		ID:         sig.ID,
		CampaignID: campaignID,
		Kind:       "lobby",
		Weight:     weight,
		Recorded:   true,
	})
}

// RecordPledgeSignal handles POST /campaigns/{id}/signals/pledge.
func (h *Handler) RecordPledgeSignal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	campaignID := chi.URLParam(r, "id")

	var req PledgeSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.SupporterID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "supporterId is required",
		})
		return
	}
	if !classify.ValidPledgeType(req.Type) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "type must be SUPPORT or INTENT",
		})
		return
	}
	if req.PriceCeiling != nil && *req.PriceCeiling <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "priceCeiling must be positive",
		})
		return
	}
	if req.TimeframeDays != nil && *req.TimeframeDays <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "timeframeDays must be positive",
		})
		return
	}

	sig := &domain.PledgeSignal{
		ID:            uuid.New().String(),
		TenantID:      tenantID,
		CampaignID:    campaignID,
		SupporterID:   req.SupporterID,
		Type:          req.Type,
		PriceCeiling:  req.PriceCeiling,
		TimeframeDays: req.TimeframeDays,
		CreatedAt:     time.Now().UTC(),
	}

	if err := h.repo.SavePledgeSignal(ctx, tenantID, sig); err != nil {
		slog.Error("failed to save pledge signal", "campaign_id", campaignID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to record signal",
		})
		return
	}

	h.publishSignal(ctx, tenantID, campaignID, "pledge")

	weight, _ := classify.PledgeWeight(req.Type)
	writeJSON(w, http.StatusCreated, SignalResponse{
		ID:         sig.ID,
		CampaignID: campaignID,
		Kind:       "pledge",
		Weight:     weight,
		Recorded:   true,
	})
}

// RecordVisitEvent handles POST /campaigns/{id}/events/visit.
func (h *Handler) RecordVisitEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	campaignID := chi.URLParam(r, "id")

	var req VisitEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.VisitorID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "visitorId is required",
		})
		return
	}

	ev := &domain.VisitEvent{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		CampaignID: campaignID,
		VisitorID:  req.VisitorID,
		Timestamp:  time.Now().UTC(),
	}

	if err := h.repo.SaveVisitEvent(ctx, tenantID, ev); err != nil {
		slog.Error("failed to save visit event", "campaign_id", campaignID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to record event",
		})
		return
	}

	// Burst tracking feeds operational dashboards, never the report
	if h.cache != nil {
		if _, err := h.cache.IncrementCounter(ctx, tenantID, "visits:"+campaignID, time.Minute); err != nil {
			slog.Debug("visit counter increment failed", "error", err)
		}
	}

	h.publishSignal(ctx, tenantID, campaignID, "visit")

	writeJSON(w, http.StatusCreated, SignalResponse{
		ID:         ev.ID,
		CampaignID: campaignID,
		Kind:       "visit",
		Recorded:   true,
	})
}

// RecordOrderEvent handles POST /campaigns/{id}/events/order.
func (h *Handler) RecordOrderEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	campaignID := chi.URLParam(r, "id")

	var req OrderEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.BuyerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "buyerId is required",
		})
		return
	}
	if req.Amount < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "amount must not be negative",
		})
		return
	}

	ev := &domain.OrderEvent{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		CampaignID: campaignID,
		BuyerID:    req.BuyerID,
		Amount:     req.Amount,
		Timestamp:  time.Now().UTC(),
	}

	if err := h.repo.SaveOrderEvent(ctx, tenantID, ev); err != nil {
		slog.Error("failed to save order event", "campaign_id", campaignID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to record event",
		})
		return
	}

	h.publishSignal(ctx, tenantID, campaignID, "order")

	writeJSON(w, http.StatusCreated, SignalResponse{
		ID:         ev.ID,
		CampaignID: campaignID,
		Kind:       "order",
		Recorded:   true,
	})
}

// signalEvent is the payload published on every recorded signal or event.
type signalEvent struct {
	CampaignID string `json:"campaignId"`
	TenantID   string `json:"tenantId"`
	SignalKind string `json:"signalKind"`
	TraceID    string `json:"traceId,omitempty"`
}

// publishSignal notifies downstream workers. Best effort: a recording
// succeeds even when the bus is down, the report is simply rebuilt lazily.
func (h *Handler) publishSignal(ctx context.Context, tenantID, campaignID, kind string) {
	if h.bus == nil {
		return
	}
	payload, _ := json.Marshal(signalEvent{
		CampaignID: campaignID,
		TenantID:   tenantID,
		SignalKind: kind,
		TraceID:    GetTraceID(ctx),
	})
	if err := h.bus.Publish(ctx, tenantID, domain.TopicSignalRecorded, payload); err != nil {
		slog.Warn("failed to publish signal event",
			"campaign_id", campaignID,
			"kind", kind,
			"error", err,
		)
	}
}

// GetReport handles GET /campaigns/{id}/report. The cache is addressed by
// the campaign's last signal timestamp, so a hit is always current.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	campaignID := chi.URLParam(r, "id")

	lastAt, err := h.repo.LastSignalAt(ctx, tenantID, campaignID)
	if err != nil {
		slog.Error("failed to resolve snapshot version", "campaign_id", campaignID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load campaign",
		})
		return
	}

	if h.cache != nil && !lastAt.IsZero() {
		cached, err := h.cache.GetReport(ctx, tenantID, campaignID, lastAt)
		if err != nil {
			slog.Warn("report cache lookup failed", "campaign_id", campaignID, "error", err)
		} else if cached != nil {
			w.Header().Set("X-Cache", "hit")
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	snap, err := h.repo.CampaignSnapshot(ctx, tenantID, campaignID)
	if err != nil {
		slog.Error("failed to load campaign snapshot", "campaign_id", campaignID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load campaign",
		})
		return
	}

	if h.trends != nil {
		series, err := h.trends.Series(ctx, tenantID, campaignID, h.trendWindowDays)
		if err != nil {
			slog.Warn("failed to load trend series", "campaign_id", campaignID, "error", err)
		} else {
			snap.Trends = series
		}
	}

	rpt, err := h.builder.Build(ctx, snap)
	if err != nil {
		slog.Error("report build failed", "campaign_id", campaignID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to build report",
		})
		return
	}

	if h.cache != nil && !snap.LastSignalAt.IsZero() {
		if err := h.cache.SetReport(ctx, tenantID, campaignID, snap.LastSignalAt, rpt, h.reportTTL); err != nil {
			slog.Warn("failed to cache report", "campaign_id", campaignID, "error", err)
		}
	}

	slog.Debug("report built",
		"campaign_id", campaignID,
		"tenant_id", tenantID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	w.Header().Set("X-Cache", "miss")
	writeJSON(w, http.StatusOK, rpt)
}

// GetFunnel handles GET /campaigns/{id}/funnel. A lighter read than the full
// report for dashboards that poll frequently.
func (h *Handler) GetFunnel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	campaignID := chi.URLParam(r, "id")

	snap, err := h.repo.CampaignSnapshot(ctx, tenantID, campaignID)
	if err != nil {
		slog.Error("failed to load campaign snapshot", "campaign_id", campaignID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load campaign",
		})
		return
	}

	if h.trends != nil {
		series, err := h.trends.Series(ctx, tenantID, campaignID, h.trendWindowDays)
		if err == nil {
			snap.Trends = series
		}
	}

	metrics := h.funnel.Metrics(snap.Funnel, snap.Cohorts, snap.Trends)
	writeJSON(w, http.StatusOK, metrics)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// ListInsightRules returns all loaded insight rules from the engine.
// Rules are loaded from the database at startup and can be reloaded via
// POST /insight-rules/reload.
func (h *Handler) ListInsightRules(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "insight engine not available",
		})
		return
	}

	loaded := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":  loaded,
		"count":  len(loaded),
		"source": "database",
	})
}

// GetInsightRule retrieves an insight rule by ID from the loaded engine rules.
func (h *Handler) GetInsightRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "insight engine not available",
		})
		return
	}

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateInsightRuleRequest is the request body for creating an insight rule.
type CreateInsightRuleRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Severity    string `json:"severity,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// GlobalTenantID is used for insight rules that apply to all tenants.
const GlobalTenantID = "*"

// CreateInsightRule creates a new insight rule and saves it to the database.
// Rules are saved globally (tenant_id = "*") so they apply to all tenants.
// After saving, call POST /insight-rules/reload to hot-reload into the engine.
func (h *Handler) CreateInsightRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateInsightRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	rule := &domain.InsightRule{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Severity:    req.Severity,
		Enabled:     req.Enabled,
	}

	// Validate the CEL expression by attempting to load
	if h.engine != nil {
		if err := h.engine.LoadRule(rule); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid CEL expression: " + err.Error(),
			})
			return
		}
	}

	if h.repo != nil {
		if err := h.repo.SaveInsightRule(ctx, GlobalTenantID, rule); err != nil {
			slog.Error("failed to save insight rule", "id", rule.ID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to save rule",
			})
			return
		}
	}

	slog.Info("insight rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"rule":    rule,
		"message": "Rule created. Call POST /insight-rules/reload to apply changes.",
	})
}

// DeleteInsightRule deletes an insight rule and auto-reloads the engine.
func (h *Handler) DeleteInsightRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ruleID := chi.URLParam(r, "id")

	if ruleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "rule id is required",
		})
		return
	}

	if h.repo != nil {
		if err := h.repo.DeleteInsightRule(ctx, GlobalTenantID, ruleID); err != nil {
			slog.Error("failed to delete insight rule", "id", ruleID, "error", err)
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "rule not found",
			})
			return
		}

		if h.engine != nil {
			dbRules, err := h.repo.ListInsightRules(ctx, GlobalTenantID)
			if err != nil {
				slog.Error("failed to reload rules after delete", "error", err)
			} else if err := h.engine.ReloadRules(dbRules); err != nil {
				slog.Error("failed to reload rules into engine", "error", err)
			} else {
				slog.Info("insight rules auto-reloaded after delete", "count", len(dbRules))
			}
		}
	}

	slog.Info("insight rule deleted", "id", ruleID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Rule deleted and engine reloaded.",
	})
}

// ReloadInsightRules reloads all insight rules from the database into the
// engine. This enables hot-reloading without server restart.
func (h *Handler) ReloadInsightRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}
	if h.engine == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "insight engine not available",
		})
		return
	}

	dbRules, err := h.repo.ListInsightRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list insight rules from database", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload rules into engine", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("insight rules reloaded from database", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
