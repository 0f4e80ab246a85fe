// Package domain defines the core interfaces and types for Pulse.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Signal ingestion
	SaveLobbySignal(ctx context.Context, tenantID string, s *LobbySignal) error
	SavePledgeSignal(ctx context.Context, tenantID string, s *PledgeSignal) error
	SaveVisitEvent(ctx context.Context, tenantID string, e *VisitEvent) error
	SaveOrderEvent(ctx context.Context, tenantID string, e *OrderEvent) error

	// Engine input
	CampaignSnapshot(ctx context.Context, tenantID string, campaignID string) (*CampaignSnapshot, error)
	LastSignalAt(ctx context.Context, tenantID string, campaignID string) (time.Time, error)
	DailyActivity(ctx context.Context, tenantID string, campaignID string, since time.Time) ([]DailyTrend, error)

	// Insight rule configuration
	SaveInsightRule(ctx context.Context, tenantID string, rule *InsightRule) error
	GetInsightRule(ctx context.Context, tenantID string, ruleID string) (*InsightRule, error)
	ListInsightRules(ctx context.Context, tenantID string) ([]*InsightRule, error)
	DeleteInsightRule(ctx context.Context, tenantID string, ruleID string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
