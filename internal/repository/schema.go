package repository

// Schema definitions for the Pulse database.
// Compatible with both SQLite and PostgreSQL.

const schemaLobbySignals = `
CREATE TABLE IF NOT EXISTS lobby_signals (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    campaign_id TEXT NOT NULL,
    supporter_id TEXT NOT NULL,
    intensity TEXT NOT NULL,
    verified INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lobby_signals_tenant ON lobby_signals(tenant_id);
CREATE INDEX IF NOT EXISTS idx_lobby_signals_campaign ON lobby_signals(tenant_id, campaign_id);
CREATE INDEX IF NOT EXISTS idx_lobby_signals_created ON lobby_signals(tenant_id, campaign_id, created_at);
`

const schemaPledgeSignals = `
CREATE TABLE IF NOT EXISTS pledge_signals (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    campaign_id TEXT NOT NULL,
    supporter_id TEXT NOT NULL,
    pledge_type TEXT NOT NULL,
    price_ceiling REAL,
    timeframe_days INTEGER,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pledge_signals_tenant ON pledge_signals(tenant_id);
CREATE INDEX IF NOT EXISTS idx_pledge_signals_campaign ON pledge_signals(tenant_id, campaign_id);
CREATE INDEX IF NOT EXISTS idx_pledge_signals_created ON pledge_signals(tenant_id, campaign_id, created_at);
`

const schemaVisitEvents = `
CREATE TABLE IF NOT EXISTS visit_events (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    campaign_id TEXT NOT NULL,
    visitor_id TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_visit_events_campaign ON visit_events(tenant_id, campaign_id);
CREATE INDEX IF NOT EXISTS idx_visit_events_timestamp ON visit_events(tenant_id, campaign_id, timestamp);
`

const schemaOrderEvents = `
CREATE TABLE IF NOT EXISTS order_events (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    campaign_id TEXT NOT NULL,
    buyer_id TEXT NOT NULL,
    amount REAL NOT NULL,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_events_campaign ON order_events(tenant_id, campaign_id);
CREATE INDEX IF NOT EXISTS idx_order_events_buyer ON order_events(tenant_id, campaign_id, buyer_id);
CREATE INDEX IF NOT EXISTS idx_order_events_timestamp ON order_events(tenant_id, campaign_id, timestamp);
`

const schemaInsightRules = `
CREATE TABLE IF NOT EXISTS insight_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    severity TEXT NOT NULL DEFAULT 'info',
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_insight_rules_tenant ON insight_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_insight_rules_enabled ON insight_rules(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaLobbySignals,
		schemaPledgeSignals,
		schemaVisitEvents,
		schemaOrderEvents,
		schemaInsightRules,
	}
}
