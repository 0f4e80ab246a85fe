// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/crowdwant/pulse/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveLobbySignal stores a lobby signal with tenant isolation.
func (r *SQLRepository) SaveLobbySignal(ctx context.Context, tenantID string, s *domain.LobbySignal) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	verified := 0
	if s.Verified {
		verified = 1
	}

	query := `
		INSERT INTO lobby_signals (
			id, tenant_id, campaign_id, supporter_id, intensity, verified, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		s.ID, tenantID, s.CampaignID, s.SupporterID,
		string(s.Intensity), verified, s.CreatedAt,
	)
	return err
}

// SavePledgeSignal stores a pledge signal with tenant isolation.
func (r *SQLRepository) SavePledgeSignal(ctx context.Context, tenantID string, s *domain.PledgeSignal) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	var priceCeiling sql.NullFloat64
	if s.PriceCeiling != nil {
		priceCeiling = sql.NullFloat64{Float64: *s.PriceCeiling, Valid: true}
	}
	var timeframe sql.NullInt64
	if s.TimeframeDays != nil {
		timeframe = sql.NullInt64{Int64: int64(*s.TimeframeDays), Valid: true}
	}

	query := `
		INSERT INTO pledge_signals (
			id, tenant_id, campaign_id, supporter_id, pledge_type,
			price_ceiling, timeframe_days, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		s.ID, tenantID, s.CampaignID, s.SupporterID,
		string(s.Type), priceCeiling, timeframe, s.CreatedAt,
	)
	return err
}

// SaveVisitEvent stores a visit event with tenant isolation.
func (r *SQLRepository) SaveVisitEvent(ctx context.Context, tenantID string, e *domain.VisitEvent) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO visit_events (id, tenant_id, campaign_id, visitor_id, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		e.ID, tenantID, e.CampaignID, e.VisitorID, e.Timestamp,
	)
	return err
}

// SaveOrderEvent stores an order event with tenant isolation.
func (r *SQLRepository) SaveOrderEvent(ctx context.Context, tenantID string, e *domain.OrderEvent) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO order_events (id, tenant_id, campaign_id, buyer_id, amount, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		e.ID, tenantID, e.CampaignID, e.BuyerID, e.Amount, e.Timestamp,
	)
	return err
}

// CampaignSnapshot assembles the full engine input for one campaign: raw
// signal lists, distinct-actor funnel counts, per-intensity cohort counts,
// and the high-water signal timestamp. Trend series are attached separately
// by the trends service.
func (r *SQLRepository) CampaignSnapshot(ctx context.Context, tenantID string, campaignID string) (*domain.CampaignSnapshot, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if campaignID == "" {
		return nil, fmt.Errorf("%w: campaignID is required", ErrInvalidInput)
	}

	snap := &domain.CampaignSnapshot{CampaignID: campaignID}

	lobbies, err := r.lobbySignals(ctx, tenantID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lobby signals: %w", err)
	}
	snap.Lobbies = lobbies

	pledges, err := r.pledgeSignals(ctx, tenantID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pledge signals: %w", err)
	}
	snap.Pledges = pledges

	funnel, err := r.funnelCounts(ctx, tenantID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to count funnel stages: %w", err)
	}
	snap.Funnel = funnel

	cohorts, err := r.cohortCounts(ctx, tenantID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to count cohorts: %w", err)
	}
	snap.Cohorts = cohorts

	lastSignal, err := r.LastSignalAt(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	snap.LastSignalAt = lastSignal

	return snap, nil
}

func (r *SQLRepository) lobbySignals(ctx context.Context, tenantID, campaignID string) ([]domain.LobbySignal, error) {
	query := `
		SELECT id, tenant_id, campaign_id, supporter_id, intensity, verified, created_at
		FROM lobby_signals
		WHERE tenant_id = ? AND campaign_id = ?
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []domain.LobbySignal
	for rows.Next() {
		var s domain.LobbySignal
		var intensity string
		var verified int

		if err := rows.Scan(
			&s.ID, &s.TenantID, &s.CampaignID, &s.SupporterID,
			&intensity, &verified, &s.CreatedAt,
		); err != nil {
			return nil, err
		}

		s.Intensity = domain.LobbyIntensity(intensity)
		s.Verified = verified == 1
		signals = append(signals, s)
	}

	return signals, rows.Err()
}

func (r *SQLRepository) pledgeSignals(ctx context.Context, tenantID, campaignID string) ([]domain.PledgeSignal, error) {
	query := `
		SELECT id, tenant_id, campaign_id, supporter_id, pledge_type,
			   price_ceiling, timeframe_days, created_at
		FROM pledge_signals
		WHERE tenant_id = ? AND campaign_id = ?
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []domain.PledgeSignal
	for rows.Next() {
		var s domain.PledgeSignal
		var pledgeType string
		var priceCeiling sql.NullFloat64
		var timeframe sql.NullInt64

		if err := rows.Scan(
			&s.ID, &s.TenantID, &s.CampaignID, &s.SupporterID,
			&pledgeType, &priceCeiling, &timeframe, &s.CreatedAt,
		); err != nil {
			return nil, err
		}

		s.Type = domain.PledgeType(pledgeType)
		if priceCeiling.Valid {
			v := priceCeiling.Float64
			s.PriceCeiling = &v
		}
		if timeframe.Valid {
			v := int(timeframe.Int64)
			s.TimeframeDays = &v
		}
		signals = append(signals, s)
	}

	return signals, rows.Err()
}

// funnelCounts counts distinct actors at each funnel stage. Repeated visits
// or signals by the same actor count once.
func (r *SQLRepository) funnelCounts(ctx context.Context, tenantID, campaignID string) (domain.FunnelCounts, error) {
	var fc domain.FunnelCounts

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(DISTINCT visitor_id) FROM visit_events WHERE tenant_id = ? AND campaign_id = ?`, &fc.Visitors},
		{`SELECT COUNT(DISTINCT supporter_id) FROM lobby_signals WHERE tenant_id = ? AND campaign_id = ?`, &fc.Lobbyists},
		{`SELECT COUNT(DISTINCT supporter_id) FROM pledge_signals WHERE tenant_id = ? AND campaign_id = ?`, &fc.Pledgers},
		{`SELECT COUNT(DISTINCT buyer_id) FROM order_events WHERE tenant_id = ? AND campaign_id = ?`, &fc.Orderers},
	}

	for _, c := range counts {
		if err := r.db.QueryRowContext(ctx, r.rebind(c.query), tenantID, campaignID).Scan(c.dest); err != nil {
			return domain.FunnelCounts{}, err
		}
	}

	return fc, nil
}

// cohortCounts joins lobby supporters against order buyers per intensity
// tier, feeding the observed per-cohort conversion rates.
func (r *SQLRepository) cohortCounts(ctx context.Context, tenantID, campaignID string) (map[domain.LobbyIntensity]domain.CohortCounts, error) {
	query := `
		SELECT l.intensity,
			   COUNT(DISTINCT l.supporter_id),
			   COUNT(DISTINCT o.buyer_id)
		FROM lobby_signals l
		LEFT JOIN order_events o
			ON o.tenant_id = l.tenant_id
			AND o.campaign_id = l.campaign_id
			AND o.buyer_id = l.supporter_id
		WHERE l.tenant_id = ? AND l.campaign_id = ?
		GROUP BY l.intensity
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cohorts := make(map[domain.LobbyIntensity]domain.CohortCounts)
	for rows.Next() {
		var intensity string
		var cc domain.CohortCounts

		if err := rows.Scan(&intensity, &cc.Lobbied, &cc.Ordered); err != nil {
			return nil, err
		}
		cohorts[domain.LobbyIntensity(intensity)] = cc
	}

	return cohorts, rows.Err()
}

// LastSignalAt returns the newest activity timestamp across all four record
// types, the cache invalidation key for this campaign's reports. A campaign
// with no records yields the zero time and no error.
func (r *SQLRepository) LastSignalAt(ctx context.Context, tenantID string, campaignID string) (time.Time, error) {
	if tenantID == "" {
		return time.Time{}, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	queries := []string{
		`SELECT MAX(created_at) FROM lobby_signals WHERE tenant_id = ? AND campaign_id = ?`,
		`SELECT MAX(created_at) FROM pledge_signals WHERE tenant_id = ? AND campaign_id = ?`,
		`SELECT MAX(timestamp) FROM visit_events WHERE tenant_id = ? AND campaign_id = ?`,
		`SELECT MAX(timestamp) FROM order_events WHERE tenant_id = ? AND campaign_id = ?`,
	}

	var last time.Time
	for _, q := range queries {
		var raw any
		if err := r.db.QueryRowContext(ctx, r.rebind(q), tenantID, campaignID).Scan(&raw); err != nil {
			return time.Time{}, fmt.Errorf("failed to resolve last signal time: %w", err)
		}
		ts, err := scannedTime(raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to resolve last signal time: %w", err)
		}
		if ts.After(last) {
			last = ts
		}
	}

	return last, nil
}

// scannedTime normalizes a timestamp read from an aggregate column. SQLite
// expression columns carry no declared type, so the driver returns the raw
// stored text instead of a time.Time; PostgreSQL returns time.Time directly.
func scannedTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t, nil
	case string:
		return parseSQLiteTime(t)
	case []byte:
		return parseSQLiteTime(string(t))
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
}

// parseSQLiteTime parses the text timestamp formats SQLite stores.
func parseSQLiteTime(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// DailyActivity aggregates per-day counters for the four record types since
// the given time. Days with no activity are absent; the trends service
// zero-fills them.
func (r *SQLRepository) DailyActivity(ctx context.Context, tenantID string, campaignID string, since time.Time) ([]domain.DailyTrend, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	byDate := make(map[string]*domain.DailyTrend)
	get := func(date string) *domain.DailyTrend {
		if t, ok := byDate[date]; ok {
			return t
		}
		t := &domain.DailyTrend{Date: date}
		byDate[date] = t
		return t
	}

	sources := []struct {
		table  string
		tsCol  string
		assign func(t *domain.DailyTrend, n int)
	}{
		{"visit_events", "timestamp", func(t *domain.DailyTrend, n int) { t.Visits = n }},
		{"lobby_signals", "created_at", func(t *domain.DailyTrend, n int) { t.Lobbies = n }},
		{"pledge_signals", "created_at", func(t *domain.DailyTrend, n int) { t.Pledges = n }},
		{"order_events", "timestamp", func(t *domain.DailyTrend, n int) { t.Orders = n }},
	}

	for _, src := range sources {
		query := fmt.Sprintf(`
			SELECT %s AS day, COUNT(*)
			FROM %s
			WHERE tenant_id = ? AND campaign_id = ? AND %s >= ?
			GROUP BY day
		`, r.dayExpr(src.tsCol), src.table, src.tsCol)

		rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, campaignID, since)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate %s: %w", src.table, err)
		}

		for rows.Next() {
			var day string
			var n int
			if err := rows.Scan(&day, &n); err != nil {
				rows.Close()
				return nil, err
			}
			src.assign(get(day), n)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}

	out := make([]domain.DailyTrend, 0, len(byDate))
	for _, t := range byDate {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	return out, nil
}

// dayExpr renders the driver-specific YYYY-MM-DD extraction for a
// timestamp column.
func (r *SQLRepository) dayExpr(col string) string {
	if r.driver == "postgres" {
		return fmt.Sprintf("to_char(%s, 'YYYY-MM-DD')", col)
	}
	return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", col)
}

// SaveInsightRule stores an insight rule with tenant isolation. Saving the
// same (id, version) again updates it in place.
func (r *SQLRepository) SaveInsightRule(ctx context.Context, tenantID string, rule *domain.InsightRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO insight_rules (
			id, tenant_id, name, description, version, expression, severity, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			severity = excluded.severity,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, rule.Severity, enabled,
		now, now,
	)
	return err
}

// GetInsightRule retrieves the latest enabled version of a rule with tenant
// isolation.
func (r *SQLRepository) GetInsightRule(ctx context.Context, tenantID string, ruleID string) (*domain.InsightRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, severity, enabled, created_at, updated_at
		FROM insight_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	var rule domain.InsightRule
	var enabled int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID).Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
		&rule.Version, &rule.Expression, &rule.Severity, &enabled,
		&rule.CreatedAt, &rule.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1

	return &rule, nil
}

// ListInsightRules retrieves all active insight rules for a tenant.
func (r *SQLRepository) ListInsightRules(ctx context.Context, tenantID string) ([]*domain.InsightRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, severity, enabled, created_at, updated_at
		FROM insight_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.InsightRule
	for rows.Next() {
		var rule domain.InsightRule
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
			&rule.Version, &rule.Expression, &rule.Severity, &enabled,
			&rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, err
		}

		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// DeleteInsightRule soft-deletes a rule by setting enabled = 0.
func (r *SQLRepository) DeleteInsightRule(ctx context.Context, tenantID string, ruleID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE insight_rules
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
