package domain

import "time"

// InsightRule is an operator-defined CEL expression evaluated over a
// finished report's aggregates. A rule that evaluates to true attaches an
// InsightFlag to the report.
//
// Example expression: "weighted_demand >= 50.0 && price_points < 5"
type InsightRule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// CEL expression over report aggregates; must return bool.
	Expression string `json:"expression"`

	// Severity is attached to the resulting flag verbatim.
	Severity string `json:"severity"`

	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}
