// Package trends builds the trailing daily activity series for a campaign.
package trends

import (
	"context"
	"fmt"
	"time"

	"github.com/crowdwant/pulse/internal/domain"
)

// Service assembles zero-filled daily trend series from repository rows.
type Service struct {
	repo domain.Repository
}

// NewService creates a trends service.
func NewService(repo domain.Repository) *Service {
	return &Service{repo: repo}
}

// Series returns the trailing daily activity for a campaign, one entry per
// day, oldest first. Days with no activity are present with zero counters
// so charts render a continuous axis.
func (s *Service) Series(ctx context.Context, tenantID, campaignID string, days int) ([]domain.DailyTrend, error) {
	if tenantID == "" || campaignID == "" {
		return nil, fmt.Errorf("tenantID and campaignID are required")
	}
	if days <= 0 {
		days = 30
	}

	now := time.Now().UTC()
	since := now.AddDate(0, 0, -(days - 1)).Truncate(24 * time.Hour)

	rows, err := s.repo.DailyActivity(ctx, tenantID, campaignID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily activity: %w", err)
	}

	byDate := make(map[string]domain.DailyTrend, len(rows))
	for _, r := range rows {
		byDate[r.Date] = r
	}

	out := make([]domain.DailyTrend, 0, days)
	for d := 0; d < days; d++ {
		date := since.AddDate(0, 0, d).Format("2006-01-02")
		if row, ok := byDate[date]; ok {
			out = append(out, row)
			continue
		}
		out = append(out, domain.DailyTrend{Date: date})
	}

	return out, nil
}
