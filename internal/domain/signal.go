package domain

import (
	"time"
)

// LobbyIntensity is the conviction tier a supporter declares when lobbying
// for a product.
type LobbyIntensity string

const (
	IntensityNeatIdea    LobbyIntensity = "NEAT_IDEA"
	IntensityProbablyBuy LobbyIntensity = "PROBABLY_BUY"
	IntensityTakeMyMoney LobbyIntensity = "TAKE_MY_MONEY"
)

// PledgeType distinguishes informal backing from an intent-to-buy commitment.
type PledgeType string

const (
	PledgeSupport PledgeType = "SUPPORT"
	PledgeIntent  PledgeType = "INTENT"
)

// LobbySignal is a declared interest in a campaign at one of three
// conviction levels.
type LobbySignal struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenantId"`
	CampaignID  string         `json:"campaignId"`
	SupporterID string         `json:"supporterId"`
	Intensity   LobbyIntensity `json:"intensity"`
	Verified    bool           `json:"verified"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// PledgeSignal is a stronger commitment, optionally carrying the price
// ceiling the supporter would pay and how soon they would buy.
type PledgeSignal struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenantId"`
	CampaignID    string     `json:"campaignId"`
	SupporterID   string     `json:"supporterId"`
	Type          PledgeType `json:"type"`
	PriceCeiling  *float64   `json:"priceCeiling,omitempty"`
	TimeframeDays *int       `json:"timeframeDays,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// VisitEvent is a campaign page view. Used only as the funnel denominator.
type VisitEvent struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	CampaignID string    `json:"campaignId"`
	VisitorID  string    `json:"visitorId"`
	Timestamp  time.Time `json:"timestamp"`
}

// OrderEvent is a realized conversion, the numerator at the final funnel
// stage.
type OrderEvent struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	CampaignID string    `json:"campaignId"`
	BuyerID    string    `json:"buyerId"`
	Amount     float64   `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}

// FunnelCounts holds the distinct-actor counts for the four funnel stages.
type FunnelCounts struct {
	Visitors  int `json:"visitors"`
	Lobbyists int `json:"lobbyists"`
	Pledgers  int `json:"pledgers"`
	Orderers  int `json:"orderers"`
}

// CohortCounts tracks how many supporters lobbied at one intensity tier and
// how many of those ultimately ordered.
type CohortCounts struct {
	Lobbied int `json:"lobbied"`
	Ordered int `json:"ordered"`
}

// DailyTrend is one day of the trailing activity series, passed through to
// the report unmodified for charting.
type DailyTrend struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Visits  int    `json:"visits"`
	Lobbies int    `json:"lobbies"`
	Pledges int    `json:"pledges"`
	Orders  int    `json:"orders"`
}

// CampaignSnapshot is the immutable per-request input to the business case
// engine. The engine never mutates it and holds no reference to it after a
// report is built, so concurrent snapshots for different campaigns need no
// coordination.
type CampaignSnapshot struct {
	CampaignID   string
	Lobbies      []LobbySignal
	Pledges      []PledgeSignal
	Funnel       FunnelCounts
	Cohorts      map[LobbyIntensity]CohortCounts
	Trends       []DailyTrend
	LastSignalAt time.Time
}
