package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CampaignStatus represents the status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusArchived  CampaignStatus = "archived"
)

// ValidCampaignStatus reports whether s is one of the known campaign statuses.
func ValidCampaignStatus(s CampaignStatus) bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusPaused,
		CampaignStatusCompleted, CampaignStatusArchived:
		return true
	}
	return false
}

// Campaign represents a brand-funded content request with a budget and a
// per-view payout rate derived from the chosen cost per 1k views.
type Campaign struct {
	ID                      uuid.UUID       `json:"id" db:"id"`
	BrandID                 uuid.UUID       `json:"brand_id" db:"brand_id"`
	Title                   string          `json:"title" db:"title"`
	Description             *string         `json:"description,omitempty" db:"description"`
	Status                  CampaignStatus  `json:"status" db:"status"`
	TotalBudget             decimal.Decimal `json:"total_budget" db:"total_budget"`
	TotalPaid               decimal.Decimal `json:"total_paid" db:"total_paid"`
	RatePerView             decimal.Decimal `json:"rate_per_view" db:"rate_per_view"`
	TargetNiches            []string        `json:"target_niches" db:"target_niches"`
	TargetPlatforms         []string        `json:"target_platforms" db:"target_platforms"`
	TargetAudienceLocations []string        `json:"target_audience_locations" db:"target_audience_locations"`
	TargetAudienceAge       *string         `json:"target_audience_age,omitempty" db:"target_audience_age"`
	StartDate               *time.Time      `json:"start_date,omitempty" db:"start_date"`
	CreatedAt               time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at" db:"updated_at"`
}

// Remaining returns the unspent portion of the campaign budget. Negative
// values (over-payment in legacy rows) are reported as zero.
func (c *Campaign) Remaining() decimal.Decimal {
	r := c.TotalBudget.Sub(c.TotalPaid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}
