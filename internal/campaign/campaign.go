package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Service errors
var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrCampaignNotOwned = errors.New("campaign not owned by user")
	ErrInvalidBudget    = errors.New("invalid budget: must be positive")
	ErrInvalidStatus    = errors.New("invalid campaign status")
	ErrFinancialsLocked = errors.New("financial fields are locked once a campaign is funded or has submissions")
	ErrCampaignArchived = errors.New("campaign is archived")
)

// Service handles campaign operations
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a new campaign service
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// CreateCampaignRequest represents a request to create a campaign
type CreateCampaignRequest struct {
	Title                   string          `json:"title" binding:"required,min=1,max=200"`
	Description             *string         `json:"description,omitempty"`
	TotalBudget             decimal.Decimal `json:"total_budget" binding:"required"`
	CostPer1kViews          decimal.Decimal `json:"cost_per_1k_views" binding:"required"`
	TargetNiches            []string        `json:"target_niches,omitempty"`
	TargetPlatforms         []string        `json:"target_platforms,omitempty"`
	TargetAudienceLocations []string        `json:"target_audience_locations,omitempty"`
	TargetAudienceAge       *string         `json:"target_audience_age,omitempty"`
	StartDate               *time.Time      `json:"start_date,omitempty"`
}

// UpdateCampaignRequest represents a request to update a campaign. Financial
// fields are rejected once the campaign is funded or has submissions.
type UpdateCampaignRequest struct {
	Title                   *string          `json:"title,omitempty"`
	Description             *string          `json:"description,omitempty"`
	TotalBudget             *decimal.Decimal `json:"total_budget,omitempty"`
	CostPer1kViews          *decimal.Decimal `json:"cost_per_1k_views,omitempty"`
	TargetNiches            []string         `json:"target_niches,omitempty"`
	TargetPlatforms         []string         `json:"target_platforms,omitempty"`
	TargetAudienceLocations []string         `json:"target_audience_locations,omitempty"`
	TargetAudienceAge       *string          `json:"target_audience_age,omitempty"`
	StartDate               *time.Time       `json:"start_date,omitempty"`
}

// ListFilter narrows campaign listings
type ListFilter struct {
	BrandID  *uuid.UUID
	Status   *models.CampaignStatus
	Niche    *string
	Platform *string
	Page     int
	PageSize int
}

// ListResponse is a paginated campaign listing
type ListResponse struct {
	Campaigns  []models.Campaign `json:"campaigns"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

const campaignColumns = `id, brand_id, title, description, status, total_budget, total_paid,
	rate_per_view, target_niches, target_platforms, target_audience_locations,
	target_audience_age, start_date, created_at, updated_at`

// Create creates a campaign in draft status. The per-view rate is derived
// from the chosen cost per 1k views after clamping and grid snapping.
func (s *Service) Create(ctx context.Context, brandID uuid.UUID, req *CreateCampaignRequest) (*models.Campaign, error) {
	if req.TotalBudget.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidBudget
	}

	quote := Quote(req.TotalBudget, req.CostPer1kViews)

	c := &models.Campaign{
		ID:                      uuid.New(),
		BrandID:                 brandID,
		Title:                   req.Title,
		Description:             req.Description,
		Status:                  models.CampaignStatusDraft,
		TotalBudget:             req.TotalBudget,
		TotalPaid:               decimal.Zero,
		RatePerView:             quote.RatePerView,
		TargetNiches:            req.TargetNiches,
		TargetPlatforms:         req.TargetPlatforms,
		TargetAudienceLocations: req.TargetAudienceLocations,
		TargetAudienceAge:       req.TargetAudienceAge,
		StartDate:               req.StartDate,
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO campaigns (id, brand_id, title, description, status, total_budget, total_paid,
			rate_per_view, target_niches, target_platforms, target_audience_locations,
			target_audience_age, start_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`, c.ID, c.BrandID, c.Title, c.Description, c.Status, c.TotalBudget, c.TotalPaid,
		c.RatePerView, c.TargetNiches, c.TargetPlatforms, c.TargetAudienceLocations,
		c.TargetAudienceAge, c.StartDate).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	return c, nil
}

// Get retrieves a campaign by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	row := s.db.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	c, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

// List retrieves campaigns matching the filter, newest first
func (s *Service) List(ctx context.Context, filter *ListFilter) (*ListResponse, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	where := "WHERE 1=1"
	args := []any{}
	argn := 1
	if filter.BrandID != nil {
		where += fmt.Sprintf(" AND brand_id = $%d", argn)
		args = append(args, *filter.BrandID)
		argn++
	}
	if filter.Status != nil {
		where += fmt.Sprintf(" AND status = $%d", argn)
		args = append(args, *filter.Status)
		argn++
	}
	if filter.Niche != nil {
		where += fmt.Sprintf(" AND $%d = ANY(target_niches)", argn)
		args = append(args, *filter.Niche)
		argn++
	}
	if filter.Platform != nil {
		where += fmt.Sprintf(" AND $%d = ANY(target_platforms)", argn)
		args = append(args, *filter.Platform)
		argn++
	}

	var total int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM campaigns "+where, args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count campaigns: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM campaigns %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		campaignColumns, where, argn, argn+1)
	args = append(args, pageSize, offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", err)
	}

	return &ListResponse{
		Campaigns:  campaigns,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// Update mutates a campaign owned by brandID. Financial fields (budget and
// rate) are immutable once total_paid > 0 or any submission exists; that
// policy is enforced here, not in the client.
func (s *Service) Update(ctx context.Context, brandID, id uuid.UUID, req *UpdateCampaignRequest) (*models.Campaign, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1 FOR UPDATE`, id)
	c, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	if c.BrandID != brandID {
		return nil, ErrCampaignNotOwned
	}
	if c.Status == models.CampaignStatusArchived {
		return nil, ErrCampaignArchived
	}

	touchesFinancials := req.TotalBudget != nil || req.CostPer1kViews != nil
	if touchesFinancials {
		locked, err := s.financiallyLocked(ctx, tx, c)
		if err != nil {
			return nil, err
		}
		if locked {
			return nil, ErrFinancialsLocked
		}
	}

	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.Description != nil {
		c.Description = req.Description
	}
	if req.TargetNiches != nil {
		c.TargetNiches = req.TargetNiches
	}
	if req.TargetPlatforms != nil {
		c.TargetPlatforms = req.TargetPlatforms
	}
	if req.TargetAudienceLocations != nil {
		c.TargetAudienceLocations = req.TargetAudienceLocations
	}
	if req.TargetAudienceAge != nil {
		c.TargetAudienceAge = req.TargetAudienceAge
	}
	if req.StartDate != nil {
		c.StartDate = req.StartDate
	}
	if req.TotalBudget != nil {
		if req.TotalBudget.LessThanOrEqual(decimal.Zero) {
			return nil, ErrInvalidBudget
		}
		c.TotalBudget = *req.TotalBudget
	}
	if req.CostPer1kViews != nil || req.TotalBudget != nil {
		cost := c.RatePerView.Mul(thousand)
		if req.CostPer1kViews != nil {
			cost = *req.CostPer1kViews
		}
		c.RatePerView = Quote(c.TotalBudget, cost).RatePerView
	}

	err = tx.QueryRow(ctx, `
		UPDATE campaigns
		SET title = $1, description = $2, total_budget = $3, rate_per_view = $4,
			target_niches = $5, target_platforms = $6, target_audience_locations = $7,
			target_audience_age = $8, start_date = $9, updated_at = NOW()
		WHERE id = $10
		RETURNING updated_at
	`, c.Title, c.Description, c.TotalBudget, c.RatePerView, c.TargetNiches,
		c.TargetPlatforms, c.TargetAudienceLocations, c.TargetAudienceAge,
		c.StartDate, c.ID).Scan(&c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return c, nil
}

// SetStatus changes a campaign's status. Archived is terminal.
func (s *Service) SetStatus(ctx context.Context, brandID, id uuid.UUID, status models.CampaignStatus) (*models.Campaign, error) {
	if !models.ValidCampaignStatus(status) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1 FOR UPDATE`, id)
	c, err := scanCampaign(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	if c.BrandID != brandID {
		return nil, ErrCampaignNotOwned
	}
	if c.Status == models.CampaignStatusArchived {
		return nil, ErrCampaignArchived
	}

	err = tx.QueryRow(ctx, `
		UPDATE campaigns SET status = $1, updated_at = NOW() WHERE id = $2
		RETURNING updated_at
	`, status, id).Scan(&c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update campaign status: %w", err)
	}
	c.Status = status

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return c, nil
}

// GetProgress returns the budget spend progress for a campaign
func (s *Service) GetProgress(ctx context.Context, id uuid.UUID) (*Progress, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := ProgressFor(c.TotalBudget, c.TotalPaid)
	return &p, nil
}

// financiallyLocked reports whether budget and rate may no longer change:
// any confirmed funding or any submission against the campaign locks them.
func (s *Service) financiallyLocked(ctx context.Context, tx pgx.Tx, c *models.Campaign) (bool, error) {
	if c.TotalPaid.GreaterThan(decimal.Zero) {
		return true, nil
	}
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM content_submissions WHERE campaign_id = $1)
	`, c.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check submissions: %w", err)
	}
	return exists, nil
}

func scanCampaign(row pgx.Row) (*models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(
		&c.ID, &c.BrandID, &c.Title, &c.Description, &c.Status, &c.TotalBudget,
		&c.TotalPaid, &c.RatePerView, &c.TargetNiches, &c.TargetPlatforms,
		&c.TargetAudienceLocations, &c.TargetAudienceAge, &c.StartDate,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
