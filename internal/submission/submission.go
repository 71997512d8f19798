package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clipfuse/clipfuse/internal/logging"
	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Service errors
var (
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrSubmissionNotOwned = errors.New("submission not owned by user")
	ErrAlreadyApplied     = errors.New("submission already exists for this campaign")
	ErrCampaignNotOpen    = errors.New("campaign is not accepting submissions")
	ErrInvalidTransition  = errors.New("invalid submission status transition")
	ErrMissingVideoURL    = errors.New("review video URL is required")
	ErrMissingPostURL     = errors.New("public post URL is required")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrNotCompleted       = errors.New("submission is not completed")
)

// Service handles the submission lifecycle
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a new submission service
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// CanTransition reports whether the lifecycle allows moving from one status
// to another. The progression is linear with one backward edge through
// needs_revision.
func CanTransition(from, to models.SubmissionStatus) bool {
	switch from {
	case models.SubmissionStatusPendingReview:
		return to == models.SubmissionStatusApproved || to == models.SubmissionStatusNeedsRevision
	case models.SubmissionStatusNeedsRevision:
		return to == models.SubmissionStatusPendingReview
	case models.SubmissionStatusApproved:
		return to == models.SubmissionStatusPostedLive
	case models.SubmissionStatusPostedLive:
		return to == models.SubmissionStatusCompleted
	}
	return false
}

// ApplyRequest represents an influencer applying to a campaign
type ApplyRequest struct {
	CampaignID     uuid.UUID `json:"campaign_id" binding:"required"`
	ReviewVideoURL string    `json:"review_video_url" binding:"required,url"`
}

// ReviewRequest carries the brand's revision feedback
type ReviewRequest struct {
	Message *string `json:"message,omitempty"`
	Justify *string `json:"justify,omitempty"`
}

// StatusLookup is the response of the (user, campaign) status lookup: the
// submission when one exists plus its role-projected rendering.
type StatusLookup struct {
	Submission *models.ContentSubmission `json:"submission,omitempty"`
	Projection Projection                `json:"projection"`
}

const submissionColumns = `id, influencer_id, campaign_id, status, review_video_url,
	public_post_url, view_count, like_count, comment_count, earned_amount,
	rating, message, justify, submitted_at, approved_at, posted_at, completed_at`

// Apply creates a submission in pending_review. One submission exists per
// (influencer, campaign) pair; a second apply is rejected.
func (s *Service) Apply(ctx context.Context, influencerID uuid.UUID, req *ApplyRequest) (*models.ContentSubmission, error) {
	var status models.CampaignStatus
	err := s.db.QueryRow(ctx, `SELECT status FROM campaigns WHERE id = $1`, req.CampaignID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotOpen
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	if status != models.CampaignStatusActive {
		return nil, ErrCampaignNotOpen
	}

	var exists bool
	err = s.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM content_submissions WHERE influencer_id = $1 AND campaign_id = $2)
	`, influencerID, req.CampaignID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing submission: %w", err)
	}
	if exists {
		return nil, ErrAlreadyApplied
	}

	sub := &models.ContentSubmission{
		ID:             uuid.New(),
		InfluencerID:   influencerID,
		CampaignID:     req.CampaignID,
		Status:         models.SubmissionStatusPendingReview,
		ReviewVideoURL: &req.ReviewVideoURL,
		EarnedAmount:   decimal.Zero,
	}

	err = s.db.QueryRow(ctx, `
		INSERT INTO content_submissions (id, influencer_id, campaign_id, status, review_video_url, earned_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING submitted_at
	`, sub.ID, sub.InfluencerID, sub.CampaignID, sub.Status, sub.ReviewVideoURL, sub.EarnedAmount).Scan(&sub.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	return sub, nil
}

// Get retrieves a submission by ID
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.ContentSubmission, error) {
	row := s.db.QueryRow(ctx, `SELECT `+submissionColumns+` FROM content_submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

// Lookup resolves the submission status for a (user, campaign) pair in one
// query and projects it for the viewer's role. A missing submission yields
// the apply affordance for influencers.
func (s *Service) Lookup(ctx context.Context, userID, campaignID uuid.UUID, role models.UserType) (*StatusLookup, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+submissionColumns+` FROM content_submissions
		WHERE influencer_id = $1 AND campaign_id = $2
	`, userID, campaignID)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &StatusLookup{Projection: Project(nil, role)}, nil
		}
		return nil, fmt.Errorf("failed to look up submission: %w", err)
	}
	return &StatusLookup{Submission: sub, Projection: Project(sub, role)}, nil
}

// ListForCampaign lists submissions against a campaign, newest first. Only
// the owning brand may call this; ownership is checked against the campaign.
func (s *Service) ListForCampaign(ctx context.Context, brandID, campaignID uuid.UUID) ([]models.ContentSubmission, error) {
	var owner uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT brand_id FROM campaigns WHERE id = $1`, campaignID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	if owner != brandID {
		return nil, ErrSubmissionNotOwned
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+submissionColumns+` FROM content_submissions
		WHERE campaign_id = $1 ORDER BY submitted_at DESC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

// ListForInfluencer lists an influencer's submissions, newest first
func (s *Service) ListForInfluencer(ctx context.Context, influencerID uuid.UUID) ([]models.ContentSubmission, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+submissionColumns+` FROM content_submissions
		WHERE influencer_id = $1 ORDER BY submitted_at DESC
	`, influencerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

// Approve moves pending_review -> approved. Brand-only, checked against the
// campaign owner.
func (s *Service) Approve(ctx context.Context, brandID, submissionID uuid.UUID) (*models.ContentSubmission, error) {
	return s.transition(ctx, submissionID, models.SubmissionStatusApproved, func(tx pgx.Tx, sub *models.ContentSubmission) error {
		if err := s.requireCampaignOwner(ctx, tx, sub.CampaignID, brandID); err != nil {
			return err
		}
		now := time.Now()
		sub.ApprovedAt = &now
		_, err := tx.Exec(ctx, `
			UPDATE content_submissions SET status = $1, approved_at = $2 WHERE id = $3
		`, models.SubmissionStatusApproved, now, sub.ID)
		return err
	})
}

// RequestRevision moves pending_review -> needs_revision with the brand's
// feedback attached.
func (s *Service) RequestRevision(ctx context.Context, brandID, submissionID uuid.UUID, req *ReviewRequest) (*models.ContentSubmission, error) {
	return s.transition(ctx, submissionID, models.SubmissionStatusNeedsRevision, func(tx pgx.Tx, sub *models.ContentSubmission) error {
		if err := s.requireCampaignOwner(ctx, tx, sub.CampaignID, brandID); err != nil {
			return err
		}
		sub.Message = req.Message
		sub.Justify = req.Justify
		_, err := tx.Exec(ctx, `
			UPDATE content_submissions SET status = $1, message = $2, justify = $3 WHERE id = $4
		`, models.SubmissionStatusNeedsRevision, req.Message, req.Justify, sub.ID)
		return err
	})
}

// Resubmit moves needs_revision -> pending_review with a fresh review video.
func (s *Service) Resubmit(ctx context.Context, influencerID, submissionID uuid.UUID, reviewVideoURL string) (*models.ContentSubmission, error) {
	if reviewVideoURL == "" {
		return nil, ErrMissingVideoURL
	}
	return s.transition(ctx, submissionID, models.SubmissionStatusPendingReview, func(tx pgx.Tx, sub *models.ContentSubmission) error {
		if sub.InfluencerID != influencerID {
			return ErrSubmissionNotOwned
		}
		sub.ReviewVideoURL = &reviewVideoURL
		now := time.Now()
		sub.SubmittedAt = now
		_, err := tx.Exec(ctx, `
			UPDATE content_submissions
			SET status = $1, review_video_url = $2, submitted_at = $3, message = NULL, justify = NULL
			WHERE id = $4
		`, models.SubmissionStatusPendingReview, reviewVideoURL, now, sub.ID)
		return err
	})
}

// MarkPosted moves approved -> posted_live once the influencer provides the
// public post URL.
func (s *Service) MarkPosted(ctx context.Context, influencerID, submissionID uuid.UUID, publicPostURL string) (*models.ContentSubmission, error) {
	if publicPostURL == "" {
		return nil, ErrMissingPostURL
	}
	return s.transition(ctx, submissionID, models.SubmissionStatusPostedLive, func(tx pgx.Tx, sub *models.ContentSubmission) error {
		if sub.InfluencerID != influencerID {
			return ErrSubmissionNotOwned
		}
		now := time.Now()
		sub.PublicPostURL = &publicPostURL
		sub.PostedAt = &now
		_, err := tx.Exec(ctx, `
			UPDATE content_submissions SET status = $1, public_post_url = $2, posted_at = $3 WHERE id = $4
		`, models.SubmissionStatusPostedLive, publicPostURL, now, sub.ID)
		return err
	})
}

// Complete moves posted_live -> completed and settles the earned amount:
// view_count * rate_per_view, capped so the campaign's submissions never
// earn past its total budget. Driven by the metrics sync, not user action.
func (s *Service) Complete(ctx context.Context, submissionID uuid.UUID) (*models.ContentSubmission, error) {
	return s.transition(ctx, submissionID, models.SubmissionStatusCompleted, func(tx pgx.Tx, sub *models.ContentSubmission) error {
		var totalBudget, ratePerView, earnedByOthers decimal.Decimal
		err := tx.QueryRow(ctx, `
			SELECT c.total_budget, c.rate_per_view,
				COALESCE((SELECT SUM(earned_amount) FROM content_submissions
					WHERE campaign_id = c.id AND id <> $2), 0)
			FROM campaigns c WHERE c.id = $1
		`, sub.CampaignID, sub.ID).Scan(&totalBudget, &ratePerView, &earnedByOthers)
		if err != nil {
			return fmt.Errorf("failed to get campaign economics: %w", err)
		}

		earned := ratePerView.Mul(decimal.NewFromInt(sub.ViewCount))
		remaining := totalBudget.Sub(earnedByOthers)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		if earned.GreaterThan(remaining) {
			earned = remaining
		}

		now := time.Now()
		sub.EarnedAmount = earned
		sub.CompletedAt = &now
		_, err = tx.Exec(ctx, `
			UPDATE content_submissions SET status = $1, earned_amount = $2, completed_at = $3 WHERE id = $4
		`, models.SubmissionStatusCompleted, earned, now, sub.ID)
		return err
	})
}

// Rate lets the campaign's brand rate a completed submission 1-5.
func (s *Service) Rate(ctx context.Context, brandID, submissionID uuid.UUID, rating int) (*models.ContentSubmission, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sub, err := s.lockSubmission(ctx, tx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionStatusCompleted {
		return nil, ErrNotCompleted
	}
	if err := s.requireCampaignOwner(ctx, tx, sub.CampaignID, brandID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `UPDATE content_submissions SET rating = $1 WHERE id = $2`, rating, sub.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to set rating: %w", err)
	}
	sub.Rating = &rating

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return sub, nil
}

// UpdateMetrics writes synced view/like/comment counts for a posted
// submission. Only the metrics sync calls this.
func (s *Service) UpdateMetrics(ctx context.Context, submissionID uuid.UUID, views, likes, comments int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE content_submissions
		SET view_count = $1, like_count = $2, comment_count = $3
		WHERE id = $4 AND status IN ($5, $6)
	`, views, likes, comments, submissionID,
		models.SubmissionStatusPostedLive, models.SubmissionStatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to update submission metrics: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

// transition loads and locks a submission, validates the lifecycle edge and
// applies the mutation inside one transaction.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to models.SubmissionStatus, apply func(pgx.Tx, *models.ContentSubmission) error) (*models.ContentSubmission, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sub, err := s.lockSubmission(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	from := sub.Status
	if !CanTransition(from, to) {
		return nil, ErrInvalidTransition
	}

	if err := apply(tx, sub); err != nil {
		return nil, err
	}
	sub.Status = to

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logging.LogSubmissionTransition(sub.ID.String(), sub.CampaignID.String(), string(from), string(to))

	return sub, nil
}

func (s *Service) lockSubmission(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.ContentSubmission, error) {
	row := tx.QueryRow(ctx, `SELECT `+submissionColumns+` FROM content_submissions WHERE id = $1 FOR UPDATE`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, nil
}

func (s *Service) requireCampaignOwner(ctx context.Context, tx pgx.Tx, campaignID, brandID uuid.UUID) error {
	var owner uuid.UUID
	err := tx.QueryRow(ctx, `SELECT brand_id FROM campaigns WHERE id = $1`, campaignID).Scan(&owner)
	if err != nil {
		return fmt.Errorf("failed to get campaign owner: %w", err)
	}
	if owner != brandID {
		return ErrSubmissionNotOwned
	}
	return nil
}

func scanSubmission(row pgx.Row) (*models.ContentSubmission, error) {
	var sub models.ContentSubmission
	err := row.Scan(
		&sub.ID, &sub.InfluencerID, &sub.CampaignID, &sub.Status, &sub.ReviewVideoURL,
		&sub.PublicPostURL, &sub.ViewCount, &sub.LikeCount, &sub.CommentCount,
		&sub.EarnedAmount, &sub.Rating, &sub.Message, &sub.Justify,
		&sub.SubmittedAt, &sub.ApprovedAt, &sub.PostedAt, &sub.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func collectSubmissions(rows pgx.Rows) ([]models.ContentSubmission, error) {
	var subs []models.ContentSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate submissions: %w", err)
	}
	return subs, nil
}
