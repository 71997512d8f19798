package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SubmissionStatus represents the review lifecycle stage of a submission.
// The progression is linear with one backward edge:
// pending_review -> approved -> posted_live -> completed, and
// pending_review -> needs_revision -> (resubmit) -> pending_review.
type SubmissionStatus string

const (
	SubmissionStatusPendingReview SubmissionStatus = "pending_review"
	SubmissionStatusNeedsRevision SubmissionStatus = "needs_revision"
	SubmissionStatusApproved      SubmissionStatus = "approved"
	SubmissionStatusPostedLive    SubmissionStatus = "posted_live"
	SubmissionStatusCompleted     SubmissionStatus = "completed"
)

// ValidSubmissionStatus reports whether s is one of the known statuses.
func ValidSubmissionStatus(s SubmissionStatus) bool {
	switch s {
	case SubmissionStatusPendingReview, SubmissionStatusNeedsRevision,
		SubmissionStatusApproved, SubmissionStatusPostedLive, SubmissionStatusCompleted:
		return true
	}
	return false
}

// ContentSubmission represents an influencer's content entry against a
// campaign. One submission exists per (influencer, campaign) pair.
type ContentSubmission struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	InfluencerID   uuid.UUID        `json:"influencer_id" db:"influencer_id"`
	CampaignID     uuid.UUID        `json:"campaign_id" db:"campaign_id"`
	Status         SubmissionStatus `json:"status" db:"status"`
	ReviewVideoURL *string          `json:"review_video_url,omitempty" db:"review_video_url"`
	PublicPostURL  *string          `json:"public_post_url,omitempty" db:"public_post_url"`
	ViewCount      int64            `json:"view_count" db:"view_count"`
	LikeCount      int64            `json:"like_count" db:"like_count"`
	CommentCount   int64            `json:"comment_count" db:"comment_count"`
	EarnedAmount   decimal.Decimal  `json:"earned_amount" db:"earned_amount"`
	Rating         *int             `json:"rating,omitempty" db:"rating"`
	Message        *string          `json:"message,omitempty" db:"message"`
	Justify        *string          `json:"justify,omitempty" db:"justify"`
	SubmittedAt    time.Time        `json:"submitted_at" db:"submitted_at"`
	ApprovedAt     *time.Time       `json:"approved_at,omitempty" db:"approved_at"`
	PostedAt       *time.Time       `json:"posted_at,omitempty" db:"posted_at"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
}

// MetricsVisible reports whether the read-only metrics view (views, likes,
// comments, earned amount) is unlocked for this submission's status.
func MetricsVisible(s SubmissionStatus) bool {
	return s == SubmissionStatusPostedLive || s == SubmissionStatusCompleted
}
