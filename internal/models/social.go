package models

import (
	"time"

	"github.com/google/uuid"
)

// SocialPlatform represents a connected social platform
type SocialPlatform string

const (
	PlatformTikTok    SocialPlatform = "tiktok"
	PlatformInstagram SocialPlatform = "instagram"
	PlatformYouTube   SocialPlatform = "youtube"
)

// ValidSocialPlatform reports whether p is one of the supported platforms.
func ValidSocialPlatform(p SocialPlatform) bool {
	switch p {
	case PlatformTikTok, PlatformInstagram, PlatformYouTube:
		return true
	}
	return false
}

// SocialLink represents a connected social account with aggregated metrics.
// Metric fields are written only by the metrics sync.
type SocialLink struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	UserID          uuid.UUID      `json:"user_id" db:"user_id"`
	Platform        SocialPlatform `json:"platform" db:"platform"`
	Handle          string         `json:"handle" db:"handle"`
	FollowerCount   int64          `json:"follower_count" db:"follower_count"`
	TotalViewsCount int64          `json:"total_views_count" db:"total_views_count"`
	TotalLikesCount int64          `json:"total_likes_count" db:"total_likes_count"`
	ConnectedAt     time.Time      `json:"connected_at" db:"connected_at"`
	SyncedAt        *time.Time     `json:"synced_at,omitempty" db:"synced_at"`
}

// OAuthToken holds the token material from a platform connect flow.
// Tokens never leave the backend; the client only sees the resulting link.
type OAuthToken struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	UserID       uuid.UUID      `json:"user_id" db:"user_id"`
	Platform     SocialPlatform `json:"platform" db:"platform"`
	AccessToken  string         `json:"-" db:"access_token"`
	RefreshToken *string        `json:"-" db:"refresh_token"`
	ExpiresAt    *time.Time     `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// VideoItem is one entry of a platform video listing.
type VideoItem struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	ThumbnailURL string     `json:"thumbnail_url,omitempty"`
	ViewCount    int64      `json:"view_count"`
	LikeCount    int64      `json:"like_count"`
	CommentCount int64      `json:"comment_count"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
}
