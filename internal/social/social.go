// Package social manages connected social accounts: the OAuth connect and
// revoke flows, cached video listings, and the metrics sync that keeps link
// aggregates and live submission counts current.
package social

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clipfuse/clipfuse/internal/cache"
	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/clipfuse/clipfuse/internal/monitoring"
)

// Social-specific errors
var (
	ErrNotConnected   = errors.New("platform not connected")
	ErrInvalidState   = errors.New("invalid or expired oauth state")
	ErrLinkNotFound   = errors.New("social link not found")
	ErrConnectTimeout = errors.New("timed out waiting for platform connection")
)

const (
	videoListTTL  = 5 * time.Minute
	oauthStateTTL = 10 * time.Minute
)

// Service handles social account operations
type Service struct {
	db       *pgxpool.Pool
	cache    *cache.Redis
	clients  map[models.SocialPlatform]Client
	breakers *BreakerManager
}

// NewService creates a new social service
func NewService(db *pgxpool.Pool, redis *cache.Redis, clients map[models.SocialPlatform]Client) *Service {
	return &Service{
		db:       db,
		cache:    redis,
		clients:  clients,
		breakers: NewBreakerManager(nil),
	}
}

func (s *Service) client(platform models.SocialPlatform) (Client, error) {
	c, ok := s.clients[platform]
	if !ok {
		return nil, ErrUnsupportedPlatform
	}
	return c, nil
}

// AuthorizeURL starts the connect flow: it stores a one-time state bound to
// the user and returns the provider URL the client should open.
func (s *Service) AuthorizeURL(ctx context.Context, platform models.SocialPlatform, userID uuid.UUID) (string, error) {
	c, err := s.client(platform)
	if err != nil {
		return "", err
	}

	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	key := fmt.Sprintf("oauth:state:%s:%s", platform, state)
	if err := s.cache.SetString(ctx, key, userID.String(), oauthStateTTL); err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}

	return c.AuthorizeURL(state), nil
}

// HandleCallback finishes the connect flow: it validates the state, exchanges
// the code, persists the token, and creates or refreshes the social link.
func (s *Service) HandleCallback(ctx context.Context, platform models.SocialPlatform, code, state string) (*models.SocialLink, error) {
	c, err := s.client(platform)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("oauth:state:%s:%s", platform, state)
	userIDStr, err := s.cache.GetString(ctx, key)
	if err != nil {
		return nil, ErrInvalidState
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrInvalidState
	}
	// One-shot: a replayed callback must not mint a second token
	_ = s.cache.Delete(ctx, key)

	token, err := c.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	account, err := c.Account(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO oauth_tokens (user_id, platform, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`, userID, platform, token.AccessToken, token.RefreshToken, token.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store oauth token: %w", err)
	}

	var link models.SocialLink
	err = tx.QueryRow(ctx, `
		INSERT INTO social_links (user_id, platform, handle, follower_count, total_views_count, total_likes_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, platform) DO UPDATE SET
			handle = EXCLUDED.handle,
			follower_count = EXCLUDED.follower_count,
			total_views_count = EXCLUDED.total_views_count,
			total_likes_count = EXCLUDED.total_likes_count
		RETURNING id, user_id, platform, handle, follower_count, total_views_count, total_likes_count, connected_at, synced_at
	`, userID, platform, account.Handle, account.FollowerCount, account.TotalViews, account.TotalLikes).Scan(
		&link.ID, &link.UserID, &link.Platform, &link.Handle,
		&link.FollowerCount, &link.TotalViewsCount, &link.TotalLikesCount,
		&link.ConnectedAt, &link.SyncedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to store social link: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &link, nil
}

// Revoke disconnects a platform: both the token and the link go away
func (s *Service) Revoke(ctx context.Context, platform models.SocialPlatform, userID uuid.UUID) error {
	if _, err := s.client(platform); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `DELETE FROM oauth_tokens WHERE user_id = $1 AND platform = $2`, userID, platform)
	if err != nil {
		return fmt.Errorf("failed to delete oauth token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotConnected
	}
	if _, err := tx.Exec(ctx, `DELETE FROM social_links WHERE user_id = $1 AND platform = $2`, userID, platform); err != nil {
		return fmt.Errorf("failed to delete social link: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	_ = s.cache.Delete(ctx, videoListKey(platform, userID))
	return nil
}

// Links lists a user's connected accounts
func (s *Service) Links(ctx context.Context, userID uuid.UUID) ([]models.SocialLink, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, platform, handle, follower_count, total_views_count, total_likes_count, connected_at, synced_at
		FROM social_links WHERE user_id = $1 ORDER BY connected_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list social links: %w", err)
	}
	defer rows.Close()

	links := []models.SocialLink{}
	for rows.Next() {
		var link models.SocialLink
		err := rows.Scan(
			&link.ID, &link.UserID, &link.Platform, &link.Handle,
			&link.FollowerCount, &link.TotalViewsCount, &link.TotalLikesCount,
			&link.ConnectedAt, &link.SyncedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan social link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// VideoList returns the user's recent videos on a platform. Results are
// cached for a short window; a tripped breaker still serves stale entries.
func (s *Service) VideoList(ctx context.Context, platform models.SocialPlatform, userID uuid.UUID) ([]models.VideoItem, error) {
	c, err := s.client(platform)
	if err != nil {
		return nil, err
	}

	key := videoListKey(platform, userID)
	if cached, err := s.cache.GetString(ctx, key); err == nil {
		var items []models.VideoItem
		if err := json.Unmarshal([]byte(cached), &items); err == nil {
			monitoring.Get().CacheHits.WithLabelValues("video_list").Inc()
			return items, nil
		}
	}
	monitoring.Get().CacheMisses.WithLabelValues("video_list").Inc()

	token, err := s.accessToken(ctx, userID, platform)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.breakers.Execute(ctx, string(platform), func() (interface{}, error) {
		return c.Videos(ctx, token)
	})
	monitoring.Get().PlatformLatency.WithLabelValues(string(platform), "video_list").Observe(time.Since(start).Seconds())
	if err != nil {
		monitoring.Get().PlatformRequests.WithLabelValues(string(platform), "video_list", "error").Inc()
		monitoring.Get().PlatformErrors.WithLabelValues(string(platform), "video_list").Inc()
		return nil, err
	}
	monitoring.Get().PlatformRequests.WithLabelValues(string(platform), "video_list", "ok").Inc()

	items := result.([]models.VideoItem)
	if encoded, err := json.Marshal(items); err == nil {
		_ = s.cache.SetString(ctx, key, string(encoded), videoListTTL)
	}
	return items, nil
}

// WaitForConnection polls until the platform link exists. Attempts and the
// backoff schedule are fixed so a stuck provider cannot hold a request open.
func (s *Service) WaitForConnection(ctx context.Context, platform models.SocialPlatform, userID uuid.UUID, attempts int, backoff time.Duration) (*models.SocialLink, error) {
	if attempts <= 0 {
		attempts = 5
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	for i := 0; i < attempts; i++ {
		link, err := s.link(ctx, userID, platform)
		if err == nil {
			return link, nil
		}
		if !errors.Is(err, ErrLinkNotFound) {
			return nil, err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, ErrConnectTimeout
}

func (s *Service) link(ctx context.Context, userID uuid.UUID, platform models.SocialPlatform) (*models.SocialLink, error) {
	var link models.SocialLink
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, platform, handle, follower_count, total_views_count, total_likes_count, connected_at, synced_at
		FROM social_links WHERE user_id = $1 AND platform = $2
	`, userID, platform).Scan(
		&link.ID, &link.UserID, &link.Platform, &link.Handle,
		&link.FollowerCount, &link.TotalViewsCount, &link.TotalLikesCount,
		&link.ConnectedAt, &link.SyncedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get social link: %w", err)
	}
	return &link, nil
}

func (s *Service) accessToken(ctx context.Context, userID uuid.UUID, platform models.SocialPlatform) (string, error) {
	var token string
	var expiresAt *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT access_token, expires_at FROM oauth_tokens WHERE user_id = $1 AND platform = $2
	`, userID, platform).Scan(&token, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotConnected
		}
		return "", fmt.Errorf("failed to get oauth token: %w", err)
	}
	if expiresAt != nil && expiresAt.Before(time.Now()) {
		return "", ErrTokenRejected
	}
	return token, nil
}

func videoListKey(platform models.SocialPlatform, userID uuid.UUID) string {
	return fmt.Sprintf("videolist:%s:%s", platform, userID)
}
