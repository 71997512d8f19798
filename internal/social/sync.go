package social

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipfuse/clipfuse/internal/logging"
	"github.com/clipfuse/clipfuse/internal/models"
	"github.com/clipfuse/clipfuse/internal/monitoring"
)

// SubmissionMetrics is the slice of the submission service the sync needs.
type SubmissionMetrics interface {
	UpdateMetrics(ctx context.Context, submissionID uuid.UUID, views, likes, comments int64) error
}

// Syncer periodically refreshes link aggregates and live submission counts
// from the platform APIs.
type Syncer struct {
	service  *Service
	subs     SubmissionMetrics
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex
}

// NewSyncer creates a metrics syncer. interval <= 0 means every 15 minutes.
func NewSyncer(service *Service, subs SubmissionMetrics, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &Syncer{
		service:  service,
		subs:     subs,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sync loop
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("syncer already running")
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// Stop stops the sync loop and waits for the current pass to finish
func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()
}

func (s *Syncer) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.SyncAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.SyncAll(ctx)
		}
	}
}

// SyncAll runs one pass over every stored token. Per-user failures are
// logged and skipped so one dead token cannot stall the rest.
func (s *Syncer) SyncAll(ctx context.Context) {
	rows, err := s.service.db.Query(ctx, `
		SELECT user_id, platform FROM oauth_tokens ORDER BY platform, user_id
	`)
	if err != nil {
		logging.LogMetricsSync("all", 0, 0, err)
		return
	}

	type target struct {
		userID   uuid.UUID
		platform models.SocialPlatform
	}
	var targets []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.userID, &t.platform); err != nil {
			rows.Close()
			logging.LogMetricsSync("all", 0, 0, err)
			return
		}
		targets = append(targets, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		logging.LogMetricsSync("all", 0, 0, err)
		return
	}

	perPlatform := map[models.SocialPlatform][2]int{}
	for _, t := range targets {
		links, subs, err := s.syncUser(ctx, t.userID, t.platform)
		counts := perPlatform[t.platform]
		counts[0] += links
		counts[1] += subs
		perPlatform[t.platform] = counts
		if err != nil {
			monitoring.Get().MetricsSyncRuns.WithLabelValues(string(t.platform), "error").Inc()
			logging.LogMetricsSync(string(t.platform), counts[0], counts[1], err)
			continue
		}
	}
	for platform, counts := range perPlatform {
		monitoring.Get().MetricsSyncRuns.WithLabelValues(string(platform), "ok").Inc()
		logging.LogMetricsSync(string(platform), counts[0], counts[1], nil)
	}
}

// syncUser refreshes one (user, platform) pair: the link aggregates first,
// then counts for any live submissions that point at a listed video.
func (s *Syncer) syncUser(ctx context.Context, userID uuid.UUID, platform models.SocialPlatform) (linksUpdated, subsUpdated int, err error) {
	c, err := s.service.client(platform)
	if err != nil {
		return 0, 0, err
	}
	token, err := s.service.accessToken(ctx, userID, platform)
	if err != nil {
		return 0, 0, err
	}

	result, err := s.service.breakers.Execute(ctx, string(platform), func() (interface{}, error) {
		return c.Account(ctx, token)
	})
	if err != nil {
		return 0, 0, err
	}
	account := result.(*AccountInfo)

	result, err = s.service.breakers.Execute(ctx, string(platform), func() (interface{}, error) {
		return c.Videos(ctx, token)
	})
	if err != nil {
		return 0, 0, err
	}
	videos := result.([]models.VideoItem)

	// Platforms that don't report account-level views expose them only
	// per video; sum as a fallback.
	totalViews, totalLikes := account.TotalViews, account.TotalLikes
	if totalViews == 0 || totalLikes == 0 {
		var sumViews, sumLikes int64
		for _, v := range videos {
			sumViews += v.ViewCount
			sumLikes += v.LikeCount
		}
		if totalViews == 0 {
			totalViews = sumViews
		}
		if totalLikes == 0 {
			totalLikes = sumLikes
		}
	}

	tag, err := s.service.db.Exec(ctx, `
		UPDATE social_links SET
			handle = COALESCE(NULLIF($3, ''), handle),
			follower_count = $4,
			total_views_count = $5,
			total_likes_count = $6,
			synced_at = NOW()
		WHERE user_id = $1 AND platform = $2
	`, userID, platform, account.Handle, account.FollowerCount, totalViews, totalLikes)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to update social link: %w", err)
	}
	linksUpdated = int(tag.RowsAffected())

	subsUpdated, err = s.syncSubmissions(ctx, userID, videos)
	return linksUpdated, subsUpdated, err
}

// syncSubmissions pushes per-video counts into the influencer's live
// submissions. A submission matches when its public post URL is the video's
// URL or embeds the video ID.
func (s *Syncer) syncSubmissions(ctx context.Context, userID uuid.UUID, videos []models.VideoItem) (int, error) {
	rows, err := s.service.db.Query(ctx, `
		SELECT id, public_post_url FROM content_submissions
		WHERE influencer_id = $1 AND status IN ('posted_live', 'completed') AND public_post_url IS NOT NULL
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list live submissions: %w", err)
	}
	defer rows.Close()

	type liveSub struct {
		id  uuid.UUID
		url string
	}
	var subs []liveSub
	for rows.Next() {
		var sub liveSub
		if err := rows.Scan(&sub.id, &sub.url); err != nil {
			return 0, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	updated := 0
	for _, sub := range subs {
		for _, v := range videos {
			if !matchesVideo(sub.url, v) {
				continue
			}
			if err := s.subs.UpdateMetrics(ctx, sub.id, v.ViewCount, v.LikeCount, v.CommentCount); err != nil {
				return updated, err
			}
			updated++
			break
		}
	}
	return updated, nil
}

func matchesVideo(postURL string, v models.VideoItem) bool {
	if postURL == v.URL {
		return true
	}
	return v.ID != "" && strings.Contains(postURL, v.ID)
}
