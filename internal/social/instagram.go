package social

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clipfuse/clipfuse/internal/config"
	"github.com/clipfuse/clipfuse/internal/models"
)

const (
	instagramAuthorizeURL = "https://api.instagram.com/oauth/authorize"
	instagramTokenURL     = "https://api.instagram.com/oauth/access_token"
	instagramGraphURL     = "https://graph.instagram.com"
)

type instagramClient struct {
	creds config.PlatformCredentials
	http  *http.Client
}

func (c *instagramClient) Platform() models.SocialPlatform { return models.PlatformInstagram }

func (c *instagramClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.creds.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", "user_profile,user_media")
	q.Set("redirect_uri", c.creds.RedirectURL)
	q.Set("state", state)
	return instagramAuthorizeURL + "?" + q.Encode()
}

func (c *instagramClient) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", c.creds.ClientID)
	form.Set("client_secret", c.creds.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.creds.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, instagramTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := doJSON(c.http, req, &body); err != nil {
		return nil, err
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrPlatformError)
	}

	// Short-lived tokens last ~1h; the client is expected to reconnect
	// rather than refresh, matching basic-display semantics.
	return &Token{AccessToken: body.AccessToken, ExpiresAt: expiryFromSeconds(3600)}, nil
}

func (c *instagramClient) Account(ctx context.Context, accessToken string) (*AccountInfo, error) {
	u := fmt.Sprintf("%s/me?fields=username,media_count&access_token=%s", instagramGraphURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build account request: %w", err)
	}

	var body struct {
		Username string `json:"username"`
	}
	if err := doJSON(c.http, req, &body); err != nil {
		return nil, err
	}

	// Follower counts are not exposed on the basic display API;
	// they stay at their last synced value.
	return &AccountInfo{Handle: body.Username}, nil
}

func (c *instagramClient) Videos(ctx context.Context, accessToken string) ([]models.VideoItem, error) {
	u := fmt.Sprintf("%s/me/media?fields=id,caption,media_type,permalink,thumbnail_url,timestamp,like_count,comments_count&access_token=%s",
		instagramGraphURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build media request: %w", err)
	}

	var body struct {
		Data []struct {
			ID            string `json:"id"`
			Caption       string `json:"caption"`
			MediaType     string `json:"media_type"`
			Permalink     string `json:"permalink"`
			ThumbnailURL  string `json:"thumbnail_url"`
			Timestamp     string `json:"timestamp"`
			LikeCount     int64  `json:"like_count"`
			CommentsCount int64  `json:"comments_count"`
		} `json:"data"`
	}
	if err := doJSON(c.http, req, &body); err != nil {
		return nil, err
	}

	items := make([]models.VideoItem, 0, len(body.Data))
	for _, m := range body.Data {
		if m.MediaType != "VIDEO" && m.MediaType != "REELS" {
			continue
		}
		item := models.VideoItem{
			ID:           m.ID,
			Title:        m.Caption,
			URL:          m.Permalink,
			ThumbnailURL: m.ThumbnailURL,
			LikeCount:    m.LikeCount,
			CommentCount: m.CommentsCount,
		}
		if t, err := time.Parse(time.RFC3339, m.Timestamp); err == nil {
			item.PostedAt = &t
		}
		items = append(items, item)
	}
	return items, nil
}
