package social

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/clipfuse/clipfuse/internal/config"
	"github.com/clipfuse/clipfuse/internal/models"
)

const (
	youtubeAuthorizeURL = "https://accounts.google.com/o/oauth2/v2/auth"
	youtubeTokenURL     = "https://oauth2.googleapis.com/token"
	youtubeAPIURL       = "https://www.googleapis.com/youtube/v3"
)

type youtubeClient struct {
	creds config.PlatformCredentials
	http  *http.Client
}

func (c *youtubeClient) Platform() models.SocialPlatform { return models.PlatformYouTube }

func (c *youtubeClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.creds.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", "https://www.googleapis.com/auth/youtube.readonly")
	q.Set("redirect_uri", c.creds.RedirectURL)
	q.Set("access_type", "offline")
	q.Set("state", state)
	return youtubeAuthorizeURL + "?" + q.Encode()
}

func (c *youtubeClient) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("client_id", c.creds.ClientID)
	form.Set("client_secret", c.creds.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.creds.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, youtubeTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := doJSON(c.http, req, &body); err != nil {
		return nil, err
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrPlatformError)
	}

	tok := &Token{AccessToken: body.AccessToken, ExpiresAt: expiryFromSeconds(body.ExpiresIn)}
	if body.RefreshToken != "" {
		tok.RefreshToken = &body.RefreshToken
	}
	return tok, nil
}

func (c *youtubeClient) Account(ctx context.Context, accessToken string) (*AccountInfo, error) {
	u := youtubeAPIURL + "/channels?part=snippet,statistics&mine=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build channel request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var body struct {
		Items []struct {
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
			Statistics struct {
				SubscriberCount string `json:"subscriberCount"`
				ViewCount       string `json:"viewCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	if err := doJSON(c.http, req, &body); err != nil {
		return nil, err
	}
	if len(body.Items) == 0 {
		return nil, fmt.Errorf("%w: no channel for token", ErrPlatformError)
	}

	ch := body.Items[0]
	subs, _ := strconv.ParseInt(ch.Statistics.SubscriberCount, 10, 64)
	views, _ := strconv.ParseInt(ch.Statistics.ViewCount, 10, 64)
	return &AccountInfo{
		Handle:        ch.Snippet.Title,
		FollowerCount: subs,
		TotalViews:    views,
	}, nil
}

func (c *youtubeClient) Videos(ctx context.Context, accessToken string) ([]models.VideoItem, error) {
	// Two-step listing: search for the channel's recent uploads, then
	// fetch statistics for those IDs in one batch.
	searchURL := youtubeAPIURL + "/search?part=snippet&forMine=true&type=video&order=date&maxResults=20"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var search struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := doJSON(c.http, req, &search); err != nil {
		return nil, err
	}
	if len(search.Items) == 0 {
		return []models.VideoItem{}, nil
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}

	detailURL := youtubeAPIURL + "/videos?part=snippet,statistics&id=" + url.QueryEscape(strings.Join(ids, ","))
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, detailURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build videos request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var details struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title       string `json:"title"`
				PublishedAt string `json:"publishedAt"`
				Thumbnails  struct {
					Medium struct {
						URL string `json:"url"`
					} `json:"medium"`
				} `json:"thumbnails"`
			} `json:"snippet"`
			Statistics struct {
				ViewCount    string `json:"viewCount"`
				LikeCount    string `json:"likeCount"`
				CommentCount string `json:"commentCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	if err := doJSON(c.http, req, &details); err != nil {
		return nil, err
	}

	items := make([]models.VideoItem, 0, len(details.Items))
	for _, v := range details.Items {
		views, _ := strconv.ParseInt(v.Statistics.ViewCount, 10, 64)
		likes, _ := strconv.ParseInt(v.Statistics.LikeCount, 10, 64)
		comments, _ := strconv.ParseInt(v.Statistics.CommentCount, 10, 64)
		item := models.VideoItem{
			ID:           v.ID,
			Title:        v.Snippet.Title,
			URL:          "https://www.youtube.com/watch?v=" + v.ID,
			ThumbnailURL: v.Snippet.Thumbnails.Medium.URL,
			ViewCount:    views,
			LikeCount:    likes,
			CommentCount: comments,
		}
		if t, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			item.PostedAt = &t
		}
		items = append(items, item)
	}
	return items, nil
}
