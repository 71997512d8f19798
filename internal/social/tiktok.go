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
	tiktokAuthorizeURL = "https://www.tiktok.com/v2/auth/authorize/"
	tiktokTokenURL     = "https://open.tiktokapis.com/v2/oauth/token/"
	tiktokUserInfoURL  = "https://open.tiktokapis.com/v2/user/info/"
	tiktokVideoListURL = "https://open.tiktokapis.com/v2/video/list/"
)

type tiktokClient struct {
	creds config.PlatformCredentials
	http  *http.Client
}

func (c *tiktokClient) Platform() models.SocialPlatform { return models.PlatformTikTok }

func (c *tiktokClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_key", c.creds.ClientID)
	q.Set("response_type", "code")
	q.Set("scope", "user.info.basic,user.info.stats,video.list")
	q.Set("redirect_uri", c.creds.RedirectURL)
	q.Set("state", state)
	return tiktokAuthorizeURL + "?" + q.Encode()
}

func (c *tiktokClient) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("client_key", c.creds.ClientID)
	form.Set("client_secret", c.creds.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.creds.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tiktokTokenURL, strings.NewReader(form.Encode()))
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

func (c *tiktokClient) Account(ctx context.Context, accessToken string) (*AccountInfo, error) {
	u := tiktokUserInfoURL + "?fields=display_name,follower_count,likes_count"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var body struct {
		Data struct {
			User struct {
				DisplayName   string `json:"display_name"`
				FollowerCount int64  `json:"follower_count"`
				LikesCount    int64  `json:"likes_count"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := doJSON(c.http, req, &body); err != nil {
		return nil, err
	}

	return &AccountInfo{
		Handle:        body.Data.User.DisplayName,
		FollowerCount: body.Data.User.FollowerCount,
		TotalLikes:    body.Data.User.LikesCount,
	}, nil
}

func (c *tiktokClient) Videos(ctx context.Context, accessToken string) ([]models.VideoItem, error) {
	u := tiktokVideoListURL + "?fields=id,title,share_url,cover_image_url,view_count,like_count,comment_count,create_time"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(`{"max_count":20}`))
	if err != nil {
		return nil, fmt.Errorf("failed to build video list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	var body struct {
		Data struct {
			Videos []struct {
				ID            string `json:"id"`
				Title         string `json:"title"`
				ShareURL      string `json:"share_url"`
				CoverImageURL string `json:"cover_image_url"`
				ViewCount     int64  `json:"view_count"`
				LikeCount     int64  `json:"like_count"`
				CommentCount  int64  `json:"comment_count"`
				CreateTime    int64  `json:"create_time"`
			} `json:"videos"`
		} `json:"data"`
	}
	if err := doJSON(c.http, req, &body); err != nil {
		return nil, err
	}

	items := make([]models.VideoItem, 0, len(body.Data.Videos))
	for _, v := range body.Data.Videos {
		item := models.VideoItem{
			ID:           v.ID,
			Title:        v.Title,
			URL:          v.ShareURL,
			ThumbnailURL: v.CoverImageURL,
			ViewCount:    v.ViewCount,
			LikeCount:    v.LikeCount,
			CommentCount: v.CommentCount,
		}
		if v.CreateTime > 0 {
			t := time.Unix(v.CreateTime, 0).UTC()
			item.PostedAt = &t
		}
		items = append(items, item)
	}
	return items, nil
}
