package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clipfuse/clipfuse/internal/config"
	"github.com/clipfuse/clipfuse/internal/models"
)

// Platform client errors
var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrPlatformError       = errors.New("platform API error")
	ErrTokenRejected       = errors.New("platform rejected the token")
)

// Token is the material returned by a code exchange.
type Token struct {
	AccessToken  string
	RefreshToken *string
	ExpiresAt    *time.Time
}

// AccountInfo is the connected account as the platform reports it.
type AccountInfo struct {
	Handle        string
	FollowerCount int64
	TotalViews    int64
	TotalLikes    int64
}

// Client talks to one social platform's API.
type Client interface {
	Platform() models.SocialPlatform
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*Token, error)
	Account(ctx context.Context, accessToken string) (*AccountInfo, error)
	Videos(ctx context.Context, accessToken string) ([]models.VideoItem, error)
}

// NewClients builds the client set from config. Platforms without
// credentials still get a client; their calls fail at the provider.
func NewClients(cfg *config.PlatformsConfig) map[models.SocialPlatform]Client {
	httpClient := &http.Client{Timeout: 10 * time.Second}
	return map[models.SocialPlatform]Client{
		models.PlatformTikTok:    &tiktokClient{creds: cfg.TikTok, http: httpClient},
		models.PlatformInstagram: &instagramClient{creds: cfg.Instagram, http: httpClient},
		models.PlatformYouTube:   &youtubeClient{creds: cfg.YouTube, http: httpClient},
	}
}

// doJSON performs an HTTP request and decodes the JSON body into out.
// Non-2xx responses map to sentinel errors so the breaker can tell
// upstream failures from auth problems.
func doJSON(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPlatformError, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrPlatformError, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrTokenRejected
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d: %s", ErrPlatformError, resp.StatusCode, truncate(body, 256))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrPlatformError, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func expiryFromSeconds(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := time.Now().Add(time.Duration(seconds) * time.Second)
	return &t
}
