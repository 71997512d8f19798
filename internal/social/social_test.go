package social

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipfuse/clipfuse/internal/config"
	"github.com/clipfuse/clipfuse/internal/models"
)

func TestNewClientsCoversAllPlatforms(t *testing.T) {
	clients := NewClients(&config.PlatformsConfig{})
	for _, p := range []models.SocialPlatform{models.PlatformTikTok, models.PlatformInstagram, models.PlatformYouTube} {
		c, ok := clients[p]
		require.True(t, ok, "missing client for %s", p)
		assert.Equal(t, p, c.Platform())
	}
}

func TestAuthorizeURLCarriesStateAndRedirect(t *testing.T) {
	cfg := &config.PlatformsConfig{
		TikTok:    config.PlatformCredentials{ClientID: "tk-id", RedirectURL: "https://api.example.com/cb/tiktok"},
		Instagram: config.PlatformCredentials{ClientID: "ig-id", RedirectURL: "https://api.example.com/cb/instagram"},
		YouTube:   config.PlatformCredentials{ClientID: "yt-id", RedirectURL: "https://api.example.com/cb/youtube"},
	}

	for platform, c := range NewClients(cfg) {
		raw := c.AuthorizeURL("state-xyz")
		u, err := url.Parse(raw)
		require.NoError(t, err, "platform %s", platform)

		q := u.Query()
		assert.Equal(t, "state-xyz", q.Get("state"), "platform %s", platform)
		assert.Equal(t, "code", q.Get("response_type"), "platform %s", platform)
		assert.NotEmpty(t, q.Get("redirect_uri"), "platform %s", platform)
	}
}

func TestMatchesVideo(t *testing.T) {
	video := models.VideoItem{
		ID:  "7312345678901234567",
		URL: "https://www.tiktok.com/@user/video/7312345678901234567",
	}

	tests := []struct {
		name    string
		postURL string
		want    bool
	}{
		{"exact url", "https://www.tiktok.com/@user/video/7312345678901234567", true},
		{"url embedding the id", "https://vm.tiktok.com/x/7312345678901234567/", true},
		{"unrelated url", "https://www.tiktok.com/@user/video/999", false},
		{"empty url", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesVideo(tt.postURL, video))
		})
	}

	t.Run("no id never matches by substring", func(t *testing.T) {
		anon := models.VideoItem{URL: "https://example.com/v/1"}
		assert.False(t, matchesVideo("https://example.com/v/123", anon))
	})
}
