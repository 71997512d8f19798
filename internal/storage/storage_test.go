package storage_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipfuse/clipfuse/internal/config"
	"github.com/clipfuse/clipfuse/internal/storage"
)

func TestNewWithCustomEndpoint(t *testing.T) {
	client, err := storage.New(&config.S3Config{
		Region:          "us-east-1",
		Bucket:          "clipfuse-media",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		PublicBaseURL:   "http://localhost:9000/clipfuse-media/",
	})
	require.NoError(t, err)

	assert.Equal(t, "avatars/abc", client.KeyFromURL("http://localhost:9000/clipfuse-media/avatars/abc"))
	assert.Empty(t, client.KeyFromURL("https://elsewhere.example.com/avatars/abc"))
}

func TestNewDefaultPublicBaseURL(t *testing.T) {
	client, err := storage.New(&config.S3Config{
		Region:          "eu-west-1",
		Bucket:          "clipfuse-media",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	})
	require.NoError(t, err)

	key := "avatars/user/file.png"
	assert.Equal(t, key, client.KeyFromURL("https://clipfuse-media.s3.eu-west-1.amazonaws.com/"+key))
}

func TestObjectKey(t *testing.T) {
	userID := uuid.New()
	key := storage.ObjectKey("avatars", userID, "selfie.PNG")

	assert.True(t, strings.HasPrefix(key, "avatars/"+userID.String()+"/"))
	assert.True(t, strings.HasSuffix(key, ".PNG"))

	noExt := storage.ObjectKey("videos", userID, "clip")
	assert.False(t, strings.Contains(noExt[len("videos/"+userID.String()+"/"):], "."))
}
