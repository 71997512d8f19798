// Package storage stores uploaded media (avatars, review videos) in S3 or
// any S3-compatible service and hands back a public URL.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/clipfuse/clipfuse/internal/config"
)

// Client wraps the AWS S3 client for media operations.
type Client struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// New creates a storage client. A custom endpoint switches on path-style
// addressing so MinIO and friends work.
func New(cfg *config.S3Config) (*Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &Client{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// ObjectKey builds the key for a new object: {kind}/{userID}/{uuid}{ext}.
// ext keeps whatever extension the original filename carried.
func ObjectKey(kind string, userID uuid.UUID, filename string) string {
	return fmt.Sprintf("%s/%s/%s%s", kind, userID, uuid.New(), path.Ext(filename))
}

// Put uploads an object and returns its public URL
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object: %w", err)
	}
	return c.publicBaseURL + "/" + key, nil
}

// Delete removes an object; missing objects are not an error
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// KeyFromURL recovers the object key from a public URL produced by Put.
// Returns "" when the URL is not ours.
func (c *Client) KeyFromURL(url string) string {
	if !strings.HasPrefix(url, c.publicBaseURL+"/") {
		return ""
	}
	return strings.TrimPrefix(url, c.publicBaseURL+"/")
}
