package identity

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AvatarStore persists profile images and returns a publicly reachable URL.
type AvatarStore interface {
	Upload(ctx context.Context, userID string, body io.Reader, contentType string) (string, error)
}

// S3AvatarStore uploads avatars to Amazon S3 (or compatible APIs).
type S3AvatarStore struct {
	client    *s3.Client
	uploader  *manager.Uploader
	bucket    string
	keyPrefix string
	region    string
	endpoint  string
}

func NewS3AvatarStore(client *s3.Client, bucket, keyPrefix, region, endpoint string) *S3AvatarStore {
	return &S3AvatarStore{
		client:    client,
		uploader:  manager.NewUploader(client),
		bucket:    bucket,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		region:    region,
		endpoint:  endpoint,
	}
}

func (s *S3AvatarStore) Upload(ctx context.Context, userID string, body io.Reader, contentType string) (string, error) {
	if s.bucket == "" {
		return "", fmt.Errorf("avatar bucket is required")
	}

	key := path.Join(s.keyPrefix, userID)
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload avatar %s: %w", key, err)
	}

	return s.objectURL(key), nil
}

func (s *S3AvatarStore) objectURL(key string) string {
	if s.endpoint != "" {
		return strings.TrimSuffix(s.endpoint, "/") + "/" + s.bucket + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// DefaultAvatarURL is used when no avatar store is configured or nothing has
// been uploaded yet.
func DefaultAvatarURL(username string) string {
	return "https://api.dicebear.com/7.x/thumbs/png?seed=" + url.QueryEscape(username)
}
