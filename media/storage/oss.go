package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSProvider stores objects in an Aliyun OSS bucket.
type OSSProvider struct {
	bucket *oss.Bucket
	domain string // custom or CDN domain
}

// NewOSSProvider creates a new OSS storage provider.
// Endpoint: oss-cn-hangzhou.aliyuncs.com
func NewOSSProvider(endpoint, accessKeyID, accessKeySecret, bucketName, domain string) (*OSSProvider, error) {
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket %s: %w", bucketName, err)
	}

	return &OSSProvider{
		bucket: bucket,
		domain: ossDomain(endpoint, bucketName, domain),
	}, nil
}

func ossDomain(endpoint, bucketName, domain string) string {
	if domain == "" {
		host := strings.TrimPrefix(strings.TrimPrefix(endpoint, "https://"), "http://")
		return fmt.Sprintf("https://%s.%s", bucketName, host)
	}
	if !strings.HasPrefix(domain, "http") {
		return "https://" + domain
	}
	return strings.TrimRight(domain, "/")
}

// Upload puts the object with its content type and an immutable cache
// policy; keys are content addressed.
func (p *OSSProvider) Upload(ctx context.Context, r io.Reader, key, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	objectKey, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	opts := []oss.Option{oss.CacheControl("public, max-age=31536000, immutable")}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := p.bucket.PutObject(objectKey, r, opts...); err != nil {
		return "", fmt.Errorf("failed to upload to OSS: %w", err)
	}
	return p.URL(objectKey), nil
}

func (p *OSSProvider) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	objectKey, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := p.bucket.DeleteObject(objectKey); err != nil {
		return fmt.Errorf("failed to delete from OSS: %w", err)
	}
	return nil
}

func (p *OSSProvider) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	objectKey, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	return p.bucket.IsObjectExist(objectKey)
}

// SignedURL returns a time-limited GET URL for private buckets.
func (p *OSSProvider) SignedURL(key string, expiry time.Duration) (string, error) {
	objectKey, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	expirySec := int64(expiry.Seconds())
	if expirySec <= 0 {
		expirySec = 3600
	}
	url, err := p.bucket.SignURL(objectKey, oss.HTTPGet, expirySec)
	if err != nil {
		return "", fmt.Errorf("failed to sign URL: %w", err)
	}
	return url, nil
}

func (p *OSSProvider) URL(key string) string {
	return joinURL(p.domain, key)
}

func (p *OSSProvider) Name() string {
	return DriverOSS
}

var _ Provider = (*OSSProvider)(nil)
