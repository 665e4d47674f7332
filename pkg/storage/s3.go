package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	pkglogger "github.com/damoang/image-organizer/pkg/logger"
)

// 업로드 키는 매번 새로 생성되므로 오래 캐시해도 됨
const objectCacheControl = "public, max-age=31536000, immutable"

// S3Client stores gallery uploads in S3/R2/MinIO compatible storage
type S3Client struct {
	client    *s3.Client
	bucket    string
	basePath  string // prefix for all objects (e.g. "gallery/")
	cdnURL    string // optional CDN base URL (e.g. https://cdn.example.com)
	objectURL string // direct object base URL without trailing slash
}

// S3Config holds S3-compatible storage configuration
type S3Config struct {
	Endpoint        string // e.g. https://xxx.r2.cloudflarestorage.com
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	CDNURL          string
	BasePath        string
	ForcePathStyle  bool // true for MinIO/R2
}

// NewS3Client creates a new S3-compatible storage client
func NewS3Client(cfg S3Config) (*S3Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	base, err := objectBaseURL(cfg)
	if err != nil {
		return nil, err
	}

	client := s3.New(s3.Options{}, func(o *s3.Options) {
		o.Region = cfg.Region
		o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	pkglogger.GetLogger().Info().
		Str("bucket", cfg.Bucket).
		Str("endpoint", cfg.Endpoint).
		Str("object_url", base).
		Msg("S3 storage client initialized")

	return &S3Client{
		client:    client,
		bucket:    cfg.Bucket,
		basePath:  cfg.BasePath,
		cdnURL:    strings.TrimRight(cfg.CDNURL, "/"),
		objectURL: base,
	}, nil
}

// objectBaseURL resolves where objects are publicly reachable: the custom
// endpoint (path or virtual-host style) or the regional AWS host
func objectBaseURL(cfg S3Config) (string, error) {
	if cfg.Endpoint == "" {
		if cfg.Region == "" || cfg.Region == "us-east-1" {
			return fmt.Sprintf("https://%s.s3.amazonaws.com", cfg.Bucket), nil
		}
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region), nil
	}
	u, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid s3 endpoint %q", cfg.Endpoint)
	}
	if cfg.ForcePathStyle {
		return u.String() + "/" + cfg.Bucket, nil
	}
	u.Host = cfg.Bucket + "." + u.Host
	return u.String(), nil
}

// Upload puts an object under basePath+key
func (c *S3Client) Upload(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*UploadResult, error) {
	fullKey := c.basePath + key

	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(fullKey),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		CacheControl:  aws.String(objectCacheControl),
	}
	if _, err := c.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("s3 upload failed: %w", err)
	}

	result := &UploadResult{
		Key:         fullKey,
		URL:         c.objectURL + "/" + escapeKey(fullKey),
		ContentType: contentType,
		Size:        size,
	}
	if c.cdnURL != "" {
		result.CDNURL = c.cdnURL + "/" + escapeKey(fullKey)
	}
	return result, nil
}

// Delete removes an object by the key returned from Upload
func (c *S3Client) Delete(ctx context.Context, key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}
	if _, err := c.client.DeleteObject(ctx, input); err != nil {
		return fmt.Errorf("s3 delete failed: %w", err)
	}
	return nil
}

// PublicURL returns the CDN URL for a stored key, falling back to the object URL
func (c *S3Client) PublicURL(key string) string {
	if c.cdnURL != "" {
		return c.cdnURL + "/" + escapeKey(key)
	}
	return c.objectURL + "/" + escapeKey(key)
}

// escapeKey escapes each path segment, keeping the slashes
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
