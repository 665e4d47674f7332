package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage persists uploaded objects and resolves their public URLs
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// UploadResult contains the result of a file upload
type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	CDNURL      string `json:"cdn_url,omitempty"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// PreferredURL returns the CDN URL when configured
func (r *UploadResult) PreferredURL() string {
	if r.CDNURL != "" {
		return r.CDNURL
	}
	return r.URL
}

// GenerateKey creates a unique storage key with a date prefix
func GenerateKey(prefix, filename string) string {
	return generateKeyAt(prefix, filename, time.Now())
}

func generateKeyAt(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	return fmt.Sprintf("%s/%d/%02d/%02d/%s_%s%s",
		prefix, now.Year(), now.Month(), now.Day(),
		base, uuid.New().String()[:8], ext)
}
