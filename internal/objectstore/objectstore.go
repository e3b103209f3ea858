// Package objectstore provides domain.ObjectStore implementations for S3,
// Google Cloud Storage, Azure Blob Storage and the local filesystem.
package objectstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"blogmate/internal/config"
	"blogmate/internal/domain"
)

var (
	_ domain.ObjectStore = (*LocalStore)(nil)
	_ domain.ObjectStore = (*S3Store)(nil)
	_ domain.ObjectStore = (*GCSStore)(nil)
	_ domain.ObjectStore = (*AzureStore)(nil)
)

// New builds the ObjectStore selected by cfg.Backend.
func New(ctx context.Context, cfg config.AvatarConfig) (domain.ObjectStore, error) {
	switch cfg.Backend {
	case config.AvatarBackendLocal:
		return NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
	case config.AvatarBackendS3:
		return NewS3Store(S3Config{
			KeyID:         deref(cfg.S3KeyID),
			Secret:        deref(cfg.S3Secret),
			Endpoint:      deref(cfg.S3Endpoint),
			Region:        deref(cfg.S3Region),
			Bucket:        deref(cfg.S3Bucket),
			PublicBaseURL: cfg.PublicBaseURL,
		})
	case config.AvatarBackendGCS:
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile, cfg.PublicBaseURL)
	case config.AvatarBackendAzure:
		return NewAzureStore(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.AzureContainer, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown object store backend %q", cfg.Backend)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// joinURL appends an object key to a base URL, escaping each key segment.
func joinURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

// validateKey rejects keys that could escape a bucket prefix or directory.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid object key %q", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("invalid object key %q", key)
		}
	}
	return nil
}
