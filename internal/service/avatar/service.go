// Package avatar stores profile pictures in an object store and records
// their public URL on the profile.
package avatar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"

	"blogmate/internal/domain"
)

// DefaultMaxBytes is the upload limit when none is configured.
const DefaultMaxBytes int64 = 2 << 20

// knownExtensions are the variants removed before every upload, so a user
// switching from .png to .jpg does not leave the old file behind.
var knownExtensions = []string{"jpg", "png", "gif", "webp"}

// imageTypes maps the accepted media types to the stored extension.
var imageTypes = map[string]string{
	"image/jpeg":  "jpg",
	"image/jpg":   "jpg",
	"image/pjpeg": "jpg",
	"image/png":   "png",
	"image/gif":   "gif",
	"image/webp":  "webp",
}

// extensionTypes is the canonical content type stored for each extension.
var extensionTypes = map[string]string{
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Upload is one avatar image.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Service handles avatar upload and removal for the calling principal.
type Service struct {
	store    domain.ObjectStore
	profiles domain.ProfileRepository
	maxBytes int64
	logger   *slog.Logger
}

// NewService creates an avatar Service. maxBytes <= 0 selects DefaultMaxBytes.
func NewService(store domain.ObjectStore, profiles domain.ProfileRepository, maxBytes int64, logger *slog.Logger) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{store: store, profiles: profiles, maxBytes: maxBytes, logger: logger}
}

// MaxBytes returns the upload size limit.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Upload replaces the caller's avatar and returns its public URL.
func (s *Service) Upload(ctx context.Context, up Upload) (string, error) {
	caller, ok := domain.PrincipalFromContext(ctx)
	if !ok || caller.ID == "" {
		return "", domain.ErrAccessDenied("authentication required")
	}
	if up.Body == nil {
		return "", domain.ErrValidation("file is required")
	}
	if up.Size > s.maxBytes {
		return "", domain.ErrValidation("file must be at most %d MB", s.maxBytes>>20)
	}
	ext, err := extension(up.ContentType, up.Filename)
	if err != nil {
		return "", err
	}

	if err := s.store.Delete(ctx, variantKeys(caller.ID)...); err != nil {
		s.logger.WarnContext(ctx, "removing previous avatar failed", "principal_id", caller.ID, "error", err)
	}

	key := objectKey(caller.ID, ext)
	body := io.LimitReader(up.Body, s.maxBytes+1)
	if err := s.store.Put(ctx, key, extensionTypes[ext], body, up.Size); err != nil {
		return "", fmt.Errorf("upload avatar: %w", err)
	}

	url := s.store.PublicURL(key)
	if err := s.profiles.SetAvatarURL(ctx, caller.ID, &url); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "avatar uploaded", "principal_id", caller.ID, "key", key, "bytes", up.Size)
	return url, nil
}

// Delete removes the caller's avatar files and clears the profile URL.
func (s *Service) Delete(ctx context.Context) error {
	caller, ok := domain.PrincipalFromContext(ctx)
	if !ok || caller.ID == "" {
		return domain.ErrAccessDenied("authentication required")
	}
	if err := s.store.Delete(ctx, variantKeys(caller.ID)...); err != nil {
		return fmt.Errorf("delete avatar: %w", err)
	}
	if err := s.profiles.SetAvatarURL(ctx, caller.ID, nil); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "avatar removed", "principal_id", caller.ID)
	return nil
}

func objectKey(principalID, ext string) string {
	return principalID + "/avatar." + ext
}

func variantKeys(principalID string) []string {
	keys := make([]string, len(knownExtensions))
	for i, ext := range knownExtensions {
		keys[i] = objectKey(principalID, ext)
	}
	return keys
}

// extension picks the stored extension from the media type. A missing or
// generic type falls back to the file name. Only jpg, png, gif and webp are
// accepted; SVG and other image types are refused.
func extension(contentType, filename string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}
	mediaType = strings.ToLower(mediaType)
	if ext, ok := imageTypes[mediaType]; ok {
		return ext, nil
	}
	if mediaType != "" && mediaType != "application/octet-stream" {
		if strings.HasPrefix(mediaType, "image/") {
			return "", domain.ErrValidation("unsupported image type %q; use JPEG, PNG, GIF or WebP", mediaType)
		}
		return "", domain.ErrValidation("only image files can be uploaded")
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(path.Base(filename)), "."))
	if ext == "jpeg" {
		ext = "jpg"
	}
	if _, ok := extensionTypes[ext]; !ok {
		return "", domain.ErrValidation("only image files can be uploaded")
	}
	return ext, nil
}
