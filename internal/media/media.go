// Package media uploads and deletes featured images. Images are normalised
// to WebP before they reach a store.
package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"folio/internal/config"
)

var (
	ErrInvalidImage = errors.New("invalid image data")
	ErrTooLarge     = errors.New("image exceeds upload limit")
	ErrInvalidID    = errors.New("invalid media id")
)

// UploadResult identifies a stored asset.
type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// Store is an image host.
type Store interface {
	Upload(ctx context.Context, data []byte, folder string) (UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

// DefaultFolder is where featured images are stored.
const DefaultFolder = "posts"

// NewStore builds the store selected by MEDIA_DRIVER.
func NewStore(cfg *config.Config) (Store, error) {
	maxBytes := int64(cfg.MediaMaxUploadMB) * 1024 * 1024
	switch cfg.MediaDriver {
	case "", "local":
		return NewLocalStore(cfg.MediaUploadDir, cfg.MediaPublicURL, maxBytes), nil
	case "remote":
		return NewRemoteStore(cfg.MediaRemoteURL, cfg.MediaRemoteKey, maxBytes, nil), nil
	default:
		return nil, fmt.Errorf("unsupported media driver %q", cfg.MediaDriver)
	}
}

// IsHostedURL reports whether ref points at an already-hosted image rather
// than inline data.
func IsHostedURL(ref string) bool {
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsInline reports whether ref carries image bytes, either as a data URI or
// as bare base64.
func IsInline(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || IsHostedURL(ref) {
		return false
	}
	return strings.HasPrefix(ref, "data:") || len(ref) > 64
}

// DecodeInline returns the bytes of a data URI or base64 payload.
func DecodeInline(ref string) ([]byte, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "data:") {
		comma := strings.IndexByte(ref, ',')
		if comma < 0 || !strings.HasSuffix(ref[:comma], ";base64") {
			return nil, ErrInvalidImage
		}
		ref = ref[comma+1:]
	}

	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(ref); err == nil && len(data) > 0 {
			return data, nil
		}
	}
	return nil, ErrInvalidImage
}

func validPublicID(id string) bool {
	if id == "" || strings.Contains(id, "..") || strings.HasPrefix(id, "/") || strings.Contains(id, "\\") {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '/', r == '.':
		default:
			return false
		}
	}
	return true
}
