package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"folio/internal/observability"

	"github.com/google/uuid"
)

// LocalStore writes images below a directory served at publicURL.
type LocalStore struct {
	dir       string
	publicURL string
	maxBytes  int64
}

func NewLocalStore(dir, publicURL string, maxBytes int64) *LocalStore {
	return &LocalStore{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxBytes:  maxBytes,
	}
}

// Dir is the root directory of stored files.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Upload(ctx context.Context, data []byte, folder string) (UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return UploadResult{}, err
	}
	if folder == "" {
		folder = DefaultFolder
	}
	if !validPublicID(folder) {
		return UploadResult{}, ErrInvalidID
	}

	encoded, err := Normalize(data, s.maxBytes)
	if err != nil {
		observability.MediaUploadsTotal.WithLabelValues("local", "rejected").Inc()
		return UploadResult{}, err
	}

	publicID := path.Join(folder, uuid.NewString())
	target := filepath.Join(s.dir, filepath.FromSlash(publicID)+".webp")
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		observability.MediaUploadsTotal.WithLabelValues("local", "error").Inc()
		return UploadResult{}, fmt.Errorf("create media dir: %w", err)
	}
	if err := os.WriteFile(target, encoded, 0o600); err != nil {
		observability.MediaUploadsTotal.WithLabelValues("local", "error").Inc()
		return UploadResult{}, fmt.Errorf("write media file: %w", err)
	}

	observability.MediaUploadsTotal.WithLabelValues("local", "ok").Inc()
	return UploadResult{
		URL:      s.publicURL + "/" + publicID + ".webp",
		PublicID: publicID,
	}, nil
}

// Delete removes the asset. Deleting a missing asset succeeds.
func (s *LocalStore) Delete(_ context.Context, publicID string) error {
	if !validPublicID(publicID) {
		return ErrInvalidID
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(publicID)+".webp"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
