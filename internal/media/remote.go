package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"folio/internal/observability"
)

// RemoteStore talks to an HTTP image host. Uploads are multipart POSTs to
// {endpoint}/upload answering {"url","public_id"}; deletes are
// DELETE {endpoint}/assets/{public_id}.
type RemoteStore struct {
	endpoint string
	apiKey   string
	maxBytes int64
	client   *http.Client
}

// NewRemoteStore returns a remote store. A nil client gets a default with a
// 30 second timeout.
func NewRemoteStore(endpoint, apiKey string, maxBytes int64, client *http.Client) *RemoteStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RemoteStore{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		maxBytes: maxBytes,
		client:   client,
	}
}

func (s *RemoteStore) Upload(ctx context.Context, data []byte, folder string) (UploadResult, error) {
	if folder == "" {
		folder = DefaultFolder
	}

	encoded, err := Normalize(data, s.maxBytes)
	if err != nil {
		observability.MediaUploadsTotal.WithLabelValues("remote", "rejected").Inc()
		return UploadResult{}, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("folder", folder); err != nil {
		return UploadResult{}, err
	}
	part, err := mw.CreateFormFile("file", "image.webp")
	if err != nil {
		return UploadResult{}, err
	}
	if _, err := part.Write(encoded); err != nil {
		return UploadResult{}, err
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/upload", &body)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		observability.MediaUploadsTotal.WithLabelValues("remote", "error").Inc()
		return UploadResult{}, fmt.Errorf("media upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		observability.MediaUploadsTotal.WithLabelValues("remote", "error").Inc()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return UploadResult{}, fmt.Errorf("media upload: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		observability.MediaUploadsTotal.WithLabelValues("remote", "error").Inc()
		return UploadResult{}, fmt.Errorf("media upload: decode response: %w", err)
	}
	if out.URL == "" || out.PublicID == "" {
		observability.MediaUploadsTotal.WithLabelValues("remote", "error").Inc()
		return UploadResult{}, fmt.Errorf("media upload: incomplete response")
	}

	observability.MediaUploadsTotal.WithLabelValues("remote", "ok").Inc()
	return out, nil
}

// Delete removes the asset. A 404 from the host counts as success.
func (s *RemoteStore) Delete(ctx context.Context, publicID string) error {
	if !validPublicID(publicID) {
		return ErrInvalidID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.endpoint+"/assets/"+url.PathEscape(publicID), nil)
	if err != nil {
		return err
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("media delete: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("media delete: status %d", resp.StatusCode)
	}
	return nil
}

func (s *RemoteStore) authorize(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}
