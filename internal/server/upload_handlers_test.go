package server

import (
	"bytes"
	"encoding/base64"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"folio/internal/media"
	"folio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\nfake-image-bytes")

func multipartImage(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "figure.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadMultipart(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.On("Upload", mock.Anything, pngHeader, "figures").
		Return(media.UploadResult{URL: "https://cdn.example.com/figures/a.webp", PublicID: "figures/a"}, nil).Once()

	body, contentType := multipartImage(t, "image", pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/api/uploads?folder=figures", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+env.token(env.author))

	resp, out := env.send(req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, out.Message)
	res := decodeData[media.UploadResult](t, out)
	assert.Equal(t, "figures/a", res.PublicID)
	env.store.AssertExpectations(t)
}

func TestUploadInlineJSON(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.On("Upload", mock.Anything, pngHeader, media.DefaultFolder).
		Return(media.UploadResult{URL: "/media/posts/b.webp", PublicID: "posts/b"}, nil).Once()

	inline := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
	resp, out := env.do(http.MethodPost, "/api/uploads?folder=../etc", map[string]any{"image": inline}, env.author)
	require.Equal(t, http.StatusCreated, resp.StatusCode, out.Message)
	assert.Equal(t, "posts/b", decodeData[media.UploadResult](t, out).PublicID)
	env.store.AssertExpectations(t)
}

func TestUploadErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	inline := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("x"), 80))

	resp, _ := env.do(http.MethodPost, "/api/uploads", map[string]any{"image": inline}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = env.do(http.MethodPost, "/api/uploads", map[string]any{"image": inline}, env.reader)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := env.do(http.MethodPost, "/api/uploads", map[string]any{"image": "https://example.com/x.png"}, env.author)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, body.Error.Code)

	resp, _ = env.do(http.MethodPost, "/api/uploads", map[string]any{"image": "data:image/png;base64,@@not-base64@@" + inline}, env.author)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(http.MethodPost, "/api/uploads", map[string]any{"picture": inline}, env.author)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.store.On("Upload", mock.Anything, mock.Anything, media.DefaultFolder).
		Return(media.UploadResult{}, media.ErrTooLarge).Once()
	resp, _ = env.do(http.MethodPost, "/api/uploads", map[string]any{"image": inline}, env.author)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	env.store.On("Upload", mock.Anything, mock.Anything, media.DefaultFolder).
		Return(media.UploadResult{}, media.ErrInvalidImage).Once()
	resp, _ = env.do(http.MethodPost, "/api/uploads", map[string]any{"image": inline}, env.author)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.store.On("Upload", mock.Anything, mock.Anything, media.DefaultFolder).
		Return(media.UploadResult{}, errors.New("host down")).Once()
	resp, body = env.do(http.MethodPost, "/api/uploads", map[string]any{"image": inline}, env.author)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, body.Message, "host down")

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", bytes.NewBufferString("--x--"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.Header.Set("Authorization", "Bearer "+env.token(env.author))
	resp, _ = env.send(req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	env.store.AssertExpectations(t)
}

func TestCreatePostWithInlineImage(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.On("Upload", mock.Anything, pngHeader, media.DefaultFolder).
		Return(media.UploadResult{URL: "/media/posts/c.webp", PublicID: "posts/c"}, nil).Once()

	resp, body := env.do(http.MethodPost, "/api/posts", map[string]any{
		"title":    "Figure Heavy",
		"content":  "See the figure.",
		"category": env.category.Slug,
		"image":    "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader),
	}, env.author)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Message)
	assert.Equal(t, "/media/posts/c.webp", decodeData[*models.PostView](t, body).FeaturedImage)
	env.store.AssertExpectations(t)
}
