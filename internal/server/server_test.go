package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"folio/internal/config"
	"folio/internal/media"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "folio-handler-tests-secret-0123456789"

// mockStore is a testify mock of media.Store.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Upload(ctx context.Context, data []byte, folder string) (media.UploadResult, error) {
	args := m.Called(ctx, data, folder)
	return args.Get(0).(media.UploadResult), args.Error(1)
}

func (m *mockStore) Delete(ctx context.Context, publicID string) error {
	return m.Called(ctx, publicID).Error(0)
}

type envelope struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Data       json.RawMessage    `json:"data"`
	Error      *models.ErrorBody  `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
}

type testEnv struct {
	t        *testing.T
	srv      *Server
	app      *fiber.App
	db       *gorm.DB
	store    *mockStore
	admin    *models.User
	author   *models.User
	reader   *models.User
	category *models.Category
}

func newTestEnv(t *testing.T, rdb *redis.Client) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	store := new(mockStore)
	cfg := &config.Config{
		JWTSecret:               testSecret,
		Env:                     "test",
		AllowedOrigins:          "*",
		MediaMaxUploadMB:        1,
		ResponseCacheTTLSeconds: 60,
	}
	srv, err := NewServerWithDeps(cfg, db, rdb, store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.bus.Close(context.Background()) })

	return &testEnv{
		t:        t,
		srv:      srv,
		app:      srv.App(),
		db:       db,
		store:    store,
		admin:    testutil.CreateUser(t, db, "admin", models.RoleAdmin),
		author:   testutil.CreateUser(t, db, "ada", models.RoleResearcher),
		reader:   testutil.CreateUser(t, db, "rita", models.RoleReader),
		category: testutil.CreateCategory(t, db, "Microbiology", "microbiology"),
	}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func (e *testEnv) token(u *models.User) string {
	e.t.Helper()
	tok, err := middleware.GenerateToken(testSecret, u.ID, time.Hour)
	require.NoError(e.t, err)
	return tok
}

// do sends a request as user (nil for anonymous). A string body is sent
// verbatim; anything else is JSON encoded.
func (e *testEnv) do(method, path string, body any, user *models.User) (*http.Response, envelope) {
	e.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(user))
	}
	return e.send(req)
}

func (e *testEnv) send(req *http.Request) (*http.Response, envelope) {
	e.t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

// createPost creates a post through the API and returns it.
func (e *testEnv) createPost(user *models.User, title string, status models.PostStatus) *models.PostView {
	e.t.Helper()
	resp, env := e.do(http.MethodPost, "/api/posts", map[string]any{
		"title":    title,
		"content":  "Gut microbiome notes about " + title + " and the methods used to sample it.",
		"category": e.category.Slug,
		"tags":     []string{"biology"},
		"status":   status,
	}, user)
	require.Equal(e.t, http.StatusCreated, resp.StatusCode, env.Message)
	return decodeData[*models.PostView](e.t, env)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.do(http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	res, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "unavailable", body.Checks["redis"])
}

func TestReadinessWithRedis(t *testing.T) {
	env := newTestEnv(t, newRedis(t))

	res, err := env.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(http.MethodGet, "/api/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, models.CodeNotFound, body.Error.Code)
}

func TestInvalidTokenIsAnonymousOnPublicRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, _ := env.send(req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, body := env.send(req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid or expired token", body.Message)

	resp, body = env.do(http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Authorization required", body.Message)
}

func TestResponseCacheIsInvalidatedByWrites(t *testing.T) {
	env := newTestEnv(t, newRedis(t))
	env.createPost(env.author, "First Findings", models.PostStatusPublished)

	resp, _ := env.do(http.MethodGet, "/api/posts", nil, nil)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	resp, body := env.do(http.MethodGet, "/api/posts", nil, nil)
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.Len(t, decodeData[[]*models.PostView](t, body), 1)

	// Another caller gets their own entry.
	resp, _ = env.do(http.MethodGet, "/api/posts", nil, env.reader)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

	env.createPost(env.author, "Second Findings", models.PostStatusPublished)
	resp, body = env.do(http.MethodGet, "/api/posts", nil, nil)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
	assert.Len(t, decodeData[[]*models.PostView](t, body), 2)
}

func TestMetricsDashboardRequiresAdmin(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, _ := env.do(http.MethodGet, "/api/metrics/dashboard", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = env.do(http.MethodGet, "/api/metrics/dashboard", nil, env.reader)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/metrics/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+env.token(env.admin))
	req.Header.Set("Accept", "application/json")
	res, err := env.app.Test(req, -1)
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, models.CodeUnauthorized, codeForStatus(401))
	assert.Equal(t, models.CodeForbidden, codeForStatus(403))
	assert.Equal(t, models.CodeNotFound, codeForStatus(404))
	assert.Equal(t, models.CodeConflict, codeForStatus(409))
	assert.Equal(t, models.CodeValidation, codeForStatus(413))
	assert.Equal(t, models.CodeInternal, codeForStatus(502))
}
