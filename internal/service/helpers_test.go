package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"folio/internal/events"
	"folio/internal/media"
	"folio/internal/models"
	"folio/internal/repository"
	"folio/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type countingInvalidator struct{ n atomic.Int32 }

func (i *countingInvalidator) InvalidateResponses(context.Context) error {
	i.n.Add(1)
	return nil
}

type fakeStore struct {
	mu        sync.Mutex
	seq       int
	uploads   []string
	deleted   []string
	failWith  error
	deleteErr error
}

func (s *fakeStore) Upload(_ context.Context, data []byte, folder string) (media.UploadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return media.UploadResult{}, s.failWith
	}
	if len(data) == 0 {
		return media.UploadResult{}, media.ErrInvalidImage
	}
	s.seq++
	id := fmt.Sprintf("%s/img%d", folder, s.seq)
	s.uploads = append(s.uploads, id)
	return media.UploadResult{URL: "https://cdn.example.com/" + id + ".webp", PublicID: id}, nil
}

func (s *fakeStore) Delete(_ context.Context, publicID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, publicID)
	return s.deleteErr
}

var errUploadDown = errors.New("media host unavailable")

var inlineImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not really a png"))

type postEnv struct {
	db        *gorm.DB
	svc       *PostService
	posts     repository.PostRepository
	store     *fakeStore
	events    *recordingPublisher
	inval     *countingInvalidator
	clock     time.Time
	admin     models.Identity
	author    models.Identity
	other     models.Identity
	reader    models.Identity
	anonymous models.Identity
	category  *models.Category
}

func newPostEnv(t *testing.T) *postEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	env := &postEnv{
		db:     db,
		posts:  repository.NewPostRepository(db),
		store:  &fakeStore{},
		events: &recordingPublisher{},
		inval:  &countingInvalidator{},
		clock:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	categories := NewCategoryService(repository.NewCategoryRepository(db), nil, nil)
	env.svc = NewPostService(env.posts, categories, env.store, env.events, env.inval)
	env.svc.now = func() time.Time { return env.clock }

	identity := func(u *models.User) models.Identity { return models.Identity{ID: u.ID, Role: u.Role} }
	env.admin = identity(testutil.CreateUser(t, db, "admin", models.RoleAdmin))
	env.author = identity(testutil.CreateUser(t, db, "author", models.RoleResearcher))
	env.other = identity(testutil.CreateUser(t, db, "other", models.RoleResearcher))
	env.reader = identity(testutil.CreateUser(t, db, "reader", models.RoleReader))
	env.category = testutil.CreateCategory(t, db, "Microbiology 101", "microbiology-101")
	return env
}

func (e *postEnv) advance(d time.Duration) { e.clock = e.clock.Add(d) }

func (e *postEnv) create(t *testing.T, title string, status models.PostStatus) *models.PostView {
	t.Helper()
	view, err := e.svc.CreatePost(context.Background(), e.author, CreatePostInput{
		Title:    title,
		Content:  "Some content about " + title,
		Category: models.CategoryRef(e.category.Slug),
		Status:   status,
	})
	require.NoError(t, err)
	return view
}

func (e *postEnv) reload(t *testing.T, id uint) *models.Post {
	t.Helper()
	p, err := e.posts.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "word"
	}
	return strings.Join(w, " ")
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, models.HasCode(err, code), "want %s, got %v", code, err)
}

func strPtr(s string) *string { return &s }

func statusPtr(s models.PostStatus) *models.PostStatus { return &s }
