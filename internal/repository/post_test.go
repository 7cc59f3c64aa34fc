package repository

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"folio/internal/models"
	"folio/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Slug: "hello", Title: "Hello", Content: "Content", AuthorID: 1, CategoryID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_IncrementViewsSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET "views"=views + 1 WHERE id = $1`)).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.IncrementViews(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

type postFixture struct {
	db       *gorm.DB
	repo     PostRepository
	author   *models.User
	other    *models.User
	science  *models.Category
	politics *models.Category
}

func newPostFixture(t *testing.T) *postFixture {
	db := testutil.NewTestDB(t)
	return &postFixture{
		db:       db,
		repo:     NewPostRepository(db),
		author:   testutil.CreateUser(t, db, "curie", models.RoleResearcher),
		other:    testutil.CreateUser(t, db, "bohr", models.RoleResearcher),
		science:  testutil.CreateCategory(t, db, "Science", "science"),
		politics: testutil.CreateCategory(t, db, "Politics", "politics"),
	}
}

func titles(posts []*models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}

func TestPostRepository_Lookups(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	p := createPost(t, f.db, f.author.ID, f.science.ID, "Radium")

	got, err := f.repo.GetBySlug(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = f.repo.GetByID(ctx, 9999)
	assert.True(t, IsNotFound(err))

	exists, err := f.repo.SlugExists(ctx, p.Slug)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = f.repo.SlugExists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, exists)

	view, err := f.repo.LoadWithRelations(ctx, p.ID, models.Relations{Author: true, Category: true})
	require.NoError(t, err)
	require.NotNil(t, view.Author)
	require.NotNil(t, view.Category)
	assert.Equal(t, "curie", view.Author.Username)
	assert.Equal(t, "science", view.Category.Slug)

	bare, err := f.repo.LoadWithRelations(ctx, p.ID, models.Relations{})
	require.NoError(t, err)
	assert.Nil(t, bare.Author)
	assert.Nil(t, bare.Category)

	dup := &models.Post{Slug: p.Slug, Title: "dup", Content: "x", AuthorID: f.author.ID, CategoryID: f.science.ID}
	assert.True(t, IsUniqueViolation(f.repo.Create(ctx, dup)))
}

func TestPostRepository_SaveKeepsCounters(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	p := createPost(t, f.db, f.author.ID, f.science.ID, "Polonium", withStatus(models.PostStatusPublished))

	stale, err := f.repo.GetByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, f.repo.IncrementViews(ctx, p.ID))
	_, err = f.repo.ToggleLike(ctx, p.ID, f.other.ID)
	require.NoError(t, err)

	stale.Title = "Polonium, revised"
	stale.Featured = false
	require.NoError(t, f.repo.Save(ctx, stale))

	got, err := f.repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Polonium, revised", got.Title)
	assert.Equal(t, int64(1), got.Views)
	assert.Equal(t, 1, got.LikesCount)
}

func TestPostRepository_ListVisibility(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	createPost(t, f.db, f.author.ID, f.science.ID, "draft")
	createPost(t, f.db, f.author.ID, f.science.ID, "old", withPublishedAt(base))
	createPost(t, f.db, f.author.ID, f.science.ID, "new", withPublishedAt(base.Add(time.Minute)))
	createPost(t, f.db, f.author.ID, f.science.ID, "flagged", withStatus(models.PostStatusPublished), offensive())
	createPost(t, f.db, f.author.ID, f.science.ID, "archived", withStatus(models.PostStatusArchived))

	posts, total, err := f.repo.List(ctx, PostFilter{PublicOnly: true, Sort: SortPublished})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{"new", "old"}, titles(posts))
	require.NotNil(t, posts[0].Author, "author is preloaded")
	require.NotNil(t, posts[0].Category, "category is preloaded")

	flagged := true
	posts, _, err = f.repo.List(ctx, PostFilter{Offensive: &flagged})
	require.NoError(t, err)
	assert.Equal(t, []string{"flagged"}, titles(posts))

	posts, total, err = f.repo.List(ctx, PostFilter{
		AuthorID: f.author.ID,
		Statuses: []models.PostStatus{models.PostStatusDraft, models.PostStatusArchived},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.ElementsMatch(t, []string{"draft", "archived"}, titles(posts))

	posts, total, err = f.repo.List(ctx, PostFilter{PublicOnly: true, Sort: SortPublished, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "total ignores paging")
	assert.Equal(t, []string{"old"}, titles(posts))
}

func TestPostRepository_ListFilters(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	createPost(t, f.db, f.author.ID, f.science.ID, "Quantum leaps", withStatus(models.PostStatusPublished), withTags("Physics", "atoms"), featured())
	createPost(t, f.db, f.other.ID, f.politics.ID, "Election maths", withStatus(models.PostStatusPublished), withTags("voting"))
	createPost(t, f.db, f.other.ID, f.science.ID, "Atoms of 100% purity", withStatus(models.PostStatusPublished), withTags("chemistry"))

	cases := []struct {
		name   string
		filter PostFilter
		want   []string
	}{
		{"category", PostFilter{CategoryID: f.politics.ID}, []string{"Election maths"}},
		{"tag ignores case", PostFilter{Tag: "physics"}, []string{"Quantum leaps"}},
		{"tag is whole element", PostFilter{Tag: "phys"}, []string{}},
		{"featured", PostFilter{Featured: ptr(true)}, []string{"Quantum leaps"}},
		{"exclude", PostFilter{CategoryID: f.science.ID, ExcludeID: 1}, []string{"Atoms of 100% purity"}},
		{"search title", PostFilter{Search: "ELECTION", SearchScope: ScopeTitle}, []string{"Election maths"}},
		{"search author", PostFilter{Search: "boh", SearchScope: ScopeAuthor}, []string{"Election maths", "Atoms of 100% purity"}},
		{"search tags", PostFilter{Search: "atom", SearchScope: ScopeTags}, []string{"Quantum leaps"}},
		{"search all", PostFilter{Search: "atoms"}, []string{"Quantum leaps", "Atoms of 100% purity"}},
		{"search escapes wildcards", PostFilter{Search: "100%"}, []string{"Atoms of 100% purity"}},
		{"search underscore literal", PostFilter{Search: "_"}, []string{}},
		{"search content", PostFilter{Search: "body of quantum", SearchScope: ScopeContent}, []string{"Quantum leaps"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			posts, _, err := f.repo.List(ctx, tc.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tc.want, titles(posts))
		})
	}
}

func TestPostRepository_ListRelated(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	src := createPost(t, f.db, f.author.ID, f.science.ID, "source", withStatus(models.PostStatusPublished), withTags("fusion"), withKeywords("plasma"))
	createPost(t, f.db, f.author.ID, f.science.ID, "same category", withStatus(models.PostStatusPublished), withViews(1))
	createPost(t, f.db, f.other.ID, f.politics.ID, "shared tag", withStatus(models.PostStatusPublished), withTags("Fusion"), withViews(5))
	createPost(t, f.db, f.other.ID, f.politics.ID, "shared keyword", withStatus(models.PostStatusPublished), withKeywords("plasma"), withViews(3))
	createPost(t, f.db, f.other.ID, f.politics.ID, "unrelated", withStatus(models.PostStatusPublished))

	posts, _, err := f.repo.List(ctx, PostFilter{
		PublicOnly:        true,
		ExcludeID:         src.ID,
		RelatedCategoryID: src.CategoryID,
		RelatedTags:       src.Tags,
		RelatedKeywords:   src.Keywords,
		Sort:              SortRelated,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"shared tag", "shared keyword", "same category"}, titles(posts))
}

func TestPostRepository_ListPopular(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	createPost(t, f.db, f.author.ID, f.science.ID, "ten", withStatus(models.PostStatusPublished), withViews(10))
	createPost(t, f.db, f.author.ID, f.science.ID, "fifty", withStatus(models.PostStatusPublished), withViews(50))
	createPost(t, f.db, f.author.ID, f.science.ID, "flagged", withStatus(models.PostStatusPublished), withViews(99), offensive())

	posts, _, err := f.repo.List(ctx, PostFilter{PublicOnly: true, Sort: SortPopular})
	require.NoError(t, err)
	assert.Equal(t, []string{"fifty", "ten"}, titles(posts))
}

func TestPostRepository_ToggleLike(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	p := createPost(t, f.db, f.author.ID, f.science.ID, "likeable", withStatus(models.PostStatusPublished))

	res, err := f.repo.ToggleLike(ctx, p.ID, f.other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Likes: 1, IsLiked: true}, res)

	liked, err := f.repo.LikedPostIDs(ctx, f.other.ID, []uint{p.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{p.ID: true}, liked)

	res, err = f.repo.ToggleLike(ctx, p.ID, f.other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeResult{Likes: 0, IsLiked: false}, res)

	liked, err = f.repo.LikedPostIDs(ctx, f.other.ID, []uint{p.ID})
	require.NoError(t, err)
	assert.Empty(t, liked)

	t.Run("counter never goes negative", func(t *testing.T) {
		require.NoError(t, f.db.Create(&models.PostLike{PostID: p.ID, UserID: f.author.ID}).Error)
		res, err := f.repo.ToggleLike(ctx, p.ID, f.author.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Likes)
		assert.False(t, res.IsLiked)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := f.repo.ToggleLike(ctx, 9999, f.author.ID)
		assert.Error(t, err)
	})
}

func TestPostRepository_IncrementViewsConcurrent(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	p := createPost(t, f.db, f.author.ID, f.science.ID, "viral", withStatus(models.PostStatusPublished))
	stored, err := f.repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	before := stored.UpdatedAt

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.repo.IncrementViews(ctx, p.ID))
		}()
	}
	wg.Wait()

	got, err := f.repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.Views)
	assert.True(t, got.UpdatedAt.Equal(before), "view counting leaves updated_at alone")

	assert.True(t, IsNotFound(f.repo.IncrementViews(ctx, 9999)))
}

func TestPostRepository_DeleteCascades(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	p := createPost(t, f.db, f.author.ID, f.science.ID, "doomed", withStatus(models.PostStatusPublished))

	_, err := f.repo.ToggleLike(ctx, p.ID, f.other.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&models.Comment{PostID: p.ID, AuthorID: f.other.ID, Content: "hi"}).Error)

	require.NoError(t, f.repo.Delete(ctx, p.ID))

	var likes, comments int64
	f.db.Model(&models.PostLike{}).Where("post_id = ?", p.ID).Count(&likes)
	f.db.Model(&models.Comment{}).Where("post_id = ?", p.ID).Count(&comments)
	assert.Zero(t, likes)
	assert.Zero(t, comments)

	assert.True(t, IsNotFound(f.repo.Delete(ctx, p.ID)))
}

func ptr[T any](v T) *T { return &v }
