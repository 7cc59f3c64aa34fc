package repository

import (
	"context"
	"regexp"
	"testing"

	"folio/internal/models"
	"folio/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyticsRepository_PostgresPlaceholders(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAnalyticsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, COUNT(*) AS count FROM posts WHERE author_id = $1 GROUP BY status ORDER BY status`)).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).AddRow("draft", 2).AddRow("published", 5))

	rows, err := repo.CountByStatus(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []models.StatusCount{
		{Status: models.PostStatusDraft, Count: 2},
		{Status: models.PostStatusPublished, Count: 5},
	}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAnalyticsRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice", models.RoleResearcher)
	bob := testutil.CreateUser(t, db, "bob", models.RoleResearcher)
	sci := testutil.CreateCategory(t, db, "Science", "science")
	art := testutil.CreateCategory(t, db, "Art", "art")

	createPost(t, db, alice.ID, sci.ID, "a1", withStatus(models.PostStatusPublished), withViews(100), featured())
	createPost(t, db, alice.ID, sci.ID, "a2", withStatus(models.PostStatusPublished), withViews(20))
	createPost(t, db, alice.ID, art.ID, "a3")
	createPost(t, db, bob.ID, art.ID, "b1", withStatus(models.PostStatusPublished), withViews(500), offensive())
	createPost(t, db, bob.ID, art.ID, "b2", withStatus(models.PostStatusPublished), withViews(30))

	t.Run("platform totals", func(t *testing.T) {
		totals, err := repo.Totals(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, models.Totals{Posts: 5, Flagged: 1, Featured: 1, Views: 650}, totals)
	})

	t.Run("author totals", func(t *testing.T) {
		totals, err := repo.Totals(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), totals.Posts)
		assert.Equal(t, int64(120), totals.Views)

		byStatus, err := repo.CountByStatus(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []models.StatusCount{
			{Status: models.PostStatusDraft, Count: 1},
			{Status: models.PostStatusPublished, Count: 2},
		}, byStatus)
	})

	t.Run("top categories skip flagged posts", func(t *testing.T) {
		top, err := repo.TopCategories(ctx, 5)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, "science", top[0].Slug)
		assert.Equal(t, int64(2), top[0].Posts)
		assert.Equal(t, int64(30), top[1].Views)
	})

	t.Run("top authors by visible views", func(t *testing.T) {
		top, err := repo.TopAuthors(ctx, 1)
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, "alice", top[0].Username)
		assert.Equal(t, int64(120), top[0].Views)
	})
}
