package repository

import (
	"fmt"
	"testing"
	"time"

	"folio/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

type postOpt func(*models.Post)

func withStatus(s models.PostStatus) postOpt {
	return func(p *models.Post) {
		p.Status = s
		if s == models.PostStatusPublished && p.PublishedAt == nil {
			now := time.Now().UTC()
			p.PublishedAt = &now
		}
	}
}

func withTags(tags ...string) postOpt {
	return func(p *models.Post) { p.Tags = tags }
}

func withKeywords(kw ...string) postOpt {
	return func(p *models.Post) { p.Keywords = kw }
}

func withViews(v int64) postOpt {
	return func(p *models.Post) { p.Views = v }
}

func withPublishedAt(ts time.Time) postOpt {
	return func(p *models.Post) {
		p.Status = models.PostStatusPublished
		p.PublishedAt = &ts
	}
}

func offensive() postOpt {
	return func(p *models.Post) { p.IsOffensive = true }
}

func featured() postOpt {
	return func(p *models.Post) { p.Featured = true }
}

var postSeq int

func createPost(t *testing.T, db *gorm.DB, authorID, categoryID uint, title string, opts ...postOpt) *models.Post {
	t.Helper()
	postSeq++
	p := &models.Post{
		Slug:       fmt.Sprintf("post-%d", postSeq),
		Title:      title,
		Content:    "body of " + title,
		AuthorID:   authorID,
		CategoryID: categoryID,
		Status:     models.PostStatusDraft,
		Tags:       models.TagList{},
		Keywords:   []string{},
		ReadTime:   1,
	}
	for _, opt := range opts {
		opt(p)
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
