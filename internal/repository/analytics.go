package repository

import (
	"context"

	"folio/internal/models"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
)

// AnalyticsRepository runs aggregate reports over posts.
type AnalyticsRepository interface {
	Totals(ctx context.Context, authorID uint) (models.Totals, error)
	CountByStatus(ctx context.Context, authorID uint) ([]models.StatusCount, error)
	TopCategories(ctx context.Context, limit int) ([]models.CategoryStat, error)
	TopAuthors(ctx context.Context, limit int) ([]models.AuthorStat, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

// builder emits "?" placeholders; gorm rebinds them for the dialect.
func (r *analyticsRepository) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func (r *analyticsRepository) scan(ctx context.Context, b sq.Sqlizer, dest any) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	return readDB(r.db).WithContext(ctx).Raw(query, args...).Scan(dest).Error
}

// Totals sums counters over every post, or one author's posts when authorID
// is non-zero.
func (r *analyticsRepository) Totals(ctx context.Context, authorID uint) (models.Totals, error) {
	q := r.builder().
		Select(
			"COUNT(*) AS posts",
			"COALESCE(SUM(CASE WHEN is_offensive THEN 1 ELSE 0 END), 0) AS flagged",
			"COALESCE(SUM(CASE WHEN featured THEN 1 ELSE 0 END), 0) AS featured",
			"COALESCE(SUM(views), 0) AS views",
			"COALESCE(SUM(likes_count), 0) AS likes",
			"COALESCE(SUM(comments_count), 0) AS comments",
		).
		From("posts")
	if authorID != 0 {
		q = q.Where(sq.Eq{"author_id": authorID})
	}

	var totals models.Totals
	err := r.scan(ctx, q, &totals)
	return totals, err
}

func (r *analyticsRepository) CountByStatus(ctx context.Context, authorID uint) ([]models.StatusCount, error) {
	q := r.builder().
		Select("status", "COUNT(*) AS count").
		From("posts").
		GroupBy("status").
		OrderBy("status")
	if authorID != 0 {
		q = q.Where(sq.Eq{"author_id": authorID})
	}

	var rows []models.StatusCount
	err := r.scan(ctx, q, &rows)
	return rows, err
}

// TopCategories ranks categories by publicly visible posts.
func (r *analyticsRepository) TopCategories(ctx context.Context, limit int) ([]models.CategoryStat, error) {
	q := r.builder().
		Select(
			"c.id AS category_id",
			"c.name",
			"c.slug",
			"COUNT(p.id) AS posts",
			"COALESCE(SUM(p.views), 0) AS views",
		).
		From("categories c").
		Join("posts p ON p.category_id = c.id").
		Where(sq.Eq{"p.status": models.PostStatusPublished, "p.is_offensive": false}).
		GroupBy("c.id", "c.name", "c.slug").
		OrderBy("posts DESC", "views DESC", "c.id ASC").
		Limit(uint64(limit))

	var rows []models.CategoryStat
	err := r.scan(ctx, q, &rows)
	return rows, err
}

// TopAuthors ranks authors by views on publicly visible posts.
func (r *analyticsRepository) TopAuthors(ctx context.Context, limit int) ([]models.AuthorStat, error) {
	q := r.builder().
		Select(
			"u.id AS author_id",
			"u.username",
			"COUNT(p.id) AS posts",
			"COALESCE(SUM(p.views), 0) AS views",
			"COALESCE(SUM(p.likes_count), 0) AS likes",
		).
		From("users u").
		Join("posts p ON p.author_id = u.id").
		Where(sq.Eq{"p.status": models.PostStatusPublished, "p.is_offensive": false}).
		Where("u.deleted_at IS NULL").
		GroupBy("u.id", "u.username").
		OrderBy("views DESC", "likes DESC", "u.id ASC").
		Limit(uint64(limit))

	var rows []models.AuthorStat
	err := r.scan(ctx, q, &rows)
	return rows, err
}
