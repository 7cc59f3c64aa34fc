// Package seed fills a database with demo data for development. Posts go
// through the service layer so slugs, word counts and rendered HTML match
// what the API would produce.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/repository"
	"folio/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "folio-demo-pass"

//go:embed categories.yaml
var categoriesYAML []byte

// CategoryFixture is one entry of the built-in category list.
type CategoryFixture struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// Options controls how much data Run creates.
type Options struct {
	Researchers  int
	Readers      int
	Posts        int
	MaxComments  int
	Clean        bool
	RandomSource uint64
}

// DefaultOptions is a small but lively dataset.
func DefaultOptions() Options {
	return Options{Researchers: 5, Readers: 20, Posts: 60, MaxComments: 6, Clean: true}
}

// Report summarises a seed run.
type Report struct {
	Categories int
	Users      int
	Posts      int
	Comments   int
	Likes      int
}

// Seeder creates demo data.
type Seeder struct {
	db       *gorm.DB
	posts    *service.PostService
	comments *service.CommentService
	faker    *gofakeit.Faker
	rng      *rand.Rand
}

// NewSeeder builds a seeder. Events and cache invalidation are discarded.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	postRepo := repository.NewPostRepository(db)
	categories := service.NewCategoryService(repository.NewCategoryRepository(db), nil, nil)

	src := opts.RandomSource
	if src == 0 {
		src = rand.Uint64()
	}
	return &Seeder{
		db:       db,
		posts:    service.NewPostService(postRepo, categories, nil, nil, nil),
		comments: service.NewCommentService(repository.NewCommentRepository(db), postRepo, nil, nil),
		faker:    gofakeit.New(int64(src)),
		rng:      rand.New(rand.NewPCG(src, src>>1)),
	}
}

// LoadCategoryFixtures parses the embedded category list.
func LoadCategoryFixtures() ([]CategoryFixture, error) {
	var fixtures []CategoryFixture
	if err := yaml.Unmarshal(categoriesYAML, &fixtures); err != nil {
		return nil, fmt.Errorf("parse categories.yaml: %w", err)
	}
	for i, f := range fixtures {
		if strings.TrimSpace(f.Name) == "" || strings.TrimSpace(f.Slug) == "" {
			return nil, fmt.Errorf("categories.yaml entry %d: name and slug are required", i)
		}
	}
	return fixtures, nil
}

// Categories upserts the built-in categories by slug.
func Categories(ctx context.Context, db *gorm.DB) ([]*models.Category, error) {
	fixtures, err := LoadCategoryFixtures()
	if err != nil {
		return nil, err
	}

	out := make([]*models.Category, 0, len(fixtures))
	for _, f := range fixtures {
		category := &models.Category{Name: f.Name, Slug: f.Slug, Description: f.Description}
		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "updated_at"}),
		}).Create(category).Error
		if err != nil {
			return nil, fmt.Errorf("upsert category %s: %w", f.Slug, err)
		}
		if err := db.WithContext(ctx).Where("slug = ?", f.Slug).First(category).Error; err != nil {
			return nil, fmt.Errorf("reload category %s: %w", f.Slug, err)
		}
		out = append(out, category)
	}
	return out, nil
}

// Clean removes all seeded tables' rows, children first.
func Clean(ctx context.Context, db *gorm.DB) error {
	tables := []any{
		&models.Notification{},
		&models.Comment{},
		&models.PostLike{},
		&models.Post{},
		&models.Category{},
		&models.User{},
	}
	for _, m := range tables {
		if err := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(m).Error; err != nil {
			return fmt.Errorf("clean %T: %w", m, err)
		}
	}
	return nil
}

// Run seeds categories, an admin, researchers, readers, posts, likes and
// comments.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Researchers < 1 {
		return nil, errors.New("seed: at least one researcher is required")
	}
	if opts.Clean {
		if err := Clean(ctx, s.db); err != nil {
			return nil, err
		}
	}

	report := &Report{}
	categories, err := Categories(ctx, s.db)
	if err != nil {
		return nil, err
	}
	report.Categories = len(categories)

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	admin, err := s.user(ctx, "admin", models.RoleAdmin, string(hash))
	if err != nil {
		return nil, err
	}
	authors := []*models.User{admin}
	for i := 0; i < opts.Researchers; i++ {
		u, err := s.user(ctx, "", models.RoleResearcher, string(hash))
		if err != nil {
			return nil, err
		}
		authors = append(authors, u)
	}
	readers := make([]*models.User, 0, opts.Readers)
	for i := 0; i < opts.Readers; i++ {
		u, err := s.user(ctx, "", models.RoleReader, string(hash))
		if err != nil {
			return nil, err
		}
		readers = append(readers, u)
	}
	report.Users = len(authors) + len(readers)

	everyone := append(append([]*models.User{}, authors...), readers...)
	for i := 0; i < opts.Posts; i++ {
		author := authors[s.rng.IntN(len(authors))]
		category := categories[s.rng.IntN(len(categories))]

		view, err := s.posts.CreatePost(ctx, identityOf(author), s.postInput(category))
		if err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		report.Posts++
		if view.Status != models.PostStatusPublished {
			continue
		}

		for _, u := range everyone {
			if s.rng.IntN(4) != 0 {
				continue
			}
			if _, err := s.posts.ToggleLike(ctx, identityOf(u), view.ID); err != nil {
				return nil, fmt.Errorf("like post %d: %w", view.ID, err)
			}
			report.Likes++
		}

		n, err := s.commentThread(ctx, view.ID, everyone, opts.MaxComments)
		if err != nil {
			return nil, err
		}
		report.Comments += n
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("categories", report.Categories),
		slog.Int("users", report.Users),
		slog.Int("posts", report.Posts),
		slog.Int("comments", report.Comments),
		slog.Int("likes", report.Likes))
	return report, nil
}

func (s *Seeder) user(ctx context.Context, username string, role models.Role, hash string) (*models.User, error) {
	if username == "" {
		username = strings.ToLower(s.faker.Username()) + fmt.Sprint(s.rng.IntN(10000))
	}
	u := &models.User{
		Username: username,
		Email:    username + "@folio.test",
		Password: hash,
		Role:     role,
		Bio:      s.faker.Sentence(10),
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}
	return u, nil
}

func (s *Seeder) postInput(category *models.Category) service.CreatePostInput {
	paragraphs := 3 + s.rng.IntN(6)
	in := service.CreatePostInput{
		Title:    strings.TrimSuffix(s.faker.Sentence(4+s.rng.IntN(6)), "."),
		Excerpt:  s.faker.Sentence(18),
		Content:  s.faker.Paragraph(paragraphs, 5, 12, "\n\n"),
		Category: models.CategoryRef(category.Slug),
		Tags:     models.TagList{s.faker.BuzzWord(), s.faker.HackerNoun()},
		Status:   models.PostStatusPublished,
	}
	if s.rng.IntN(5) == 0 {
		in.Status = models.PostStatusDraft
	}
	if s.rng.IntN(2) == 0 {
		in.Image = fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", s.faker.UUID())
	}
	return in
}

// commentThread adds up to max comments, some of them replies.
func (s *Seeder) commentThread(ctx context.Context, postID uint, users []*models.User, max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	var ids []uint
	n := s.rng.IntN(max + 1)
	for i := 0; i < n; i++ {
		in := service.CreateCommentInput{Content: s.faker.Sentence(6 + s.rng.IntN(20))}
		if len(ids) > 0 && s.rng.IntN(3) == 0 {
			parent := ids[s.rng.IntN(len(ids))]
			in.ParentID = &parent
		}
		node, err := s.comments.Create(ctx, identityOf(users[s.rng.IntN(len(users))]), postID, in)
		if err != nil {
			return i, fmt.Errorf("comment on post %d: %w", postID, err)
		}
		ids = append(ids, node.ID)
	}
	return n, nil
}

func identityOf(u *models.User) models.Identity {
	return models.Identity{ID: u.ID, Role: u.Role}
}
