package service

import (
	"context"
	"strings"

	"folio/internal/cache"
	"folio/internal/content"
	"folio/internal/models"
	"folio/internal/repository"
	"folio/internal/validation"

	"github.com/redis/go-redis/v9"
)

// CategoryResolver turns an id-or-slug reference into a category.
type CategoryResolver interface {
	Resolve(ctx context.Context, ref models.CategoryRef) (*models.Category, error)
}

// CategoryService manages categories and resolves references to them.
type CategoryService struct {
	repo  repository.CategoryRepository
	redis *redis.Client
	cache cache.Invalidator
}

// NewCategoryService returns a CategoryService. redis may be nil.
func NewCategoryService(repo repository.CategoryRepository, rdb *redis.Client, invalidator cache.Invalidator) *CategoryService {
	if invalidator == nil {
		invalidator = cache.NopInvalidator{}
	}
	return &CategoryService{repo: repo, redis: rdb, cache: invalidator}
}

// CreateCategoryInput is the payload for a new category.
type CreateCategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func (s *CategoryService) Create(ctx context.Context, viewer models.Identity, in CreateCategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Name is required")
	}
	slug := content.Slugify(in.Slug)
	if slug == "" {
		slug = content.Slugify(name)
		if validation.IsNumericSlug(slug) {
			slug = "category-" + slug
		}
	}
	if err := validation.ValidateCategorySlug(slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if !viewer.IsAdmin() {
		return nil, models.NewForbiddenError("Only admins can create categories")
	}

	category := &models.Category{Name: name, Slug: slug, Description: strings.TrimSpace(in.Description)}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, mapRepoError(err, "Category", name)
	}

	cache.Invalidate(ctx, s.redis, cache.CategoryListKey)
	invalidateResponses(ctx, s.cache)
	return category, nil
}

func (s *CategoryService) List(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	err := cache.Aside(ctx, s.redis, cache.CategoryListKey, &categories, cache.CategoryTTL, func() error {
		var err error
		categories, err = s.repo.List(ctx)
		return err
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return categories, nil
}

// Get looks a category up by id or slug.
func (s *CategoryService) Get(ctx context.Context, ref models.CategoryRef) (*models.Category, error) {
	if strings.TrimSpace(string(ref)) == "" {
		return nil, models.NewValidationError("Category is required")
	}

	var category models.Category
	err := cache.Aside(ctx, s.redis, cache.CategoryKey(string(ref)), &category, cache.CategoryTTL, func() error {
		var (
			found *models.Category
			err   error
		)
		if id, ok := ref.ID(); ok {
			found, err = s.repo.GetByID(ctx, id)
		} else {
			found, err = s.repo.GetBySlug(ctx, strings.ToLower(string(ref)))
		}
		if err != nil {
			return err
		}
		category = *found
		return nil
	})
	if err != nil {
		return nil, mapRepoError(err, "Category", ref)
	}
	return &category, nil
}

// Resolve is Get with an unresolvable reference reported as invalid input.
func (s *CategoryService) Resolve(ctx context.Context, ref models.CategoryRef) (*models.Category, error) {
	category, err := s.Get(ctx, ref)
	if models.HasCode(err, models.CodeNotFound) {
		return nil, models.NewValidationError("Category not found")
	}
	return category, err
}
