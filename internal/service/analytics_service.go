package service

import (
	"context"

	"folio/internal/models"
	"folio/internal/repository"

	"golang.org/x/sync/errgroup"
)

const topN = 5

// AnalyticsService aggregates engagement reports.
type AnalyticsService struct {
	repo repository.AnalyticsRepository
}

func NewAnalyticsService(repo repository.AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo}
}

// PlatformSummary is the admin overview. The four reports run concurrently.
func (s *AnalyticsService) PlatformSummary(ctx context.Context, viewer models.Identity) (*models.PlatformSummary, error) {
	if viewer.Anonymous() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if !viewer.IsAdmin() {
		return nil, models.NewForbiddenError("Admin access required")
	}

	var out models.PlatformSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Totals, err = s.repo.Totals(gctx, 0)
		return err
	})
	g.Go(func() (err error) {
		out.ByStatus, err = s.repo.CountByStatus(gctx, 0)
		return err
	})
	g.Go(func() (err error) {
		out.TopCategories, err = s.repo.TopCategories(gctx, topN)
		return err
	})
	g.Go(func() (err error) {
		out.TopAuthors, err = s.repo.TopAuthors(gctx, topN)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, models.NewInternalError(err)
	}
	return &out, nil
}

// AuthorSummary reports on one author's posts, for that author or an admin.
func (s *AnalyticsService) AuthorSummary(ctx context.Context, viewer models.Identity, authorID uint) (*models.AuthorSummary, error) {
	if viewer.Anonymous() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if viewer.ID != authorID && !viewer.IsAdmin() {
		return nil, models.NewForbiddenError("You can only view your own analytics")
	}

	totals, err := s.repo.Totals(ctx, authorID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	byStatus, err := s.repo.CountByStatus(ctx, authorID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &models.AuthorSummary{AuthorID: authorID, Totals: totals, ByStatus: byStatus}, nil
}
