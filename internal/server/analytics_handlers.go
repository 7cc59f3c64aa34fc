package server

import (
	"folio/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// PlatformAnalytics handles GET /api/admin/analytics
// @Summary Platform totals
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Response{data=models.PlatformSummary}
// @Failure 403 {object} models.Response
// @Router /admin/analytics [get]
func (s *Server) PlatformAnalytics(c *fiber.Ctx) error {
	summary, err := s.analyticsService.PlatformSummary(c.UserContext(), middleware.IdentityFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "OK", summary)
}

// AuthorAnalytics handles GET /api/users/:id/analytics. Authors see their
// own numbers; admins see anyone's.
func (s *Server) AuthorAnalytics(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	summary, err := s.analyticsService.AuthorSummary(c.UserContext(), middleware.IdentityFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "OK", summary)
}
