package server

import (
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ModerationQueue handles GET /api/admin/posts
// @Summary Moderation queue
// @Description Every post regardless of status, filterable by status and offense flag
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "draft, published or archived"
// @Param offensive query bool false "Only flagged (true) or unflagged (false) posts"
// @Success 200 {object} models.Response{data=[]models.PostView}
// @Failure 403 {object} models.Response
// @Router /admin/posts [get]
func (s *Server) ModerationQueue(c *fiber.Ctx) error {
	offensive, err := optionalBool(c, "offensive")
	if err != nil {
		return respondError(c, err)
	}
	page, err := s.postService.ModerationQueue(c.UserContext(), middleware.IdentityFrom(c), service.ModerationFilter{
		Status:    optionalStatus(c),
		Offensive: offensive,
		Page:      parsePagination(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return respondPosts(c, page)
}

// MarkOffensive handles POST /api/admin/posts/:id/offensive
// @Summary Flag a post as offensive
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body object{reason=string} true "Reason"
// @Success 200 {object} models.Response{data=models.PostView}
// @Failure 400 {object} models.Response
// @Failure 403 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /admin/posts/{id}/offensive [post]
func (s *Server) MarkOffensive(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(c, &req); err != nil {
		return nil
	}

	view, err := s.postService.MarkAsOffensive(c.UserContext(), middleware.IdentityFrom(c), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Post flagged", view)
}

// RemoveOffense handles DELETE /api/admin/posts/:id/offensive
func (s *Server) RemoveOffense(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.postService.RemoveOffense(c.UserContext(), middleware.IdentityFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Offense cleared", view)
}

// SetFeatured handles PUT /api/admin/posts/:id/featured with {"featured": bool}
func (s *Server) SetFeatured(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Featured *bool `json:"featured"`
	}
	if err := decodeJSON(c, &req); err != nil {
		return nil
	}
	if req.Featured == nil {
		return respondError(c, models.NewValidationError("featured is required"))
	}

	view, err := s.postService.SetFeatured(c.UserContext(), middleware.IdentityFrom(c), id, *req.Featured)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Post updated", view)
}

// ChangeRole handles PUT /api/admin/users/:id/role
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body object{role=string} true "reader, researcher or admin"
// @Success 200 {object} models.Response{data=models.User}
// @Router /admin/users/{id}/role [put]
func (s *Server) ChangeRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := decodeJSON(c, &req); err != nil {
		return nil
	}

	user, err := s.authService.ChangeRole(c.UserContext(), middleware.IdentityFrom(c), id, req.Role)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Role updated", user)
}
