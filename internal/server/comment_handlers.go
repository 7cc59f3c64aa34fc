package server

import (
	"folio/internal/middleware"
	"folio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListComments handles GET /api/posts/:id/comments
// @Summary Comment thread for a post
// @Description Top-level comments oldest first, with replies nested under their parent
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Response{data=[]models.CommentNode}
// @Failure 404 {object} models.Response
// @Router /posts/{id}/comments [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	thread, err := s.commentService.List(c.UserContext(), middleware.IdentityFrom(c), postID)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "OK", thread)
}

// CreateComment handles POST /api/posts/:id/comments
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body service.CreateCommentInput true "Comment"
// @Success 201 {object} models.Response{data=models.CommentNode}
// @Failure 400 {object} models.Response
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req service.CreateCommentInput
	if err := decodeJSON(c, &req); err != nil {
		return nil
	}

	node, err := s.commentService.Create(c.UserContext(), middleware.IdentityFrom(c), postID, req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Comment added", node)
}

// DeleteComment handles DELETE /api/comments/:id. Replies go with it.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.Delete(c.UserContext(), middleware.IdentityFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Comment deleted", nil)
}
