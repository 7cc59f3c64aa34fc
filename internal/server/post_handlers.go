package server

import (
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/repository"
	"folio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListPosts handles GET /api/posts
// @Summary Public feed
// @Description Published, non-flagged posts, newest first
// @Tags posts
// @Produce json
// @Param category query string false "Category id or slug"
// @Param tag query string false "Tag"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} models.Response{data=[]models.PostView}
// @Router /posts [get]
func (s *Server) ListPosts(c *fiber.Ctx) error {
	page, err := s.postService.ListPosts(c.UserContext(), middleware.IdentityFrom(c), service.ListPostsInput{
		Category: models.CategoryRef(c.Query("category")),
		Tag:      c.Query("tag"),
		Page:     parsePagination(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return respondPosts(c, page)
}

// FeaturedPosts handles GET /api/posts/featured
func (s *Server) FeaturedPosts(c *fiber.Ctx) error {
	page, err := s.postService.FeaturedPosts(c.UserContext(), middleware.IdentityFrom(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondPosts(c, page)
}

// PopularPosts handles GET /api/posts/popular
func (s *Server) PopularPosts(c *fiber.Ctx) error {
	page, err := s.postService.PopularPosts(c.UserContext(), middleware.IdentityFrom(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondPosts(c, page)
}

// SearchPosts handles GET /api/posts/search?q=...
// @Summary Search posts
// @Tags posts
// @Produce json
// @Param q query string true "Search text"
// @Param scope query string false "all, title, content, author or tags"
// @Param category query string false "Category id or slug"
// @Success 200 {object} models.Response{data=[]models.PostView}
// @Failure 400 {object} models.Response
// @Router /posts/search [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	page, err := s.postService.SearchPosts(c.UserContext(), middleware.IdentityFrom(c), service.SearchInput{
		Query:    c.Query("q"),
		Scope:    repository.SearchScope(c.Query("scope")),
		Category: models.CategoryRef(c.Query("category")),
		Page:     parsePagination(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return respondPosts(c, page)
}

// GetPost handles GET /api/posts/:id
// @Summary Get a post
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} models.Response{data=models.PostView}
// @Failure 404 {object} models.Response
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.postService.GetPost(c.UserContext(), middleware.IdentityFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "OK", view)
}

// GetPostBySlug handles GET /api/posts/slug/:slug
func (s *Server) GetPostBySlug(c *fiber.Ctx) error {
	view, err := s.postService.GetPostBySlug(c.UserContext(), middleware.IdentityFrom(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "OK", view)
}

// RelatedPosts handles GET /api/posts/:id/related
func (s *Server) RelatedPosts(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page, err := s.postService.RelatedPosts(c.UserContext(), middleware.IdentityFrom(c), id, parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondPosts(c, page)
}

// PostsByAuthor handles GET /api/users/:id/posts
func (s *Server) PostsByAuthor(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page, err := s.postService.PostsByAuthor(c.UserContext(), middleware.IdentityFrom(c), id, optionalStatus(c), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondPosts(c, page)
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Researchers and admins only. The image may be a hosted URL or base64 data.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreatePostInput true "Post"
// @Success 201 {object} models.Response{data=models.PostView}
// @Failure 400 {object} models.Response
// @Failure 401 {object} models.Response
// @Failure 403 {object} models.Response
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req service.CreatePostInput
	if err := decodeJSON(c, &req); err != nil {
		return nil
	}

	view, err := s.postService.CreatePost(c.UserContext(), middleware.IdentityFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Post created", view)
}

// UpdatePost handles PATCH /api/posts/:id. Only the fields present in the
// body change; unknown fields are rejected.
// @Summary Update a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body service.PostPatch true "Fields to change"
// @Success 200 {object} models.Response{data=models.PostView}
// @Failure 400 {object} models.Response
// @Failure 403 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /posts/{id} [patch]
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var patch service.PostPatch
	if err := decodeJSON(c, &patch); err != nil {
		return nil
	}

	view, err := s.postService.UpdatePost(c.UserContext(), middleware.IdentityFrom(c), id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Post updated", view)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), middleware.IdentityFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Post deleted", nil)
}

// ArchivePost handles POST /api/posts/:id/archive
func (s *Server) ArchivePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if len(c.Body()) > 0 {
		if err := decodeJSON(c, &req); err != nil {
			return nil
		}
	}

	view, err := s.postService.ArchivePost(c.UserContext(), middleware.IdentityFrom(c), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Post archived", view)
}

// UnarchivePost handles POST /api/posts/:id/unarchive with {"status": "draft"|"published"}
func (s *Server) UnarchivePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Status models.PostStatus `json:"status"`
	}
	if err := decodeJSON(c, &req); err != nil {
		return nil
	}

	view, err := s.postService.UnarchivePost(c.UserContext(), middleware.IdentityFrom(c), id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Post restored", view)
}

// ToggleLike handles POST /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} models.Response{data=models.LikeResult}
// @Failure 401 {object} models.Response
// @Failure 404 {object} models.Response
// @Router /posts/{id}/like [post]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.postService.ToggleLike(c.UserContext(), middleware.IdentityFrom(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "OK", res)
}

// RecordView handles POST /api/posts/:id/view
func (s *Server) RecordView(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.IncrementView(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "View recorded", nil)
}
