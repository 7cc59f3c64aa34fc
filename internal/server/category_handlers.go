package server

import (
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListCategories handles GET /api/categories
// @Summary List categories
// @Tags categories
// @Produce json
// @Success 200 {object} models.Response{data=[]models.Category}
// @Router /categories [get]
func (s *Server) ListCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "OK", categories)
}

// GetCategory handles GET /api/categories/:ref where ref is an id or a slug.
func (s *Server) GetCategory(c *fiber.Ctx) error {
	category, err := s.categoryService.Get(c.UserContext(), models.CategoryRef(c.Params("ref")))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "OK", category)
}

// CreateCategory handles POST /api/categories
// @Summary Create a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateCategoryInput true "Category"
// @Success 201 {object} models.Response{data=models.Category}
// @Failure 403 {object} models.Response
// @Failure 409 {object} models.Response
// @Router /categories [post]
func (s *Server) CreateCategory(c *fiber.Ctx) error {
	var req service.CreateCategoryInput
	if err := decodeJSON(c, &req); err != nil {
		return nil
	}

	category, err := s.categoryService.Create(c.UserContext(), middleware.IdentityFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Category created", category)
}
