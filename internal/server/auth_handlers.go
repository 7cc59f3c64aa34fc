package server

import (
	"folio/internal/middleware"
	"folio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a reader account and receive an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body service.SignupInput true "Signup request"
// @Success 201 {object} models.Response{data=service.AuthResult}
// @Failure 400 {object} models.Response
// @Failure 409 {object} models.Response
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req service.SignupInput
	if err := decodeJSON(c, &req); err != nil {
		return nil
	}

	res, err := s.authService.Signup(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return respondCreated(c, "Account created", res)
}

// Login handles POST /api/auth/login
// @Summary User login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Credentials"
// @Success 200 {object} models.Response{data=service.AuthResult}
// @Failure 401 {object} models.Response
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(c, &req); err != nil {
		return nil
	}

	res, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Logged in", res)
}

// Me handles GET /api/auth/me
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.authService.Me(c.UserContext(), middleware.IdentityFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "OK", user)
}
