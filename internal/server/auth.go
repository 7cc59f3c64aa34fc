package server

import (
	"log/slog"

	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/repository"

	"github.com/gofiber/fiber/v2"
)

const authErrorLocal = "authError"

// Identify resolves the caller from the bearer token, if any, and attaches
// its identity. Requests without a usable token continue anonymously; the
// reason is kept for AuthRequired.
func (s *Server) Identify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := middleware.BearerToken(c)
		if token == "" {
			return c.Next()
		}

		userID, err := middleware.ParseToken(s.config.JWTSecret, token)
		if err != nil {
			c.Locals(authErrorLocal, "Invalid or expired token")
			return c.Next()
		}

		role, err := s.authService.ResolveRole(c.UserContext(), userID)
		if err != nil {
			if !repository.IsNotFound(err) {
				middleware.Logger.WarnContext(c.UserContext(), "failed to resolve caller role",
					slog.Uint64("user_id", uint64(userID)),
					slog.String("error", err.Error()))
			}
			c.Locals(authErrorLocal, "Invalid or expired token")
			return c.Next()
		}

		middleware.SetIdentity(c, models.Identity{ID: userID, Role: role})
		return c.Next()
	}
}

// AuthRequired rejects anonymous callers with 401.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if middleware.IdentityFrom(c).Anonymous() {
			msg, _ := c.Locals(authErrorLocal).(string)
			if msg == "" {
				msg = "Authorization required"
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(msg))
		}
		return c.Next()
	}
}

// AdminRequired rejects non-admin callers with 403. Must be placed after
// AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !middleware.IdentityFrom(c).IsAdmin() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// AuthorRequired admits researchers and admins.
func (s *Server) AuthorRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !middleware.IdentityFrom(c).CanAuthor() {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Only researchers and admins can do this"))
		}
		return c.Next()
	}
}
