// Package middleware provides request-scoped Fiber middleware: token handling,
// rate limiting, structured logging, tracing and HTTP metrics.
package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"folio/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenIssuer   = "folio-api"
	TokenAudience = "folio-client"
)

var (
	ErrMissingToken = errors.New("authorization required")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// GenerateToken signs an HS256 access token whose subject is the user id.
func GenerateToken(secret string, userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    TokenIssuer,
		Audience:  jwt.ClaimStrings{TokenAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates tokenString and returns the user id in its subject.
func ParseToken(secret, tokenString string) (uint, error) {
	if tokenString == "" {
		return 0, ErrMissingToken
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return 0, ErrInvalidToken
	}
	return uint(userID), nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header, falling back to the token query parameter.
func BearerToken(c *fiber.Ctx) string {
	if header := c.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// SetIdentity stores the resolved caller on the request.
func SetIdentity(c *fiber.Ctx, id models.Identity) {
	c.Locals("userID", id.ID)
	c.Locals("role", id.Role)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, id.ID))
}

// IdentityFrom returns the caller attached by SetIdentity, or an anonymous
// identity.
func IdentityFrom(c *fiber.Ctx) models.Identity {
	uid, _ := c.Locals("userID").(uint)
	role, _ := c.Locals("role").(models.Role)
	if uid == 0 {
		return models.Identity{}
	}
	return models.Identity{ID: uid, Role: role}
}
