package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"folio/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func TestParseToken(t *testing.T) {
	valid, err := GenerateToken(testSecret, 123, time.Hour)
	require.NoError(t, err)

	expired, err := GenerateToken(testSecret, 123, -time.Minute)
	require.NoError(t, err)

	foreign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name    string
		token   string
		secret  string
		wantID  uint
		wantErr error
	}{
		{"valid", valid, testSecret, 123, nil},
		{"empty", "", testSecret, 0, ErrMissingToken},
		{"wrong secret", valid, "another-secret-key-that-is-long-enough", 0, ErrInvalidToken},
		{"expired", expired, testSecret, 0, ErrInvalidToken},
		{"garbage", "not.a.token", testSecret, 0, ErrInvalidToken},
		{
			name: "wrong issuer",
			token: foreign(jwt.MapClaims{
				"sub": "5", "iss": "someone-else", "aud": TokenAudience,
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			secret:  testSecret,
			wantErr: ErrInvalidToken,
		},
		{
			name: "non numeric subject",
			token: foreign(jwt.MapClaims{
				"sub": "abc", "iss": TokenIssuer, "aud": TokenAudience,
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
			secret:  testSecret,
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseToken(tt.secret, tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestBearerTokenAndIdentity(t *testing.T) {
	app := fiber.New()
	app.Get("/whoami", func(c *fiber.Ctx) error {
		raw := BearerToken(c)
		if raw == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		uid, err := ParseToken(testSecret, raw)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		SetIdentity(c, models.Identity{ID: uid, Role: models.RoleResearcher})
		id := IdentityFrom(c)
		return c.SendString(strconv.FormatUint(uint64(id.ID), 10) + ":" + string(id.Role))
	})

	token, err := GenerateToken(testSecret, 9, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIdentityFrom_Anonymous(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if IdentityFrom(c).Anonymous() {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
