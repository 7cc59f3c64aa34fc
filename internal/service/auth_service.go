package service

import (
	"context"
	"strings"
	"time"

	"folio/internal/cache"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/repository"
	"folio/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is the lifetime of issued access tokens.
const DefaultTokenTTL = 24 * time.Hour

// AuthService handles accounts, credentials and roles.
type AuthService struct {
	users     repository.UserRepository
	redis     *redis.Client
	cache     cache.Invalidator
	jwtSecret string
	tokenTTL  time.Duration
	cost      int
}

// NewAuthService returns an AuthService signing tokens with secret.
func NewAuthService(users repository.UserRepository, rdb *redis.Client, invalidator cache.Invalidator, secret string) *AuthService {
	if invalidator == nil {
		invalidator = cache.NopInvalidator{}
	}
	return &AuthService{
		users:     users,
		redis:     rdb,
		cache:     invalidator,
		jwtSecret: secret,
		tokenTTL:  DefaultTokenTTL,
		cost:      bcrypt.DefaultCost,
	}
}

// SignupInput is the payload for a new account.
type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup creates a reader account and issues a token.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" || email == "" || in.Password == "" {
		return nil, models.NewValidationError("Username, email, and password are required")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: string(hash),
		Role:     models.RoleReader,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, models.NewConflictError("User already exists")
		}
		return nil, models.NewInternalError(err)
	}

	return s.issue(user)
}

// Login verifies credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, models.NewValidationError("Email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, models.NewInternalError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := middleware.GenerateToken(s.jwtSecret, user.ID, s.tokenTTL)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Me returns the caller's account.
func (s *AuthService) Me(ctx context.Context, viewer models.Identity) (*models.User, error) {
	if viewer.Anonymous() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	user, err := s.users.GetByID(ctx, viewer.ID)
	if err != nil {
		return nil, mapRepoError(err, "User", viewer.ID)
	}
	return user, nil
}

// ResolveRole returns the current role of a user, cached briefly.
func (s *AuthService) ResolveRole(ctx context.Context, userID uint) (models.Role, error) {
	var role models.Role
	err := cache.Aside(ctx, s.redis, cache.UserRoleKey(userID), &role, cache.UserRoleTTL, func() error {
		var err error
		role, err = s.users.GetRole(ctx, userID)
		return err
	})
	if err != nil {
		return "", err
	}
	return role, nil
}

// ChangeRole sets another user's role. Admins cannot demote themselves.
func (s *AuthService) ChangeRole(ctx context.Context, viewer models.Identity, userID uint, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, models.NewValidationError("Role must be one of reader, researcher, admin")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "User", userID)
	}
	if !viewer.IsAdmin() {
		return nil, models.NewForbiddenError("Admin access required")
	}
	if viewer.ID == userID && role != models.RoleAdmin {
		return nil, models.NewValidationError("Admins cannot demote themselves")
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, mapRepoError(err, "User", userID)
	}
	cache.InvalidateUserRole(ctx, s.redis, userID)
	// Cached responses were rendered with the old role's visibility.
	invalidateResponses(ctx, s.cache)

	user.Role = role
	return user, nil
}
