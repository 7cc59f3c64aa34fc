package service

import (
	"context"
	"testing"

	"folio/internal/cache"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/repository"
	"folio/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newAuthService(t *testing.T) (*AuthService, *miniredis.Miniredis) {
	t.Helper()
	db := testutil.NewTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := NewAuthService(repository.NewUserRepository(db), rdb, cache.NewInvalidator(rdb), testSecret)
	svc.cost = bcrypt.MinCost
	return svc, mr
}

func TestAuthService_SignupAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Signup(ctx, SignupInput{Username: "ada", Email: " Ada@Example.com ", Password: "Sup3r-Secret-Pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleReader, res.User.Role)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.NotEqual(t, "Sup3r-Secret-Pass", res.User.Password)

	uid, err := middleware.ParseToken(testSecret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, uid)

	login, err := svc.Login(ctx, "ADA@example.com", "Sup3r-Secret-Pass")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "ada@example.com", "wrong-password")
	assertCode(t, err, models.CodeUnauthorized)
	_, err = svc.Login(ctx, "nobody@example.com", "Sup3r-Secret-Pass")
	assertCode(t, err, models.CodeUnauthorized)
	_, err = svc.Login(ctx, "", "")
	assertCode(t, err, models.CodeValidation)

	_, err = svc.Signup(ctx, SignupInput{Username: "ada", Email: "other@example.com", Password: "Sup3r-Secret-Pass"})
	assertCode(t, err, models.CodeConflict)
}

func TestAuthService_SignupValidation(t *testing.T) {
	svc, _ := newAuthService(t)

	tests := []struct {
		name string
		in   SignupInput
	}{
		{"missing fields", SignupInput{Username: "ada"}},
		{"bad username", SignupInput{Username: "a!", Email: "a@example.com", Password: "Sup3r-Secret-Pass"}},
		{"bad email", SignupInput{Username: "ada", Email: "not-an-email", Password: "Sup3r-Secret-Pass"}},
		{"weak password", SignupInput{Username: "ada", Email: "a@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tt.in)
			assertCode(t, err, models.CodeValidation)
		})
	}
}

func TestAuthService_Roles(t *testing.T) {
	svc, mr := newAuthService(t)
	ctx := context.Background()

	admin, err := svc.Signup(ctx, SignupInput{Username: "root", Email: "root@example.com", Password: "Sup3r-Secret-Pass"})
	require.NoError(t, err)
	require.NoError(t, svc.users.UpdateRole(ctx, admin.User.ID, models.RoleAdmin))
	adminID := models.Identity{ID: admin.User.ID, Role: models.RoleAdmin}

	user, err := svc.Signup(ctx, SignupInput{Username: "grace", Email: "grace@example.com", Password: "Sup3r-Secret-Pass"})
	require.NoError(t, err)

	role, err := svc.ResolveRole(ctx, user.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleReader, role)
	assert.True(t, mr.Exists(cache.UserRoleKey(user.User.ID)))

	_, err = svc.ChangeRole(ctx, models.Identity{ID: user.User.ID, Role: models.RoleReader}, user.User.ID, models.RoleAdmin)
	assertCode(t, err, models.CodeForbidden)
	_, err = svc.ChangeRole(ctx, adminID, user.User.ID, "overlord")
	assertCode(t, err, models.CodeValidation)
	_, err = svc.ChangeRole(ctx, adminID, 9999, models.RoleResearcher)
	assertCode(t, err, models.CodeNotFound)
	_, err = svc.ChangeRole(ctx, adminID, adminID.ID, models.RoleReader)
	assertCode(t, err, models.CodeValidation)

	cached := cache.ResponseKey("GET", "/api/posts/1", "", user.User.ID)
	require.NoError(t, mr.Set(cached, "{}"))

	updated, err := svc.ChangeRole(ctx, adminID, user.User.ID, models.RoleResearcher)
	require.NoError(t, err)
	assert.Equal(t, models.RoleResearcher, updated.Role)
	assert.False(t, mr.Exists(cache.UserRoleKey(user.User.ID)), "role cache dropped on change")
	assert.False(t, mr.Exists(cached), "responses rendered under the old role are dropped")

	role, err = svc.ResolveRole(ctx, user.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleResearcher, role)

	_, err = svc.ResolveRole(ctx, 9999)
	assert.True(t, repository.IsNotFound(err))

	me, err := svc.Me(ctx, models.Identity{ID: user.User.ID})
	require.NoError(t, err)
	assert.Equal(t, "grace", me.Username)
	_, err = svc.Me(ctx, models.Identity{})
	assertCode(t, err, models.CodeUnauthorized)
}
