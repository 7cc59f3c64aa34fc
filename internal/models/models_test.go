package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagList_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		expected TagList
	}{
		{"array", `["gut", " microbiome ", ""]`, TagList{"gut", "microbiome"}},
		{"comma string", `"gut, microbiome,,biology"`, TagList{"gut", "microbiome", "biology"}},
		{"case-insensitive duplicates", `["Gut","gut","GUT"]`, TagList{"Gut"}},
		{"null", `null`, TagList{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got TagList
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &got))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTagList_UnmarshalJSON_RejectsObjects(t *testing.T) {
	var got TagList
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &got))
}

func TestAppError_StatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    *AppError
		status int
	}{
		{NewValidationError("bad"), http.StatusBadRequest},
		{NewUnauthorizedError("who"), http.StatusUnauthorized},
		{NewForbiddenError("no"), http.StatusForbidden},
		{NewNotFoundError("Post", 1), http.StatusNotFound},
		{NewConflictError("dup"), http.StatusConflict},
		{NewInternalError(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, tt.err.StatusCode(), tt.err.Code)
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", NewNotFoundError("Post", 7))
	appErr := AsAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, CodeNotFound, appErr.Code)
	assert.True(t, HasCode(wrapped, CodeNotFound))

	raw := AsAppError(errors.New("connection reset"))
	assert.Equal(t, CodeInternal, raw.Code)
	assert.Equal(t, "Internal server error", raw.Message)

	assert.Nil(t, AsAppError(nil))
}

func TestIdentity(t *testing.T) {
	assert.True(t, Identity{}.Anonymous())
	assert.False(t, Identity{Role: RoleAdmin}.IsAdmin(), "anonymous callers are never admins")
	assert.True(t, Identity{ID: 1, Role: RoleAdmin}.IsAdmin())
	assert.True(t, Identity{ID: 1, Role: RoleResearcher}.CanAuthor())
	assert.False(t, Identity{ID: 1, Role: RoleReader}.CanAuthor())
}

func TestPost_PubliclyVisible(t *testing.T) {
	p := &Post{Status: PostStatusPublished}
	assert.True(t, p.PubliclyVisible())
	p.IsOffensive = true
	assert.False(t, p.PubliclyVisible())
	p.IsOffensive = false
	p.Status = PostStatusArchived
	assert.False(t, p.PubliclyVisible())
}
