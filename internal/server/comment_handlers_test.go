package server

import (
	"fmt"
	"net/http"
	"testing"

	"folio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentThread(t *testing.T) {
	env := newTestEnv(t, nil)
	post := env.createPost(env.author, "Discuss This", models.PostStatusPublished)
	path := fmt.Sprintf("/api/posts/%d/comments", post.ID)

	resp, _ := env.do(http.MethodPost, path, map[string]any{"content": "hello"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = env.do(http.MethodPost, path, map[string]any{"content": "   "}, env.reader)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(http.MethodPost, path, map[string]any{"content": "Great read"}, env.reader)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Message)
	root := decodeData[*models.CommentNode](t, body)

	resp, body = env.do(http.MethodPost, path, map[string]any{"content": "Thanks!", "parent_id": root.ID}, env.author)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body.Message)
	reply := decodeData[*models.CommentNode](t, body)

	resp, _ = env.do(http.MethodPost, path, map[string]any{"content": "Lost", "parent_id": 9999}, env.author)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, body = env.do(http.MethodGet, path, nil, nil)
	thread := decodeData[[]*models.CommentNode](t, body)
	require.Len(t, thread, 1)
	require.Len(t, thread[0].Replies, 1)
	assert.Equal(t, reply.ID, thread[0].Replies[0].ID)
	require.NotNil(t, thread[0].Author)
	assert.Equal(t, "rita", thread[0].Author.Username)

	_, body = env.do(http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil, nil)
	assert.Equal(t, 2, decodeData[*models.PostView](t, body).CommentsCount)

	commentPath := fmt.Sprintf("/api/comments/%d", root.ID)
	resp, _ = env.do(http.MethodDelete, commentPath, nil, env.author)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = env.do(http.MethodDelete, commentPath, nil, env.reader)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = env.do(http.MethodGet, path, nil, nil)
	assert.Empty(t, decodeData[[]*models.CommentNode](t, body))
	_, body = env.do(http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil, nil)
	assert.Equal(t, 0, decodeData[*models.PostView](t, body).CommentsCount)
}

func TestCommentsOnHiddenPost(t *testing.T) {
	env := newTestEnv(t, nil)
	draft := env.createPost(env.author, "Not Yet", models.PostStatusDraft)
	path := fmt.Sprintf("/api/posts/%d/comments", draft.ID)

	resp, _ := env.do(http.MethodGet, path, nil, env.reader)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(http.MethodPost, path, map[string]any{"content": "early"}, env.reader)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
