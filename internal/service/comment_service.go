package service

import (
	"context"
	"fmt"
	"strings"

	"folio/internal/cache"
	"folio/internal/events"
	"folio/internal/models"
	"folio/internal/repository"
)

const maxCommentLen = 5000

// CommentService manages threaded comments on posts.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	events   events.Publisher
	cache    cache.Invalidator
}

// NewCommentService returns a CommentService. A nil publisher or invalidator
// is replaced by a no-op.
func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	publisher events.Publisher,
	invalidator cache.Invalidator,
) *CommentService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if invalidator == nil {
		invalidator = cache.NopInvalidator{}
	}
	return &CommentService{comments: comments, posts: posts, events: publisher, cache: invalidator}
}

// CreateCommentInput is the payload for a new comment.
type CreateCommentInput struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parent_id"`
}

func (s *CommentService) Create(ctx context.Context, viewer models.Identity, postID uint, in CreateCommentInput) (*models.CommentNode, error) {
	body := strings.TrimSpace(in.Content)
	if body == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(body) > maxCommentLen {
		return nil, models.NewValidationError(fmt.Sprintf("Comment too long (max %d characters)", maxCommentLen))
	}

	post, err := s.visiblePost(ctx, viewer, postID)
	if err != nil {
		return nil, err
	}
	if viewer.Anonymous() {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	if in.ParentID != nil {
		parent, err := s.comments.GetByID(ctx, *in.ParentID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, models.NewInternalError(err)
		}
		if parent == nil || parent.PostID != post.ID {
			return nil, models.NewValidationError("Parent comment does not belong to this post")
		}
	}

	comment := &models.Comment{PostID: post.ID, AuthorID: viewer.ID, ParentID: in.ParentID, Content: body}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}

	if viewer.ID != post.AuthorID {
		s.events.Publish(ctx, events.Event{
			Type:      events.CommentCreated,
			PostID:    post.ID,
			AuthorID:  post.AuthorID,
			ActorID:   viewer.ID,
			CommentID: comment.ID,
			Title:     post.Title,
		})
	}
	invalidateResponses(ctx, s.cache)

	stored, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, mapRepoError(err, "Comment", comment.ID)
	}
	return &models.CommentNode{Comment: stored, Author: stored.Author.Summary(), Replies: []*models.CommentNode{}}, nil
}

// List returns the comment tree of a post the viewer may see.
func (s *CommentService) List(ctx context.Context, viewer models.Identity, postID uint) ([]*models.CommentNode, error) {
	if _, err := s.visiblePost(ctx, viewer, postID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return buildThread(comments), nil
}

// Delete removes a comment and its replies. Allowed for the comment's author
// and admins.
func (s *CommentService) Delete(ctx context.Context, viewer models.Identity, id uint) error {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return mapRepoError(err, "Comment", id)
	}
	if viewer.Anonymous() {
		return models.NewUnauthorizedError("Authentication required")
	}
	if comment.AuthorID != viewer.ID && !viewer.IsAdmin() {
		return models.NewForbiddenError("You can only delete your own comments")
	}
	if err := s.comments.Delete(ctx, id); err != nil {
		return mapRepoError(err, "Comment", id)
	}
	invalidateResponses(ctx, s.cache)
	return nil
}

func (s *CommentService) visiblePost(ctx context.Context, viewer models.Identity, id uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "Post", id)
	}
	if !canView(viewer, post) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

// buildThread nests comments under their parents. Input must be oldest first;
// replies whose parent is missing are promoted to the top level.
func buildThread(comments []*models.Comment) []*models.CommentNode {
	nodes := make(map[uint]*models.CommentNode, len(comments))
	for _, c := range comments {
		nodes[c.ID] = &models.CommentNode{Comment: c, Author: c.Author.Summary(), Replies: []*models.CommentNode{}}
	}

	roots := make([]*models.CommentNode, 0, len(comments))
	for _, c := range comments {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
