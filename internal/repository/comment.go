package repository

import (
	"context"

	"folio/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts the comment and bumps the post's comment counter.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + 1")).Error
	})
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("Author").First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListByPost returns every comment of a post, oldest first.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := readDB(r.db).WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	return comments, err
}

// Delete removes a comment with all nested replies and decrements the post
// counter by the number of rows removed.
func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.Comment
		if err := tx.Select("id", "post_id").First(&root, id).Error; err != nil {
			return err
		}

		ids := []uint{root.ID}
		frontier := []uint{root.ID}
		for len(frontier) > 0 {
			var children []uint
			if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &children).Error; err != nil {
				return err
			}
			ids = append(ids, children...)
			frontier = children
		}

		res := tx.Where("id IN ?", ids).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		return tx.Model(&models.Post{}).Where("id = ?", root.PostID).
			UpdateColumn("comments_count", gorm.Expr(
				"CASE WHEN comments_count > ? THEN comments_count - ? ELSE 0 END",
				res.RowsAffected, res.RowsAffected,
			)).Error
	})
}
