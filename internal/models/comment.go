package models

import "time"

// Comment is a reply on a post, optionally nested under another comment.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"-"`
	ParentID  *uint     `gorm:"index" json:"parent_id,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentNode is a comment with its replies attached.
type CommentNode struct {
	*Comment
	Author  *UserSummary   `json:"author,omitempty"`
	Replies []*CommentNode `json:"replies"`
}
