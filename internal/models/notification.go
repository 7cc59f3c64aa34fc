package models

import "time"

// Notification is a persisted message for a user about activity on their posts.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	Type      string     `gorm:"type:varchar(40);not null" json:"type"`
	PostID    *uint      `gorm:"index" json:"post_id,omitempty"`
	ActorID   *uint      `json:"actor_id,omitempty"`
	Message   string     `gorm:"type:text;not null" json:"message"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
