// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the coarse permission level of a user.
type Role string

const (
	RoleReader     Role = "reader"
	RoleResearcher Role = "researcher"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleReader, RoleResearcher, RoleAdmin:
		return true
	}
	return false
}

// User represents an account on the platform.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Role      Role           `gorm:"type:varchar(20);not null;default:reader;index" json:"role"`
	Bio       string         `json:"bio"`
	Avatar    string         `json:"avatar"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Identity is the caller resolved by the auth layer. The zero value is an
// anonymous caller.
type Identity struct {
	ID   uint
	Role Role
}

// Anonymous reports whether no user is attached.
func (i Identity) Anonymous() bool {
	return i.ID == 0
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.ID != 0 && i.Role == RoleAdmin
}

// CanAuthor reports whether the caller may write posts.
func (i Identity) CanAuthor() bool {
	return i.ID != 0 && (i.Role == RoleResearcher || i.Role == RoleAdmin)
}

// UserSummary is the public projection of a user embedded in other views.
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Role     Role   `json:"role"`
}

// Summary returns the public projection of u.
func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Username: u.Username, Avatar: u.Avatar, Role: u.Role}
}
