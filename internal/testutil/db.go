// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"folio/internal/database"
	"folio/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewTestDB opens an isolated in-memory SQLite database with the full schema.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:folio_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given role. The password is "password123".
func CreateUser(t testing.TB, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
		Role:     role,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreateCategory inserts a category whose slug is derived from name by the caller.
func CreateCategory(t testing.TB, db *gorm.DB, name, slug string) *models.Category {
	t.Helper()

	c := &models.Category{Name: name, Slug: slug}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}
