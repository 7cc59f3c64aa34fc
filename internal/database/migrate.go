package database

import (
	"fmt"

	"folio/internal/middleware"
	"folio/internal/models"

	"gorm.io/gorm"
)

// PersistentModels returns the authoritative set of schema-managed models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.PostLike{},
		&models.Comment{},
		&models.Notification{},
	}
}

// Migrate brings the schema up to date with PersistentModels.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	middleware.Logger.Info("Database migration completed")
	return nil
}

// TableStatus reports whether a model's table exists.
type TableStatus struct {
	Name   string
	Exists bool
}

// SchemaStatus lists every persistent model's table and whether it exists.
func SchemaStatus(db *gorm.DB) []TableStatus {
	migrator := db.Migrator()
	out := make([]TableStatus, 0, len(PersistentModels()))
	for _, m := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		name := fmt.Sprintf("%T", m)
		if err := stmt.Parse(m); err == nil {
			name = stmt.Schema.Table
		}
		out = append(out, TableStatus{Name: name, Exists: migrator.HasTable(m)})
	}
	return out
}
