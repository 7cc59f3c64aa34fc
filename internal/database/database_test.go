package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"folio/internal/config"
	"folio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	require.NoError(t, configurePool(db, &config.Config{DBMaxOpenConns: 10, DBMaxIdleConns: 5}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestMigrate_CreatesSchema(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, Migrate(db))

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&models.PostLike{}, "idx_post_likes_post_user"))
}

func TestSchemaStatus(t *testing.T) {
	db := openSQLite(t)
	for _, table := range SchemaStatus(db) {
		assert.False(t, table.Exists, table.Name)
	}

	require.NoError(t, Migrate(db))
	status := SchemaStatus(db)
	require.Len(t, status, len(PersistentModels()))
	names := make([]string, 0, len(status))
	for _, table := range status {
		assert.True(t, table.Exists, table.Name)
		names = append(names, table.Name)
	}
	assert.Contains(t, names, "posts")
	assert.Contains(t, names, "post_likes")
}

func TestMigrate_SlugUniqueViolationIsTranslated(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, Migrate(db))

	author := models.User{Username: "u", Email: "u@example.com", Password: "x", Role: models.RoleResearcher}
	require.NoError(t, db.Create(&author).Error)
	cat := models.Category{Name: "Biology", Slug: "biology"}
	require.NoError(t, db.Create(&cat).Error)

	p1 := models.Post{Slug: "same", Title: "A", Content: "a", CategoryID: cat.ID, AuthorID: author.ID, Status: models.PostStatusDraft}
	require.NoError(t, db.Create(&p1).Error)

	p2 := p1
	p2.ID = 0
	err := db.Create(&p2).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)
}

func TestReadReplicaRegistry(t *testing.T) {
	t.Cleanup(func() { SetReadDB(nil) })

	assert.Nil(t, GetReadDB())
	db := openSQLite(t)
	SetReadDB(db)
	assert.Same(t, db, GetReadDB())

	require.NoError(t, ConnectReadReplica(&config.Config{}), "no replica host is a no-op")
	assert.Same(t, db, GetReadDB())
}

func TestCustomGormLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "missing rows are not errors")

	l.Trace(ctx, time.Now(), sql, errors.New("relation does not exist"))
	assert.Contains(t, buf.String(), "GORM query error")

	buf.Reset()
	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "GORM slow query")

	buf.Reset()
	l.LogMode(logger.Silent).Trace(ctx, time.Now().Add(-time.Second), sql, errors.New("x"))
	assert.Empty(t, buf.String())
}
