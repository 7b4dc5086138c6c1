// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"microblog/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewSQLiteDB opens an isolated in-memory SQLite database with the microblog
// tables migrated. The pool is pinned to one connection so every query sees
// the same memory database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:microblog_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
	))

	return db
}

// CreateUser inserts a user with a placeholder password digest.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "not-a-real-hash",
		IsActive: true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreatePost inserts a post owned by userID with an explicit creation time.
func CreatePost(t *testing.T, db *gorm.DB, userID uint, content string, createdAt time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		Content:   content,
		UserID:    userID,
		Sentiment: models.SentimentNeutral,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateFollow inserts a follow edge.
func CreateFollow(t *testing.T, db *gorm.DB, followerID, followedID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Follow{FollowerID: followerID, FollowedID: followedID}).Error)
}
