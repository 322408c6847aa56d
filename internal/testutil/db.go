// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"campusfeed/internal/database"
	"campusfeed/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// NewSQLiteDB opens a private in-memory SQLite database with the schema applied.
// The pool is pinned to one connection so every statement sees the same database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:campusfeed_test_%d?mode=memory&cache=private", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// CreateUser inserts a user with a placeholder password hash.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Password: "$2a$04$placeholderplaceholderplaceholderplaceholderpla",
		Nickname: "nick-" + username,
		Avatar:   "/images/avatars/avatar1.png",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// CreatePost inserts a post authored by userID.
func CreatePost(t *testing.T, db *gorm.DB, userID uint, content, visibility string, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		UserID:     userID,
		Content:    content,
		Visibility: visibility,
		CreatedAt:  at.UTC(),
		UpdatedAt:  at.UTC(),
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// CreateMessage inserts a message with an explicit timestamp.
func CreateMessage(t *testing.T, db *gorm.DB, from, to uint, content string, at time.Time) *models.Message {
	t.Helper()
	m := &models.Message{
		SenderID:    from,
		ReceiverID:  to,
		Content:     content,
		MessageType: models.MessageTypeText,
		CreatedAt:   at.UTC(),
	}
	require.NoError(t, db.Create(m).Error)
	return m
}
