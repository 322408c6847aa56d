package seed

import (
	"context"
	"testing"

	"campusfeed/internal/models"
	"campusfeed/internal/testutil"
	"campusfeed/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.NumUsers = 6
	opts.NumPosts = 25
	opts.Conversations = 5
	opts.SkipBcrypt = true
	opts.RandomSeed = 42
	return opts
}

func TestSeed_CreatesConsistentDataset(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	summary, err := Seed(context.Background(), db, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Users)
	assert.Equal(t, 25, summary.Posts)

	count := func(model any) int {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return int(n)
	}
	assert.Equal(t, summary.Users, count(&models.User{}))
	assert.Equal(t, summary.Posts, count(&models.Post{}))
	assert.Equal(t, summary.Likes, count(&models.Like{}))
	assert.Equal(t, summary.Comments, count(&models.Comment{}))
	assert.Equal(t, summary.Messages, count(&models.Message{}))

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	for _, p := range posts {
		assert.NoError(t, validation.ValidatePostContent(p.Content))
		assert.Contains(t, []string{models.VisibilityPublic, models.VisibilityPrivate}, p.Visibility)
	}

	var privateLikes int64
	require.NoError(t, db.Table("likes").
		Joins("JOIN posts ON posts.id = likes.post_id").
		Where("posts.visibility = ?", models.VisibilityPrivate).
		Count(&privateLikes).Error)
	assert.Zero(t, privateLikes, "private posts are never liked")

	var selfMessages int64
	require.NoError(t, db.Model(&models.Message{}).Where("sender_id = receiver_id").Count(&selfMessages).Error)
	assert.Zero(t, selfMessages)
}

func TestSeed_UsersPassValidation(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	_, err := Seed(context.Background(), db, testOptions())
	require.NoError(t, err)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	for _, u := range users {
		assert.NoError(t, validation.ValidateUsername(u.Username))
		assert.NoError(t, validation.ValidatePhone(u.Phone))
		assert.NoError(t, validation.ValidateEmail(u.Email))
		assert.NoError(t, validation.ValidateGender(u.Gender))
		assert.Equal(t, DefaultPassword, u.Password, "SkipBcrypt stores the plain password")
	}
}

func TestSeed_CleanReplacesData(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	testutil.CreateUser(t, db, "leftover")

	_, err := Seed(context.Background(), db, testOptions())
	require.NoError(t, err)

	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("username = ?", "leftover").Count(&n).Error)
	assert.Zero(t, n)

	require.NoError(t, ClearAll(db))
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestSeed_NoUsers(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	opts := testOptions()
	opts.NumUsers = 0

	summary, err := Seed(context.Background(), db, opts)
	require.NoError(t, err)
	assert.Equal(t, &Summary{}, summary)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "hé", truncate("héllo", 2))
}
