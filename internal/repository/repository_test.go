package repository

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"campusfeed/internal/models"
	"campusfeed/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return gormDB, mock
}

var base = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func TestUserRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testutil.NewSQLiteDB(t))

	u := &models.User{Username: "alice", Password: "hash", Nickname: "Alice", Avatar: "/a.png"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, "hash", byName.Password)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", byID.Nickname)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Create(ctx, &models.User{Username: "alice", Password: "x", Nickname: "dup"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewUserRepository(db)
	alice := testutil.CreateUser(t, db, "alice")
	testutil.CreateUser(t, db, "bob")

	err := repo.UpdateProfile(ctx, alice.ID, &models.ProfileUpdate{
		Nickname: strPtr("Ali"),
		School:   strPtr("North Campus"),
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ali", got.Nickname)
	assert.Equal(t, "North Campus", got.School)
	assert.Equal(t, "alice", got.Username, "unset fields stay untouched")

	err = repo.UpdateProfile(ctx, alice.ID, &models.ProfileUpdate{Username: strPtr("bob")})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = repo.UpdateProfile(ctx, 9999, &models.ProfileUpdate{Bio: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	taken, err := repo.UsernameTaken(ctx, "bob", alice.ID)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.UsernameTaken(ctx, "alice", alice.ID)
	require.NoError(t, err)
	assert.False(t, taken, "own username is not taken")
}

func TestUserRepository_UpdateProfileSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET nickname = $1, phone = $2, updated_at = $3 WHERE id = $4`)).
		WithArgs("Neo", "13800000000", sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateProfile(context.Background(), 5, &models.ProfileUpdate{
		Phone:    strPtr("13800000000"),
		Nickname: strPtr("Neo"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateMapsPostgresUniqueViolation(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &models.User{Username: "alice"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_VisibilityAndOrdering(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	older := testutil.CreatePost(t, db, alice.ID, "older public", models.VisibilityPublic, base)
	hidden := testutil.CreatePost(t, db, alice.ID, "private one", models.VisibilityPrivate, base.Add(time.Minute))
	newer := testutil.CreatePost(t, db, bob.ID, "newer public", models.VisibilityPublic, base.Add(2*time.Minute))

	feed, err := repo.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, newer.ID, feed[0].ID)
	assert.Equal(t, older.ID, feed[1].ID)
	assert.Equal(t, "bob", feed[0].Username)
	assert.Equal(t, "nick-bob", feed[0].Nickname)

	_, err = repo.GetVisible(ctx, hidden.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetVisible(ctx, hidden.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	own, err := repo.GetVisible(ctx, hidden.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "private one", own.Content)
	_, err = repo.GetVisible(ctx, 12345, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	mine, err := repo.ListByUser(ctx, alice.ID, true)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	theirs, err := repo.ListByUser(ctx, alice.ID, false)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, older.ID, theirs[0].ID)
}

func TestPostRepository_Create(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	alice := testutil.CreateUser(t, db, "alice")

	p := &models.Post{UserID: alice.ID, Content: "hello campus", ImageURL: "/uploads/x.png", Location: "Library"}
	require.NoError(t, repo.Create(ctx, p))
	assert.NotZero(t, p.ID)
	assert.Equal(t, models.VisibilityPublic, p.Visibility)

	view, err := repo.GetVisible(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/x.png", view.ImageURL)
	assert.Equal(t, "Library", view.Location)
}

func TestPostRepository_ToggleLikeTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, alice.ID, "like me", models.VisibilityPublic, base)

	_, err := repo.ToggleLike(ctx, post.ID, bob.ID)
	require.NoError(t, err)

	before, err := repo.LikeInfo(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), before.LikeCount)
	assert.False(t, before.IsLiked)

	first, err := repo.ToggleLike(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeActionLiked, first.Action)
	assert.Equal(t, int64(2), first.LikeCount)
	assert.True(t, first.IsLiked)

	second, err := repo.ToggleLike(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeActionUnliked, second.Action)

	after, err := repo.LikeInfo(ctx, post.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, *before, *after)
}

func TestPostRepository_ConcurrentTogglesKeepOneRowPerPair(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice.ID, "race", models.VisibilityPublic, base)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ToggleLike(ctx, post.ID, alice.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var rows int64
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ? AND user_id = ?", post.ID, alice.ID).Count(&rows).Error)
	assert.Equal(t, int64(0), rows, "an even number of toggles ends unliked")
}

func TestPostRepository_ListLikedBy(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	alice := testutil.CreateUser(t, db, "alice")
	p1 := testutil.CreatePost(t, db, alice.ID, "first", models.VisibilityPublic, base)
	p2 := testutil.CreatePost(t, db, alice.ID, "second", models.VisibilityPublic, base.Add(time.Minute))
	hidden := testutil.CreatePost(t, db, alice.ID, "hidden", models.VisibilityPrivate, base)

	require.NoError(t, db.Create(&models.Like{PostID: p2.ID, UserID: alice.ID, CreatedAt: base}).Error)
	require.NoError(t, db.Create(&models.Like{PostID: p1.ID, UserID: alice.ID, CreatedAt: base.Add(time.Hour)}).Error)
	require.NoError(t, db.Create(&models.Like{PostID: hidden.ID, UserID: alice.ID, CreatedAt: base.Add(2 * time.Hour)}).Error)

	liked, err := repo.ListLikedBy(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, liked, 2)
	assert.Equal(t, p1.ID, liked[0].ID, "most recently liked first")
	assert.Equal(t, p2.ID, liked[1].ID)
}

func TestPostRepository_ToggleLikeSQL(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM likes WHERE post_id = $1 AND user_id = $2`)).
		WithArgs(3, 9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (post_id, user_id) DO NOTHING`)).
		WithArgs(3, 9, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM likes WHERE post_id = $2`)).
		WithArgs(9, 3).
		WillReturnRows(sqlmock.NewRows([]string{"like_count", "mine"}).AddRow(4, 1))
	mock.ExpectCommit()

	res, err := repo.ToggleLike(context.Background(), 3, 9)
	require.NoError(t, err)
	assert.Equal(t, models.LikeActionLiked, res.Action)
	assert.Equal(t, int64(4), res.LikeCount)
	assert.True(t, res.IsLiked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewCommentRepository(db)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, alice.ID, "discuss", models.VisibilityPublic, base)

	first, err := repo.Create(ctx, &models.Comment{PostID: post.ID, UserID: bob.ID, Content: "first!"})
	require.NoError(t, err)
	assert.Equal(t, "bob", first.Username)
	assert.Equal(t, "first!", first.Content)

	second, err := repo.Create(ctx, &models.Comment{PostID: post.ID, UserID: alice.ID, Content: "thanks"})
	require.NoError(t, err)

	list, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)

	empty, err := repo.ListByPost(ctx, 999)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMessageRepository_ChatListOrderingAndUnread(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewMessageRepository(db)
	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")
	c := testutil.CreateUser(t, db, "c")

	testutil.CreateMessage(t, db, b.ID, a.ID, "hi a", base)
	testutil.CreateMessage(t, db, a.ID, b.ID, "hi b", base.Add(time.Minute))
	testutil.CreateMessage(t, db, c.ID, a.ID, "c one", base.Add(2*time.Minute))
	testutil.CreateMessage(t, db, c.ID, a.ID, "c two", base.Add(3*time.Minute))
	testutil.CreateMessage(t, db, b.ID, c.ID, "not mine", base.Add(4*time.Minute))

	chats, err := repo.ChatList(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	assert.Equal(t, c.ID, chats[0].ChatUserID)
	assert.Equal(t, "c two", chats[0].LastMessage)
	assert.Equal(t, int64(2), chats[0].UnreadCount)
	assert.Equal(t, c.ID, chats[0].LastSenderID)
	assert.True(t, chats[0].LastMessageTime.Equal(base.Add(3*time.Minute)))

	assert.Equal(t, b.ID, chats[1].ChatUserID)
	assert.Equal(t, "hi b", chats[1].LastMessage)
	assert.Equal(t, int64(1), chats[1].UnreadCount)
	assert.Equal(t, "nick-b", chats[1].Nickname)
}

func TestMessageRepository_MarkReadIsScopedToPair(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewMessageRepository(db)
	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")
	c := testutil.CreateUser(t, db, "c")

	testutil.CreateMessage(t, db, b.ID, a.ID, "b1", base)
	testutil.CreateMessage(t, db, b.ID, a.ID, "b2", base.Add(time.Second))
	fromC := testutil.CreateMessage(t, db, c.ID, a.ID, "c1", base.Add(2*time.Second))
	toB := testutil.CreateMessage(t, db, a.ID, b.ID, "a1", base.Add(3*time.Second))

	n, err := repo.MarkRead(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var stillUnread models.Message
	require.NoError(t, db.First(&stillUnread, fromC.ID).Error)
	assert.False(t, stillUnread.IsRead)
	var outgoing models.Message
	require.NoError(t, db.First(&outgoing, toB.ID).Error)
	assert.False(t, outgoing.IsRead, "messages a sent are untouched")

	unread, err := repo.UnreadCount(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	n, err = repo.MarkRead(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMessageRepository_CreateAndConversation(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteDB(t)
	repo := NewMessageRepository(db)
	a := testutil.CreateUser(t, db, "a")
	b := testutil.CreateUser(t, db, "b")
	c := testutil.CreateUser(t, db, "c")

	testutil.CreateMessage(t, db, b.ID, a.ID, "earlier", base)
	testutil.CreateMessage(t, db, c.ID, a.ID, "other chat", base)

	view, err := repo.Create(ctx, &models.Message{SenderID: a.ID, ReceiverID: b.ID, Content: "reply"})
	require.NoError(t, err)
	assert.Equal(t, models.MessageTypeText, view.MessageType)
	assert.False(t, view.IsRead)
	assert.Equal(t, "nick-a", view.SenderNickname)
	assert.Equal(t, "nick-b", view.ReceiverNickname)

	conv, err := repo.Conversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, conv, 2)
	assert.Equal(t, "earlier", conv[0].Content)
	assert.Equal(t, "reply", conv[1].Content)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(nil))
}
