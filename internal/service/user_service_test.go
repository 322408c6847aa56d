package service

import (
	"context"
	"strings"
	"testing"

	"campusfeed/internal/cache"
	"campusfeed/internal/models"
	"campusfeed/internal/repository"
	"campusfeed/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newUserFixture(t *testing.T) (*UserService, *miniredis.Miniredis, *models.User, *models.User) {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	return NewUserService(repository.NewUserRepository(db), cache.NewStore(rdb)), mr, alice, bob
}

func TestUserService_ProfileIsCached(t *testing.T) {
	svc, mr, alice, _ := newUserFixture(t)

	p, err := svc.Profile(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)
	assert.True(t, mr.Exists(cache.UserKey(alice.ID)))

	_, err = svc.Profile(context.Background(), 4242)
	assertAppError(t, err, models.CodeNotFound)
}

func TestUserService_UpdateProfile(t *testing.T) {
	svc, mr, alice, _ := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.Profile(ctx, alice.ID)
	require.NoError(t, err)

	got, err := svc.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{
		Nickname: strPtr(" Ally "),
		Email:    strPtr("ally@campus.edu"),
		Phone:    strPtr("13912345678"),
		Gender:   strPtr("female"),
		Bio:      strPtr("<i>hi</i>"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ally", got.Nickname)
	assert.Equal(t, "ally@campus.edu", got.Email)
	assert.Equal(t, "&lt;i&gt;hi&lt;/i&gt;", got.Bio)
	assert.Equal(t, "alice", got.Username)
	assert.False(t, mr.Exists(cache.UserKey(alice.ID)), "profile cache is invalidated")

	cleared, err := svc.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Email: strPtr("")})
	require.NoError(t, err)
	assert.Empty(t, cleared.Email)
}

func TestUserService_UpdateProfile_Validation(t *testing.T) {
	svc, _, alice, _ := newUserFixture(t)

	tests := []struct {
		name string
		in   models.ProfileUpdate
	}{
		{"username too long", models.ProfileUpdate{Username: strPtr(strings.Repeat("x", 51))}},
		{"nickname too long", models.ProfileUpdate{Nickname: strPtr(strings.Repeat("x", 101))}},
		{"bad email", models.ProfileUpdate{Email: strPtr("not-an-email")}},
		{"bad phone", models.ProfileUpdate{Phone: strPtr("12345678901")}},
		{"bad gender", models.ProfileUpdate{Gender: strPtr("robot")}},
		{"empty nickname", models.ProfileUpdate{Nickname: strPtr("  ")}},
		{"nothing to update", models.ProfileUpdate{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateProfile(context.Background(), alice.ID, tt.in)
			assertValidationError(t, err)
		})
	}
}

func TestUserService_UpdateProfile_UsernameConflicts(t *testing.T) {
	svc, _, alice, _ := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Username: strPtr("bob")})
	assertAppError(t, err, models.CodeUsernameTaken)

	got, err := svc.UpdateProfile(ctx, alice.ID, models.ProfileUpdate{Username: strPtr("alice")})
	require.NoError(t, err, "keeping your own username is not a conflict")
	assert.Equal(t, "alice", got.Username)

	_, err = svc.UpdateProfile(ctx, 999, models.ProfileUpdate{Bio: strPtr("ghost")})
	assertAppError(t, err, models.CodeNotFound)
}

func TestUserService_WorksWithoutCache(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	svc := NewUserService(repository.NewUserRepository(db), nil)

	p, err := svc.Profile(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, p.ID)
}

func TestUserService_UpdateProfile_LimitsEscapedLength(t *testing.T) {
	svc, _, alice, _ := newUserFixture(t)

	_, err := svc.UpdateProfile(context.Background(), alice.ID, models.ProfileUpdate{Username: strPtr(strings.Repeat("u", 46) + `"'`)})
	assertValidationError(t, err)

	_, err = svc.UpdateProfile(context.Background(), alice.ID, models.ProfileUpdate{Nickname: strPtr(strings.Repeat("n", 99) + "<")})
	assertValidationError(t, err)
}
