package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func testMigrations(t *testing.T) []Migration {
	t.Helper()
	fsys := fstest.MapFS{
		"migrations/000001_create_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)")},
		"migrations/000001_create_notes.down.sql": {Data: []byte("DROP TABLE notes")},
		"migrations/000002_add_tags.up.sql":       {Data: []byte("CREATE TABLE tags (id INTEGER PRIMARY KEY, name TEXT NOT NULL)")},
		"migrations/000002_add_tags.down.sql":     {Data: []byte("DROP TABLE tags")},
		"migrations/README.md":                    {Data: []byte("ignored")},
	}
	ms, err := LoadMigrations(fsys)
	require.NoError(t, err)
	return ms
}

func TestEmbeddedMigrations(t *testing.T) {
	ms := GetMigrations()
	require.NotEmpty(t, ms)
	assert.Equal(t, 1, ms[0].Version)
	assert.Equal(t, "init_schema", ms[0].Name)
	assert.Contains(t, ms[0].UpScript, "CREATE TABLE IF NOT EXISTS messages")
	assert.Contains(t, ms[0].UpScript, "idx_likes_post_user ON likes (post_id, user_id)")
	assert.Contains(t, ms[0].DownScript, "DROP TABLE IF EXISTS users")
	assert.Equal(t, "000001_init_schema", ms[0].String())
	assert.NotNil(t, GetMigrationByVersion(1))
	assert.Nil(t, GetMigrationByVersion(999))
}

func TestLoadMigrations_Errors(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{
		"migrations/000001_x.up.sql": {Data: []byte("SELECT 1")},
	})
	assert.Error(t, err, "missing down script")

	_, err = LoadMigrations(fstest.MapFS{
		"migrations/abc_x.up.sql":   {Data: []byte("SELECT 1")},
		"migrations/abc_x.down.sql": {Data: []byte("SELECT 1")},
	})
	assert.Error(t, err, "non-numeric version")
}

func TestRunner_UpStatusDown(t *testing.T) {
	ctx := context.Background()
	db := setupSQLite(t)
	r := NewRunner(db, testMigrations(t))

	require.NoError(t, r.Up(ctx))
	require.NoError(t, r.Up(ctx), "second run is a no-op")

	status, err := r.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.True(t, status[0].Applied)
	assert.True(t, status[1].Applied)
	assert.NoError(t, db.Exec("INSERT INTO tags (name) VALUES ('x')").Error)

	rolled, err := r.Down(ctx)
	require.NoError(t, err)
	assert.True(t, rolled)
	assert.Error(t, db.Exec("INSERT INTO tags (name) VALUES ('x')").Error)

	status, err = r.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status[0].Applied)
	assert.False(t, status[1].Applied)

	_, err = r.Down(ctx)
	require.NoError(t, err)
	rolled, err = r.Down(ctx)
	require.NoError(t, err)
	assert.False(t, rolled)
}

func TestRunner_RejectsUnknownAppliedVersion(t *testing.T) {
	ctx := context.Background()
	db := setupSQLite(t)
	r := NewRunner(db, testMigrations(t))
	require.NoError(t, r.Up(ctx))

	require.NoError(t, db.Create(&MigrationLog{Version: 77, Name: "ghost"}).Error)
	err := r.Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000077")
}

func TestRunner_FailedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	db := setupSQLite(t)
	r := NewRunner(db, []Migration{{Version: 1, Name: "broken", UpScript: "CREATE TABL nope", DownScript: ""}})

	require.Error(t, r.Up(ctx))
	status, err := r.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status[0].Applied)
}

func TestConfigure(t *testing.T) {
	db := setupSQLite(t)
	require.NoError(t, Configure(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, Ping(context.Background(), db))
}

func TestSlogGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogGormLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	fc := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), fc, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "record-not-found is ignored")

	l.Trace(context.Background(), time.Now(), fc, errors.New("boom"))
	assert.Contains(t, buf.String(), "query error")

	buf.Reset()
	l.Trace(context.Background(), time.Now().Add(-time.Second), fc, nil)
	assert.Contains(t, buf.String(), "slow query")

	buf.Reset()
	l.LogMode(logger.Silent).Trace(context.Background(), time.Now().Add(-time.Second), fc, errors.New("boom"))
	assert.Empty(t, buf.String())
}
