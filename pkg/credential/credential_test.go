package credential_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dmitrymomot/gatehouse/pkg/credential"
)

func TestStatic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	p := credential.NewStatic("username", map[string]credential.StaticUser{
		"alice": {Fields: map[string]string{"username": "alice"}, PasswordHash: "h1"},
		"bob":   {Fields: map[string]string{"username": "bob"}, PasswordHash: "h2", HasSecret: true},
	})
	require.Equal(t, "username", p.Key())

	rec, err := p.GetUser(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "h1", rec.PasswordHash)
	require.Equal(t, "alice", rec.Value("username"))
	require.Empty(t, rec.Value("missing"))

	_, err = p.GetUser(ctx, "mallory")
	require.ErrorIs(t, err, credential.ErrNotFound)
	require.Equal(t, 2, p.Calls())

	has, err := p.HasSecret(ctx, "bob")
	require.NoError(t, err)
	require.True(t, has)

	has, err = p.HasSecret(ctx, "alice")
	require.NoError(t, err)
	require.False(t, has)
}

func TestRecord_NilValue(t *testing.T) {
	t.Parallel()

	var rec *credential.Record
	require.Empty(t, rec.Value("id"))
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&credential.User{}))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestGORM(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	db := testDB(t)
	require.NoError(t, db.Create(&credential.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash-a"}).Error)
	require.NoError(t, db.Create(&credential.User{Username: "bob", Email: "bob@example.com", PasswordHash: "hash-b", TOTPSecret: "JBSWY3DP"}).Error)

	t.Run("lookup by username and email", func(t *testing.T) {
		p := credential.NewGORM(db)
		require.Equal(t, "id", p.Key())

		rec, err := p.GetUser(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, "hash-a", rec.PasswordHash)
		require.Equal(t, "1", rec.Value("id"))

		rec, err = p.GetUser(ctx, "bob@example.com")
		require.NoError(t, err)
		require.Equal(t, "bob", rec.Value("username"))
	})

	t.Run("unknown user", func(t *testing.T) {
		p := credential.NewGORM(db)

		_, err := p.GetUser(ctx, "mallory")
		require.ErrorIs(t, err, credential.ErrNotFound)

		_, err = p.GetUser(ctx, "")
		require.ErrorIs(t, err, credential.ErrNotFound)

		has, err := p.HasSecret(ctx, "mallory")
		require.NoError(t, err)
		require.False(t, has)
	})

	t.Run("second factor probe", func(t *testing.T) {
		p := credential.NewGORM(db, credential.WithIdentityKey("email"))
		require.Equal(t, "email", p.Key())

		has, err := p.HasSecret(ctx, "bob")
		require.NoError(t, err)
		require.True(t, has)

		has, err = p.HasSecret(ctx, "alice")
		require.NoError(t, err)
		require.False(t, has)
	})
}
