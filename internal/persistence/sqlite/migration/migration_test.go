package migration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/002_add_rooms.sql": {Data: []byte(`
-- rooms table
CREATE TABLE rooms (name TEXT PRIMARY KEY);
INSERT INTO rooms (name) VALUES ('Room A');
`)},
		"migrations/001_initial_schema.sql": {Data: []byte(`CREATE TABLE users (id TEXT PRIMARY KEY);`)},
		"migrations/README.md":              {Data: []byte("ignored")},
	}
}

func openTestDB(t *testing.T) *Manager {
	t.Helper()
	db, err := Open(context.Background(), TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewManager(NewScanner(testFS(), "migrations"), NewSQLiteExecutor(db), nil)
}

func TestScannerOrdersByVersion(t *testing.T) {
	t.Parallel()

	migrations, err := NewScanner(testFS(), "migrations").Scan()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "initial schema", migrations[0].Description)
	assert.Equal(t, "002", migrations[1].Version)
	assert.NotEmpty(t, migrations[1].Checksum)
}

func TestScannerRejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	_, err := NewScanner(fstest.MapFS{"m/abc.sql": {Data: []byte("SELECT 1")}}, "m").Scan()
	assert.True(t, errors.Is(err, ErrInvalidMigrationFile))

	_, err = NewScanner(fstest.MapFS{
		"m/001_a.sql": {Data: []byte("SELECT 1")},
		"m/001_b.sql": {Data: []byte("SELECT 2")},
	}, "m").Scan()
	assert.True(t, errors.Is(err, ErrDuplicateVersion))
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := splitStatements("-- header\nCREATE TABLE a (id INTEGER);\n\n-- note\nCREATE INDEX idx ON a (id);\n")
	assert.Equal(t, []string{"CREATE TABLE a (id INTEGER)", "CREATE INDEX idx ON a (id)"}, got)
}

func TestManagerRunIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	manager := openTestDB(t)

	require.NoError(t, manager.Run(ctx))
	pending, err := manager.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, manager.Run(ctx))

	applied, err := manager.executor.GetAppliedVersions(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "001", applied[0].Version)
	assert.Equal(t, "002", applied[1].Version)
}

func TestManagerRollsBackFailedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Open(ctx, TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	files := fstest.MapFS{
		"m/001_broken.sql": {Data: []byte("CREATE TABLE ok (id INTEGER);\nCREATE TABLE broken (;")},
	}
	manager := NewManager(NewScanner(files, "m"), NewSQLiteExecutor(db), nil)
	require.Error(t, manager.Run(ctx))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE name = 'ok'`).Scan(&count))
	assert.Zero(t, count, "partial migration must be rolled back")

	applied, err := NewSQLiteExecutor(db).GetAppliedVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestManagerDetectsEditedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Open(ctx, TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	original := fstest.MapFS{"m/001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER)")}}
	require.NoError(t, NewManager(NewScanner(original, "m"), NewSQLiteExecutor(db), nil).Run(ctx))

	edited := fstest.MapFS{"m/001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER, name TEXT)")}}
	err = NewManager(NewScanner(edited, "m"), NewSQLiteExecutor(db), nil).Run(ctx)
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
}

func TestSQLiteConfigValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultSQLiteConfig("x.db").Validate())
	assert.Error(t, SQLiteConfig{}.Validate())

	cfg := DefaultSQLiteConfig("x.db")
	cfg.JournalMode = "SIDEWAYS"
	assert.Error(t, cfg.Validate())

	assert.Contains(t, DefaultSQLiteConfig("x.db").DSN(), "foreign_keys%281%29")
}
