package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaultsToSQLite(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Normalize())
	require.Equal(t, DriverSQLite, cfg.Driver)
	require.Equal(t, "data/credentials.db", cfg.Path)
	require.Equal(t, 1, cfg.MaxConnections)
	require.Equal(t, filepath.Join("migrations", "sqlite"), cfg.MigrationsPath())
	require.Equal(t, "sqlite://data/credentials.db", cfg.MigrateURL())
}

func TestNormalizePostgres(t *testing.T) {
	cfg := Config{Driver: "PostgreSQL", Host: "db", Name: "relay", User: "bot", Password: "p@ss"}
	require.NoError(t, cfg.Normalize())
	require.Equal(t, DriverPostgres, cfg.Driver)
	require.Equal(t, "5432", cfg.Port)
	require.Equal(t, 10, cfg.MaxConnections)
	require.Equal(t, "postgres://bot:p%40ss@db:5432/relay?sslmode=disable", cfg.MigrateURL())
	require.Equal(t, "db:5432/relay", cfg.Target())
	require.Contains(t, cfg.DSN(), "dbname=relay")
}

func TestNormalizeRejects(t *testing.T) {
	require.Error(t, (&Config{Driver: "mysql"}).Normalize())
	require.Error(t, (&Config{Driver: "postgres"}).Normalize())
}

func TestConnectAndMigrateSQLite(t *testing.T) {
	cfg := Config{
		Driver:        DriverSQLite,
		Path:          filepath.Join(t.TempDir(), "nested", "relay.db"),
		MigrationsDir: filepath.Join("..", "..", "migrations"),
	}
	require.NoError(t, RunMigrations(cfg))
	// Re-running is a no-op.
	require.NoError(t, RunMigrations(cfg))

	db, err := Connect(cfg)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM user_credentials`))
	require.Zero(t, n)
}

func TestMigrationBookkeeping(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000002_b.up.sql", "000010_c.up.sql", "000001_a.up.sql", "000001_a.down.sql", "README"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0o755))

	files := scanMigrations(dir)
	var names []string
	for _, f := range files {
		names = append(names, f.name)
	}
	require.Equal(t, []string{"000001_a.up.sql", "000002_b.up.sql", "000010_c.up.sql"}, names)
	require.Len(t, appliedBetween(files, 1, 10), 2)
	require.Empty(t, appliedBetween(files, 10, 10))
	require.Equal(t, uint64(10), versionOf("000010_c.up.sql"))
	require.Nil(t, scanMigrations(filepath.Join(dir, "missing")))

	attrs := filesAttrs(files)
	require.Equal(t, "files_preview", attrs[1].Key)
	require.Equal(t, "000001_a.up.sql, 000002_b.up.sql, 000010_c.up.sql", attrs[1].Value.String())
}

func TestWaitForPostgresHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitForPostgres(ctx, "host=127.0.0.1 port=1 user=x dbname=x sslmode=disable connect_timeout=1", time.Minute)
	require.Error(t, err)
}
