package bootstrap

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	coreconfig "github.com/m3rciful/vkrelay/core/config"
	coredatabase "github.com/m3rciful/vkrelay/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(Options{})
	require.Error(t, err)
}

func TestRunNormalizesDatabaseBeforeConnect(t *testing.T) {
	var connected, migrated coredatabase.Config
	path := filepath.Join(t.TempDir(), "creds.db")

	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Path: path},
		LoggerInit: noLogger,
		Connect: func(cfg coredatabase.Config) (*sqlx.DB, error) {
			connected = cfg
			return sqlx.Open("sqlite", cfg.DSN())
		},
		Migrate: func(cfg coredatabase.Config) error {
			migrated = cfg
			return nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.DB.Close() })

	require.Equal(t, coredatabase.DriverSQLite, connected.Driver)
	require.Equal(t, connected, migrated)
	require.Equal(t, path, res.Database.Path)
}

func TestRunRejectsUnknownDriver(t *testing.T) {
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: "mysql"},
		LoggerInit: noLogger,
	})
	require.ErrorContains(t, err, "unsupported driver")
}

func TestRunMigrationFailureClosesDB(t *testing.T) {
	var db *sqlx.DB
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Path: filepath.Join(t.TempDir(), "x.db")},
		LoggerInit: noLogger,
		Connect: func(cfg coredatabase.Config) (*sqlx.DB, error) {
			var err error
			db, err = sqlx.Open("sqlite", cfg.DSN())
			return db, err
		},
		Migrate: func(coredatabase.Config) error { return errors.New("dirty") },
	})
	require.ErrorContains(t, err, "migrations failed")
	require.Error(t, db.Ping())
}
