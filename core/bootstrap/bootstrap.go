// Package bootstrap brings up the shared infrastructure before the bot
// starts: logging, the credential database and its schema.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/vkrelay/core/config"
	coredatabase "github.com/m3rciful/vkrelay/core/database"
	"github.com/m3rciful/vkrelay/core/logger"
)

var errNilConfig = errors.New("bootstrap: nil config provided")

// Options select the configuration and, for tests, replace the steps.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result is the infrastructure handed to the application.
type Result struct {
	DB *sqlx.DB
	// Database is the normalised configuration actually used.
	Database coredatabase.Config
}

func (o *Options) withDefaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
}

// Run initialises the logger, opens the database chosen by the configured
// driver and applies pending migrations. The database is closed again if
// migrating fails.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errNilConfig
	}
	opts.withDefaults()
	started := time.Now()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	dbCfg := opts.Database
	if err := dbCfg.Normalize(); err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	db, err := opts.Connect(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if err := opts.Migrate(dbCfg); err != nil {
		return nil, errors.Join(fmt.Errorf("bootstrap: migrations failed: %w", err), db.Close())
	}

	logger.Info(context.Background(), "app", "bootstrap.ready",
		slog.String("driver", dbCfg.Driver),
		slog.String("target", dbCfg.Target()),
		slog.Duration("took", time.Since(started)),
	)
	return &Result{DB: db, Database: dbCfg}, nil
}
