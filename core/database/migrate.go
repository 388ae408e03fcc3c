package database

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/vkrelay/core/logger"
)

const (
	migrateComponent = "db.migrate"
	postgresWait     = 30 * time.Second
	previewFiles     = 6
)

// migrationFile is one *.up.sql file of the migrations directory.
type migrationFile struct {
	version uint64
	name    string
}

// RunMigrations applies all up migrations of the configured driver.
// An up-to-date schema is not an error.
func RunMigrations(cfg Config) error {
	ctx := context.Background()
	if err := cfg.Normalize(); err != nil {
		return err
	}
	if err := ensureDir(cfg); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if cfg.Driver == DriverPostgres {
		if err := WaitForPostgres(ctx, cfg.DSN(), postgresWait); err != nil {
			logger.Error(ctx, migrateComponent, "db.wait", slog.String("err", err.Error()))
			return fmt.Errorf("database not ready: %w", err)
		}
	}

	dir, err := filepath.Abs(cfg.MigrationsPath())
	if err != nil {
		return fmt.Errorf("resolve migrations path: %w", err)
	}
	files := scanMigrations(dir)
	logger.Debug(ctx, migrateComponent, "resolve",
		append([]slog.Attr{
			slog.String("driver", cfg.Driver),
			slog.String("path", dir),
		}, filesAttrs(files)...)...)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), cfg.MigrateURL())
	if err != nil {
		logger.Error(ctx, migrateComponent, "init", slog.String("err", err.Error()))
		return fmt.Errorf("initialize migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	from := currentVersion(m)
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error(ctx, migrateComponent, "apply",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}
	to := currentVersion(m)

	applied := appliedBetween(files, from, to)
	if len(applied) > 0 {
		logger.Debug(ctx, migrateComponent, "applied", filesAttrs(applied)...)
	}
	logger.Info(ctx, migrateComponent, "summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", from),
		slog.Uint64("to_ver", to),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func currentVersion(m *migrate.Migrate) uint64 {
	v, _, err := m.Version()
	if err != nil {
		return 0
	}
	return uint64(v)
}

// scanMigrations lists up migrations by version. Unreadable directories
// yield nothing; migrate.New reports the real error.
func scanMigrations(dir string) []migrationFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []migrationFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		files = append(files, migrationFile{version: versionOf(name), name: name})
	}
	slices.SortFunc(files, func(a, b migrationFile) int {
		return cmp.Or(cmp.Compare(a.version, b.version), strings.Compare(a.name, b.name))
	})
	return files
}

func versionOf(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// appliedBetween returns the files with from < version <= to.
func appliedBetween(files []migrationFile, from, to uint64) []migrationFile {
	var out []migrationFile
	for _, f := range files {
		if f.version > from && f.version <= to {
			out = append(out, f)
		}
	}
	return out
}

func filesAttrs(files []migrationFile) []slog.Attr {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	preview, truncated := logger.SummarizeStrings(names, previewFiles)
	return []slog.Attr{
		slog.Int("files_total", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	}
}
