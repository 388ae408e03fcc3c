package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/vkrelay/core/logger"
)

const component = "service.credentials"

const selectCredential = `
SELECT telegram_user_id, vk_access_token, vk_group_ids, vk_stories_group_id, updated_at
FROM user_credentials
WHERE telegram_user_id = ?`

const upsertCredential = `
INSERT INTO user_credentials (telegram_user_id, vk_access_token, vk_group_ids, vk_stories_group_id, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (telegram_user_id) DO UPDATE SET
	vk_access_token = excluded.vk_access_token,
	vk_group_ids = excluded.vk_group_ids,
	vk_stories_group_id = excluded.vk_stories_group_id,
	updated_at = excluded.updated_at`

type credentialRow struct {
	UserID         int64         `db:"telegram_user_id"`
	Token          string        `db:"vk_access_token"`
	GroupIDs       string        `db:"vk_group_ids"`
	StoriesGroupID sql.NullInt64 `db:"vk_stories_group_id"`
	UpdatedAt      timestamp     `db:"updated_at"`
}

// SQLStore persists credentials in the user_credentials table. The same
// queries serve Postgres and SQLite; placeholders are rebound per driver.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sqlx.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("credentials: nil database")
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

// Get loads the credential of a user. The stories target falls back to the
// first group when none was stored.
func (s *SQLStore) Get(ctx context.Context, userID int64) (Credential, bool, error) {
	start := time.Now()
	var row credentialRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectCredential), userID)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Debug(ctx, component, "credentials.get",
			slog.String("status", "ok"),
			slog.Int64("user_id", userID),
			slog.String("cache", "miss"),
			slog.Duration("duration", logger.Took(start)),
		)
		return Credential{}, false, nil
	}
	if err != nil {
		logger.Error(ctx, component, "credentials.get",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return Credential{}, false, fmt.Errorf("credentials: get %d: %w", userID, err)
	}

	groups, err := SplitGroupIDs(row.GroupIDs)
	if err != nil {
		return Credential{}, false, fmt.Errorf("credentials: corrupt group list for %d: %w", userID, err)
	}
	var stories *int64
	if row.StoriesGroupID.Valid && row.StoriesGroupID.Int64 != 0 {
		v := row.StoriesGroupID.Int64
		stories = &v
	}
	logger.Debug(ctx, component, "credentials.get",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Int("count", len(groups)),
		slog.Duration("duration", logger.Took(start)),
	)
	return resolve(row.UserID, row.Token, groups, stories, row.UpdatedAt.Time), true, nil
}

// Set upserts the full record, replacing any previous one.
func (s *SQLStore) Set(ctx context.Context, in Input) error {
	if err := in.Validate(); err != nil {
		return err
	}
	var stories sql.NullInt64
	if in.StoriesGroupID != nil {
		stories = sql.NullInt64{Int64: *in.StoriesGroupID, Valid: true}
	}

	start := time.Now()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(upsertCredential),
		in.UserID,
		strings.TrimSpace(in.Token),
		JoinGroupIDs(in.GroupIDs),
		stories,
		s.now().UTC(),
	)
	if err != nil {
		logger.Error(ctx, component, "credentials.set",
			slog.String("status", "fail"),
			slog.Int64("user_id", in.UserID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("credentials: set %d: %w", in.UserID, err)
	}
	logger.Info(ctx, component, "credentials.set",
		slog.String("status", "ok"),
		slog.Int64("user_id", in.UserID),
		slog.Int("count", len(in.GroupIDs)),
		slog.Bool("stories_explicit", in.StoriesGroupID != nil),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// timestamp scans both native time values (Postgres) and the textual
// layouts SQLite drivers may return.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

// Scan implements sql.Scanner.
func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("credentials: unsupported timestamp type %T", src)
	}
}

func (t *timestamp) parse(s string) error {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("credentials: unrecognised timestamp %q", s)
}
