package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	metaKey
)

// Meta holds the correlation fields attached to every line logged with a
// context. Zero fields are omitted.
type Meta struct {
	RID       string
	UpdateID  int
	UserID    int64
	ChatID    int64
	Handler   string
	AttemptID string
}

func (m Meta) apply(fields map[string]any) {
	setDefault := func(key string, val any, present bool) {
		if !present {
			return
		}
		if _, ok := fields[key]; !ok {
			fields[key] = val
		}
	}
	setDefault("rid", m.RID, m.RID != "")
	setDefault("update_id", m.UpdateID, m.UpdateID != 0)
	setDefault("user_id", m.UserID, m.UserID != 0)
	setDefault("chat_id", m.ChatID, m.ChatID != 0)
	setDefault("handler", m.Handler, m.Handler != "")
	setDefault("attempt_id", m.AttemptID, m.AttemptID != "")
}

// MetaFrom returns the correlation fields stored in ctx.
func MetaFrom(ctx context.Context) Meta {
	if ctx == nil {
		return Meta{}
	}
	m, _ := ctx.Value(metaKey).(Meta)
	return m
}

func withMeta(ctx context.Context, update func(*Meta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := MetaFrom(ctx)
	update(&m)
	return context.WithValue(ctx, metaKey, m)
}

// WithRID attaches the request correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *Meta) { m.RID = rid })
}

// WithUpdateMeta attaches the Telegram update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *Meta) {
		m.UpdateID = updateID
		m.UserID = userID
		m.ChatID = chatID
	})
}

// WithHandler names the bot handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return withMeta(ctx, func(*Meta) {})
	}
	return withMeta(ctx, func(m *Meta) { m.Handler = handler })
}

// WithAttempt tags every line of one publish attempt.
func WithAttempt(ctx context.Context, attemptID string) context.Context {
	return withMeta(ctx, func(m *Meta) { m.AttemptID = attemptID })
}

// WithLogger stores the provided slog.Logger in context for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext extracts slog.Logger from context or returns global default.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return L
}
