package middleware

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/m3rciful/vkrelay/core/logger"
	tghelpers "github.com/m3rciful/vkrelay/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware. Exclude lists update
// kinds ("message", "callback", "other") that are never limited.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   []string
	OnLimited tele.HandlerFunc
}

type limiter struct {
	interval time.Duration
	mu       sync.Mutex
	last     map[int64]time.Time
}

// allow records the attempt and reports whether it is outside the interval.
func (l *limiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.last[userID]; ok && now.Sub(prev) < l.interval {
		return false
	}
	l.last[userID] = now
	return true
}

// updateKind classifies an update for exclusion matching. Album parts
// report ok=false so they are never limited.
func updateKind(upd tele.Update) (kind string, ok bool) {
	switch {
	case upd.Callback != nil:
		return "callback", true
	case upd.Message != nil:
		return "message", upd.Message.AlbumID == ""
	}
	return "other", true
}

// RateLimitMiddleware drops updates that arrive from the same user within
// Interval of the previous accepted one.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	lim := &limiter{interval: opts.Interval, last: make(map[int64]time.Time)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || lim.interval <= 0 {
				return next(c)
			}
			kind, limited := updateKind(c.Update())
			if !limited || slices.Contains(opts.Exclude, kind) {
				return next(c)
			}
			if lim.allow(user.ID, time.Now()) {
				return next(c)
			}

			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
				slog.String("kind", kind),
				slog.Bool("rate_limited", true),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
