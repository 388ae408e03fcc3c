package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/vkrelay/core/logger"
	"github.com/m3rciful/vkrelay/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/vkrelay/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers recently logged update IDs; routes may wrap the
// middleware a second time.
var (
	seenMu      sync.Mutex
	seenUpdates = make(map[int]time.Time)
	seenTTL     = 10 * time.Second
)

func alreadyLogged(updateID int) bool {
	now := time.Now()
	seenMu.Lock()
	defer seenMu.Unlock()
	if at, ok := seenUpdates[updateID]; ok && now.Sub(at) <= seenTTL {
		return true
	}
	for id, at := range seenUpdates {
		if now.Sub(at) > seenTTL {
			delete(seenUpdates, id)
		}
	}
	seenUpdates[updateID] = now
	return false
}

// LoggerMiddleware stores the update logging context and writes one
// sampled debug line per update. Message text is never logged since it
// may carry an access token.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()
		if !logger.ShouldSampleDebug() || alreadyLogged(upd.ID) {
			return next(c)
		}

		attrs := []slog.Attr{slog.String("status", "ok")}
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
		}
		if user := c.Sender(); user != nil && user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		switch {
		case upd.Callback != nil:
			key, payload := callbacks.Parse(upd.Callback)
			attrs = append(attrs,
				slog.String("cb_key", logger.SanitizeLimit(key, 128)),
				slog.String("payload", logger.SanitizeLimit(payload, 256)),
			)
		case upd.Message != nil:
			attrs = append(attrs,
				slog.String("kind", MessageKind(upd.Message)),
				slog.String("album", upd.Message.AlbumID),
			)
		}
		logger.Debug(ctx, "tg", "update.received", attrs...)
		return next(c)
	}
}

// MessageKind names the payload type of a message for logs.
func MessageKind(m *tele.Message) string {
	switch {
	case m == nil:
		return "none"
	case m.Photo != nil:
		return "photo"
	case m.Video != nil:
		return "video"
	case m.Document != nil:
		return "document"
	case m.Audio != nil, m.Voice != nil:
		return "audio"
	case m.Animation != nil, m.Sticker != nil, m.VideoNote != nil:
		return "other_media"
	case m.Text != "":
		return "text"
	}
	return "other"
}
