package logger

import (
	"log/slog"
	"slices"
	"strings"
)

const redactedValue = "[redacted]"

// sensitiveKeys are never written in clear, whatever group they appear under.
var sensitiveKeys = map[string]bool{
	"token":        true,
	"access_token": true,
	"bot_token":    true,
	"vk_token":     true,
	"password":     true,
}

func redact(fields map[string]any) {
	for key := range fields {
		leaf := key[strings.LastIndexByte(key, '.')+1:]
		if sensitiveKeys[strings.ToLower(leaf)] {
			fields[key] = redactedValue
		}
	}
}

// LevelFatal is logged for records above slog.LevelError.
const LevelFatal = "FATAL"

func levelName(l slog.Level) string {
	switch {
	case l > slog.LevelError:
		return LevelFatal
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

// Outcomes outside this list are dropped from the record.
var knownOutcome = []string{"ok", "fail", "cancelled", "rate_limited"}

// normalizeStatus lowercases status values so dashboards can group them.
func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	return outcome, slices.Contains(knownOutcome, outcome)
}

// Key order for both encoders. Keys not listed follow in sorted order.
var (
	headerKeys = []string{
		"ts", "level", "component", "event", "status",
		"rid", "rid_full", "ts_unix_nano",
	}
	updateKeys = []string{
		"update_id", "user_id", "chat_id", "chat_type", "handler",
		"operation", "op", "cb_key", "from", "to", "cause", "outcome",
		"duration_ms",
	}
	publishKeys = []string{
		"attempt_id", "group_id", "post_id", "posts_ok", "posts_failed",
		"story", "story_attempted", "story_ok", "kind", "count", "failed", "code",
	}
	transportKeys = []string{
		"messages", "kb", "payload", "mode", "listen", "public_url",
		"http_code", "driver", "target", "path",
	}
	errorKeys = []string{
		"err", "err_code", "reason", "retryable", "attempts", "backoff_ms",
		"rate_limited", "collapsed", "repeats", "pending_count",
	}

	defaultKeyOrder = slices.Concat(headerKeys, updateKeys, publishKeys, transportKeys, errorKeys)
)
