package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvOnly(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_RUN_MODE", "polling")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "123:abc", cfg.Telegram.Token)
	require.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestLoadPrefersPrefixedToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "alias")
	t.Setenv("TELEGRAM_BOT_TOKEN", "primary")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "primary", cfg.Telegram.Token)
}

func TestLoadYAMLOverlaidByEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  token: from-file\nlogging:\n  level: debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.Telegram.Token)
	require.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	_, err := Load("")
	require.ErrorContains(t, err, "telegram token is required")
}

func TestNormalizeWebhookRequiresURL(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}}
	require.ErrorIs(t, Normalize(cfg), ErrInvalid)

	cfg.Telegram.RunMode = "carrier-pigeon"
	require.ErrorContains(t, Normalize(cfg), "carrier-pigeon")

	cfg.Telegram.RunMode = "Webhook"

	cfg.Webhook = WebhookConfig{URL: "https://example.com/hook", Listen: ":8443", Port: 8443}
	require.NoError(t, Normalize(cfg))
	require.Equal(t, RunModeWebhook, cfg.Telegram.RunMode)
}

func TestNormalizeRateLimitExclusions(t *testing.T) {
	cfg := &Config{Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback "}}}
	require.NoError(t, Normalize(cfg))
	require.Equal(t, []string{"callback"}, cfg.RateLimit.ExcludeUpdates)

	cfg.RateLimit.ExcludeUpdates = []string{"", "message"}
	require.NoError(t, Normalize(cfg))
	require.Equal(t, []string{"message"}, cfg.RateLimit.ExcludeUpdates)

	cfg.RateLimit.ExcludeUpdates = []string{"poll"}
	require.ErrorIs(t, Normalize(cfg), ErrInvalid)

	cfg.RateLimit = RateLimitConfig{IntervalMS: -1}
	require.ErrorIs(t, Normalize(cfg), ErrInvalid)
}

func TestExists(t *testing.T) {
	require.False(t, Exists(""))
	require.False(t, Exists(filepath.Join(t.TempDir(), "nope.yaml")))
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	require.True(t, Exists(path))
}
