package cmd

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/vkrelay/core/config"
	coretelegram "github.com/m3rciful/vkrelay/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type telegramApp struct{ opts coretelegram.RunOptions }

func (a telegramApp) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, nil }

func TestRunRequiresHooks(t *testing.T) {
	require.Error(t, Run(Options{}))
	require.Error(t, Run(Options{LoadConfig: func(string) (ConfigCarrier, error) { return nil, nil }}))
}

func TestRunWithoutConfigFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	var loadedPath = "unset"
	started, stopped := false, false

	err := Run(Options{
		DefaultConfigPath: t.TempDir() + "/missing.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedPath = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return telegramApp{opts: coretelegram.RunOptions{
				OnStop: func(context.Context, coretelegram.Runtime) error {
					stopped = true
					return nil
				},
			}}, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			require.NoError(t, opts.OnStart(ctx, coretelegram.Runtime{}))
			started = true
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	require.Empty(t, loadedPath)
	require.True(t, started)
	require.True(t, stopped)
}

func TestRunPropagatesBootstrapError(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	boom := errors.New("boom")
	err := Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) { return nil, boom },
	})
	require.ErrorIs(t, err, boom)
}

func TestRunRejectsMissingCoreConfig(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	err := Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return carrier{}, nil },
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			t.Fatal("bootstrap must not run")
			return nil, nil
		},
	})
	require.ErrorContains(t, err, "missing core configuration")
}

func TestConfigPathPrefersEnvironment(t *testing.T) {
	existing := t.TempDir() + "/config.yaml"
	require.NoError(t, os.WriteFile(existing, []byte("{}"), 0o600))

	t.Setenv("RELAY_CONFIG", "/etc/relay.yaml")
	require.Equal(t, "/etc/relay.yaml", Options{ConfigEnvVar: "RELAY_CONFIG", DefaultConfigPath: existing}.configPath())

	t.Setenv("RELAY_CONFIG", "")
	require.Equal(t, existing, Options{ConfigEnvVar: "RELAY_CONFIG", DefaultConfigPath: existing}.configPath())
	require.Empty(t, Options{ConfigEnvVar: "RELAY_CONFIG"}.configPath())
}

func TestAnnounceLifecycleStopsOnStartError(t *testing.T) {
	boom := errors.New("boom")
	opts := coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { return boom },
	}
	announceLifecycle(&opts, time.Now())
	require.ErrorIs(t, opts.OnStart(context.Background(), coretelegram.Runtime{}), boom)
	require.NoError(t, opts.OnStop(context.Background(), coretelegram.Runtime{}))
}
