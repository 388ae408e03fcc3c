// Package cmd holds the process entry shared by bot binaries: pick a
// config file, bootstrap the app, and run Telegram until a signal arrives.
package cmd

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/vkrelay/core/config"
	"github.com/m3rciful/vkrelay/core/logger"
	coretelegram "github.com/m3rciful/vkrelay/core/telegram"
)

const defaultConfigEnv = "CONFIG_PATH"

var (
	errNoLoader    = errors.New("cmd: LoadConfig is required")
	errNoBootstrap = errors.New("cmd: Bootstrap is required")
	errNoCore      = errors.New("cmd: loaded config is missing core configuration")
)

// ConfigCarrier exposes the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp produces the options RunTelegram needs.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Options wires a binary into Run. Only LoadConfig and Bootstrap are required.
type Options struct {
	// ConfigEnvVar names the variable holding the config path; CONFIG_PATH by default.
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// Run blocks until the bot stops or SIGINT/SIGTERM is received.
func Run(opts Options) error {
	switch {
	case opts.LoadConfig == nil:
		return errNoLoader
	case opts.Bootstrap == nil:
		return errNoBootstrap
	}

	path := opts.configPath()
	if path == "" {
		log.Printf("loading config from environment")
	} else {
		log.Printf("loading config: %s", path)
	}
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return errNoCore
	}

	app, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdown := opts.ShutdownLogger
	if shutdown == nil {
		shutdown = logger.Shutdown
	}
	defer func() {
		if err := shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options build failed: %w", err)
	}
	announceLifecycle(&runOpts, time.Now())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

// configPath prefers the environment, then the default file when it exists.
// An empty result means configuration comes from the environment only.
func (o Options) configPath() string {
	if p := os.Getenv(cmp.Or(o.ConfigEnvVar, defaultConfigEnv)); p != "" {
		return p
	}
	if coreconfig.Exists(o.DefaultConfigPath) {
		return o.DefaultConfigPath
	}
	return ""
}

// announceLifecycle logs app.ready after the existing start hook and
// app.shutdown before the existing stop hook.
func announceLifecycle(opts *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := opts.OnStart, opts.OnStop
	opts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready", slog.Duration("startup", time.Since(startedAt)))
		return nil
	}
	opts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if onStop == nil {
			return nil
		}
		return onStop(ctx, rt)
	}
}
