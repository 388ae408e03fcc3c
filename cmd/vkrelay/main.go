// Command vkrelay runs the Telegram bot that republishes posts and stories to VK.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/vkrelay/core/bootstrap"
	corecmd "github.com/m3rciful/vkrelay/core/cmd"
	"github.com/m3rciful/vkrelay/core/logger"
	coretelegram "github.com/m3rciful/vkrelay/core/telegram"
	"github.com/m3rciful/vkrelay/relay/bot"
	relayconfig "github.com/m3rciful/vkrelay/relay/config"
	"github.com/m3rciful/vkrelay/relay/conversation"
	"github.com/m3rciful/vkrelay/relay/credentials"
	"github.com/m3rciful/vkrelay/relay/staging"
	"github.com/m3rciful/vkrelay/relay/vk"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := relayconfig.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: build,
	})
	if err != nil {
		log.Printf("vkrelay: %v", err)
		os.Exit(1)
	}
}

// app closes the database after the bot stops.
type app struct {
	*bot.App
	db *sqlx.DB
}

func (a *app) TelegramRunOptions() (coretelegram.RunOptions, error) {
	opts, err := a.App.TelegramRunOptions()
	if err != nil {
		return opts, err
	}
	opts.OnStop = func(ctx context.Context, _ coretelegram.Runtime) error {
		if err := a.db.Close(); err != nil {
			logger.Warn(ctx, "db", "db.close", slog.String("err", err.Error()))
		}
		return nil
	}
	return opts, nil
}

func build(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*relayconfig.Config)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T", carrier)
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	a, err := wire(cfg, res.DB)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	return a, nil
}

func wire(cfg *relayconfig.Config, db *sqlx.DB) (*app, error) {
	store, err := credentials.NewSQLStore(db)
	if err != nil {
		return nil, err
	}
	stager, err := staging.New(cfg.Media.DownloadsDir)
	if err != nil {
		return nil, err
	}
	client := vk.NewClient(
		vk.WithBaseURL(cfg.VK.APIURL),
		vk.WithVersion(cfg.VK.APIVersion),
		vk.WithHTTPClient(vk.NewHTTPClient(cfg.VK.Timeout())),
	)

	machine, err := conversation.NewMachine(conversation.Deps{
		Credentials: store,
		Validator:   client,
		Publisher:   client,
		Media:       stager,
	})
	if err != nil {
		return nil, err
	}

	front, err := bot.New(cfg.CoreConfig(), machine)
	if err != nil {
		return nil, err
	}

	logger.Info(context.Background(), "app", "wired",
		slog.String("driver", cfg.Database.Driver),
		slog.String("target", cfg.Database.Target()),
		slog.String("path", stager.Dir()),
	)
	return &app{App: front, db: db}, nil
}
