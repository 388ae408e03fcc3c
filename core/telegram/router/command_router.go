package router

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/m3rciful/vkrelay/core/logger"
	tg "github.com/m3rciful/vkrelay/core/telegram"
	"github.com/m3rciful/vkrelay/core/telegram/commands"
	"github.com/m3rciful/vkrelay/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes binds every registered command to its endpoint. Each call
// ends with one summary line named after the command.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for _, key := range slices.Sorted(maps.Keys(cmds)) {
		routes = append(routes, tg.Route{
			Endpoint: key,
			Handler:  wrapRoute(commandHandler(key, cmds[key])),
		})
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

func commandHandler(key string, cmd commands.Command) tele.HandlerFunc {
	return func(c tele.Context) error {
		return newSummary(key).run(c, func() error { return cmd.Handler(c) })
	}
}

// wrapRoute applies the per-route middleware shared by every router.
func wrapRoute(h tele.HandlerFunc) tele.HandlerFunc {
	return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
}
