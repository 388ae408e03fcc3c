// Package bot connects the conversation machine to Telegram: it turns
// telebot updates into conversation events and renders the machine output.
package bot

import (
	"context"
	"errors"
	"log/slog"

	coreconfig "github.com/m3rciful/vkrelay/core/config"
	"github.com/m3rciful/vkrelay/core/logger"
	coretelegram "github.com/m3rciful/vkrelay/core/telegram"
	"github.com/m3rciful/vkrelay/core/telegram/commands"
	tghelpers "github.com/m3rciful/vkrelay/core/telegram/helpers"
	"github.com/m3rciful/vkrelay/core/telegram/router"
	tgsender "github.com/m3rciful/vkrelay/core/telegram/sender"
	"github.com/m3rciful/vkrelay/core/telegram/ui"
	"github.com/m3rciful/vkrelay/relay/conversation"

	tele "gopkg.in/telebot.v4"
)

const (
	textUnknownCommand = "Неизвестная команда. Доступно: /post, /setup, /cancel."
	textStaleMenu      = coretelegram.StaleMenuNotice
)

// Handler processes one conversation event of a user.
type Handler interface {
	Handle(ctx context.Context, userID int64, ev conversation.Event, out conversation.Responder) error
}

var commandList = []struct {
	name        conversation.CommandName
	description string
}{
	{conversation.CmdStart, "Приветствие и справка"},
	{conversation.CmdSetup, "Указать VK-токен и группы"},
	{conversation.CmdPost, "Начать новый пост"},
	{conversation.CmdCancel, "Отменить текущий пост"},
	{conversation.CmdPublishNow, "Опубликовать без уточнения по аудио"},
}

// App is the Telegram front end of the relay.
type App struct {
	cfg     *coreconfig.Config
	handler Handler
	reg     *coretelegram.Registry
	// files overrides the bot as file downloader.
	files FileGetter
}

var (
	_ router.Conversation = (*App)(nil)
	_ ui.FallbackProvider = (*App)(nil)
)

// New registers the relay commands and menu callbacks.
func New(cfg *coreconfig.Config, handler Handler) (*App, error) {
	if cfg == nil {
		return nil, errors.New("bot: nil config")
	}
	if handler == nil {
		return nil, errors.New("bot: nil conversation handler")
	}
	a := &App{cfg: cfg, handler: handler, reg: coretelegram.NewRegistry()}

	for _, cmd := range commandList {
		name := cmd.name
		a.reg.RegisterCommand("/"+string(name), commands.Command{
			Description: cmd.description,
			Handler: func(c tele.Context) error {
				var args string
				if m := c.Message(); m != nil {
					args = m.Payload
				}
				return a.dispatch(c, conversation.Command{Name: name, Args: args})
			},
		})
	}
	for _, opt := range conversation.Options {
		if err := a.reg.RegisterCallback(string(opt), func(c tele.Context) error {
			return a.dispatch(c, conversation.Choice{Option: opt})
		}); err != nil {
			return nil, err
		}
	}
	a.reg.SetCallbackNotFound(a.UnknownCallback())
	return a, nil
}

// Registry exposes the command and callback registry.
func (a *App) Registry() *coretelegram.Registry {
	return a.reg
}

// TelegramRunOptions wires middlewares and routes for the runtime. The
// dispatcher keeps outbound calls of one chat in order.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	routes := router.CommandRoutes(a.reg)
	routes = append(routes, router.CallbackRoute(a.reg, router.CallbackOptions{ManualRespond: true}))
	routes = append(routes, router.MessageRoutes(a, a.reg, router.MessageOptions{
		UnknownCommand: a.UnknownCommand(),
		Conversational: conversation.IsSkip,
	})...)

	return coretelegram.RunOptions{
		Config:            a.cfg,
		Registry:          a.reg,
		DispatcherOptions: tgsender.Options{MaxRetries: 2},
		Middlewares:       coretelegram.DefaultMiddlewares(a.cfg, nil),
		Routes:            routes,
	}, nil
}

// HandleMessage feeds a text or media message to the conversation.
func (a *App) HandleMessage(c tele.Context) error {
	var files FileGetter = a.files
	if files == nil {
		files = c.Bot()
	}
	ev, ok := MessageEvent(c.Message(), files)
	if !ok {
		return nil
	}
	return a.dispatch(c, ev)
}

// UnknownCommand answers slash commands the bot does not know.
func (a *App) UnknownCommand() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendHTML(c, textUnknownCommand)
	}
}

// UnknownCallback answers presses on buttons of other bots or old versions.
func (a *App) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.Respond(c, textStaleMenu, false)
	}
}

func (a *App) dispatch(c tele.Context, ev conversation.Event) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	out := newResponder(c)

	err := a.handler.Handle(ctx, user.ID, ev, out)
	if ferr := out.finish(); ferr != nil && err == nil {
		err = ferr
	}
	if err != nil {
		logger.Warn(ctx, "tg", "reply.failed",
			slog.Int64("user_id", user.ID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
	return err
}
