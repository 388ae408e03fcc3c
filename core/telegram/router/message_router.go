package router

import (
	"strings"

	tg "github.com/m3rciful/vkrelay/core/telegram"
	"github.com/m3rciful/vkrelay/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Conversation consumes every non-command message of a user.
type Conversation interface {
	HandleMessage(c tele.Context) error
}

// MessageOptions controls fallback behaviour for message routing.
type MessageOptions struct {
	// UnknownCommand answers slash-prefixed text that matches no command.
	UnknownCommand tele.HandlerFunc
	// Conversational reports slash text that the conversation understands
	// itself, such as "/skip". Such text bypasses UnknownCommand.
	Conversational func(text string) bool
}

// mediaEndpoints are routed to the conversation along with text.
var mediaEndpoints = []string{
	tele.OnPhoto,
	tele.OnVideo,
	tele.OnDocument,
	tele.OnAudio,
	tele.OnVoice,
	tele.OnAnimation,
	tele.OnSticker,
	tele.OnVideoNote,
}

// MessageRoutes builds handlers that pass text and media to the conversation.
// Text matching a command alias is dispatched to that command instead.
func MessageRoutes(conv Conversation, reg *tg.Registry, opts MessageOptions) []tg.Route {
	textHandler := func(c tele.Context) error {
		text := strings.TrimSpace(c.Text())

		if reg != nil && strings.HasPrefix(text, "/") {
			word, _, _ := strings.Cut(strings.Fields(text)[0], "@")
			if key, cmd, ok := reg.LookupCommand(word); ok && cmd.Handler != nil {
				return newSummary(key).run(c, func() error { return cmd.Handler(c) })
			}
			if opts.Conversational != nil && opts.Conversational(text) {
				return toConversation(c, conv, "conversation.text")
			}
			if opts.UnknownCommand != nil {
				return newSummary("unknown_command").run(c, func() error { return opts.UnknownCommand(c) })
			}
		}
		return toConversation(c, conv, "conversation.text")
	}

	mediaHandler := func(c tele.Context) error {
		return toConversation(c, conv, "conversation."+middleware.MessageKind(c.Message()))
	}

	routes := []tg.Route{{Endpoint: tele.OnText, Handler: wrapRoute(textHandler)}}
	for _, ep := range mediaEndpoints {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: wrapRoute(mediaHandler)})
	}
	return routes
}

func toConversation(c tele.Context, conv Conversation, name string) error {
	sum := newSummary(name)
	if conv == nil {
		return sum.skip(c)
	}
	return sum.run(c, func() error { return conv.HandleMessage(c) })
}
