package bot

import (
	"context"

	tghelpers "github.com/m3rciful/vkrelay/core/telegram/helpers"
	"github.com/m3rciful/vkrelay/relay/conversation"

	tele "gopkg.in/telebot.v4"
)

// responder renders conversation output into the chat of one update.
type responder struct {
	c        tele.Context
	answered bool
}

var _ conversation.Responder = (*responder)(nil)

func newResponder(c tele.Context) *responder {
	return &responder{c: c}
}

func (r *responder) Reply(_ context.Context, text string, menu *conversation.Menu) error {
	if menu != nil {
		return tghelpers.SendHTML(r.c, text, MenuMarkup(*menu))
	}
	return tghelpers.SendHTML(r.c, text)
}

// Notice answers the pending callback query. Outside a callback a non-empty
// notice is sent as a message.
func (r *responder) Notice(ctx context.Context, text string, alert bool) error {
	if r.c.Callback() == nil {
		if text == "" {
			return nil
		}
		return r.Reply(ctx, text, nil)
	}
	if r.answered {
		return nil
	}
	r.answered = true
	return tghelpers.Respond(r.c, text, alert)
}

func (r *responder) RefreshMenu(_ context.Context, menu conversation.Menu) error {
	return tghelpers.EditMarkup(r.c, MenuMarkup(menu))
}

func (r *responder) CloseMenu(context.Context) error {
	return tghelpers.EditMarkup(r.c, nil)
}

// finish acknowledges a callback query that produced no notice.
func (r *responder) finish() error {
	if r.c.Callback() == nil || r.answered {
		return nil
	}
	r.answered = true
	return tghelpers.Respond(r.c, "", false)
}
