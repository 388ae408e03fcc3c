package router

import (
	"log/slog"

	tg "github.com/m3rciful/vkrelay/core/telegram"
	"github.com/m3rciful/vkrelay/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
	// ManualRespond leaves answering the callback query to the handler.
	// By default the query is acknowledged before the handler runs.
	ManualRespond bool
}

// CallbackRoute returns the single OnCallback route that dispatches by
// the unique key of the pressed button.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		key, _ := callbacks.Parse(c.Callback())
		sum := newSummary("callback." + key).with(slog.String("cb_key", key))

		if !opts.ManualRespond {
			_ = c.Respond()
		}

		h, ok := reg.GetCallback(key)
		if !ok || h == nil {
			sum.with(slog.String("reason", "not_found"))
			h = cmpHandler(reg.CallbackNotFound(), opts.NotFound)
			if h == nil {
				return sum.skip(c)
			}
		}
		return sum.run(c, func() error { return h(c) })
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: wrapRoute(handler)}
}

// cmpHandler returns the first non-nil handler.
func cmpHandler(hs ...tele.HandlerFunc) tele.HandlerFunc {
	for _, h := range hs {
		if h != nil {
			return h
		}
	}
	return nil
}
