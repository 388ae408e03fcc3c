package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/vkrelay/core/logger"
	"github.com/m3rciful/vkrelay/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	noteOutbound(c, sendOpts != nil && sendOpts.ReplyMarkup != nil)
	return sendAsync(c, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendHTML sends a message with HTML parse mode and optional reply markup.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: rm}
	return SendText(c, text, opts)
}

// Respond answers the current callback query. It is a no-op for other updates.
func Respond(c tele.Context, text string, alert bool) error {
	if c.Callback() == nil {
		return nil
	}
	resp := &tele.CallbackResponse{Text: text, ShowAlert: alert}
	return sendAsync(c, "callback.answer", "answerCallbackQuery", func() error {
		return c.Respond(resp)
	})
}

// EditMarkup replaces the inline keyboard of the message the current callback
// came from. A nil markup removes the keyboard. Unchanged markup is not an error.
func EditMarkup(c tele.Context, markup *tele.ReplyMarkup) error {
	cb := c.Callback()
	if cb == nil || cb.Message == nil {
		return nil
	}
	msg := cb.Message
	noteOutbound(c, markup != nil)
	return sendAsync(c, "edit.markup", "editMessageReplyMarkup", func() error {
		_, err := c.Bot().EditReplyMarkup(msg, markup)
		if errors.Is(err, tele.ErrSameMessageContent) {
			return nil
		}
		return err
	})
}
