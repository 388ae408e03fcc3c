package middleware

import (
	tghelpers "github.com/m3rciful/vkrelay/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// MessageMetricsMiddleware resets the reply counters read by the handler
// summary log.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		tghelpers.TrackOutbound(c)
		return next(c)
	}
}
