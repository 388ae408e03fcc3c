// Package callbacks decodes inline button presses.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Parse returns the unique key and payload of a button press. telebot
// fills Unique itself when it routed the press; otherwise Data holds the
// raw "\f<unique>|<payload>" form.
func Parse(cb *tele.Callback) (key, payload string) {
	switch {
	case cb == nil:
		return "", ""
	case cb.Unique != "":
		return cb.Unique, cb.Data
	}
	key, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(key), payload
}
