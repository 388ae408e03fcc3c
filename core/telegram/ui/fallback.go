package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider exposes handlers used when incoming updates
// cannot be mapped to commands or registered callbacks.
type FallbackProvider interface {
	UnknownCommand() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
