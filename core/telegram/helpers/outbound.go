package helpers

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const outboundKey = "outbound"

// outbound counts the replies queued while one update is served.
type outbound struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

// TrackOutbound starts counting replies for the current update.
func TrackOutbound(c tele.Context) {
	c.Set(outboundKey, &outbound{})
}

func noteOutbound(c tele.Context, withKeyboard bool) {
	o, ok := c.Get(outboundKey).(*outbound)
	if !ok {
		return
	}
	o.messages.Add(1)
	if withKeyboard {
		o.keyboard.Store(true)
	}
}

// OutboundCounts reports how many replies were queued and whether any of
// them carried a keyboard.
func OutboundCounts(c tele.Context) (int, bool) {
	o, ok := c.Get(outboundKey).(*outbound)
	if !ok {
		return 0, false
	}
	return int(o.messages.Load()), o.keyboard.Load()
}
