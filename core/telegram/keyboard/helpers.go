// Package keyboard builds inline keyboards from plain button values.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is one inline button. Unique is the callback key; Data is the
// optional payload delivered with it.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// Rows lays buttons out row by row. Empty rows are dropped.
func Rows(rows ...[]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, *markup.Data(b.Text, b.Unique, b.Data).Inline())
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, line)
	}
	return markup
}
