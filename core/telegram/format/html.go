// Package format holds text helpers for Telegram parse modes.
package format

import "strings"

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeHTML escapes the three characters Telegram's HTML parse mode
// treats as markup.
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

// TruncateRunes cuts text to at most max runes, appending an ellipsis when
// something was removed.
func TruncateRunes(text string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
