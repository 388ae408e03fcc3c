package conversation

import "strings"

var skipWords = map[string]struct{}{
	"skip":       {},
	"пропустить": {},
	"/skip":      {},
}

// IsSkip reports whether text is one of the skip synonyms, ignoring case
// and surrounding whitespace.
func IsSkip(text string) bool {
	_, ok := skipWords[strings.ToLower(strings.TrimSpace(text))]
	return ok
}
