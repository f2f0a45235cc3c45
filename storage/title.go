package storage

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// GenerateTitle names a conversation after the first three words of its
// prompt longer than two characters, or "New Story" when there are none.
func GenerateTitle(prompt string) string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(prompt), " ")
	var words []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) > 2 {
			words = append(words, w)
		}
		if len(words) == 3 {
			break
		}
	}
	if len(words) == 0 {
		return "New Story"
	}
	caser := cases.Title(language.English)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}
