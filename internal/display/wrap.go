package display

import (
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultWidth = 80

var titleCaser = cases.Title(language.English, cases.NoLower)

// Wrap word-wraps text to DefaultWidth, preserving ANSI escape sequences.
func Wrap(text string) string {
	return wordwrap.String(text, DefaultWidth)
}

// Capitalize returns s with its first word title-cased, leaving the rest
// of the string untouched.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	first := []rune(s)[:1]
	return titleCaser.String(string(first)) + string([]rune(s)[1:])
}
