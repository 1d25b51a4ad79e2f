package compiler

import (
	"strings"
	"unicode/utf8"
)

// Stats are the counters shown next to the compiled prompt.
type Stats struct {
	Chars int `json:"chars"`
	Words int `json:"words"`
	Lines int `json:"lines"`
}

// Measure counts characters (runes), whitespace-separated words and lines.
func Measure(text string) Stats {
	if text == "" {
		return Stats{}
	}
	return Stats{
		Chars: utf8.RuneCountInString(text),
		Words: len(strings.Fields(text)),
		Lines: strings.Count(text, "\n") + 1,
	}
}
