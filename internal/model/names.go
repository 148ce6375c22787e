package model

import (
	"strings"
	"unicode"
)

// DefaultTab is created when the sounds directory has no tabs.
const DefaultTab = "Default"

// SafeTabName keeps letters, digits and spaces, trimming the result.
func SafeTabName(name string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, name))
}

// SafeFileName keeps letters, digits, spaces, '-' and '_', trimming the result.
func SafeFileName(name string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, name))
}
