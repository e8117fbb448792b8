package utils

import (
	"html"
	"strings"
	"unicode"
)

// SanitizeInput trims, escapes HTML and strips control characters from free text.
func SanitizeInput(input string) string {
	input = html.EscapeString(strings.TrimSpace(input))
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)
}

// SanitizeEmail lower-cases and trims an email address
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
