package application

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize produces the lookup key used for case-insensitive uniqueness of
// user names, emails and role names. A Caser is stateful, so one is built per call.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Upper(language.Und).String(s)
}
