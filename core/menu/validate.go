package menu

import (
	"strings"
	"unicode"
)

// ValidateInput applies the named validator to raw capture input.
// An empty validator name behaves like ValidateText.
func ValidateInput(name, raw string) bool {
	raw = strings.TrimSpace(raw)
	switch name {
	case "", ValidateText:
		return raw != ""
	case ValidateName:
		if raw == "" {
			return false
		}
		for _, r := range raw {
			if unicode.IsDigit(r) {
				return false
			}
		}
		return true
	case ValidatePhone:
		return phoneLike(raw)
	default:
		return false
	}
}

// phoneLike accepts digit strings of plausible length, with an optional
// leading plus.
func phoneLike(raw string) bool {
	raw = strings.TrimPrefix(raw, "+")
	if len(raw) < 7 || len(raw) > 15 {
		return false
	}
	for _, r := range raw {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
