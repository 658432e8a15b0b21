// Package validation holds input size limits and syntax checks shared by
// request parsing and domain validation.
package validation

import (
	"net/mail"
	"strings"
)

// Size limits for incident fields.
const (
	MaxShortTextLength    = 500
	MaxLongTextLength     = 10000
	MaxDataCategories     = 50
	MaxDataCategoryLength = 100
	MaxContactFieldLength = 254
	MaxInternalNotes      = 20000
)

// ValidEmail reports whether s is a single bare address without display name.
func ValidEmail(s string) bool {
	if s == "" || len(s) > MaxContactFieldLength {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	return addr.Address == s && strings.Contains(s, "@")
}
