// Package strings holds small string helpers shared by request normalization.
package strings

import "strings"

// DedupeAndTrim returns the trimmed, non-blank values of in, first occurrence
// wins. The result is never nil.
func DedupeAndTrim(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, raw := range in {
		v := strings.TrimSpace(raw)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// TrimAll trims each non-nil field in place.
func TrimAll(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}
