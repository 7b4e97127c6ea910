// Package normalize canonicalizes user-entered identity strings before
// storage or comparison, so lookups never miss on case or whitespace.
package normalize

import "strings"

// Email lowercases and trims an email address or login id.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name. Case is preserved; use text.Fold for
// case-insensitive comparison keys.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Status lowercases and trims an account status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Role lowercases and trims a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
