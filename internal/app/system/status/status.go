// Package status holds the canonical account status values.
//
// The constants are plain strings rather than a custom type so they
// compare directly against stored MongoDB fields.
package status

// Account status values.
const (
	Active   = "active"
	Disabled = "disabled"
)

// IsValid reports whether s is a recognized status value.
func IsValid(s string) bool {
	return s == Active || s == Disabled
}

// Default returns the status assigned to new accounts.
func Default() string {
	return Active
}
