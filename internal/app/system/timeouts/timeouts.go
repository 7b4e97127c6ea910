// Package timeouts centralizes context deadlines for database lookups
// made outside a request-scoped handler budget.
package timeouts

import "time"

const (
	ping  = 2 * time.Second
	short = 5 * time.Second
)

// Ping returns the deadline for connectivity checks.
func Ping() time.Duration {
	return ping
}

// Short returns the deadline for single-document lookups.
func Short() time.Duration {
	return short
}
