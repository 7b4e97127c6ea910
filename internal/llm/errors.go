package llm

import "errors"

var (
	// ErrUnavailable indicates the model endpoint could not be reached.
	ErrUnavailable = errors.New("generation endpoint unavailable")

	// ErrTimeout indicates the generation call exceeded the configured timeout.
	ErrTimeout = errors.New("generation request timed out")

	// ErrNoOutput indicates the model answered but produced no usable text.
	ErrNoOutput = errors.New("model produced no output")

	// ErrBadStatus indicates the endpoint answered with a non-2xx status.
	ErrBadStatus = errors.New("generation endpoint returned an error status")
)
