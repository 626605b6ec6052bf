package remote

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying: network errors, timeouts
// and server-side (5xx) responses. The sync engine never surfaces these to
// the user; it returns to offline and retries later.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// RejectedError marks a request the server refused (4xx). The mutation that
// caused it must be dropped from the queue and surfaced to the user.
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected by server (status %d): %s", e.Status, e.Body)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsRejected reports whether the server refused the request outright.
func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}
