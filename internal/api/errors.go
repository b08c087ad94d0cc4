package api

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx backend response, carrying the structured
// detail message when the body had one.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Error: %d", e.StatusCode)
}

// NetworkError is a transport-level failure: the backend was never
// reached or the connection broke mid-request.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401 response, the signal that
// a stored token has been rejected.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}

// IsNetwork reports whether err is a transport failure rather than a
// backend rejection.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
