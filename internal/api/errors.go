package api

import (
	"errors"
	"fmt"
)

// ErrMissingJobID is returned when an execute endpoint answers without a job identifier.
var ErrMissingJobID = errors.New("response does not contain a job id")

// TransportError reports a call that could not produce a usable response,
// most commonly because every retry attempt returned a retryable status.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError reports a final response whose body is not a JSON object.
type DecodeError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s returned status %d with an undecodable body: %v", e.Method, e.URL, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is, or wraps, a *TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
