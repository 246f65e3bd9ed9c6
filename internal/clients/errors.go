package clients

import (
	"fmt"

	"github.com/pkg/errors"
)

// NetworkError covers timeouts, cancellations and connection failures.
// These are the only failures the client retries.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a well-formed non-2xx response. It is request-semantic, not
// transient, and is never retried. Detail carries the server's message
// verbatim when the error payload provides one.
type HTTPError struct {
	Status int
	Detail string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("HTTP status %d", e.Status)
}

// ParseError is a response body that could not be decoded. Never retried.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is (or wraps) a NetworkError.
func IsNetworkError(err error) bool {
	var t *NetworkError
	return errors.As(err, &t)
}

// IsHTTPError reports whether err is (or wraps) an HTTPError.
func IsHTTPError(err error) bool {
	var t *HTTPError
	return errors.As(err, &t)
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var t *ParseError
	return errors.As(err, &t)
}
