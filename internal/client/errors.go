package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrRateLimited matches any *StatusError for HTTP 429.
var ErrRateLimited = errors.New("rate limited")

// TransportError is a connection, DNS or timeout failure before a response was read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline being exceeded.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) && t.Timeout() {
		return true
	}
	return strings.Contains(e.Err.Error(), "deadline exceeded")
}

// StatusError is a non-2xx response. RetryAfter holds the Retry-After header verbatim, if any.
type StatusError struct {
	StatusCode int
	RetryAfter string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// RateLimited reports whether the response was HTTP 429.
func (e *StatusError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Is lets errors.Is(err, ErrRateLimited) match 429 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.RateLimited()
}

// ParseError is a response whose body did not have the expected shape.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "parse response: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reason turns a fetch error into the user-facing failure reason.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.RateLimited() {
			retry := strings.TrimSpace(statusErr.RetryAfter)
			if retry == "" {
				return "429 Too Many Requests: try again in a bit"
			}
			return fmt.Sprintf("429 Too Many Requests: try again after %ss", retry)
		}
		return "Network/HTTP error: " + statusErr.Error()
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return "Network/HTTP error: " + transportErr.Err.Error()
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return "Unexpected response: " + parseErr.Err.Error()
	}
	return "Network/HTTP error: " + err.Error()
}
