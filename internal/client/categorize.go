package client

import (
	"context"
	"errors"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

// Error category constants used as the upstreamErrorsTotal category label.
const (
	ErrorCategoryTimeout     ErrorCategory = "timeout"
	ErrorCategoryNetwork     ErrorCategory = "network"
	ErrorCategoryRateLimited ErrorCategory = "rate_limited"
	ErrorCategoryHTTP4xx     ErrorCategory = "http_4xx"
	ErrorCategoryUpstream5xx ErrorCategory = "upstream_5xx"
	ErrorCategoryParsing     ErrorCategory = "parsing"
	ErrorCategoryUnknown     ErrorCategory = "unknown"
)

// CategorizeError maps a fetch error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrRateLimited) {
		return ErrorCategoryRateLimited
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= 500 {
			return ErrorCategoryUpstream5xx
		}
		return ErrorCategoryHTTP4xx
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		if transportErr.Timeout() {
			return ErrorCategoryTimeout
		}
		return ErrorCategoryNetwork
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCategoryTimeout
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ErrorCategoryParsing
	}

	return ErrorCategoryUnknown
}
