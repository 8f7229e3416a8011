// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotFound            = errors.New("library: resource not found")
	ErrAuthExpired         = errors.New("library: authorization expired or rejected")
	ErrUpstreamUnavailable = errors.New("library: host unreachable or transport failure")
	ErrUpstreamError       = errors.New("library: internal error (5xx)")
	ErrBadResponse         = errors.New("library: invalid response format or malformed data")
)

// RequestError wraps the sentinel errors with operation context. The HTTP
// status survives so callers can tell auth failures (401/403) from everything
// else, which the status poller relies on.
type RequestError struct {
	Sentinel  error
	Operation string
	Status    int
	Body      string
	Err       error // nested lower-level error (e.g. net.Error)
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("api: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *RequestError) Unwrap() error {
	return e.Sentinel
}

// IsAuthExpired reports whether err is a 401/403 class failure.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

func sentinelForStatus(status int) error {
	switch {
	case status == 401 || status == 403:
		return ErrAuthExpired
	case status == 404:
		return ErrNotFound
	case status >= 500:
		return ErrUpstreamError
	default:
		return ErrBadResponse
	}
}
