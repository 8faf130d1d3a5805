/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/acronis/go-httpresilience/circuitbreaker"
)

// RateLimitError is returned in RoundTrip method of RateLimitingRoundTripper
// when the rate limit for the request's group is exceeded and RespondOnLimit mode is off.
type RateLimitError struct {
	Group      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for group %q, retry after %s", e.Group, e.RetryAfter)
}

// CircuitOpenError is returned in RoundTrip method of CircuitBreakerRoundTripper
// when the circuit for the request's group doesn't allow the request and RespondOnOpen mode is off.
type CircuitOpenError struct {
	Group      string
	State      circuitbreaker.State
	OpenedAt   time.Time
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit for group %q is %s, retry after %s", e.Group, e.State, e.RetryAfter)
}

// RequestTimeoutError is returned when the per-request timeout imposed by the
// client expires. A deadline supplied by the caller is never normalized into
// this error and propagates as a plain context error.
type RequestTimeoutError struct {
	Timeout time.Duration
	Inner   error
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s: %s", e.Timeout, e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *RequestTimeoutError) Unwrap() error {
	return e.Inner
}

// UnexpectedStatusError is returned by EnsureExpectedStatus when the response
// status code is not in the caller's expected set. It carries the full response
// for inspection; the caller owns closing its body.
type UnexpectedStatusError struct {
	Response *http.Response
	Expected []int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d, expected one of %v", e.Response.StatusCode, e.Expected)
}

// EnsureExpectedStatus checks the response status code against the expected set
// and returns *UnexpectedStatusError on mismatch. An empty expected set means
// any non-5xx status is accepted.
func EnsureExpectedStatus(resp *http.Response, expected ...int) error {
	if len(expected) == 0 {
		if resp.StatusCode >= http.StatusInternalServerError {
			return &UnexpectedStatusError{Response: resp}
		}
		return nil
	}
	for _, code := range expected {
		if resp.StatusCode == code {
			return nil
		}
	}
	return &UnexpectedStatusError{Response: resp, Expected: expected}
}
