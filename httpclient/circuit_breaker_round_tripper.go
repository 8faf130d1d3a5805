/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/acronis/go-httpresilience/circuitbreaker"
)

// FailureClassifier reports whether the request outcome should be counted as a
// circuit breaker failure.
type FailureClassifier func(resp *http.Response, err error) bool

// DefaultFailureClassifier counts transport errors, server errors (5xx) and
// 429 Too Many Requests responses as failures.
func DefaultFailureClassifier(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
}

// CircuitBreakerRoundTripper wraps an object that implements http.RoundTripper interface
// and isolates failures per logical group. Requests to a group whose circuit
// doesn't admit them are rejected without reaching the delegate. Every outcome
// of a delegated request is recorded in the breaker before it is propagated,
// including transport errors.
type CircuitBreakerRoundTripper struct {
	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// Breaker tracks circuit state per group.
	Breaker *circuitbreaker.CircuitBreaker

	// GroupKeyFunc derives the circuit group from the request.
	GroupKeyFunc GroupKeyFunc

	// RespondOnOpen makes a rejected request produce a synthesized 503 response
	// instead of a *CircuitOpenError.
	RespondOnOpen bool

	// IsFailure classifies request outcomes.
	IsFailure FailureClassifier
}

// CircuitBreakerRoundTripperOpts represents an options for CircuitBreakerRoundTripper.
type CircuitBreakerRoundTripperOpts struct {
	// GroupKeyFunc derives the circuit group from the request.
	// By default, all requests share one global group.
	GroupKeyFunc GroupKeyFunc

	// RespondOnOpen makes a rejected request produce a synthesized 503 response with
	// a Retry-After header and a problem details body instead of a *CircuitOpenError.
	RespondOnOpen bool

	// IsFailure classifies request outcomes.
	// By default, DefaultFailureClassifier is used.
	IsFailure FailureClassifier
}

// NewCircuitBreakerRoundTripper creates a new CircuitBreakerRoundTripper with the specified breaker.
func NewCircuitBreakerRoundTripper(
	delegate http.RoundTripper, breaker *circuitbreaker.CircuitBreaker,
) (*CircuitBreakerRoundTripper, error) {
	return NewCircuitBreakerRoundTripperWithOpts(delegate, breaker, CircuitBreakerRoundTripperOpts{})
}

// NewCircuitBreakerRoundTripperWithOpts creates a new CircuitBreakerRoundTripper
// with the specified breaker and options.
func NewCircuitBreakerRoundTripperWithOpts(
	delegate http.RoundTripper, breaker *circuitbreaker.CircuitBreaker, opts CircuitBreakerRoundTripperOpts,
) (*CircuitBreakerRoundTripper, error) {
	if breaker == nil {
		return nil, fmt.Errorf("breaker must be provided")
	}
	if opts.GroupKeyFunc == nil {
		opts.GroupKeyFunc = SingleGroupKeyFunc
	}
	if opts.IsFailure == nil {
		opts.IsFailure = DefaultFailureClassifier
	}
	return &CircuitBreakerRoundTripper{
		Delegate:      delegate,
		Breaker:       breaker,
		GroupKeyFunc:  opts.GroupKeyFunc,
		RespondOnOpen: opts.RespondOnOpen,
		IsFailure:     opts.IsFailure,
	}, nil
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *CircuitBreakerRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	group := rt.GroupKeyFunc(r)

	if !rt.Breaker.Allow(group) {
		status := rt.Breaker.Status(group)
		closeRequestBody(r)
		if rt.RespondOnOpen {
			return makeCircuitOpenResponse(r, group, status), nil
		}
		return nil, &CircuitOpenError{
			Group:      group,
			State:      status.State,
			OpenedAt:   status.OpenedAt,
			RetryAfter: status.RetryAfter,
		}
	}

	resp, err := rt.Delegate.RoundTrip(r)

	// The outcome is recorded before the error is propagated,
	// so outer middlewares always see an up-to-date circuit.
	if rt.IsFailure(resp, err) {
		rt.Breaker.RecordFailure(group)
	} else {
		rt.Breaker.RecordSuccess(group)
	}
	return resp, err
}

// circuitOpenProblem is the problem details payload of a synthesized 503 response.
type circuitOpenProblem struct {
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	RetryAfter int    `json:"retryAfter"`
}

func makeCircuitOpenResponse(r *http.Request, group string, status circuitbreaker.Status) *http.Response {
	retryAfter := retryAfterSeconds(status.RetryAfter)
	body, _ := json.Marshal(circuitOpenProblem{
		Title:      http.StatusText(http.StatusServiceUnavailable),
		Status:     http.StatusServiceUnavailable,
		Detail:     fmt.Sprintf("circuit for group %q is %s", group, status.State),
		RetryAfter: retryAfter,
	})
	header := make(http.Header)
	header.Set("Content-Type", "application/problem+json")
	header.Set("Retry-After", strconv.Itoa(retryAfter))
	return &http.Response{
		Status: fmt.Sprintf(
			"%d %s", http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable)),
		StatusCode:    http.StatusServiceUnavailable,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       r,
	}
}
