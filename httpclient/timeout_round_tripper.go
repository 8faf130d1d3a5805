/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// DefaultRequestTimeout is a total timeout applied to a single logical request
// when the caller's context carries no deadline of its own.
const DefaultRequestTimeout = 30 * time.Second

// RequestTimeoutRoundTripper wraps an object that implements http.RoundTripper interface
// and bounds the total time of a logical request, including all retry attempts done
// by the inner round trippers. A deadline already present on the request context
// takes precedence.
type RequestTimeoutRoundTripper struct {
	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// Timeout bounds the total request time.
	Timeout time.Duration
}

// NewRequestTimeoutRoundTripper creates a new RequestTimeoutRoundTripper.
// If timeout is 0, DefaultRequestTimeout is used.
func NewRequestTimeoutRoundTripper(delegate http.RoundTripper, timeout time.Duration) *RequestTimeoutRoundTripper {
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}
	return &RequestTimeoutRoundTripper{Delegate: delegate, Timeout: timeout}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *RequestTimeoutRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if _, hasDeadline := ctx.Deadline(); hasDeadline || rt.Timeout <= 0 {
		return rt.Delegate.RoundTrip(r)
	}

	ctx, cancel := context.WithTimeout(ctx, rt.Timeout)
	resp, err := rt.Delegate.RoundTrip(r.WithContext(ctx))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			cancel()
			return nil, &RequestTimeoutError{Timeout: rt.Timeout, Inner: err}
		}
		cancel()
		return nil, err
	}

	// The context must stay alive until the response body is fully read.
	resp.Body = &cancelingReadCloser{body: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelingReadCloser struct {
	body   io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelingReadCloser) Read(p []byte) (int, error) {
	return c.body.Read(p)
}

func (c *cancelingReadCloser) Close() error {
	err := c.body.Close()
	c.cancel()
	return err
}
