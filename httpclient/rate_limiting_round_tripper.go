/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/acronis/go-httpresilience/ratelimit"
)

// RateLimitingRoundTripper wraps an object that implements http.RoundTripper interface
// and enforces a client-side rate limit per logical group for outgoing requests.
// A denied request never reaches the delegate. When the used limiter is adaptive,
// quota values reported by the server in response headers are fed back into it.
type RateLimitingRoundTripper struct {
	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// Limiter makes the allow-or-deny decision per group.
	Limiter ratelimit.Limiter

	// GroupKeyFunc derives the rate limiting group from the request.
	GroupKeyFunc GroupKeyFunc

	// RespondOnLimit makes a denied request produce a synthesized 429 response
	// instead of a *RateLimitError.
	RespondOnLimit bool

	adaptive *ratelimit.AdaptiveLimiter
}

// RateLimitingRoundTripperOpts represents an options for RateLimitingRoundTripper.
type RateLimitingRoundTripperOpts struct {
	// GroupKeyFunc derives the rate limiting group from the request.
	// By default, all requests share one global group.
	GroupKeyFunc GroupKeyFunc

	// RespondOnLimit makes a denied request produce a synthesized 429 response
	// with a Retry-After header instead of a *RateLimitError.
	RespondOnLimit bool
}

// NewRateLimitingRoundTripper creates a new RateLimitingRoundTripper with the specified limiter.
func NewRateLimitingRoundTripper(delegate http.RoundTripper, limiter ratelimit.Limiter) (*RateLimitingRoundTripper, error) {
	return NewRateLimitingRoundTripperWithOpts(delegate, limiter, RateLimitingRoundTripperOpts{})
}

// NewRateLimitingRoundTripperWithOpts creates a new RateLimitingRoundTripper
// with the specified limiter and options.
func NewRateLimitingRoundTripperWithOpts(
	delegate http.RoundTripper, limiter ratelimit.Limiter, opts RateLimitingRoundTripperOpts,
) (*RateLimitingRoundTripper, error) {
	if limiter == nil {
		return nil, fmt.Errorf("limiter must be provided")
	}
	if opts.GroupKeyFunc == nil {
		opts.GroupKeyFunc = SingleGroupKeyFunc
	}
	adaptive, _ := limiter.(*ratelimit.AdaptiveLimiter)
	return &RateLimitingRoundTripper{
		Delegate:       delegate,
		Limiter:        limiter,
		GroupKeyFunc:   opts.GroupKeyFunc,
		RespondOnLimit: opts.RespondOnLimit,
		adaptive:       adaptive,
	}, nil
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *RateLimitingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	group := rt.GroupKeyFunc(r)

	allow, retryAfter, err := rt.Limiter.Allow(r.Context(), group)
	if err != nil {
		closeRequestBody(r)
		return nil, fmt.Errorf("rate limit check for group %q: %w", group, err)
	}
	if !allow {
		closeRequestBody(r)
		if rt.RespondOnLimit {
			return makeTooManyRequestsResponse(r, retryAfter), nil
		}
		return nil, &RateLimitError{Group: group, RetryAfter: retryAfter}
	}

	resp, err := rt.Delegate.RoundTrip(r)
	if err != nil {
		return resp, err
	}

	if rt.adaptive != nil {
		if hints, ok := ratelimit.ParseQuotaHints(resp.Header); ok {
			rt.adaptive.Update(group, hints)
		}
	}
	return resp, nil
}

func closeRequestBody(r *http.Request) {
	if r.Body != nil {
		_ = r.Body.Close() // Per RoundTripper contract.
	}
}

func makeTooManyRequestsResponse(r *http.Request, retryAfter time.Duration) *http.Response {
	header := make(http.Header)
	header.Set("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
	return &http.Response{
		Status:     fmt.Sprintf("%d %s", http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests)),
		StatusCode: http.StatusTooManyRequests,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Request:    r,
	}
}

// retryAfterSeconds converts a duration to whole seconds, rounding up so the
// hinted wait is never shorter than the real one.
func retryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
