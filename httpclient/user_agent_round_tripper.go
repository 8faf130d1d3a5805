/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import "net/http"

// UserAgentUpdateStrategy determines how the configured user agent is combined
// with a User-Agent header already present on the outgoing request.
type UserAgentUpdateStrategy int

// User-Agent update strategies.
const (
	// UserAgentUpdateStrategySetIfEmpty sets the header only when the request carries none.
	UserAgentUpdateStrategySetIfEmpty UserAgentUpdateStrategy = iota

	// UserAgentUpdateStrategyAppend adds the configured value after the existing one.
	UserAgentUpdateStrategyAppend

	// UserAgentUpdateStrategyPrepend adds the configured value before the existing one.
	UserAgentUpdateStrategyPrepend
)

// UserAgentRoundTripper implements http.RoundTripper interface
// and sets the User-Agent HTTP header in outgoing requests.
// A request whose header would not change is delegated untouched.
type UserAgentRoundTripper struct {
	Delegate       http.RoundTripper
	UserAgent      string
	UpdateStrategy UserAgentUpdateStrategy
}

// UserAgentRoundTripperOpts represents an options for UserAgentRoundTripper.
type UserAgentRoundTripperOpts struct {
	// UpdateStrategy determines what happens when the request already has a User-Agent header.
	// By default, an existing value is kept as is.
	UpdateStrategy UserAgentUpdateStrategy
}

// NewUserAgentRoundTripper creates a new UserAgentRoundTripper.
func NewUserAgentRoundTripper(delegate http.RoundTripper, userAgent string) *UserAgentRoundTripper {
	return NewUserAgentRoundTripperWithOpts(delegate, userAgent, UserAgentRoundTripperOpts{})
}

// NewUserAgentRoundTripperWithOpts creates a new UserAgentRoundTripper with specified options.
func NewUserAgentRoundTripperWithOpts(
	delegate http.RoundTripper, userAgent string, opts UserAgentRoundTripperOpts,
) *UserAgentRoundTripper {
	return &UserAgentRoundTripper{Delegate: delegate, UserAgent: userAgent, UpdateStrategy: opts.UpdateStrategy}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *UserAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.UserAgent == "" {
		return rt.Delegate.RoundTrip(req)
	}

	current := req.Header.Get("User-Agent")
	merged := rt.mergeUserAgent(current)
	if merged == current {
		return rt.Delegate.RoundTrip(req)
	}

	req = CloneHTTPRequest(req) // Per RoundTripper contract.
	req.Header.Set("User-Agent", merged)
	return rt.Delegate.RoundTrip(req)
}

func (rt *UserAgentRoundTripper) mergeUserAgent(current string) string {
	if current == "" {
		return rt.UserAgent
	}
	switch rt.UpdateStrategy {
	case UserAgentUpdateStrategyAppend:
		return current + " " + rt.UserAgent
	case UserAgentUpdateStrategyPrepend:
		return rt.UserAgent + " " + current
	}
	// UserAgentUpdateStrategySetIfEmpty keeps the existing value.
	return current
}
