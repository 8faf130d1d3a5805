/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"

	"go.uber.org/atomic"
)

// InFlightTracker counts requests that have been started and not finished yet.
// OnChange is called only on transitions between idle and busy, so it may be
// used to drive a spinner or a busy indicator.
type InFlightTracker struct {
	count atomic.Int64

	// OnChange, when set, is called with true on the 0->1 transition
	// and with false on the 1->0 transition.
	OnChange func(busy bool)
}

// Inc registers the start of a request.
func (t *InFlightTracker) Inc() {
	if t.count.Inc() == 1 && t.OnChange != nil {
		t.OnChange(true)
	}
}

// Dec registers the end of a request.
func (t *InFlightTracker) Dec() {
	if t.count.Dec() == 0 && t.OnChange != nil {
		t.OnChange(false)
	}
}

// Count returns the number of requests currently in flight.
func (t *InFlightTracker) Count() int64 {
	return t.count.Load()
}

// InFlightRoundTripper wraps an object that implements http.RoundTripper interface
// and tracks how many requests are currently in flight.
type InFlightRoundTripper struct {
	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// Tracker counts in-flight requests.
	Tracker *InFlightTracker
}

// NewInFlightRoundTripper creates a new InFlightRoundTripper with the specified tracker.
func NewInFlightRoundTripper(delegate http.RoundTripper, tracker *InFlightTracker) *InFlightRoundTripper {
	return &InFlightRoundTripper{Delegate: delegate, Tracker: tracker}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *InFlightRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	rt.Tracker.Inc()
	defer rt.Tracker.Dec()
	return rt.Delegate.RoundTrip(r)
}
