/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInFlightRoundTripperTracksTransitions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	}))
	defer server.Close()

	var mu sync.Mutex
	var changes []bool
	tracker := &InFlightTracker{OnChange: func(busy bool) {
		mu.Lock()
		changes = append(changes, busy)
		mu.Unlock()
	}}

	client := &http.Client{Transport: NewInFlightRoundTripper(http.DefaultTransport, tracker)}

	for i := 0; i < 2; i++ {
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}

	require.Equal(t, []bool{true, false, true, false}, changes)
	require.Equal(t, int64(0), tracker.Count())
}

func TestInFlightTrackerOnlyReportsIdleBusyEdges(t *testing.T) {
	var changes []bool
	tracker := &InFlightTracker{OnChange: func(busy bool) { changes = append(changes, busy) }}

	tracker.Inc()
	tracker.Inc()
	require.Equal(t, int64(2), tracker.Count())
	tracker.Dec()
	tracker.Dec()

	require.Equal(t, []bool{true, false}, changes)
}
