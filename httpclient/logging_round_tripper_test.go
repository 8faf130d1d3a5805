/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-appkit/log/logtest"
)

func TestLoggingRoundTripperLogsRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	logger := logtest.NewRecorder()
	rt := NewLoggingRoundTripperWithOpts(http.DefaultTransport, "test-request", LoggingRoundTripperOpts{
		Logger: logger,
		Mode:   LoggingModeAll,
	})
	client := &http.Client{Transport: rt}

	resp, err := client.Post(server.URL, "text/plain", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NotEmpty(t, logger.Entries())

	loggerEntry := logger.Entries()[0]
	require.Contains(t, loggerEntry.Text, "client http request POST "+server.URL+" req type test-request status code 418")
}

func TestLoggingRoundTripperLogsTransportErrors(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	serverURL := "http://" + ln.Addr().String()
	_ = ln.Close()

	logger := logtest.NewRecorder()
	rt := NewLoggingRoundTripperWithOpts(http.DefaultTransport, "test-request", LoggingRoundTripperOpts{
		Logger: logger,
		Mode:   LoggingModeAll,
	})
	client := &http.Client{Transport: rt}

	r, err := client.Post(serverURL, "text/plain", nil)
	require.Error(t, err)
	require.Nil(t, r)
	require.NotEmpty(t, logger.Entries())

	loggerEntry := logger.Entries()[0]
	require.Contains(t, loggerEntry.Text, "client http request POST "+serverURL+" req type test-request")
	require.NotContains(t, loggerEntry.Text, "status code")
}

func TestLoggingRoundTripperFailedModeSkipsSuccesses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	}))
	defer server.Close()

	logger := logtest.NewRecorder()
	rt := NewLoggingRoundTripperWithOpts(http.DefaultTransport, "test-request", LoggingRoundTripperOpts{
		Logger: logger,
		Mode:   LoggingModeFailed,
	})
	client := &http.Client{Transport: rt}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Empty(t, logger.Entries())
}

func TestLoggingRoundTripperSlowRequestThreshold(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	}))
	defer server.Close()

	logger := logtest.NewRecorder()
	rt := NewLoggingRoundTripperWithOpts(http.DefaultTransport, "test-request", LoggingRoundTripperOpts{
		Logger:               logger,
		Mode:                 LoggingModeAll,
		SlowRequestThreshold: time.Minute,
	})
	client := &http.Client{Transport: rt}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Empty(t, logger.Entries(), "fast requests below the threshold must not be logged")
}
