/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-appkit/retry"
)

type reqInfo struct {
	method             string
	body               []byte
	retryAttemptHeader string
}

type testServerForRetryableRoundTripper struct {
	*httptest.Server
	sync.RWMutex
	reqInfos   []reqInfo
	respCodes  []int
	respHeader http.Header
}

func (s *testServerForRetryableRoundTripper) ReqInfos() []reqInfo {
	s.RLock()
	defer s.RUnlock()
	res := make([]reqInfo, len(s.reqInfos))
	copy(res, s.reqInfos)
	return res
}

func (s *testServerForRetryableRoundTripper) Reset(respCodes []int) {
	s.Lock()
	defer s.Unlock()
	s.reqInfos = nil
	s.respCodes = respCodes
	s.respHeader = nil
}

func newTestServerForRetryableRoundTripper() *testServerForRetryableRoundTripper {
	srv := &testServerForRetryableRoundTripper{}
	srv.Server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var reqBody []byte
		if r.Method != http.MethodGet {
			reqBody, _ = io.ReadAll(r.Body)
		}

		srv.Lock()
		srv.reqInfos = append(srv.reqInfos, reqInfo{
			method:             r.Method,
			body:               reqBody,
			retryAttemptHeader: r.Header.Get(RetryAttemptNumberHeader),
		})
		respCode := http.StatusOK
		if len(srv.respCodes) > 0 {
			respCode = srv.respCodes[len(srv.respCodes)-1]
			srv.respCodes = srv.respCodes[:len(srv.respCodes)-1]
		}
		for key, values := range srv.respHeader {
			for _, value := range values {
				rw.Header().Add(key, value)
			}
		}
		srv.Unlock()

		rw.WriteHeader(respCode)
		_, _ = rw.Write([]byte("body"))
	}))
	return srv
}

func constantBackoffPolicy(interval time.Duration) retry.Policy {
	return retry.PolicyFunc(func() backoff.BackOff {
		bf := backoff.NewConstantBackOff(interval)
		bf.Reset()
		return bf
	})
}

func TestRetryableRoundTripperRetriesOnStatusCodes(t *testing.T) {
	server := newTestServerForRetryableRoundTripper()
	defer server.Close()
	server.Reset([]int{http.StatusOK, http.StatusServiceUnavailable, http.StatusInternalServerError})

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		BackoffPolicy: constantBackoffPolicy(time.Millisecond * 10),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reqInfos := server.ReqInfos()
	require.Len(t, reqInfos, 3)
	require.Equal(t, "", reqInfos[0].retryAttemptHeader)
	require.Equal(t, "1", reqInfos[1].retryAttemptHeader)
	require.Equal(t, "2", reqInfos[2].retryAttemptHeader)
}

func TestRetryableRoundTripperMaxRetryAttemptsExceeded(t *testing.T) {
	server := newTestServerForRetryableRoundTripper()
	defer server.Close()
	server.Reset([]int{
		http.StatusServiceUnavailable, http.StatusServiceUnavailable,
		http.StatusServiceUnavailable, http.StatusServiceUnavailable,
	})

	const maxRetryAttempts = 2

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		MaxRetryAttempts: maxRetryAttempts,
		BackoffPolicy:    constantBackoffPolicy(time.Millisecond * 10),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Len(t, server.ReqInfos(), maxRetryAttempts+1)
}

func TestRetryableRoundTripperUnsafeMethodsNotRetried(t *testing.T) {
	server := newTestServerForRetryableRoundTripper()
	defer server.Close()
	server.Reset([]int{http.StatusOK, http.StatusServiceUnavailable})

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		BackoffPolicy: constantBackoffPolicy(time.Millisecond * 10),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	resp, err := client.Post(server.URL, "text/plain", bytes.NewReader([]byte("req-body")))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Len(t, server.ReqInfos(), 1)
}

func TestRetryableRoundTripperIdempotentHintAllowsRetry(t *testing.T) {
	server := newTestServerForRetryableRoundTripper()
	defer server.Close()
	server.Reset([]int{http.StatusOK, http.StatusServiceUnavailable})

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		BackoffPolicy: constantBackoffPolicy(time.Millisecond * 10),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	ctx := NewContextWithIdempotentHint(context.Background(), true)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL, bytes.NewReader([]byte("req-body")))
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reqInfos := server.ReqInfos()
	require.Len(t, reqInfos, 2)
	require.Equal(t, []byte("req-body"), reqInfos[0].body)
	require.Equal(t, []byte("req-body"), reqInfos[1].body)
}

func TestRetryableRoundTripperHonorsRetryAfter(t *testing.T) {
	server := newTestServerForRetryableRoundTripper()
	defer server.Close()
	server.Reset([]int{http.StatusOK, http.StatusTooManyRequests})
	server.Lock()
	server.respHeader = http.Header{"Retry-After": []string{"1"}}
	server.Unlock()

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		BackoffPolicy: constantBackoffPolicy(time.Millisecond),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	start := time.Now()
	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, server.ReqInfos(), 2)
	require.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestRetryableRoundTripperAbandonsOnExcessiveRetryAfter(t *testing.T) {
	server := newTestServerForRetryableRoundTripper()
	defer server.Close()
	server.Reset([]int{http.StatusOK, http.StatusTooManyRequests})
	server.Lock()
	server.respHeader = http.Header{"Retry-After": []string{"3600"}}
	server.Unlock()

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		MaxRetryAfterWait: time.Second,
		BackoffPolicy:     constantBackoffPolicy(time.Millisecond * 10),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Len(t, server.ReqInfos(), 1)
}

func TestRetryableRoundTripperContextCanceledWhileWaiting(t *testing.T) {
	server := newTestServerForRetryableRoundTripper()
	defer server.Close()
	server.Reset([]int{http.StatusOK, http.StatusServiceUnavailable})

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		BackoffPolicy: constantBackoffPolicy(time.Second * 5),
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(time.Millisecond * 50)
		cancel()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	start := time.Now()
	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Less(t, time.Since(start), time.Second)
	require.Len(t, server.ReqInfos(), 1)
}

func TestRetryableRoundTripperCustomCheckRetry(t *testing.T) {
	server := newTestServerForRetryableRoundTripper()
	defer server.Close()
	server.Reset([]int{http.StatusOK, http.StatusNotFound})

	rt, err := NewRetryableRoundTripperWithOpts(http.DefaultTransport, RetryableRoundTripperOpts{
		BackoffPolicy: constantBackoffPolicy(time.Millisecond * 10),
		CheckRetryFunc: func(ctx context.Context, resp *http.Response, roundTripErr error, doneRetryAttempts int) (bool, error) {
			if roundTripErr != nil {
				return false, nil
			}
			return resp.StatusCode == http.StatusNotFound, nil
		},
	})
	require.NoError(t, err)
	client := &http.Client{Transport: rt}

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, server.ReqInfos(), 2)
}

func TestParseRetryAfterFromResponse(t *testing.T) {
	makeResp := func(retryAfter string) *http.Response {
		header := make(http.Header)
		if retryAfter != "" {
			header.Set("Retry-After", retryAfter)
		}
		return &http.Response{Header: header}
	}

	retryAfter, ok := parseRetryAfterFromResponse(makeResp("10"))
	require.True(t, ok)
	require.Equal(t, time.Second*10, retryAfter)

	retryAfter, ok = parseRetryAfterFromResponse(makeResp(time.Now().Add(time.Minute).UTC().Format(time.RFC1123)))
	require.True(t, ok)
	require.Greater(t, retryAfter, time.Second*50)

	_, ok = parseRetryAfterFromResponse(makeResp(""))
	require.False(t, ok)

	_, ok = parseRetryAfterFromResponse(makeResp("not-a-date"))
	require.False(t, ok)

	_, ok = parseRetryAfterFromResponse(makeResp(strconv.Itoa(-5)))
	require.False(t, ok)
}
