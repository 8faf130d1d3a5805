/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/retry"
)

// Default parameter values for RetryableRoundTripper.
const (
	DefaultMaxRetryAttempts                  = 10
	DefaultExponentialBackoffInitialInterval = time.Second
	DefaultExponentialBackoffMultiplier      = 2
	DefaultMaxRetryAfterWait                 = 2 * time.Minute
)

// UnlimitedRetryAttempts should be used as RetryableRoundTripperOpts.MaxRetryAttempts value
// when we want to stop retries only by RetryableRoundTripperOpts.BackoffPolicy.
const UnlimitedRetryAttempts = -1

// UnlimitedRetryAfterWait should be used as RetryableRoundTripperOpts.MaxRetryAfterWait value
// when any server-requested wait should be honored.
const UnlimitedRetryAfterWait = -1

// RetryAttemptNumberHeader is an HTTP header name that will contain the serial number of the retry attempt.
const RetryAttemptNumberHeader = "X-Retry-Attempt"

// DefaultRetryableMethods are the HTTP methods retried by default. Methods that
// create resources (POST, PATCH) are excluded; the idempotency hint in the
// request context (see NewContextWithIdempotentHint) overrides the gate.
var DefaultRetryableMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete,
}

// DefaultRetryableStatusCodes is the set of response status codes that trigger a retry by default.
var DefaultRetryableStatusCodes = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// CheckRetryFunc is a function that is called right after RoundTrip() method
// and determines if the next retry attempt is needed.
type CheckRetryFunc func(ctx context.Context, resp *http.Response, roundTripErr error, doneRetryAttempts int) (bool, error)

// RetryableRoundTripper wraps an object that implements http.RoundTripper interface
// and provides a retrying mechanism for HTTP requests.
type RetryableRoundTripper struct {
	// Delegate is an object that implements http.RoundTripper interface
	// and is used for sending HTTP requests under the hood.
	Delegate http.RoundTripper

	// Logger is used for logging.
	// When it's necessary to use context-specific logger, LoggerProvider should be used instead.
	Logger log.FieldLogger

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// MaxRetryAttempts determines how many maximum retry attempts can be done.
	// The total number of sending HTTP request may be MaxRetryAttempts + 1 (the first request is not a retry attempt).
	// If its value is UnlimitedRetryAttempts, it's supposed that retry mechanism will be stopped by BackoffPolicy.
	// By default, DefaultMaxRetryAttempts const is used.
	MaxRetryAttempts int

	// RetryableMethods gates which HTTP methods are retried at all.
	// A request with a method outside the set is done exactly once,
	// unless the idempotency hint is present in its context.
	RetryableMethods map[string]struct{}

	// CheckRetry is called right after RoundTrip() method and determines if the next retry attempt is needed.
	// By default, a check against RetryableRoundTripperOpts.RetryableStatusCodes is used.
	CheckRetry CheckRetryFunc

	// IgnoreRetryAfter determines if Retry-After HTTP header of the response is parsed and
	// used as a wait time before doing the next retry attempt.
	// If it's true or response doesn't contain Retry-After HTTP header, BackoffPolicy will be used for computing delay.
	IgnoreRetryAfter bool

	// MaxRetryAfterWait is the maximum tolerated server-requested wait.
	// When the Retry-After header asks to wait longer, retrying is abandoned
	// instead of honoring it. If its value is UnlimitedRetryAfterWait, any wait is honored.
	// By default, DefaultMaxRetryAfterWait const is used.
	MaxRetryAfterWait time.Duration

	// BackoffPolicy is used for computing wait time before doing the next retry attempt.
	// A Retry-After response header takes precedence when it asks for a longer wait.
	// By default, DefaultBackoffPolicy is used.
	BackoffPolicy retry.Policy
}

// RetryableRoundTripperOpts represents an options for RetryableRoundTripper.
type RetryableRoundTripperOpts struct {
	// Logger is used for logging.
	// When it's necessary to use context-specific logger, LoggerProvider should be used instead.
	Logger log.FieldLogger

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// MaxRetryAttempts determines how many maximum retry attempts can be done.
	// By default, DefaultMaxRetryAttempts const is used.
	MaxRetryAttempts int

	// RetryableMethods gates which HTTP methods are retried at all.
	// By default, DefaultRetryableMethods is used.
	RetryableMethods []string

	// RetryableStatusCodes is the set of response status codes that trigger a retry.
	// It is consulted by the default retry check only; a custom CheckRetryFunc replaces it.
	// By default, DefaultRetryableStatusCodes is used.
	RetryableStatusCodes []int

	// CheckRetryFunc is called right after RoundTrip() method and determines if the next retry attempt is needed.
	CheckRetryFunc CheckRetryFunc

	// IgnoreRetryAfter determines if Retry-After HTTP header of the response is parsed and
	// used as a wait time before doing the next retry attempt.
	IgnoreRetryAfter bool

	// MaxRetryAfterWait is the maximum tolerated server-requested wait.
	// By default, DefaultMaxRetryAfterWait const is used.
	MaxRetryAfterWait time.Duration

	// BackoffPolicy is used for computing wait time before doing the next retry attempt.
	// By default, DefaultBackoffPolicy is used.
	BackoffPolicy retry.Policy
}

// NewRetryableRoundTripper returns a new instance of RetryableRoundTripper.
func NewRetryableRoundTripper(delegate http.RoundTripper) (*RetryableRoundTripper, error) {
	return NewRetryableRoundTripperWithOpts(delegate, RetryableRoundTripperOpts{})
}

// NewRetryableRoundTripperWithOpts creates a new instance of RetryableRoundTripper with specified options.
func NewRetryableRoundTripperWithOpts(
	delegate http.RoundTripper, opts RetryableRoundTripperOpts,
) (*RetryableRoundTripper, error) {
	if opts.MaxRetryAttempts < 0 && opts.MaxRetryAttempts != UnlimitedRetryAttempts {
		return nil, fmt.Errorf("incorrect max retry attempts")
	}
	if opts.MaxRetryAttempts == 0 {
		opts.MaxRetryAttempts = DefaultMaxRetryAttempts
	}

	if opts.MaxRetryAfterWait < 0 && opts.MaxRetryAfterWait != UnlimitedRetryAfterWait {
		return nil, fmt.Errorf("incorrect max retry-after wait")
	}
	if opts.MaxRetryAfterWait == 0 {
		opts.MaxRetryAfterWait = DefaultMaxRetryAfterWait
	}

	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}

	if len(opts.RetryableMethods) == 0 {
		opts.RetryableMethods = DefaultRetryableMethods
	}
	retryableMethods := make(map[string]struct{}, len(opts.RetryableMethods))
	for _, m := range opts.RetryableMethods {
		retryableMethods[m] = struct{}{}
	}

	if opts.CheckRetryFunc == nil {
		statusCodes := opts.RetryableStatusCodes
		if len(statusCodes) == 0 {
			statusCodes = DefaultRetryableStatusCodes
		}
		opts.CheckRetryFunc = MakeCheckRetryWithStatusCodes(statusCodes)
	}

	if opts.BackoffPolicy == nil {
		opts.BackoffPolicy = DefaultBackoffPolicy
	}

	return &RetryableRoundTripper{
		Delegate:          delegate,
		Logger:            opts.Logger,
		LoggerProvider:    opts.LoggerProvider,
		MaxRetryAttempts:  opts.MaxRetryAttempts,
		RetryableMethods:  retryableMethods,
		CheckRetry:        opts.CheckRetryFunc,
		BackoffPolicy:     opts.BackoffPolicy,
		IgnoreRetryAfter:  opts.IgnoreRetryAfter,
		MaxRetryAfterWait: opts.MaxRetryAfterWait,
	}, nil
}

// RoundTrip performs request with retry logic.
// nolint: gocyclo
func (rt *RetryableRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if !rt.isRequestRetryable(req) {
		return rt.Delegate.RoundTrip(req)
	}

	rewindReqBody := func(r *http.Request) error { return nil }
	if req.Body != nil {
		originalReqBody := req.Body
		defer func() {
			_ = originalReqBody.Close() // Per RoundTripper contract.
		}()

		var err error
		rewindReqBody, err = makeRequestBodyRewindable(req)
		if err != nil {
			return nil, &RetryableRoundTripperError{Inner: err}
		}
	}

	getNextWaitTime := rt.makeNextWaitTimeProvider()
	reqCtx := req.Context()
	reqCloned := false

	var resp *http.Response
	var roundTripErr error
	for curRetryAttemptNum := 0; ; curRetryAttemptNum++ {
		// Rewind request body.
		if rewindErr := rewindReqBody(req); rewindErr != nil {
			if curRetryAttemptNum == 0 {
				return nil, &RetryableRoundTripperError{Inner: rewindErr}
			}
			rt.logger(reqCtx).Error(fmt.Sprintf(
				"failed to rewind request body between retry attempts, %d request(s) done", curRetryAttemptNum+1),
				log.Error(rewindErr))
			return resp, roundTripErr
		}

		// Discard and close response body before next retry.
		if resp != nil && roundTripErr == nil {
			drainResponseBody(resp, rt.logger(reqCtx))
		}

		if curRetryAttemptNum > 0 {
			if !reqCloned {
				req, reqCloned = req.Clone(req.Context()), true // Per RoundTripper contract.
			}
			req.Header.Set(RetryAttemptNumberHeader, strconv.Itoa(curRetryAttemptNum))
		}

		// Perform request attempt.
		resp, roundTripErr = rt.Delegate.RoundTrip(req)

		// Check if another retry attempt should be done.
		needRetry, checkRetryErr := rt.CheckRetry(reqCtx, resp, roundTripErr, curRetryAttemptNum)
		if checkRetryErr != nil {
			rt.logger(reqCtx).Error(fmt.Sprintf(
				"failed to check if retry is needed, %d request(s) done", curRetryAttemptNum+1),
				log.Error(checkRetryErr))
			return resp, roundTripErr
		}
		if !needRetry {
			return resp, roundTripErr
		}

		// Check should we stop (max attempts exceeded, intolerable Retry-After, or by backoff policy).
		if rt.MaxRetryAttempts > 0 && curRetryAttemptNum >= rt.MaxRetryAttempts {
			rt.logger(reqCtx).Warnf("max retry attempts exceeded (%d), %d request(s) done",
				rt.MaxRetryAttempts, curRetryAttemptNum+1)
			return resp, roundTripErr
		}
		waitTime, stop := getNextWaitTime(reqCtx, resp)
		if stop {
			return resp, roundTripErr
		}

		select {
		case <-reqCtx.Done():
			rt.logger(reqCtx).Warnf("context canceled (%v) while waiting for the next retry attempt, %d request(s) done",
				reqCtx.Err(), curRetryAttemptNum+1)
			return resp, roundTripErr
		case <-time.After(waitTime):
		}
	}
}

func (rt *RetryableRoundTripper) isRequestRetryable(req *http.Request) bool {
	if GetIdempotentHintFromContext(req.Context()) {
		return true
	}
	_, ok := rt.RetryableMethods[req.Method]
	return ok
}

type waitTimeProvider func(ctx context.Context, resp *http.Response) (waitTime time.Duration, stop bool)

func (rt *RetryableRoundTripper) makeNextWaitTimeProvider() waitTimeProvider {
	bf := rt.BackoffPolicy.NewBackOff()
	return func(ctx context.Context, resp *http.Response) (waitTime time.Duration, stop bool) {
		waitTime = bf.NextBackOff()
		if waitTime == backoff.Stop {
			return waitTime, true
		}
		if resp == nil || rt.IgnoreRetryAfter {
			return waitTime, false
		}
		retryAfter, ok := parseRetryAfterFromResponse(resp)
		if !ok {
			return waitTime, false
		}
		if rt.MaxRetryAfterWait != UnlimitedRetryAfterWait && retryAfter > rt.MaxRetryAfterWait {
			rt.logger(ctx).Warnf("server asks to retry after %s which exceeds the tolerated %s, giving up",
				retryAfter, rt.MaxRetryAfterWait)
			return 0, true
		}
		// The server-requested wait takes precedence only when it's longer than the computed backoff.
		if retryAfter > waitTime {
			waitTime = retryAfter
		}
		return waitTime, false
	}
}

func (rt *RetryableRoundTripper) logger(ctx context.Context) log.FieldLogger {
	if rt.LoggerProvider != nil {
		return rt.LoggerProvider(ctx)
	}
	return rt.Logger
}

// RetryableRoundTripperError is returned in RoundTrip method of RetryableRoundTripper
// when the original request cannot be potentially retried.
type RetryableRoundTripperError struct {
	Inner error
}

func (e *RetryableRoundTripperError) Error() string {
	return fmt.Sprintf("retryable round trip: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *RetryableRoundTripperError) Unwrap() error {
	return e.Inner
}

// MakeCheckRetryWithStatusCodes builds a CheckRetryFunc that requests a retry
// for temporary transport errors and for responses with one of the given status codes.
func MakeCheckRetryWithStatusCodes(statusCodes []int) CheckRetryFunc {
	codes := make(map[int]struct{}, len(statusCodes))
	for _, code := range statusCodes {
		codes[code] = struct{}{}
	}
	return func(ctx context.Context, resp *http.Response, roundTripErr error, doneRetryAttempts int) (bool, error) {
		if roundTripErr != nil {
			return CheckErrorIsTemporary(roundTripErr), nil
		}
		if resp == nil {
			return false, fmt.Errorf("both response and round trip error are nil")
		}
		_, ok := codes[resp.StatusCode]
		return ok, nil
	}
}

// DefaultCheckRetry represents default function to determine either retry is needed or not.
var DefaultCheckRetry = MakeCheckRetryWithStatusCodes(DefaultRetryableStatusCodes)

// DefaultBackoffPolicy is a default backoff policy. The randomization factor of
// the exponential backoff acts as the jitter fraction applied to computed delays.
var DefaultBackoffPolicy = retry.PolicyFunc(func() backoff.BackOff {
	bf := backoff.NewExponentialBackOff()
	bf.InitialInterval = DefaultExponentialBackoffInitialInterval
	bf.Multiplier = DefaultExponentialBackoffMultiplier
	bf.Reset()
	return bf
})

// CheckErrorIsTemporary checks either error is temporary or not.
func CheckErrorIsTemporary(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var terr interface{ Temporary() bool }
	ok := errors.As(err, &terr)
	return ok && terr.Temporary()
}

func parseRetryAfterFromResponse(resp *http.Response) (retryAfter time.Duration, ok bool) {
	retryAfterVal := resp.Header.Get("Retry-After")
	if retryAfterVal == "" {
		return 0, false
	}

	parsedInt, parseIntErr := strconv.Atoi(retryAfterVal)
	if parseIntErr != nil {
		parsedTime, parsedTimeErr := time.Parse(time.RFC1123, retryAfterVal)
		if parsedTimeErr != nil {
			return 0, false
		}
		return time.Until(parsedTime), true
	}
	if parsedInt < 0 {
		return 0, false
	}
	return time.Duration(parsedInt) * time.Second, true
}
