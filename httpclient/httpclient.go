/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/acronis/go-appkit/log"

	"github.com/acronis/go-httpresilience/circuitbreaker"
	"github.com/acronis/go-httpresilience/ratelimit"
	"github.com/acronis/go-httpresilience/taggedcache"
)

// DefaultRequestType is used as the request type label when none is provided.
const DefaultRequestType = "default"

// CloneHTTPRequest creates a shallow copy of the request along with a deep copy of the Headers.
func CloneHTTPRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = CloneHTTPHeader(req.Header)
	return r
}

// CloneHTTPHeader creates a deep copy of an http.Header.
func CloneHTTPHeader(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, values := range in {
		newValues := make([]string, len(values))
		copy(newValues, values)
		out[key] = newValues
	}
	return out
}

// New wraps delegate transports with caching, rate limiting, circuit breaking,
// retries, logging, metrics, request id and returns an error if any occurs.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// Must wraps delegate transports the same way New does and panics if any error occurs.
func Must(cfg *Config) *http.Client {
	client, err := New(cfg)
	if err != nil {
		panic(err)
	}

	return client
}

// Opts provides options for NewWithOpts and MustWithOpts functions.
type Opts struct {
	// UserAgent is a user agent string.
	UserAgent string

	// RequestType is a type of request. e.g. service 'auth-service', an action 'login' or specific information to correlate.
	RequestType string

	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// Logger is used for logging.
	// When it's necessary to use context-specific logger, LoggerProvider should be used instead.
	Logger log.FieldLogger

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// RequestIDProvider is a function that provides a request ID.
	RequestIDProvider func(ctx context.Context) string

	// Collector is a metrics collector.
	Collector MetricsCollector

	// Cache stores response payloads for CachingRoundTripper. Passing it here
	// keeps a handle for tag and prefix invalidation. When nil and caching is
	// enabled in the config, a private cache is created.
	Cache *ResponseCache

	// Limiter overrides the rate limiter built from the config.
	Limiter ratelimit.Limiter

	// Breaker overrides the circuit breaker built from the config.
	// Passing it here keeps a handle for manual Trip and Reset.
	Breaker *circuitbreaker.CircuitBreaker

	// InFlightTracker, when set, counts requests currently in flight.
	InFlightTracker *InFlightTracker
}

// NewWithOpts wraps delegate transports with options
// caching, rate limiting, circuit breaking, retries, logging, metrics, user agent, request id
// and returns an error if any occurs.
// nolint: gocyclo
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	var err error
	delegate := opts.Delegate

	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}

	if cfg.Retries.Enabled {
		retryOpts := cfg.Retries.TransportOpts()
		retryOpts.Logger = opts.Logger
		retryOpts.LoggerProvider = opts.LoggerProvider
		retryOpts.BackoffPolicy = cfg.Retries.GetPolicy()
		delegate, err = NewRetryableRoundTripperWithOpts(delegate, retryOpts)
		if err != nil {
			return nil, fmt.Errorf("create retryable round tripper: %w", err)
		}
	}

	if opts.UserAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, opts.UserAgent)
	}

	delegate = NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{
		RequestIDProvider: opts.RequestIDProvider,
	})

	if cfg.CircuitBreaker.Enabled {
		breaker := opts.Breaker
		if breaker == nil {
			if breaker, err = cfg.CircuitBreaker.MakeBreaker(); err != nil {
				return nil, fmt.Errorf("create circuit breaker: %w", err)
			}
		}
		delegate, err = NewCircuitBreakerRoundTripperWithOpts(delegate, breaker, cfg.CircuitBreaker.TransportOpts())
		if err != nil {
			return nil, fmt.Errorf("create circuit breaker round tripper: %w", err)
		}
	}

	if cfg.RateLimits.Enabled {
		limiter := opts.Limiter
		if limiter == nil {
			if limiter, err = cfg.RateLimits.MakeLimiter(); err != nil {
				return nil, fmt.Errorf("create rate limiter: %w", err)
			}
		}
		delegate, err = NewRateLimitingRoundTripperWithOpts(delegate, limiter, cfg.RateLimits.TransportOpts())
		if err != nil {
			return nil, fmt.Errorf("create rate limiting round tripper: %w", err)
		}
	}

	if cfg.Cache.Enabled {
		cache := opts.Cache
		if cache == nil {
			if cache, err = taggedcache.New[*CachedResponse](nil); err != nil {
				return nil, fmt.Errorf("create response cache: %w", err)
			}
		}
		delegate, err = NewCachingRoundTripperWithOpts(delegate, cache, cfg.Cache.TransportOpts())
		if err != nil {
			return nil, fmt.Errorf("create caching round tripper: %w", err)
		}
	}

	if cfg.Timeout > 0 {
		delegate = NewRequestTimeoutRoundTripper(delegate, cfg.Timeout)
	}

	if opts.InFlightTracker != nil {
		delegate = NewInFlightRoundTripper(delegate, opts.InFlightTracker)
	}

	if cfg.Metrics.Enabled {
		delegate = NewMetricsRoundTripperWithOpts(delegate, MetricsRoundTripperOpts{
			RequestType: opts.RequestType,
			Collector:   opts.Collector,
		})
	}

	if cfg.Logger.Enabled {
		logOpts := cfg.Logger.TransportOpts()
		logOpts.Logger = opts.Logger
		logOpts.LoggerProvider = opts.LoggerProvider
		delegate = NewLoggingRoundTripperWithOpts(delegate, opts.RequestType, logOpts)
	}

	return &http.Client{Transport: delegate}, nil
}

// MustWithOpts wraps delegate transports the same way NewWithOpts does and panics if any error occurs.
func MustWithOpts(cfg *Config, opts Opts) *http.Client {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		panic(err)
	}

	return client
}
