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
	"time"

	"github.com/acronis/go-httpresilience/taggedcache"
)

// Default parameter values for CachingRoundTripper.
const (
	DefaultCacheTTL         = 5 * time.Minute
	DefaultCacheMaxBodySize = 10 * 1024 * 1024
)

// CachedResponse is a cached response payload stored by CachingRoundTripper.
type CachedResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ResponseCache is the cache consumed by CachingRoundTripper.
type ResponseCache = taggedcache.TaggedCache[*CachedResponse]

// CachingRoundTripper wraps an object that implements http.RoundTripper interface
// and serves repeated requests from a tagged in-memory cache. A cache hit
// short-circuits the chain: the delegate (and so the network) is not touched.
type CachingRoundTripper struct {
	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// Cache stores response payloads.
	Cache *ResponseCache

	// Methods are HTTP methods eligible for caching.
	Methods map[string]struct{}

	// DefaultTTL is used when per-request cache directives don't override it.
	DefaultTTL time.Duration

	// MaxBodySize limits how large a response body may be to get cached.
	MaxBodySize int64
}

// CachingRoundTripperOpts represents an options for CachingRoundTripper.
type CachingRoundTripperOpts struct {
	// Methods are HTTP methods eligible for caching. By default, only GET requests are cached.
	Methods []string

	// DefaultTTL is a TTL for cached entries when per-request directives don't override it.
	// By default, DefaultCacheTTL const is used.
	DefaultTTL time.Duration

	// MaxBodySize limits how large a response body may be to get cached.
	// By default, DefaultCacheMaxBodySize const is used.
	MaxBodySize int64
}

// NewCachingRoundTripper creates a new CachingRoundTripper.
func NewCachingRoundTripper(delegate http.RoundTripper, cache *ResponseCache) (*CachingRoundTripper, error) {
	return NewCachingRoundTripperWithOpts(delegate, cache, CachingRoundTripperOpts{})
}

// NewCachingRoundTripperWithOpts creates a new CachingRoundTripper with specified options.
// For options that are not presented, the default values will be used.
func NewCachingRoundTripperWithOpts(
	delegate http.RoundTripper, cache *ResponseCache, opts CachingRoundTripperOpts,
) (*CachingRoundTripper, error) {
	if cache == nil {
		return nil, fmt.Errorf("cache must be provided")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("default TTL must not be negative")
	}
	if opts.DefaultTTL == 0 {
		opts.DefaultTTL = DefaultCacheTTL
	}
	if opts.MaxBodySize == 0 {
		opts.MaxBodySize = DefaultCacheMaxBodySize
	}
	if len(opts.Methods) == 0 {
		opts.Methods = []string{http.MethodGet}
	}
	methods := make(map[string]struct{}, len(opts.Methods))
	for _, m := range opts.Methods {
		methods[m] = struct{}{}
	}
	return &CachingRoundTripper{
		Delegate:    delegate,
		Cache:       cache,
		Methods:     methods,
		DefaultTTL:  opts.DefaultTTL,
		MaxBodySize: opts.MaxBodySize,
	}, nil
}

// RoundTrip serves the request from the cache when possible,
// otherwise delegates it and caches a successful response.
func (rt *CachingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	directives, _ := GetCacheDirectivesFromContext(r.Context())
	if directives.Disabled {
		return rt.Delegate.RoundTrip(r)
	}
	if _, ok := rt.Methods[r.Method]; !ok {
		return rt.Delegate.RoundTrip(r)
	}

	key := directives.Key
	if key == nil {
		key = taggedcache.Key{r.Method, r.URL.String()}
	}

	if cached, found := rt.Cache.Get(key); found {
		return makeResponseFromCache(r, cached), nil
	}

	resp, err := rt.Delegate.RoundTrip(r)
	if err != nil {
		return resp, err
	}

	if resp.StatusCode < http.StatusBadRequest {
		ttl := directives.TTL
		if ttl <= 0 {
			ttl = rt.DefaultTTL
		}
		if cached, readErr := makeCachedResponse(resp, rt.MaxBodySize); readErr == nil {
			rt.Cache.Set(key, cached, ttl, directives.Tags...)
		}
	}

	return resp, nil
}

// makeCachedResponse buffers the response body so it can be stored and served
// multiple times, restoring resp.Body for the current caller.
func makeCachedResponse(resp *http.Response, maxBodySize int64) (*CachedResponse, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &CachedResponse{
		StatusCode: resp.StatusCode,
		Header:     CloneHTTPHeader(resp.Header),
		Body:       body,
	}, nil
}

func makeResponseFromCache(r *http.Request, cached *CachedResponse) *http.Response {
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", cached.StatusCode, http.StatusText(cached.StatusCode)),
		StatusCode:    cached.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        CloneHTTPHeader(cached.Header),
		Body:          io.NopCloser(bytes.NewReader(cached.Body)),
		ContentLength: int64(len(cached.Body)),
		Request:       r,
	}
}
