/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-appkit/config"
	"github.com/acronis/go-appkit/retry"

	"github.com/acronis/go-httpresilience/circuitbreaker"
	"github.com/acronis/go-httpresilience/ratelimit"
)

const (
	// DefaultClientWaitTimeout is a default timeout for a client to wait for a request.
	DefaultClientWaitTimeout = 10 * time.Second

	// RetryPolicyExponential is a policy for exponential retries.
	RetryPolicyExponential = "exponential"

	// RetryPolicyConstant is a policy for constant retries.
	RetryPolicyConstant = "constant"

	// RateLimitAlgSlidingWindow identifies the sliding window rate limiting algorithm.
	RateLimitAlgSlidingWindow = "sliding_window"

	// RateLimitAlgLeakyBucket identifies the leaky bucket (GCRA) rate limiting algorithm.
	RateLimitAlgLeakyBucket = "leaky_bucket"

	// RateLimitAlgTokenBucket identifies the token bucket rate limiting algorithm.
	RateLimitAlgTokenBucket = "token_bucket"
)

const (
	// configuration properties
	cfgKeyRetriesEnabled                          = "retries.enabled"
	cfgKeyRetriesMax                              = "retries.maxAttempts"
	cfgKeyRetriesRetryableMethods                 = "retries.retryableMethods"
	cfgKeyRetriesRetryableStatusCodes             = "retries.retryableStatusCodes"
	cfgKeyRetriesMaxRetryAfterWait                = "retries.maxRetryAfterWait"
	cfgKeyRetriesPolicyStrategy                   = "retries.policy.strategy"
	cfgKeyRetriesPolicyExponentialInitialInterval = "retries.policy.exponentialBackoffInitialInterval"
	cfgKeyRetriesPolicyExponentialMultiplier      = "retries.policy.exponentialBackoffMultiplier"
	cfgKeyRetriesPolicyExponentialJitter          = "retries.policy.exponentialBackoffJitter"
	cfgKeyRetriesPolicyConstantInternal           = "retries.policy.constantBackoffInterval"
	cfgKeyRateLimitsEnabled                       = "rateLimits.enabled"
	cfgKeyRateLimitsLimit                         = "rateLimits.limit"
	cfgKeyRateLimitsWindow                        = "rateLimits.window"
	cfgKeyRateLimitsBurst                         = "rateLimits.burst"
	cfgKeyRateLimitsAlg                           = "rateLimits.algorithm"
	cfgKeyRateLimitsPerHost                       = "rateLimits.perHost"
	cfgKeyRateLimitsAdaptive                      = "rateLimits.adaptive"
	cfgKeyRateLimitsRespondOnLimit                = "rateLimits.respondOnLimit"
	cfgKeyCircuitBreakerEnabled                   = "circuitBreaker.enabled"
	cfgKeyCircuitBreakerFailureThreshold          = "circuitBreaker.failureThreshold"
	cfgKeyCircuitBreakerFailureWindow             = "circuitBreaker.failureWindow"
	cfgKeyCircuitBreakerOpenDuration              = "circuitBreaker.openDuration"
	cfgKeyCircuitBreakerSuccessThreshold          = "circuitBreaker.successThreshold"
	cfgKeyCircuitBreakerHalfOpenMaxAttempts       = "circuitBreaker.halfOpenMaxAttempts"
	cfgKeyCircuitBreakerPerHost                   = "circuitBreaker.perHost"
	cfgKeyCircuitBreakerRespondOnOpen             = "circuitBreaker.respondOnOpen"
	cfgKeyCacheEnabled                            = "cache.enabled"
	cfgKeyCacheDefaultTTL                         = "cache.defaultTTL"
	cfgKeyCacheMaxBodySize                        = "cache.maxBodySize"
	cfgKeyCacheMethods                            = "cache.methods"
	cfgKeyLoggerEnabled                           = "logger.enabled"
	cfgKeyLoggerMode                              = "logger.mode"
	cfgKeyLoggerSlowRequestThreshold              = "logger.slowRequestThreshold"
	cfgKeyMetricsEnabled                          = "metrics.enabled"
	cfgKeyTimeout                                 = "timeout"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// RateLimitConfig represents configuration options for HTTP client rate limits.
type RateLimitConfig struct {
	// Enabled is a flag that enables rate limiting.
	Enabled bool `mapstructure:"enabled"`

	// Limit is the maximum number of requests that can be made within Window.
	Limit int `mapstructure:"limit"`

	// Window is the length of the rate limiting window.
	Window time.Duration `mapstructure:"window"`

	// Burst allow temporary spikes in request rate. Used by the leaky bucket
	// and token bucket algorithms only.
	Burst int `mapstructure:"burst"`

	// Algorithm is one of: [sliding_window, leaky_bucket, token_bucket]. Default is sliding_window.
	Algorithm string `mapstructure:"algorithm"`

	// PerHost makes the limit apply separately per target host instead of globally.
	PerHost bool `mapstructure:"perHost"`

	// Adaptive enables lowering the effective limit from server-reported quota headers.
	Adaptive bool `mapstructure:"adaptive"`

	// RespondOnLimit makes a denied request produce a synthesized 429 response
	// instead of a RateLimitError.
	RespondOnLimit bool `mapstructure:"respondOnLimit"`
}

// Set is part of config interface implementation.
func (c *RateLimitConfig) Set(dp config.DataProvider) (err error) {
	enabled, err := dp.GetBool(cfgKeyRateLimitsEnabled)
	if err != nil {
		return err
	}
	c.Enabled = enabled

	if !c.Enabled {
		return nil
	}

	limit, err := dp.GetInt(cfgKeyRateLimitsLimit)
	if err != nil {
		return err
	}
	if limit <= 0 {
		return errors.New("client rate limit must be positive")
	}
	c.Limit = limit

	window, err := dp.GetDuration(cfgKeyRateLimitsWindow)
	if err != nil {
		return err
	}
	if window < 0 {
		return errors.New("client rate limit window must not be negative")
	}
	if window == 0 {
		window = time.Second
	}
	c.Window = window

	burst, err := dp.GetInt(cfgKeyRateLimitsBurst)
	if err != nil {
		return err
	}
	if burst < 0 {
		return errors.New("client burst must not be negative")
	}
	c.Burst = burst

	alg, err := dp.GetString(cfgKeyRateLimitsAlg)
	if err != nil {
		return err
	}
	if alg == "" {
		alg = RateLimitAlgSlidingWindow
	}
	switch alg {
	case RateLimitAlgSlidingWindow, RateLimitAlgLeakyBucket, RateLimitAlgTokenBucket:
	default:
		return errors.New(
			"client rate limit algorithm must be one of: [sliding_window, leaky_bucket, token_bucket]")
	}
	c.Algorithm = alg

	if c.PerHost, err = dp.GetBool(cfgKeyRateLimitsPerHost); err != nil {
		return err
	}
	if c.Adaptive, err = dp.GetBool(cfgKeyRateLimitsAdaptive); err != nil {
		return err
	}
	if c.RespondOnLimit, err = dp.GetBool(cfgKeyRateLimitsRespondOnLimit); err != nil {
		return err
	}

	return nil
}

// SetProviderDefaults is part of config interface implementation.
func (c *RateLimitConfig) SetProviderDefaults(_ config.DataProvider) {}

// MakeLimiter builds a rate limiter from the configuration.
func (c *RateLimitConfig) MakeLimiter() (ratelimit.Limiter, error) {
	rate := ratelimit.Rate{Count: c.Limit, Duration: c.Window}
	maxKeys := 0
	if c.PerHost {
		maxKeys = ratelimit.DefaultMaxKeys
	}

	var limiter ratelimit.Limiter
	var err error
	switch c.Algorithm {
	case RateLimitAlgLeakyBucket:
		limiter, err = ratelimit.NewLeakyBucketLimiter(rate, c.Burst, maxKeys)
	case RateLimitAlgTokenBucket:
		limiter, err = ratelimit.NewTokenBucketLimiter(rate, c.Burst, maxKeys)
	default:
		limiter, err = ratelimit.NewSlidingWindowLimiter(rate, maxKeys)
	}
	if err != nil {
		return nil, err
	}

	if c.Adaptive {
		return ratelimit.NewAdaptiveLimiter(limiter, rate, maxKeys)
	}
	return limiter, nil
}

// TransportOpts returns transport options.
func (c *RateLimitConfig) TransportOpts() RateLimitingRoundTripperOpts {
	opts := RateLimitingRoundTripperOpts{RespondOnLimit: c.RespondOnLimit}
	if c.PerHost {
		opts.GroupKeyFunc = HostGroupKeyFunc
	}
	return opts
}

// CircuitBreakerConfig represents configuration options for the HTTP client circuit breaker.
type CircuitBreakerConfig struct {
	// Enabled is a flag that enables circuit breaking.
	Enabled bool `mapstructure:"enabled"`

	// FailureThreshold is the number of failures within FailureWindow that opens the circuit.
	FailureThreshold int `mapstructure:"failureThreshold"`

	// FailureWindow is the rolling window in which failures are counted.
	FailureWindow time.Duration `mapstructure:"failureWindow"`

	// OpenDuration is how long the circuit stays open before probing is allowed.
	OpenDuration time.Duration `mapstructure:"openDuration"`

	// SuccessThreshold is the number of successful probes that closes the circuit again.
	SuccessThreshold int `mapstructure:"successThreshold"`

	// HalfOpenMaxAttempts caps concurrent probe requests in the half-open state.
	HalfOpenMaxAttempts int `mapstructure:"halfOpenMaxAttempts"`

	// PerHost isolates circuits per target host instead of sharing one global circuit.
	PerHost bool `mapstructure:"perHost"`

	// RespondOnOpen makes a rejected request produce a synthesized 503 response
	// instead of a CircuitOpenError.
	RespondOnOpen bool `mapstructure:"respondOnOpen"`
}

// Set is part of config interface implementation.
func (c *CircuitBreakerConfig) Set(dp config.DataProvider) (err error) {
	enabled, err := dp.GetBool(cfgKeyCircuitBreakerEnabled)
	if err != nil {
		return err
	}
	c.Enabled = enabled

	if !c.Enabled {
		return nil
	}

	if c.FailureThreshold, err = dp.GetInt(cfgKeyCircuitBreakerFailureThreshold); err != nil {
		return err
	}
	if c.FailureThreshold < 0 {
		return errors.New("client circuit breaker failure threshold must not be negative")
	}

	if c.FailureWindow, err = dp.GetDuration(cfgKeyCircuitBreakerFailureWindow); err != nil {
		return err
	}
	if c.FailureWindow < 0 {
		return errors.New("client circuit breaker failure window must not be negative")
	}

	if c.OpenDuration, err = dp.GetDuration(cfgKeyCircuitBreakerOpenDuration); err != nil {
		return err
	}
	if c.OpenDuration < 0 {
		return errors.New("client circuit breaker open duration must not be negative")
	}

	if c.SuccessThreshold, err = dp.GetInt(cfgKeyCircuitBreakerSuccessThreshold); err != nil {
		return err
	}
	if c.SuccessThreshold < 0 {
		return errors.New("client circuit breaker success threshold must not be negative")
	}

	if c.HalfOpenMaxAttempts, err = dp.GetInt(cfgKeyCircuitBreakerHalfOpenMaxAttempts); err != nil {
		return err
	}
	if c.HalfOpenMaxAttempts < 0 {
		return errors.New("client circuit breaker half-open max attempts must not be negative")
	}

	if c.PerHost, err = dp.GetBool(cfgKeyCircuitBreakerPerHost); err != nil {
		return err
	}
	if c.RespondOnOpen, err = dp.GetBool(cfgKeyCircuitBreakerRespondOnOpen); err != nil {
		return err
	}

	return nil
}

// SetProviderDefaults is part of config interface implementation.
func (c *CircuitBreakerConfig) SetProviderDefaults(_ config.DataProvider) {}

// MakeBreaker builds a circuit breaker from the configuration.
func (c *CircuitBreakerConfig) MakeBreaker() (*circuitbreaker.CircuitBreaker, error) {
	return circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold:    c.FailureThreshold,
		FailureWindow:       c.FailureWindow,
		OpenDuration:        c.OpenDuration,
		SuccessThreshold:    c.SuccessThreshold,
		HalfOpenMaxAttempts: c.HalfOpenMaxAttempts,
	})
}

// TransportOpts returns transport options.
func (c *CircuitBreakerConfig) TransportOpts() CircuitBreakerRoundTripperOpts {
	opts := CircuitBreakerRoundTripperOpts{RespondOnOpen: c.RespondOnOpen}
	if c.PerHost {
		opts.GroupKeyFunc = HostGroupKeyFunc
	}
	return opts
}

// CacheConfig represents configuration options for HTTP client response caching.
type CacheConfig struct {
	// Enabled is a flag that enables response caching.
	Enabled bool `mapstructure:"enabled"`

	// DefaultTTL is the TTL for cached entries when per-request directives don't override it.
	DefaultTTL time.Duration `mapstructure:"defaultTTL"`

	// MaxBodySize limits how large a response body may be to get cached.
	MaxBodySize int64 `mapstructure:"maxBodySize"`

	// Methods are HTTP methods eligible for caching. Default is GET only.
	Methods []string `mapstructure:"methods"`
}

// Set is part of config interface implementation.
func (c *CacheConfig) Set(dp config.DataProvider) (err error) {
	enabled, err := dp.GetBool(cfgKeyCacheEnabled)
	if err != nil {
		return err
	}
	c.Enabled = enabled

	if !c.Enabled {
		return nil
	}

	if c.DefaultTTL, err = dp.GetDuration(cfgKeyCacheDefaultTTL); err != nil {
		return err
	}
	if c.DefaultTTL < 0 {
		return errors.New("client cache default TTL must not be negative")
	}

	maxBodySize, err := dp.GetInt(cfgKeyCacheMaxBodySize)
	if err != nil {
		return err
	}
	if maxBodySize < 0 {
		return errors.New("client cache max body size must not be negative")
	}
	c.MaxBodySize = int64(maxBodySize)

	if c.Methods, err = dp.GetStringSlice(cfgKeyCacheMethods); err != nil {
		return err
	}

	return nil
}

// SetProviderDefaults is part of config interface implementation.
func (c *CacheConfig) SetProviderDefaults(_ config.DataProvider) {}

// TransportOpts returns transport options.
func (c *CacheConfig) TransportOpts() CachingRoundTripperOpts {
	return CachingRoundTripperOpts{
		Methods:     c.Methods,
		DefaultTTL:  c.DefaultTTL,
		MaxBodySize: c.MaxBodySize,
	}
}

// PolicyConfig represents configuration options for policy retry.
type PolicyConfig struct {
	// Strategy is a strategy for retry policy.
	Strategy string `mapstructure:"strategy"`

	// ExponentialBackoffInitialInterval is the initial interval for exponential backoff.
	ExponentialBackoffInitialInterval time.Duration `mapstructure:"exponentialBackoffInitialInterval"`

	// ExponentialBackoffMultiplier is the multiplier for exponential backoff.
	ExponentialBackoffMultiplier float64 `mapstructure:"exponentialBackoffMultiplier"`

	// ExponentialBackoffJitter is the randomization factor applied to computed delays, in [0, 1).
	ExponentialBackoffJitter float64 `mapstructure:"exponentialBackoffJitter"`

	// ConstantBackoffInterval is the interval for constant backoff.
	ConstantBackoffInterval time.Duration `mapstructure:"constantBackoffInterval"`
}

// Set is part of config interface implementation.
func (c *PolicyConfig) Set(dp config.DataProvider) (err error) {
	strategy, err := dp.GetString(cfgKeyRetriesPolicyStrategy)
	if err != nil {
		return err
	}
	c.Strategy = strategy

	if c.Strategy != "" && c.Strategy != RetryPolicyExponential && c.Strategy != RetryPolicyConstant {
		return errors.New("client retry policy must be one of: [exponential, constant]")
	}

	if c.Strategy == RetryPolicyExponential {
		var interval time.Duration
		interval, err = dp.GetDuration(cfgKeyRetriesPolicyExponentialInitialInterval)
		if err != nil {
			return err
		}
		if interval < 0 {
			return errors.New("client exponential backoff initial interval must not be negative")
		}
		c.ExponentialBackoffInitialInterval = interval

		var multiplier float64
		multiplier, err = dp.GetFloat64(cfgKeyRetriesPolicyExponentialMultiplier)
		if err != nil {
			return err
		}
		if multiplier <= 1 {
			return errors.New("client exponential backoff multiplier must be greater than 1")
		}
		c.ExponentialBackoffMultiplier = multiplier

		var jitter float64
		jitter, err = dp.GetFloat64(cfgKeyRetriesPolicyExponentialJitter)
		if err != nil {
			return err
		}
		if jitter < 0 || jitter >= 1 {
			return errors.New("client exponential backoff jitter must be in [0, 1)")
		}
		c.ExponentialBackoffJitter = jitter

		return nil
	} else if c.Strategy == RetryPolicyConstant {
		var interval time.Duration
		interval, err = dp.GetDuration(cfgKeyRetriesPolicyConstantInternal)
		if err != nil {
			return err
		}
		if interval < 0 {
			return errors.New("client constant backoff interval must not be negative")
		}
		c.ConstantBackoffInterval = interval
	}

	return nil
}

// SetProviderDefaults is part of config interface implementation.
func (c *PolicyConfig) SetProviderDefaults(_ config.DataProvider) {}

// RetriesConfig represents configuration options for HTTP client retries policy.
type RetriesConfig struct {
	// Enabled is a flag that enables retries.
	Enabled bool `mapstructure:"enabled"`

	// MaxAttempts is the maximum number of attempts to retry the request.
	MaxAttempts int `mapstructure:"maxAttempts"`

	// RetryableMethods gates which HTTP methods are retried.
	RetryableMethods []string `mapstructure:"retryableMethods"`

	// RetryableStatusCodes is the set of response status codes that trigger a retry.
	RetryableStatusCodes []int `mapstructure:"retryableStatusCodes"`

	// MaxRetryAfterWait is the maximum tolerated server-requested wait.
	MaxRetryAfterWait time.Duration `mapstructure:"maxRetryAfterWait"`

	// Policy of a retry: [exponential, constant]. default is exponential.
	Policy PolicyConfig `mapstructure:"policy"`
}

// GetPolicy returns a retry policy based on strategy or nil if none is provided.
func (c *RetriesConfig) GetPolicy() retry.Policy {
	if c.Policy.Strategy == RetryPolicyExponential {
		return retry.PolicyFunc(func() backoff.BackOff {
			bf := backoff.NewExponentialBackOff()
			bf.InitialInterval = c.Policy.ExponentialBackoffInitialInterval
			bf.Multiplier = c.Policy.ExponentialBackoffMultiplier
			if c.Policy.ExponentialBackoffJitter > 0 {
				bf.RandomizationFactor = c.Policy.ExponentialBackoffJitter
			}
			bf.Reset()
			return bf
		})
	} else if c.Policy.Strategy == RetryPolicyConstant {
		return retry.PolicyFunc(func() backoff.BackOff {
			bf := backoff.NewConstantBackOff(c.Policy.ConstantBackoffInterval)
			bf.Reset()
			return bf
		})
	}

	return nil
}

// Set is part of config interface implementation.
func (c *RetriesConfig) Set(dp config.DataProvider) error {
	enabled, err := dp.GetBool(cfgKeyRetriesEnabled)
	if err != nil {
		return err
	}
	c.Enabled = enabled

	if !c.Enabled {
		return nil
	}

	maxAttempts, err := dp.GetInt(cfgKeyRetriesMax)
	if err != nil {
		return err
	}
	if maxAttempts < 0 {
		return errors.New("client max retry attempts must not be negative")
	}
	c.MaxAttempts = maxAttempts

	if c.RetryableMethods, err = dp.GetStringSlice(cfgKeyRetriesRetryableMethods); err != nil {
		return err
	}

	if c.RetryableStatusCodes, err = dp.GetIntSlice(cfgKeyRetriesRetryableStatusCodes); err != nil {
		return err
	}
	for _, code := range c.RetryableStatusCodes {
		if code < 100 || code > 599 {
			return fmt.Errorf("client retryable status code %d is out of range", code)
		}
	}

	if c.MaxRetryAfterWait, err = dp.GetDuration(cfgKeyRetriesMaxRetryAfterWait); err != nil {
		return err
	}
	if c.MaxRetryAfterWait < 0 {
		return errors.New("client max retry-after wait must not be negative")
	}

	err = c.Policy.Set(config.NewKeyPrefixedDataProvider(dp, ""))
	if err != nil {
		return err
	}

	return nil
}

// SetProviderDefaults is part of config interface implementation.
func (c *RetriesConfig) SetProviderDefaults(_ config.DataProvider) {}

// TransportOpts returns transport options.
func (c *RetriesConfig) TransportOpts() RetryableRoundTripperOpts {
	return RetryableRoundTripperOpts{
		MaxRetryAttempts:     c.MaxAttempts,
		RetryableMethods:     c.RetryableMethods,
		RetryableStatusCodes: c.RetryableStatusCodes,
		MaxRetryAfterWait:    c.MaxRetryAfterWait,
	}
}

// LoggerConfig represents configuration options for HTTP client logs.
type LoggerConfig struct {
	// Enabled is a flag that enables logging.
	Enabled bool `mapstructure:"enabled"`

	// SlowRequestThreshold is a threshold for slow requests.
	SlowRequestThreshold time.Duration `mapstructure:"slowRequestThreshold"`

	// Mode of logging.
	Mode string `mapstructure:"mode"`
}

// Set is part of config interface implementation.
func (c *LoggerConfig) Set(dp config.DataProvider) error {
	enabled, err := dp.GetBool(cfgKeyLoggerEnabled)
	if err != nil {
		return err
	}
	c.Enabled = enabled

	if !c.Enabled {
		return nil
	}

	slowRequestThreshold, err := dp.GetDuration(cfgKeyLoggerSlowRequestThreshold)
	if err != nil {
		return err
	}
	if slowRequestThreshold < 0 {
		return errors.New("client logger slow request threshold can not be negative")
	}
	c.SlowRequestThreshold = slowRequestThreshold

	mode, err := dp.GetString(cfgKeyLoggerMode)
	if err != nil {
		return err
	}
	if !LoggingMode(mode).IsValid() {
		return errors.New("client logger invalid mode, choose one of: [none, all, failed]")
	}
	c.Mode = mode

	return nil
}

// SetProviderDefaults is part of config interface implementation.
func (c *LoggerConfig) SetProviderDefaults(_ config.DataProvider) {}

// TransportOpts returns transport options.
func (c *LoggerConfig) TransportOpts() LoggingRoundTripperOpts {
	return LoggingRoundTripperOpts{
		Mode:                 LoggingMode(c.Mode),
		SlowRequestThreshold: c.SlowRequestThreshold,
	}
}

// MetricsConfig represents configuration options for HTTP client metrics.
type MetricsConfig struct {
	// Enabled is a flag that enables metrics.
	Enabled bool `mapstructure:"enabled"`
}

// Set is part of config interface implementation.
func (c *MetricsConfig) Set(dp config.DataProvider) error {
	enabled, err := dp.GetBool(cfgKeyMetricsEnabled)
	if err != nil {
		return err
	}
	c.Enabled = enabled

	return nil
}

// SetProviderDefaults is part of config interface implementation.
func (c *MetricsConfig) SetProviderDefaults(_ config.DataProvider) {}

// Config represents options for HTTP client configuration.
type Config struct {
	// Retries is a configuration for HTTP client retries policy.
	Retries RetriesConfig `mapstructure:"retries"`

	// RateLimits is a configuration for HTTP client rate limits.
	RateLimits RateLimitConfig `mapstructure:"rateLimits"`

	// CircuitBreaker is a configuration for the HTTP client circuit breaker.
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`

	// Cache is a configuration for HTTP client response caching.
	Cache CacheConfig `mapstructure:"cache"`

	// Logger is a configuration for HTTP client logs.
	Logger LoggerConfig `mapstructure:"logger"`

	// Metrics is a configuration for HTTP client metrics.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Timeout is the maximum time to wait for a request to be made.
	Timeout time.Duration `mapstructure:"timeout"`

	// keyPrefix is a prefix for configuration parameters.
	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix("")
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	timeout, err := dp.GetDuration(cfgKeyTimeout)
	if err != nil {
		return err
	}
	c.Timeout = timeout

	err = c.Retries.Set(config.NewKeyPrefixedDataProvider(dp, c.keyPrefix))
	if err != nil {
		return err
	}

	err = c.RateLimits.Set(config.NewKeyPrefixedDataProvider(dp, c.keyPrefix))
	if err != nil {
		return err
	}

	err = c.CircuitBreaker.Set(config.NewKeyPrefixedDataProvider(dp, c.keyPrefix))
	if err != nil {
		return err
	}

	err = c.Cache.Set(config.NewKeyPrefixedDataProvider(dp, c.keyPrefix))
	if err != nil {
		return err
	}

	err = c.Logger.Set(config.NewKeyPrefixedDataProvider(dp, c.keyPrefix))
	if err != nil {
		return err
	}

	err = c.Metrics.Set(config.NewKeyPrefixedDataProvider(dp, c.keyPrefix))
	if err != nil {
		return err
	}

	return nil
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(_ config.DataProvider) {
	c.Timeout = DefaultClientWaitTimeout
}
