/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-appkit/config"

	"github.com/acronis/go-httpresilience/ratelimit"
)

func loadConfigFromYAML(t *testing.T, yamlData []byte) (*Config, error) {
	t.Helper()
	cfg := NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewReader(yamlData), config.DataTypeYAML, cfg)
	return cfg, err
}

func TestConfigWithLoader(t *testing.T) {
	yamlData := []byte(`
timeout: 30s
retries:
  enabled: true
  maxAttempts: 5
  retryableMethods: [GET, PUT]
  retryableStatusCodes: [429, 503]
  maxRetryAfterWait: 1m
  policy:
    strategy: exponential
    exponentialBackoffInitialInterval: 500ms
    exponentialBackoffMultiplier: 2
    exponentialBackoffJitter: 0.3
rateLimits:
  enabled: true
  limit: 100
  window: 1m
  algorithm: sliding_window
  perHost: true
  adaptive: true
circuitBreaker:
  enabled: true
  failureThreshold: 5
  failureWindow: 1m
  openDuration: 30s
  successThreshold: 2
  halfOpenMaxAttempts: 1
  perHost: true
cache:
  enabled: true
  defaultTTL: 5m
  maxBodySize: 1048576
  methods: [GET, HEAD]
logger:
  enabled: true
  mode: failed
  slowRequestThreshold: 1s
metrics:
  enabled: true
`)

	cfg, err := loadConfigFromYAML(t, yamlData)
	require.NoError(t, err, "load configuration")

	require.Equal(t, 30*time.Second, cfg.Timeout)

	require.True(t, cfg.Retries.Enabled)
	require.Equal(t, 5, cfg.Retries.MaxAttempts)
	require.Equal(t, []string{"GET", "PUT"}, cfg.Retries.RetryableMethods)
	require.Equal(t, []int{429, 503}, cfg.Retries.RetryableStatusCodes)
	require.Equal(t, time.Minute, cfg.Retries.MaxRetryAfterWait)
	require.Equal(t, RetryPolicyExponential, cfg.Retries.Policy.Strategy)
	require.Equal(t, 500*time.Millisecond, cfg.Retries.Policy.ExponentialBackoffInitialInterval)
	require.Equal(t, 2.0, cfg.Retries.Policy.ExponentialBackoffMultiplier)
	require.Equal(t, 0.3, cfg.Retries.Policy.ExponentialBackoffJitter)
	require.NotNil(t, cfg.Retries.GetPolicy())

	require.True(t, cfg.RateLimits.Enabled)
	require.Equal(t, 100, cfg.RateLimits.Limit)
	require.Equal(t, time.Minute, cfg.RateLimits.Window)
	require.Equal(t, RateLimitAlgSlidingWindow, cfg.RateLimits.Algorithm)
	require.True(t, cfg.RateLimits.PerHost)
	require.True(t, cfg.RateLimits.Adaptive)

	require.True(t, cfg.CircuitBreaker.Enabled)
	require.Equal(t, 5, cfg.CircuitBreaker.FailureThreshold)
	require.Equal(t, time.Minute, cfg.CircuitBreaker.FailureWindow)
	require.Equal(t, 30*time.Second, cfg.CircuitBreaker.OpenDuration)
	require.Equal(t, 2, cfg.CircuitBreaker.SuccessThreshold)
	require.Equal(t, 1, cfg.CircuitBreaker.HalfOpenMaxAttempts)
	require.True(t, cfg.CircuitBreaker.PerHost)

	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, 5*time.Minute, cfg.Cache.DefaultTTL)
	require.Equal(t, int64(1048576), cfg.Cache.MaxBodySize)
	require.Equal(t, []string{"GET", "HEAD"}, cfg.Cache.Methods)

	require.True(t, cfg.Logger.Enabled)
	require.Equal(t, string(LoggingModeFailed), cfg.Logger.Mode)
	require.Equal(t, time.Second, cfg.Logger.SlowRequestThreshold)

	require.True(t, cfg.Metrics.Enabled)
}

func TestConfigDisabledSectionsAreNotParsed(t *testing.T) {
	yamlData := []byte(`
retries:
  enabled: false
rateLimits:
  enabled: false
circuitBreaker:
  enabled: false
cache:
  enabled: false
logger:
  enabled: false
metrics:
  enabled: false
`)

	cfg, err := loadConfigFromYAML(t, yamlData)
	require.NoError(t, err)
	require.False(t, cfg.Retries.Enabled)
	require.False(t, cfg.RateLimits.Enabled)
	require.False(t, cfg.CircuitBreaker.Enabled)
	require.False(t, cfg.Cache.Enabled)
}

func TestConfigValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "non-positive rate limit",
			yaml:    "rateLimits:\n  enabled: true\n  limit: 0\n",
			wantErr: "client rate limit must be positive",
		},
		{
			name:    "negative rate limit window",
			yaml:    "rateLimits:\n  enabled: true\n  limit: 10\n  window: -1s\n",
			wantErr: "client rate limit window must not be negative",
		},
		{
			name:    "negative circuit breaker open duration",
			yaml:    "circuitBreaker:\n  enabled: true\n  openDuration: -1s\n",
			wantErr: "client circuit breaker open duration must not be negative",
		},
		{
			name:    "unknown rate limit algorithm",
			yaml:    "rateLimits:\n  enabled: true\n  limit: 10\n  algorithm: magic\n",
			wantErr: "client rate limit algorithm must be one of",
		},
		{
			name:    "unknown retry strategy",
			yaml:    "retries:\n  enabled: true\n  maxAttempts: 3\n  policy:\n    strategy: magic\n",
			wantErr: "client retry policy must be one of",
		},
		{
			name: "bad jitter",
			yaml: "retries:\n  enabled: true\n  maxAttempts: 3\n  policy:\n    strategy: exponential\n" +
				"    exponentialBackoffInitialInterval: 1s\n    exponentialBackoffMultiplier: 2\n    exponentialBackoffJitter: 1.5\n",
			wantErr: "client exponential backoff jitter must be in [0, 1)",
		},
		{
			name:    "out-of-range retryable status code",
			yaml:    "retries:\n  enabled: true\n  maxAttempts: 3\n  retryableStatusCodes: [999]\n",
			wantErr: "client retryable status code 999 is out of range",
		},
		{
			name:    "invalid logger mode",
			yaml:    "logger:\n  enabled: true\n  mode: magic\n",
			wantErr: "client logger invalid mode",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfigFromYAML(t, []byte(tt.yaml))
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRateLimitConfigMakeLimiter(t *testing.T) {
	for _, alg := range []string{RateLimitAlgSlidingWindow, RateLimitAlgLeakyBucket, RateLimitAlgTokenBucket} {
		cfg := RateLimitConfig{Limit: 10, Window: time.Second, Burst: 5, Algorithm: alg}
		limiter, err := cfg.MakeLimiter()
		require.NoError(t, err, alg)
		require.NotNil(t, limiter, alg)
	}

	cfg := RateLimitConfig{Limit: 10, Window: time.Second, Algorithm: RateLimitAlgSlidingWindow, Adaptive: true}
	limiter, err := cfg.MakeLimiter()
	require.NoError(t, err)
	require.IsType(t, &ratelimit.AdaptiveLimiter{}, limiter)
}
