/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package circuitbreaker

import (
	"fmt"
	"sync"
	"time"
)

// Default parameter values for Config.
const (
	DefaultFailureThreshold    = 5
	DefaultFailureWindow       = time.Minute
	DefaultOpenDuration        = 30 * time.Second
	DefaultSuccessThreshold    = 2
	DefaultHalfOpenMaxAttempts = 1
)

// State represents the state of a circuit.
type State int

const (
	// StateClosed means normal operation, all requests pass and failures accumulate.
	StateClosed State = iota

	// StateOpen means all requests are blocked immediately.
	StateOpen

	// StateHalfOpen means a bounded number of trial requests is permitted to probe recovery.
	StateHalfOpen
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Config represents configuration of the state machine for a single group.
type Config struct {
	// FailureThreshold is the number of failures within FailureWindow that opens the circuit.
	FailureThreshold int

	// FailureWindow is the trailing window within which failures are counted.
	// Failures outside the window are pruned lazily.
	FailureWindow time.Duration

	// OpenDuration is how long the circuit stays open before probing recovery.
	OpenDuration time.Duration

	// SuccessThreshold is the number of consecutive successful trials needed
	// to fully close a half-open circuit.
	SuccessThreshold int

	// HalfOpenMaxAttempts caps how many trial requests may be in flight
	// concurrently while the circuit is half-open.
	HalfOpenMaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.FailureWindow == 0 {
		c.FailureWindow = DefaultFailureWindow
	}
	if c.OpenDuration == 0 {
		c.OpenDuration = DefaultOpenDuration
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.HalfOpenMaxAttempts == 0 {
		c.HalfOpenMaxAttempts = DefaultHalfOpenMaxAttempts
	}
	return c
}

func (c Config) validate() error {
	if c.FailureThreshold < 0 {
		return fmt.Errorf("failure threshold must not be negative")
	}
	if c.FailureWindow < 0 {
		return fmt.Errorf("failure window must not be negative")
	}
	if c.OpenDuration < 0 {
		return fmt.Errorf("open duration must not be negative")
	}
	if c.SuccessThreshold < 0 {
		return fmt.Errorf("success threshold must not be negative")
	}
	if c.HalfOpenMaxAttempts < 0 {
		return fmt.Errorf("half-open max attempts must not be negative")
	}
	return nil
}

// Status is a point-in-time snapshot of a group's circuit.
type Status struct {
	State        State
	OpenedAt     time.Time
	RetryAfter   time.Duration
	FailureCount int
}

type bucket struct {
	mu                sync.Mutex
	cfg               Config
	state             State
	failureTimes      []time.Time
	openedAt          time.Time
	halfOpenSuccesses int
	halfOpenInFlight  int
}

// CircuitBreaker tracks circuit state per group. Buckets are created lazily
// on first reference to a group and live as long as the breaker instance.
// It is safe for concurrent use.
type CircuitBreaker struct {
	defaultCfg Config

	mu           sync.RWMutex
	buckets      map[string]*bucket
	groupConfigs map[string]Config

	metricsCollector MetricsCollector
}

// Opts represents options for NewWithOpts.
type Opts struct {
	// GroupConfigs overrides the default configuration for particular groups.
	GroupConfigs map[string]Config

	// MetricsCollector is used to report state transitions and refusals.
	// It can be nil, in this case, metrics will be disabled.
	MetricsCollector MetricsCollector
}

// New creates a new CircuitBreaker with the provided default configuration.
func New(cfg Config) (*CircuitBreaker, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates a new CircuitBreaker with the provided default configuration and options.
// For configuration values that are not presented, the default values will be used.
func NewWithOpts(cfg Config, opts Opts) (*CircuitBreaker, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	groupConfigs := make(map[string]Config, len(opts.GroupConfigs))
	for group, groupCfg := range opts.GroupConfigs {
		if err := groupCfg.validate(); err != nil {
			return nil, fmt.Errorf("group %q: %w", group, err)
		}
		groupConfigs[group] = groupCfg.withDefaults()
	}
	metricsCollector := opts.MetricsCollector
	if metricsCollector == nil {
		metricsCollector = disabledMetricsCollector
	}
	return &CircuitBreaker{
		defaultCfg:       cfg.withDefaults(),
		buckets:          make(map[string]*bucket),
		groupConfigs:     groupConfigs,
		metricsCollector: metricsCollector,
	}, nil
}

// SetGroupConfig overrides configuration for the given group.
// It applies to the group's existing bucket as well.
func (cb *CircuitBreaker) SetGroupConfig(group string, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()

	cb.mu.Lock()
	cb.groupConfigs[group] = cfg
	b := cb.buckets[group]
	cb.mu.Unlock()

	if b != nil {
		b.mu.Lock()
		b.cfg = cfg
		b.mu.Unlock()
	}
	return nil
}

// Allow reports whether the next request in the group may proceed.
// A positive answer for a half-open circuit reserves one trial slot that must
// be released with RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow(group string) bool {
	b := cb.bucket(group)
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	cb.materializeHalfOpenLocked(group, b, now)

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		cb.metricsCollector.IncRefusals(group)
		return false
	case StateHalfOpen:
		if b.halfOpenInFlight < b.cfg.HalfOpenMaxAttempts {
			b.halfOpenInFlight++
			return true
		}
		cb.metricsCollector.IncRefusals(group)
		return false
	}
	return false
}

// RecordSuccess records a successful request outcome for the group.
func (cb *CircuitBreaker) RecordSuccess(group string) {
	b := cb.bucket(group)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateHalfOpen {
		return
	}
	if b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}
	b.halfOpenSuccesses++
	if b.halfOpenSuccesses >= b.cfg.SuccessThreshold {
		b.state = StateClosed
		b.failureTimes = nil
		b.openedAt = time.Time{}
		b.halfOpenSuccesses = 0
		b.halfOpenInFlight = 0
		cb.metricsCollector.SetState(group, StateClosed)
	}
}

// RecordFailure records a failed request outcome for the group.
func (cb *CircuitBreaker) RecordFailure(group string) {
	b := cb.bucket(group)
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureTimes = append(b.failureTimes, now)
	pruneFailuresLocked(b, now)

	switch b.state {
	case StateClosed:
		if len(b.failureTimes) >= b.cfg.FailureThreshold {
			openLocked(b, now)
			cb.metricsCollector.SetState(group, StateOpen)
		}
	case StateHalfOpen:
		// Any failed trial reopens the circuit immediately, no averaging.
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		openLocked(b, now)
		cb.metricsCollector.SetState(group, StateOpen)
	case StateOpen:
	}
}

// State returns the group's current state, materializing a due open→half-open
// transition as a side effect of the read.
func (cb *CircuitBreaker) State(group string) State {
	return cb.Status(group).State
}

// FailureCount returns the number of failures recorded within the group's
// trailing failure window.
func (cb *CircuitBreaker) FailureCount(group string) int {
	return cb.Status(group).FailureCount
}

// Status returns a point-in-time snapshot of the group's circuit, materializing
// a due open→half-open transition as a side effect of the read.
func (cb *CircuitBreaker) Status(group string) Status {
	b := cb.bucket(group)
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	cb.materializeHalfOpenLocked(group, b, now)
	pruneFailuresLocked(b, now)

	var retryAfter time.Duration
	if b.state == StateOpen {
		retryAfter = b.cfg.OpenDuration - now.Sub(b.openedAt)
		if retryAfter < 0 {
			retryAfter = 0
		}
	}
	return Status{
		State:        b.state,
		OpenedAt:     b.openedAt,
		RetryAfter:   retryAfter,
		FailureCount: len(b.failureTimes),
	}
}

// Trip forces the group's circuit open, bypassing the normal counting logic.
func (cb *CircuitBreaker) Trip(group string) {
	b := cb.bucket(group)

	b.mu.Lock()
	defer b.mu.Unlock()

	openLocked(b, time.Now())
	cb.metricsCollector.SetState(group, StateOpen)
}

// Reset forces the group's circuit closed and clears its failure window.
func (cb *CircuitBreaker) Reset(group string) {
	b := cb.bucket(group)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failureTimes = nil
	b.openedAt = time.Time{}
	b.halfOpenSuccesses = 0
	b.halfOpenInFlight = 0
	cb.metricsCollector.SetState(group, StateClosed)
}

// Groups returns the groups that have been referenced so far.
func (cb *CircuitBreaker) Groups() []string {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	groups := make([]string, 0, len(cb.buckets))
	for group := range cb.buckets {
		groups = append(groups, group)
	}
	return groups
}

func (cb *CircuitBreaker) bucket(group string) *bucket {
	cb.mu.RLock()
	b, ok := cb.buckets[group]
	cb.mu.RUnlock()
	if ok {
		return b
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if b, ok = cb.buckets[group]; ok {
		return b
	}
	cfg, ok := cb.groupConfigs[group]
	if !ok {
		cfg = cb.defaultCfg
	}
	b = &bucket{cfg: cfg, state: StateClosed}
	cb.buckets[group] = b
	cb.metricsCollector.SetState(group, StateClosed)
	return b
}

// materializeHalfOpenLocked performs the time-based open→half-open transition.
// The circuit "virtually" transitions the instant the open duration elapses
// and is materialized on the next access.
func (cb *CircuitBreaker) materializeHalfOpenLocked(group string, b *bucket, now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cfg.OpenDuration {
		b.state = StateHalfOpen
		b.halfOpenSuccesses = 0
		b.halfOpenInFlight = 0
		cb.metricsCollector.SetState(group, StateHalfOpen)
	}
}

func openLocked(b *bucket, now time.Time) {
	b.state = StateOpen
	b.openedAt = now
	b.halfOpenSuccesses = 0
}

func pruneFailuresLocked(b *bucket, now time.Time) {
	cutoff := now.Add(-b.cfg.FailureWindow)
	idx := 0
	for ; idx < len(b.failureTimes); idx++ {
		if b.failureTimes[idx].After(cutoff) {
			break
		}
	}
	if idx > 0 {
		b.failureTimes = append(b.failureTimes[:0], b.failureTimes[idx:]...)
	}
}
