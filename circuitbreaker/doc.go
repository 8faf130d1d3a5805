/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package circuitbreaker provides a three-state (closed / open / half-open)
// failure isolation state machine tracked independently per logical group
// (for example, per remote host).
//
// Failures are counted within a trailing time window. When the configured
// threshold is reached the circuit opens and all requests are blocked. After
// the open duration elapses the circuit transitions to half-open lazily on
// the next access (no background timers are involved) and admits a bounded
// number of concurrent trial requests. A configured number of consecutive
// successful trials closes the circuit again, while any failed trial reopens
// it immediately.
package circuitbreaker
