/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Recognized response header families carrying server-reported quota values.
const (
	CombinedRateLimitHeader = "RateLimit"

	xRateLimitHeaderPrefix  = "X-RateLimit-"
	xRateLimitHeaderPrefix2 = "X-Rate-Limit-"
)

// resetAsUnixTimeThreshold separates delta-seconds reset values from Unix timestamps.
const resetAsUnixTimeThreshold = 1e9

// QuotaHints carries advisory rate limit values reported by the server in response headers.
// Each value is optional, absence of a header family is not an error.
type QuotaHints struct {
	Limit        int
	HasLimit     bool
	Remaining    int
	HasRemaining bool
	ResetAfter   time.Duration
	HasReset     bool
}

// ParseQuotaHints extracts server-reported quota values from response headers.
// The combined RateLimit header ("limit=100, remaining=50, reset=60", a "policy="
// component is tolerated and ignored) is preferred, with the X-RateLimit-* and
// X-Rate-Limit-* numbered conventions as fallbacks. Parsing is defensive:
// malformed values are skipped and never produce an error.
func ParseQuotaHints(header http.Header) (hints QuotaHints, ok bool) {
	if combined := header.Get(CombinedRateLimitHeader); combined != "" {
		if hints, ok = parseCombinedHeader(combined); ok {
			return hints, true
		}
	}
	for _, prefix := range []string{xRateLimitHeaderPrefix, xRateLimitHeaderPrefix2} {
		if hints, ok = parseNumberedHeaders(header, prefix); ok {
			return hints, true
		}
	}
	return QuotaHints{}, false
}

func parseCombinedHeader(value string) (hints QuotaHints, ok bool) {
	for _, part := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' }) {
		name, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "limit":
			if n, err := strconv.Atoi(val); err == nil && n >= 0 {
				hints.Limit, hints.HasLimit = n, true
			}
		case "remaining":
			if n, err := strconv.Atoi(val); err == nil && n >= 0 {
				hints.Remaining, hints.HasRemaining = n, true
			}
		case "reset":
			if d, resetOk := parseResetValue(val); resetOk {
				hints.ResetAfter, hints.HasReset = d, true
			}
		}
	}
	return hints, hints.HasLimit || hints.HasRemaining || hints.HasReset
}

func parseNumberedHeaders(header http.Header, prefix string) (hints QuotaHints, ok bool) {
	if v := header.Get(prefix + "Limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			hints.Limit, hints.HasLimit = n, true
		}
	}
	if v := header.Get(prefix + "Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			hints.Remaining, hints.HasRemaining = n, true
		}
	}
	if v := header.Get(prefix + "Reset"); v != "" {
		if d, resetOk := parseResetValue(v); resetOk {
			hints.ResetAfter, hints.HasReset = d, true
		}
	}
	return hints, hints.HasLimit || hints.HasRemaining || hints.HasReset
}

// parseResetValue interprets a reset value as delta-seconds,
// or as a Unix timestamp when it's too large to be a delta.
func parseResetValue(value string) (time.Duration, bool) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	if n >= resetAsUnixTimeThreshold {
		d := time.Until(time.Unix(n, 0))
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return time.Duration(n) * time.Second, true
}
