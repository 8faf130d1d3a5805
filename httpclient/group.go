/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import "net/http"

// GlobalGroup is the group all requests fall into when no grouping strategy is configured.
const GlobalGroup = "global"

// GroupKeyFunc derives a logical group from a request. Rate limiting and
// circuit breaking track their state per group, and the same strategy can be
// plugged into both, so limits and circuits may be maintained per remote
// endpoint independently.
type GroupKeyFunc func(r *http.Request) string

// SingleGroupKeyFunc puts all requests into one global group.
func SingleGroupKeyFunc(_ *http.Request) string {
	return GlobalGroup
}

// HostGroupKeyFunc derives the group from the request authority,
// so state is tracked per remote host.
func HostGroupKeyFunc(r *http.Request) string {
	if r.URL != nil && r.URL.Host != "" {
		return r.URL.Host
	}
	if r.Host != "" {
		return r.Host
	}
	return GlobalGroup
}
