/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingleGroupKeyFunc(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://api.example.local/users", nil)
	require.NoError(t, err)
	require.Equal(t, GlobalGroup, SingleGroupKeyFunc(req))
}

func TestHostGroupKeyFunc(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://api.example.local:8080/users", nil)
	require.NoError(t, err)
	require.Equal(t, "api.example.local:8080", HostGroupKeyFunc(req))

	// URL host takes precedence over the Host field.
	req.Host = "override.example.local"
	require.Equal(t, "api.example.local:8080", HostGroupKeyFunc(req))

	req.URL = &url.URL{}
	require.Equal(t, "override.example.local", HostGroupKeyFunc(req))

	req.Host = ""
	require.Equal(t, GlobalGroup, HostGroupKeyFunc(req))
}
