// Package oauth inspects the redirect an auth server answers a sign-in
// request with.
package oauth

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Redirect is a parsed authorization redirect.
type Redirect struct {
	Location    string
	Endpoint    string // scheme://host/path without the query
	Host        string
	Params      map[string]string
	RedirectURI string
	ClientID    string
}

// ParseRedirect parses the Location of a sign-in redirect.
func ParseRedirect(location string) (*Redirect, error) {
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("oauth: empty redirect location")
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("oauth: parse redirect: %w", err)
	}

	params := make(map[string]string)
	for k, v := range u.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	return &Redirect{
		Location:    location,
		Endpoint:    u.Scheme + "://" + u.Host + u.Path,
		Host:        u.Host,
		Params:      params,
		RedirectURI: params["redirect_uri"],
		ClientID:    params["client_id"],
	}, nil
}

// IsProviderAuthorize reports whether the redirect points at a provider's
// authorization endpoint rather than back into the application.
func (r *Redirect) IsProviderAuthorize() bool {
	return strings.Contains(r.Host, "accounts.google.com") || strings.Contains(r.Location, "oauth2")
}

// ParamNames returns the query parameter names in sorted order.
func (r *Redirect) ParamNames() []string {
	names := make([]string, 0, len(r.Params))
	for k := range r.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ExpectedCallback returns the callback URL an auth library mounted under
// /api/auth registers for provider.
func ExpectedCallback(authURL, provider string) string {
	return strings.TrimRight(authURL, "/") + "/api/auth/callback/" + provider
}

// SameURI compares two redirect URIs, ignoring a trailing slash and the case
// of the scheme and host.
func SameURI(a, b string) bool {
	ua, errA := url.Parse(strings.TrimRight(a, "/"))
	ub, errB := url.Parse(strings.TrimRight(b, "/"))
	if errA != nil || errB != nil {
		return a == b
	}
	return strings.EqualFold(ua.Scheme, ub.Scheme) &&
		strings.EqualFold(ua.Host, ub.Host) &&
		ua.Path == ub.Path
}

// ValidGoogleClientID reports whether id has the shape of a Google OAuth
// client id.
func ValidGoogleClientID(id string) bool {
	return strings.HasSuffix(id, ".apps.googleusercontent.com") && len(id) > len(".apps.googleusercontent.com")
}
