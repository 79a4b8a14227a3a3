package suites

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmater/propcheck/internal/config"
	"github.com/tmater/propcheck/internal/harness"
	"github.com/tmater/propcheck/internal/oauth"
	"github.com/tmater/propcheck/internal/probe"
)

const provider = "google"

// OAuth verifies the sign-in redirect sends the provider the callback URL
// it has been registered with.
func OAuth() harness.Suite {
	return harness.Suite{
		Name:       "oauth",
		Title:      "OAuth Redirect Verification",
		Categories: []string{"OAuth Flow", "OAuth Config"},
		Checks: []harness.Check{
			providersCheck("OAuth Flow - Providers Endpoint"),
			{Name: "OAuth Flow - Sign-in Redirect", Run: signinRedirect},
			{Name: "OAuth Flow - Callback Endpoint", Run: callbackEndpoint},
			{Name: "OAuth Config - Environment Variables", Run: oauthEnv},
			{Name: "OAuth Config - Client ID Format", Run: clientIDFormat},
		},
	}
}

func signinRedirect(ctx context.Context, env *harness.Env) harness.Verdict {
	r := env.Runner.Send(ctx, probe.Request{
		Method:     http.MethodPost,
		URL:        env.API("auth/signin/" + provider),
		NoRedirect: true,
	})
	if r.Failed() {
		return transportFail("OAuth sign-in", r)
	}
	if !r.StatusIn(http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect, http.StatusPermanentRedirect) {
		return harness.Fail(fmt.Sprintf("Expected a redirect from sign-in, got HTTP %d", r.StatusCode), map[string]any{
			"status_code": r.StatusCode,
			"body":        truncate(r.Text, 500),
		})
	}

	red, err := oauth.ParseRedirect(r.Location())
	if err != nil {
		return harness.Fail("Sign-in redirect has no usable Location: "+err.Error(), map[string]any{"status_code": r.StatusCode})
	}
	if !red.IsProviderAuthorize() {
		return harness.Fail("Sign-in does not redirect to the provider: "+red.Location, map[string]any{"location": red.Location})
	}
	if red.RedirectURI == "" {
		return harness.Fail("No redirect_uri parameter in the provider URL", map[string]any{
			"endpoint": red.Endpoint,
			"params":   red.ParamNames(),
		})
	}

	expected := oauth.ExpectedCallback(env.Settings.NextAuthURL, provider)
	details := map[string]any{
		"endpoint":              red.Endpoint,
		"params":                red.ParamNames(),
		"redirect_uri":          red.RedirectURI,
		"expected_redirect_uri": expected,
	}
	if !oauth.SameURI(red.RedirectURI, expected) {
		return harness.Fail(fmt.Sprintf("redirect_uri mismatch: provider gets %s, NEXTAUTH_URL implies %s", red.RedirectURI, expected), details)
	}
	return harness.Pass("Provider receives redirect_uri "+red.RedirectURI, details)
}

func callbackEndpoint(ctx context.Context, env *harness.Env) harness.Verdict {
	r := env.Runner.Send(ctx, probe.Request{URL: env.API("auth/callback/" + provider), NoRedirect: true})
	if r.Failed() {
		return transportFail("callback endpoint", r)
	}
	switch {
	case r.StatusCode == http.StatusNotFound:
		return harness.Fail("Callback endpoint not found", map[string]any{"status_code": r.StatusCode})
	case r.StatusCode >= http.StatusInternalServerError:
		return statusFail("Callback endpoint", r)
	case r.StatusCode == http.StatusBadRequest:
		return harness.Pass("Callback endpoint exists (400 without OAuth params)", map[string]any{"status_code": r.StatusCode})
	default:
		return harness.Pass(fmt.Sprintf("Callback endpoint responds (HTTP %d)", r.StatusCode), map[string]any{"status_code": r.StatusCode})
	}
}

func oauthEnv(_ context.Context, env *harness.Env) harness.Verdict {
	s := env.Settings
	details := map[string]any{
		"NEXTAUTH_URL":         s.NextAuthURL,
		"GOOGLE_CLIENT_ID":     s.GoogleID,
		"GOOGLE_CLIENT_SECRET": config.Mask(s.GoogleSecret),
	}
	if fp := config.Fingerprint(s.GoogleSecret); fp != "" {
		details["secret_fingerprint"] = fp
	}

	var missing []string
	if s.NextAuthURL == "" {
		missing = append(missing, "NEXTAUTH_URL")
	}
	if s.GoogleID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if s.GoogleSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		details["missing"] = missing
		return harness.Fail(fmt.Sprintf("OAuth variables not set: %v", missing), details)
	}
	return harness.Pass("OAuth variables set", details)
}

func clientIDFormat(_ context.Context, env *harness.Env) harness.Verdict {
	id := env.Settings.GoogleID
	if id == "" {
		return harness.Fail("GOOGLE_CLIENT_ID not set", nil)
	}
	if !oauth.ValidGoogleClientID(id) {
		return harness.Fail("GOOGLE_CLIENT_ID format may be invalid", map[string]any{"client_id": id})
	}
	return harness.Pass("Google client id format valid", map[string]any{"client_id": id})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
