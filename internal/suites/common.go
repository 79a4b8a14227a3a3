// Package suites holds the built-in verification suites run against a
// deployed property-management application.
package suites

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/tmater/propcheck/internal/dbcheck"
	"github.com/tmater/propcheck/internal/harness"
	"github.com/tmater/propcheck/internal/probe"
)

// Builtin returns the named built-in suites in the order "all" runs them.
func Builtin() []harness.Suite {
	return []harness.Suite{
		Comprehensive(),
		SchemaCache(),
		OAuth(),
		Users(),
	}
}

// ByName looks up a built-in suite.
func ByName(name string) (harness.Suite, bool) {
	for _, s := range Builtin() {
		if s.Name == name {
			return s, true
		}
	}
	return harness.Suite{}, false
}

func transportFail(what string, r probe.Result) harness.Verdict {
	return harness.Fail(fmt.Sprintf("Error testing %s: %s", what, r.Err), map[string]any{"error": r.Err})
}

func statusFail(what string, r probe.Result) harness.Verdict {
	return harness.Fail(fmt.Sprintf("%s error: HTTP %d", what, r.StatusCode), map[string]any{"status_code": r.StatusCode})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// providersCheck requires the auth providers listing to include google.
func providersCheck(name string) harness.Check {
	return harness.Check{Name: name, Run: func(ctx context.Context, env *harness.Env) harness.Verdict {
		r := env.Runner.Get(ctx, env.API("auth/providers"), nil)
		if r.Failed() {
			return transportFail("OAuth providers", r)
		}
		if r.StatusCode != http.StatusOK {
			return statusFail("OAuth providers endpoint", r)
		}
		providers := r.Object()
		if _, ok := providers["google"]; !ok {
			return harness.Fail("Google OAuth provider not configured", map[string]any{"providers": sortedKeys(providers)})
		}
		details := map[string]any{"providers": sortedKeys(providers)}
		if g, ok := providers["google"].(map[string]any); ok {
			if cb, ok := g["callbackUrl"].(string); ok {
				details["callback_url"] = cb
			}
		}
		return harness.Pass("Google OAuth provider configured", details)
	}}
}

// sessionCheck requires the session endpoint to answer 200. An anonymous
// session body is fine.
func sessionCheck(name, passMsg string) harness.Check {
	return harness.Check{Name: name, Run: func(ctx context.Context, env *harness.Env) harness.Verdict {
		r := env.Runner.Get(ctx, env.API("auth/session"), nil)
		if r.Failed() {
			return transportFail("session endpoint", r)
		}
		if r.StatusCode != http.StatusOK {
			return statusFail("Session endpoint", r)
		}
		return harness.Pass(passMsg, map[string]any{"status_code": r.StatusCode, "authenticated": len(r.Object()) > 0})
	}}
}

func csrfCheck(name string) harness.Check {
	return harness.Check{Name: name, Run: func(ctx context.Context, env *harness.Env) harness.Verdict {
		r := env.Runner.Get(ctx, env.API("auth/csrf"), nil)
		if r.Failed() {
			return transportFail("CSRF endpoint", r)
		}
		if r.StatusCode != http.StatusOK {
			return statusFail("CSRF endpoint", r)
		}
		token, _ := r.Object()["csrfToken"].(string)
		if token == "" {
			return harness.Fail("CSRF endpoint returned no csrfToken", map[string]any{"status_code": r.StatusCode})
		}
		preview := token
		if len(preview) > 20 {
			preview = preview[:20] + "..."
		}
		return harness.Pass("CSRF token issued", map[string]any{"csrf_token": preview})
	}}
}

// backendTablesCheck asks the application's own setup endpoint which
// required tables it can reach.
func backendTablesCheck(name string) harness.Check {
	return harness.Check{Name: name, Run: func(ctx context.Context, env *harness.Env) harness.Verdict {
		r := env.Runner.Get(ctx, env.API("setup-database"), nil)
		if r.Failed() {
			return transportFail("backend table access", r)
		}
		if r.StatusCode != http.StatusOK {
			return statusFail("Backend database API", r)
		}
		obj := r.Object()
		tables, _ := obj["tables"].(map[string]any)
		var accessible, missing []string
		for _, t := range dbcheck.RequiredTables {
			if ok, _ := tables[t].(bool); ok {
				accessible = append(accessible, t)
			} else {
				missing = append(missing, t)
			}
		}
		if len(missing) > 0 {
			return harness.Fail(fmt.Sprintf("Backend cannot access tables: %v", missing), map[string]any{
				"accessible_tables": accessible,
				"missing_tables":    missing,
			})
		}
		return harness.Pass(fmt.Sprintf("Backend can access all required tables %v", accessible), map[string]any{
			"accessible_tables": accessible,
			"database_status":   obj["database_status"],
		})
	}}
}

// call is one request in a protection sweep.
type call struct {
	label  string
	method string
	path   string
	body   any
}

// protectionCheck sends each call without credentials and requires every
// answer to be one of the accepted codes.
func protectionCheck(name, subject string, calls []call, accepted ...int) harness.Check {
	return harness.Check{Name: name, Run: func(ctx context.Context, env *harness.Env) harness.Verdict {
		results := make(map[string]any, len(calls))
		var unprotected []string
		for _, c := range calls {
			r := env.Runner.Send(ctx, probe.Request{Method: c.method, URL: env.API(c.path), Body: c.body})
			switch {
			case r.Failed():
				results[c.label] = map[string]any{"status": "error", "error": r.Err}
				unprotected = append(unprotected, c.label)
			case r.StatusIn(accepted...):
				results[c.label] = map[string]any{"status": "protected", "code": r.StatusCode}
			default:
				results[c.label] = map[string]any{"status": "unprotected", "code": r.StatusCode}
				unprotected = append(unprotected, c.label)
			}
		}
		if len(unprotected) > 0 {
			return harness.Fail(fmt.Sprintf("%s not properly protected: %v", subject, unprotected), map[string]any{
				"results":     results,
				"unprotected": unprotected,
			})
		}
		return harness.Pass(fmt.Sprintf("All %s properly protected", subject), map[string]any{"results": results})
	}}
}
