package suites

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tmater/propcheck/internal/harness"
	"github.com/tmater/propcheck/internal/probe"
)

// userFields are the fields every user record served by the admin API has.
var userFields = []string{"id", "email", "name", "role", "status", "permissions"}

// Users simulates the user records created on first sign-in and checks what
// the admin API exposes about them.
func Users() harness.Suite {
	return harness.Suite{
		Name:       "users",
		Title:      "User Creation Flow",
		Categories: []string{"User Management", "User Creation", "OAuth Readiness"},
		Checks: []harness.Check{
			{Name: "User Management - Users Listing", Run: usersListing},
			{Name: "User Creation - New User", Run: newUser},
			{Name: "User Creation - Master Permissions", Run: masterPermissions},
			csrfCheck("OAuth Readiness - CSRF Token"),
			providersCheck("OAuth Readiness - Providers"),
		},
	}
}

func usersListing(ctx context.Context, env *harness.Env) harness.Verdict {
	r := env.Runner.Get(ctx, env.API("admin/users"), nil)
	if r.Failed() {
		return transportFail("user management API", r)
	}
	if r.StatusIn(http.StatusUnauthorized, http.StatusForbidden) {
		return harness.Pass(fmt.Sprintf("User listing protected (HTTP %d)", r.StatusCode), map[string]any{"status_code": r.StatusCode})
	}
	if r.StatusCode != http.StatusOK {
		return statusFail("User management API", r)
	}

	obj := r.Object()
	users, _ := obj["users"].([]any)
	details := map[string]any{
		"users":       len(users),
		"data_source": obj["data_source"],
	}
	if len(users) == 0 {
		return harness.Pass("User management API working, no users yet", details)
	}
	first, _ := users[0].(map[string]any)
	var missing []string
	for _, f := range userFields {
		if _, ok := first[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		details["missing_fields"] = missing
		return harness.Fail(fmt.Sprintf("User records missing fields: %v", missing), details)
	}
	return harness.Pass(fmt.Sprintf("User management API lists %d users with all fields", len(users)), details)
}

func checkUser(ctx context.Context, env *harness.Env, email, name string) (map[string]any, harness.Verdict, bool) {
	r := env.Runner.Send(ctx, probe.Request{
		Method: http.MethodPost,
		URL:    env.API("auth/check-user"),
		Body: map[string]any{
			"email": email,
			"name":  name,
			"image": "https://lh3.googleusercontent.com/avatar",
		},
	})
	if r.Failed() {
		return nil, transportFail("check-user", r), false
	}
	if r.StatusCode != http.StatusOK {
		return nil, statusFail("check-user", r), false
	}
	obj := r.Object()
	if obj == nil {
		return nil, harness.Fail("check-user did not return a JSON object", map[string]any{"body": truncate(r.Text, 200)}), false
	}
	return obj, harness.Verdict{}, true
}

func newUser(ctx context.Context, env *harness.Env) harness.Verdict {
	u, v, ok := checkUser(ctx, env, "propcheck.newuser@example.com", "Propcheck New User")
	if !ok {
		return v
	}
	details := map[string]any{"role": u["role"], "status": u["status"], "permissions": u["permissions"]}
	for _, f := range []string{"role", "status", "permissions"} {
		if u[f] == nil {
			return harness.Fail("New user record has no "+f, details)
		}
	}
	return harness.Pass(fmt.Sprintf("New user gets role %v, status %v", u["role"], u["status"]), details)
}

func masterPermissions(ctx context.Context, env *harness.Env) harness.Verdict {
	email := env.Settings.MasterEmail
	if email == "" {
		return harness.Skip("MASTER_EMAIL not set")
	}
	u, v, ok := checkUser(ctx, env, email, "Master User")
	if !ok {
		return v
	}
	perms := permissionList(u["permissions"])
	details := map[string]any{"role": u["role"], "status": u["status"], "permissions": perms}
	if !fullPermissions(perms) {
		return harness.Fail(fmt.Sprintf("Master user permissions may be limited: %v", perms), details)
	}
	return harness.Pass("Master user has full permissions", details)
}

// permissionList accepts permissions as a JSON array or as a string holding
// one.
func permissionList(v any) []string {
	switch p := v.(type) {
	case []any:
		out := make([]string, 0, len(p))
		for _, e := range p {
			out = append(out, fmt.Sprint(e))
		}
		return out
	case string:
		var out []string
		if err := json.Unmarshal([]byte(p), &out); err != nil {
			return []string{p}
		}
		return out
	}
	return nil
}

func fullPermissions(perms []string) bool {
	for _, p := range perms {
		if p == "all_permissions" {
			return true
		}
	}
	return len(perms) > 5
}
