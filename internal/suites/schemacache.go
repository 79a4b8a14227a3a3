package suites

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmater/propcheck/internal/dbcheck"
	"github.com/tmater/propcheck/internal/harness"
	"github.com/tmater/propcheck/internal/postgrest"
)

// SchemaCache checks whether tables are visible through the REST service's
// schema cache, the backend and the database itself.
func SchemaCache() harness.Suite {
	return harness.Suite{
		Name:       "schema-cache",
		Title:      "Schema Cache Verification",
		Categories: []string{"Schema Cache", "Authentication Callbacks"},
		Checks: []harness.Check{
			{Name: "Schema Cache - Configuration Check", Run: supabaseConfigured},
			tableAccessCheck("Schema Cache - Users Table Access", "users", "id,email,role,status"),
			tableAccessCheck("Schema Cache - Properties Table Access", "properties", "id,name,status"),
			backendTablesCheck("Schema Cache - Backend Table Access"),
			{Name: "Schema Cache - Database Tables", Run: databaseTables},
			sessionCheck("Authentication Callbacks - Session Endpoint", "Session endpoint working, callbacks can read the database"),
			providersCheck("Authentication Callbacks - Provider Configuration"),
			{Name: "Authentication Callbacks - Error Page", Run: authErrorPage},
		},
		Final: []harness.Check{
			{Name: "Schema Cache Resolution - Overall Assessment", Run: schemaAssessment},
		},
	}
}

// supabaseConfigured records one failure when direct table access cannot be
// attempted. A complete configuration records nothing.
func supabaseConfigured(_ context.Context, env *harness.Env) harness.Verdict {
	s := env.Settings
	if s.SupabaseURL == "" || s.SupabaseKey == "" {
		return harness.Fail("Supabase configuration missing", map[string]any{
			"required": []string{"NEXT_PUBLIC_SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_ANON_KEY"},
		})
	}
	return harness.Skip("Supabase configured")
}

func tableAccessCheck(name, table, columns string) harness.Check {
	return harness.Check{Name: name, Run: func(ctx context.Context, env *harness.Env) harness.Verdict {
		s := env.Settings
		if s.SupabaseURL == "" || s.SupabaseKey == "" {
			return harness.Skip("Supabase configuration missing")
		}
		r := env.Runner.Get(ctx, postgrest.TableURL(s.SupabaseURL, table, columns, 1), postgrest.Headers(s.SupabaseKey))
		switch {
		case r.Failed():
			return transportFail(table+" table access", r)
		case r.StatusCode == http.StatusOK:
			records := 0
			if rows, ok := r.JSON.([]any); ok {
				records = len(rows)
			}
			return harness.Pass(fmt.Sprintf("%s table accessible through the REST API", table), map[string]any{
				"status_code":   r.StatusCode,
				"records_found": records,
			})
		case postgrest.IsSchemaCacheMiss(r):
			return harness.Fail(fmt.Sprintf("%s error on %s table: not in schema cache", postgrest.CodeSchemaCacheMiss, table), map[string]any{
				"status_code": r.StatusCode,
				"error_code":  postgrest.CodeSchemaCacheMiss,
				"response":    postgrest.Snippet(r.Text, 200),
			})
		case r.StatusCode == http.StatusNotFound:
			return harness.Fail(fmt.Sprintf("%s table not found (404)", table), map[string]any{
				"status_code": r.StatusCode,
				"response":    postgrest.Snippet(r.Text, 200),
			})
		case r.StatusIn(http.StatusUnauthorized, http.StatusForbidden):
			return harness.Pass(fmt.Sprintf("%s table found, access restricted by row level security", table), map[string]any{
				"status_code":    r.StatusCode,
				"rls_protection": true,
			})
		default:
			return harness.Fail(fmt.Sprintf("Unexpected response from %s table: HTTP %d", table, r.StatusCode), map[string]any{
				"status_code": r.StatusCode,
				"response":    postgrest.Snippet(r.Text, 200),
			})
		}
	}}
}

func databaseTables(ctx context.Context, env *harness.Env) harness.Verdict {
	if env.Settings.TargetDBURL == "" {
		return harness.Skip("TARGET_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(ctx, env.Runner.Timeout())
	defer cancel()
	rep, err := dbcheck.CheckTables(ctx, env.Settings.TargetDBURL, dbcheck.RequiredTables)
	if err != nil {
		return harness.Fail("Cannot inspect target database: "+err.Error(), map[string]any{"error": err.Error()})
	}
	if !rep.OK() {
		return harness.Fail(fmt.Sprintf("Tables missing from the database: %v", rep.Missing), map[string]any{
			"present": rep.Present,
			"missing": rep.Missing,
		})
	}
	return harness.Pass("All required tables exist in the database", map[string]any{"present": rep.Present})
}

// authErrorPage loads the page users land on when a sign-in callback is
// denied. It must render, not 404 or crash.
func authErrorPage(ctx context.Context, env *harness.Env) harness.Verdict {
	r := env.Runner.Get(ctx, env.API("auth/error?error=AccessDenied"), nil)
	if r.Failed() {
		return transportFail("auth error page", r)
	}
	if r.StatusCode == http.StatusNotFound || r.StatusCode >= http.StatusInternalServerError {
		return statusFail("Auth error page", r)
	}
	return harness.Pass(fmt.Sprintf("Auth error page renders (HTTP %d)", r.StatusCode), map[string]any{"status_code": r.StatusCode})
}

func schemaAssessment(_ context.Context, env *harness.Env) harness.Verdict {
	outcomes := env.Report.Outcomes()
	sum := env.Report.Summarize()

	var backend, callbacks, directIssues bool
	for _, o := range outcomes {
		switch {
		case o.Success && strings.Contains(o.Name, "Backend Table Access"):
			backend = true
		case o.Success && strings.Contains(o.Name, "Authentication Callbacks"):
			callbacks = true
		case !o.Success && strings.Contains(fmt.Sprint(o.Details), postgrest.CodeSchemaCacheMiss):
			directIssues = true
		}
	}

	details := map[string]any{
		"backend_access": state(backend),
		"auth_callbacks": state(callbacks),
		"success_rate":   fmt.Sprintf("%.1f%%", sum.SuccessRate),
	}
	if !backend || !callbacks {
		return harness.Fail("Schema cache issues persist: critical functionality still affected", details)
	}
	if directIssues {
		details["direct_access"] = "schema_cache_miss"
		return harness.Pass("Schema cache issue largely resolved: backend and authentication working, direct access still reports "+postgrest.CodeSchemaCacheMiss, details)
	}
	details["direct_access"] = "working"
	return harness.Pass("Schema cache issue resolved: all access paths working", details)
}

func state(ok bool) string {
	if ok {
		return "working"
	}
	return "failing"
}
