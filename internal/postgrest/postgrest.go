// Package postgrest knows the small part of the PostgREST wire surface the
// harness inspects: table URLs, API key headers and error bodies.
package postgrest

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tmater/propcheck/internal/probe"
)

// CodeSchemaCacheMiss is returned when a table is missing from the service's
// schema cache.
const CodeSchemaCacheMiss = "PGRST205"

// TableURL returns the REST URL that selects columns from table.
func TableURL(base, table, columns string, limit int) string {
	q := url.Values{}
	if columns != "" {
		q.Set("select", columns)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	u := strings.TrimRight(base, "/") + "/rest/v1/" + url.PathEscape(table)
	if enc := q.Encode(); enc != "" {
		u += "?" + strings.ReplaceAll(enc, "%2C", ",")
	}
	return u
}

// Headers returns the headers an anonymous API key request needs.
func Headers(apiKey string) map[string]string {
	return map[string]string{
		"apikey":        apiKey,
		"Authorization": "Bearer " + apiKey,
		"Content-Type":  "application/json",
	}
}

// ErrorCode returns the machine-readable "code" of a JSON error body, or "".
func ErrorCode(r probe.Result) string {
	obj := r.Object()
	if obj == nil {
		return ""
	}
	switch code := obj["code"].(type) {
	case string:
		return code
	case float64:
		return fmt.Sprint(code)
	}
	return ""
}

// IsSchemaCacheMiss reports whether r is the service saying a table is not
// in its schema cache.
func IsSchemaCacheMiss(r probe.Result) bool {
	if r.StatusCode != http.StatusNotFound {
		return false
	}
	if ErrorCode(r) == CodeSchemaCacheMiss {
		return true
	}
	return strings.Contains(r.Text, CodeSchemaCacheMiss) ||
		strings.Contains(strings.ToLower(r.Text), "schema cache")
}

// Snippet returns at most n bytes of a response body for report details.
func Snippet(text string, n int) string {
	if len(text) <= n {
		return text
	}
	return text[:n]
}
