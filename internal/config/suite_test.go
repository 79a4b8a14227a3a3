package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSuite(t *testing.T) {
	path := writeFile(t, "suite.yaml", `
name: smoke
categories: [Auth, Properties]
checks:
  - name: "Auth - Providers"
    path: /api/auth/providers
    expect:
      - type: status_code
        value: "200"
      - type: json_path
        target: google.id
        operator: eq
        value: google
  - name: "Auth - Sign-in redirect"
    method: POST
    path: /api/auth/signin/google
    follow_redirects: false
    timeout: 2s
    headers:
      apikey: ${ANON_KEY}
    body:
      callbackUrl: /dashboard
  - name: "DNS - app"
    type: dns
    target: localhost
`)

	sf, err := LoadSuite(path, NewEnv(map[string]string{"ANON_KEY": "k123"}))
	require.NoError(t, err)

	assert.Equal(t, "smoke", sf.Name)
	assert.Equal(t, []string{"Auth", "Properties"}, sf.Categories)
	require.Len(t, sf.Checks, 3)

	providers := sf.Checks[0]
	assert.Equal(t, "/api/auth/providers", providers.Path)
	require.Len(t, providers.Expect, 2)
	assert.Equal(t, "json_path", providers.Expect[1].Type)
	assert.Nil(t, providers.FollowRedirects)

	signin := sf.Checks[1]
	require.NotNil(t, signin.FollowRedirects)
	assert.False(t, *signin.FollowRedirects)
	assert.Equal(t, 2*time.Second, signin.Timeout)
	assert.Equal(t, "k123", signin.Headers["apikey"])
	assert.Equal(t, map[string]any{"callbackUrl": "/dashboard"}, signin.Body)

	assert.Equal(t, "dns", sf.Checks[2].Type)
}

func TestLoadSuite_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errSub  string
	}{
		{"no checks", "name: x\n", "no checks"},
		{"missing name", "checks:\n  - path: /x\n", "name is required"},
		{"http without target", "checks:\n  - name: a\n", "target or path"},
		{"tcp without target", "checks:\n  - name: a\n    type: tcp\n", "target is required"},
		{"unknown type", "checks:\n  - name: a\n    type: icmp\n    target: x\n", "unknown type"},
		{"bad yaml", "checks: [", "parse suite"},
		{"unknown expectation type", "checks:\n  - name: a\n    path: /\n    expect:\n      - type: body_size\n", "unknown type \"body_size\""},
		{"unknown operator", "checks:\n  - name: a\n    path: /\n    expect:\n      - type: status_code\n        operator: approx\n        value: \"200\"\n", "unknown operator"},
		{"non-numeric status", "checks:\n  - name: a\n    path: /\n    expect:\n      - type: status_code\n        value: ok\n", "not a number"},
		{"non-numeric response time", "checks:\n  - name: a\n    path: /\n    expect:\n      - type: response_time\n        operator: lt\n        value: 2s\n", "not a number"},
		{"bad status list", "checks:\n  - name: a\n    path: /\n    expect:\n      - type: status_code\n        operator: in\n        value: \"200,abc\"\n", "not a number"},
		{"json_path without target", "checks:\n  - name: a\n    path: /\n    expect:\n      - type: json_path\n        operator: exists\n", "target is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSuite(writeFile(t, "s.yaml", tt.content), NewEnv(nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestLoadSuite_MissingFile(t *testing.T) {
	_, err := LoadSuite("/nonexistent/suite.yaml", NewEnv(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read suite")
}

func TestLoadSuite_DefaultName(t *testing.T) {
	sf, err := LoadSuite(writeFile(t, "s.yaml", "checks:\n  - name: a\n    path: /\n"), NewEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, "file", sf.Name)
}
