package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	s := LoadSettings(NewEnv(nil))

	assert.Equal(t, "http://localhost:3000", s.BaseURL)
	assert.Equal(t, s.BaseURL, s.NextAuthURL)
	assert.Equal(t, "http://localhost:3000/api", s.APIBase())
	assert.Equal(t, 10*time.Second, s.Timeout)
	assert.Equal(t, 1, s.Parallel)
	assert.Equal(t, 30, s.RetentionDays)
	assert.Equal(t, "info", s.Logging.Level)
	assert.Equal(t, "text", s.Logging.Format)
}

func TestLoadSettings(t *testing.T) {
	env := NewEnv(map[string]string{
		"NEXT_PUBLIC_BASE_URL":          "https://app.example.com/",
		"NEXTAUTH_URL":                  "https://auth.example.com",
		"NEXT_PUBLIC_SUPABASE_URL":      "https://xyz.supabase.co/",
		"NEXT_PUBLIC_SUPABASE_ANON_KEY": "anon",
		"MASTER_EMAIL":                  "owner@example.com",
		"PROPCHECK_TIMEOUT":             "3s",
		"PROPCHECK_PARALLEL":            "4",
		"PROPCHECK_RATE_LIMIT":          "2.5",
		"PROPCHECK_MAX_FAILURES":        "2",
		"LOG_LEVEL":                     "DEBUG",
		"LOG_FORMAT":                    "json",
	})

	s := LoadSettings(env)

	assert.Equal(t, "https://app.example.com", s.BaseURL)
	assert.Equal(t, "https://app.example.com/api", s.APIBase())
	assert.Equal(t, "https://auth.example.com", s.NextAuthURL)
	assert.Equal(t, "https://xyz.supabase.co", s.SupabaseURL)
	assert.Equal(t, "anon", s.SupabaseKey)
	assert.Equal(t, "owner@example.com", s.MasterEmail)
	assert.Equal(t, 3*time.Second, s.Timeout)
	assert.Equal(t, 4, s.Parallel)
	assert.Equal(t, 2.5, s.RateLimit)
	assert.Equal(t, 2, s.MaxFailures)
	assert.Equal(t, "debug", s.Logging.Level)
	assert.Equal(t, "json", s.Logging.Format)
}

func TestLoadSettings_BadValuesKeepDefaults(t *testing.T) {
	env := NewEnv(map[string]string{
		"PROPCHECK_TIMEOUT":        "soon",
		"PROPCHECK_PARALLEL":       "-3",
		"PROPCHECK_MAX_FAILURES":   "many",
		"PROPCHECK_RETENTION_DAYS": "x",
	})

	s := LoadSettings(env)

	assert.Equal(t, 10*time.Second, s.Timeout)
	assert.Equal(t, 1, s.Parallel)
	assert.Equal(t, 0, s.MaxFailures)
	assert.Equal(t, 30, s.RetentionDays)
}

func TestMaskAndFingerprint(t *testing.T) {
	assert.Equal(t, "***", Mask("short"))
	assert.Equal(t, "GOCSPX-abc...wxyz", Mask("GOCSPX-abcdefghijklmnopwxyz"))

	assert.Equal(t, "", Fingerprint(""))
	fp := Fingerprint("GOCSPX-abcdefghijklmnopwxyz")
	assert.Len(t, fp, 16)
	assert.Equal(t, fp, Fingerprint("GOCSPX-abcdefghijklmnopwxyz"))
	assert.NotEqual(t, fp, Fingerprint("GOCSPX-abcdefghijklmnopwxyZ"))
}
