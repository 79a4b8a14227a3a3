package config

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Settings is the typed view of an Env that the harness runs with.
type Settings struct {
	BaseURL       string
	NextAuthURL   string
	SupabaseURL   string
	SupabaseKey   string
	GoogleID      string
	GoogleSecret  string
	MasterEmail   string
	TargetDBURL   string
	Timeout       time.Duration
	Parallel      int
	RateLimit     float64
	MaxFailures   int
	ResultsDSN    string
	RetentionDays int
	AlertWebhook  string
	Pushgateway   string
	Logging       LoggingSettings
}

type LoggingSettings struct {
	Level  string
	Format string // "text" or "json"
}

// Defaults returns the settings used when the env file sets nothing.
func Defaults() Settings {
	return Settings{
		BaseURL:       "http://localhost:3000",
		Timeout:       10 * time.Second,
		Parallel:      1,
		RetentionDays: 30,
		Logging: LoggingSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadSettings maps well-known keys from env onto Defaults. Values that fail
// to parse keep their default and log a warning.
func LoadSettings(env *Env) Settings {
	s := Defaults()

	s.BaseURL = strings.TrimRight(env.Get("NEXT_PUBLIC_BASE_URL", s.BaseURL), "/")
	s.NextAuthURL = strings.TrimRight(env.Get("NEXTAUTH_URL", s.BaseURL), "/")
	s.SupabaseURL = strings.TrimRight(env.Get("NEXT_PUBLIC_SUPABASE_URL", ""), "/")
	s.SupabaseKey = env.Get("NEXT_PUBLIC_SUPABASE_ANON_KEY", "")
	s.GoogleID = env.Get("GOOGLE_CLIENT_ID", "")
	s.GoogleSecret = env.Get("GOOGLE_CLIENT_SECRET", "")
	s.MasterEmail = env.Get("MASTER_EMAIL", "")
	s.TargetDBURL = env.Get("TARGET_DATABASE_URL", "")
	s.ResultsDSN = env.Get("PROPCHECK_RESULTS_DSN", "")
	s.AlertWebhook = env.Get("PROPCHECK_ALERT_WEBHOOK", "")
	s.Pushgateway = env.Get("PROPCHECK_PUSHGATEWAY_URL", "")

	s.Timeout = durationVar(env, "PROPCHECK_TIMEOUT", s.Timeout)
	s.Parallel = intVar(env, "PROPCHECK_PARALLEL", s.Parallel)
	s.MaxFailures = intVar(env, "PROPCHECK_MAX_FAILURES", s.MaxFailures)
	s.RetentionDays = intVar(env, "PROPCHECK_RETENTION_DAYS", s.RetentionDays)
	s.RateLimit = floatVar(env, "PROPCHECK_RATE_LIMIT", s.RateLimit)

	s.Logging.Level = strings.ToLower(env.Get("LOG_LEVEL", s.Logging.Level))
	s.Logging.Format = strings.ToLower(env.Get("LOG_FORMAT", s.Logging.Format))

	if u, err := url.Parse(s.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		log.Warnf("config: NEXT_PUBLIC_BASE_URL %q is not an absolute URL", s.BaseURL)
	}
	if s.Timeout <= 0 {
		log.Warnf("config: PROPCHECK_TIMEOUT must be positive, using %s", Defaults().Timeout)
		s.Timeout = Defaults().Timeout
	}
	if s.Parallel < 1 {
		s.Parallel = 1
	}

	return s
}

// APIBase is the target's REST root.
func (s Settings) APIBase() string {
	return s.BaseURL + "/api"
}

func durationVar(env *Env, key string, def time.Duration) time.Duration {
	raw, ok := env.Lookup(key)
	if !ok || raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Warnf("config: %s=%q is not a duration, using %s", key, raw, def)
		return def
	}
	return d
}

func intVar(env *Env, key string, def int) int {
	raw, ok := env.Lookup(key)
	if !ok || raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Warnf("config: %s=%q is not an integer, using %d", key, raw, def)
		return def
	}
	return n
}

func floatVar(env *Env, key string, def float64) float64 {
	raw, ok := env.Lookup(key)
	if !ok || raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warnf("config: %s=%q is not a number, using %g", key, raw, def)
		return def
	}
	return f
}
