package config

import (
	"bufio"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Env is a read-only set of KEY=value assignments loaded from an env file.
// The zero value is an empty Env.
type Env struct {
	vars    map[string]string
	environ bool
}

// NewEnv returns an Env holding a copy of vars.
func NewEnv(vars map[string]string) *Env {
	cp := make(map[string]string, len(vars))
	for k, v := range vars {
		cp[k] = v
	}
	return &Env{vars: cp}
}

// LoadEnv reads an env file. Blank lines and lines starting with '#' are
// skipped; every other line is split on its first '='. Lines without '=' are
// ignored. A missing or unreadable file yields an empty Env and a warning.
func LoadEnv(path string) *Env {
	f, err := os.Open(path)
	if err != nil {
		log.Warnf("config: env file %s not loaded: %s", path, err)
		return NewEnv(nil)
	}
	defer f.Close()

	vars := make(map[string]string)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		vars[key] = value
	}
	if err := sc.Err(); err != nil {
		log.Warnf("config: env file %s read stopped early: %s", path, err)
	}

	log.Debugf("config: loaded %d variables from %s", len(vars), path)
	return &Env{vars: vars}
}

// MergeEnviron returns a copy of e whose lookups consult the process
// environment before the file.
func (e *Env) MergeEnviron() *Env {
	merged := NewEnv(e.all())
	merged.environ = true
	return merged
}

// Lookup returns the value for key and whether it was set.
func (e *Env) Lookup(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	if e.environ {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
	}
	v, ok := e.vars[key]
	return v, ok
}

// Get returns the value for key, or def when no source sets it.
func (e *Env) Get(key, def string) string {
	if v, ok := e.Lookup(key); ok {
		return v
	}
	return def
}

// Len reports the number of variables loaded from the file.
func (e *Env) Len() int {
	if e == nil {
		return 0
	}
	return len(e.vars)
}

// Expand replaces ${VAR} and $VAR in s using e. Unknown variables expand to "".
func (e *Env) Expand(s string) string {
	return os.Expand(s, func(key string) string { return e.Get(key, "") })
}

func (e *Env) all() map[string]string {
	if e == nil {
		return nil
	}
	return e.vars
}
