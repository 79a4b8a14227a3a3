package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SuiteFile is a user-defined suite read from YAML.
type SuiteFile struct {
	Name       string   `yaml:"name"`
	Title      string   `yaml:"title"`
	Categories []string `yaml:"categories"`
	Checks     []Check  `yaml:"checks"`
}

// Check is one probe plus the expectations its result must meet.
type Check struct {
	Name            string            `yaml:"name"`
	Type            string            `yaml:"type"` // "http" (default), "tcp" or "dns"
	Method          string            `yaml:"method"`
	Target          string            `yaml:"target"` // absolute URL, host:port or hostname
	Path            string            `yaml:"path"`   // joined to the base URL when target is empty
	Headers         map[string]string `yaml:"headers"`
	Body            any               `yaml:"body"`
	FollowRedirects *bool             `yaml:"follow_redirects"`
	Timeout         time.Duration     `yaml:"timeout"`
	Expect          []Expectation     `yaml:"expect"`
}

// Expectation is a predicate over a probe result.
type Expectation struct {
	Type     string `yaml:"type"`
	Target   string `yaml:"target"`
	Operator string `yaml:"operator"`
	Value    string `yaml:"value"`
}

// LoadSuite reads and parses a suite file. ${VAR} references are expanded
// from env before parsing.
func LoadSuite(path string, env *Env) (*SuiteFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}

	var sf SuiteFile
	if err := yaml.Unmarshal([]byte(env.Expand(string(data))), &sf); err != nil {
		return nil, fmt.Errorf("parse suite: %w", err)
	}

	if err := sf.Validate(); err != nil {
		return nil, fmt.Errorf("validate suite: %w", err)
	}
	return &sf, nil
}

func (sf *SuiteFile) Validate() error {
	if len(sf.Checks) == 0 {
		return fmt.Errorf("suite: no checks defined")
	}
	for i, c := range sf.Checks {
		if c.Name == "" {
			return fmt.Errorf("checks[%d].name is required", i)
		}
		switch c.Type {
		case "", "http":
			if c.Target == "" && c.Path == "" {
				return fmt.Errorf("checks[%d] (%s): target or path is required", i, c.Name)
			}
		case "tcp", "dns":
			if c.Target == "" {
				return fmt.Errorf("checks[%d] (%s): target is required", i, c.Name)
			}
		default:
			return fmt.Errorf("checks[%d] (%s): unknown type %q", i, c.Name, c.Type)
		}
		if c.Timeout < 0 {
			return fmt.Errorf("checks[%d] (%s): timeout must not be negative", i, c.Name)
		}
		for j, e := range c.Expect {
			if err := e.validate(); err != nil {
				return fmt.Errorf("checks[%d] (%s): expect[%d]: %w", i, c.Name, j, err)
			}
		}
	}
	if sf.Name == "" {
		sf.Name = "file"
	}
	return nil
}

var (
	numericOps = []string{"", "eq", "neq", "gt", "lt", "gte", "lte"}
	stringOps  = []string{"", "eq", "neq", "contains", "not_contains", "prefix", "suffix"}

	// expectationOps lists the operators each expectation type accepts.
	expectationOps = map[string][]string{
		"status_code":   append(slices.Clone(numericOps), "in"),
		"response_time": numericOps,
		"body_contains": {"", "contains", "not_contains"},
		"json_path":     append(slices.Clone(stringOps), "exists", "not_exists"),
		"header":        append(slices.Clone(stringOps), "exists"),
		"error_code":    stringOps,
	}
)

func (e Expectation) validate() error {
	ops, ok := expectationOps[e.Type]
	if !ok {
		return fmt.Errorf("unknown type %q", e.Type)
	}
	if !slices.Contains(ops, e.Operator) {
		return fmt.Errorf("%s: unknown operator %q", e.Type, e.Operator)
	}
	switch e.Type {
	case "json_path", "header":
		if e.Target == "" {
			return fmt.Errorf("%s: target is required", e.Type)
		}
	case "status_code", "response_time":
		values := []string{e.Value}
		if e.Operator == "in" {
			values = strings.Split(e.Value, ",")
		}
		for _, v := range values {
			if _, err := strconv.Atoi(strings.TrimSpace(v)); err != nil {
				return fmt.Errorf("%s: value %q is not a number", e.Type, v)
			}
		}
	}
	return nil
}
