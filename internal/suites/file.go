package suites

import (
	"context"
	"strings"

	"github.com/tmater/propcheck/internal/config"
	"github.com/tmater/propcheck/internal/expect"
	"github.com/tmater/propcheck/internal/harness"
	"github.com/tmater/propcheck/internal/probe"
)

// FromFile turns a parsed suite file into a runnable suite.
func FromFile(sf *config.SuiteFile) harness.Suite {
	title := sf.Title
	if title == "" {
		title = sf.Name
	}
	s := harness.Suite{Name: sf.Name, Title: title, Categories: sf.Categories}
	for _, c := range sf.Checks {
		s.Checks = append(s.Checks, fileCheck(c))
	}
	return s
}

func fileCheck(c config.Check) harness.Check {
	return harness.Check{Name: c.Name, Run: func(ctx context.Context, env *harness.Env) harness.Verdict {
		r := runProbe(ctx, env, c)
		out := expect.Evaluate(c.Expect, r)

		details := map[string]any{
			"target":     r.Target,
			"elapsed_ms": r.Elapsed.Milliseconds(),
		}
		if r.StatusCode != 0 {
			details["status_code"] = r.StatusCode
		}
		if r.Err != "" {
			details["error"] = r.Err
		}
		if len(r.Addrs) > 0 {
			details["addrs"] = r.Addrs
		}
		if out.Pass {
			return harness.Pass(passMessage(c, r), details)
		}
		return harness.Fail(out.Message, details)
	}}
}

func runProbe(ctx context.Context, env *harness.Env, c config.Check) probe.Result {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = env.Runner.Timeout()
	}
	switch c.Type {
	case "tcp":
		return probe.TCP(ctx, c.Target, timeout)
	case "dns":
		return probe.DNS(ctx, c.Target, timeout)
	}

	target := c.Target
	if target == "" {
		target = env.Settings.BaseURL + "/" + strings.TrimLeft(c.Path, "/")
	}
	return env.Runner.Send(ctx, probe.Request{
		Method:     strings.ToUpper(c.Method),
		URL:        target,
		Headers:    c.Headers,
		Body:       c.Body,
		Timeout:    timeout,
		NoRedirect: c.FollowRedirects != nil && !*c.FollowRedirects,
	})
}

func passMessage(c config.Check, r probe.Result) string {
	switch r.Kind {
	case probe.KindTCP:
		return "connected to " + r.Target
	case probe.KindDNS:
		return c.Target + " resolved to " + strings.Join(r.Addrs, ", ")
	}
	if len(c.Expect) == 0 {
		return "responded " + r.Target
	}
	return "all expectations met"
}
