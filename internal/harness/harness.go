// Package harness runs suites of checks and records their verdicts in a
// report.
package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tmater/propcheck/internal/config"
	"github.com/tmater/propcheck/internal/probe"
	"github.com/tmater/propcheck/internal/report"
)

// Verdict is what a check decides after inspecting its probes.
type Verdict struct {
	Success bool
	Message string
	Details map[string]any

	// Skipped verdicts are logged but never recorded.
	Skipped bool
}

func Pass(message string, details map[string]any) Verdict {
	return Verdict{Success: true, Message: message, Details: details}
}

func Fail(message string, details map[string]any) Verdict {
	return Verdict{Success: false, Message: message, Details: details}
}

// Skip marks a check as not applicable, e.g. when the setting it needs is
// empty.
func Skip(reason string) Verdict {
	return Verdict{Skipped: true, Message: reason}
}

// Check is one named verification.
type Check struct {
	Name string
	Run  func(ctx context.Context, env *Env) Verdict
}

// Suite is an ordered set of checks. Final checks run after all others,
// one at a time, and may read the report built so far.
type Suite struct {
	Name       string
	Title      string
	Categories []string
	Checks     []Check
	Final      []Check
}

// NewReport returns an empty report titled for s.
func (s Suite) NewReport(target string) *report.Report {
	return report.New(s.Title, target, s.Categories)
}

// Env is what checks get to work with. It is built by the caller and passed
// explicitly; nothing in it is global.
type Env struct {
	Settings config.Settings
	Runner   *probe.Runner
	Report   *report.Report
}

// API joins path onto the target's REST root.
func (e *Env) API(path string) string {
	return e.Settings.APIBase() + "/" + strings.TrimLeft(path, "/")
}

type Options struct {
	// Parallel bounds how many checks run at once. Verdicts are still
	// recorded in declaration order.
	Parallel int
}

// Run executes s against env.Report and returns the summary at the end.
func Run(ctx context.Context, env *Env, s Suite, opts Options) report.Summary {
	log.Infof("harness: running suite=%s checks=%d target=%s", s.Name, len(s.Checks)+len(s.Final), env.Settings.BaseURL)
	start := time.Now()

	verdicts := make([]Verdict, len(s.Checks))
	if opts.Parallel <= 1 {
		for i, c := range s.Checks {
			verdicts[i] = guard(ctx, env, c)
			record(env.Report, s.Name, c.Name, verdicts[i])
		}
	} else {
		var g errgroup.Group
		g.SetLimit(opts.Parallel)
		for i, c := range s.Checks {
			g.Go(func() error {
				verdicts[i] = guard(ctx, env, c)
				return nil
			})
		}
		g.Wait()
		for i, c := range s.Checks {
			record(env.Report, s.Name, c.Name, verdicts[i])
		}
	}

	for _, c := range s.Final {
		record(env.Report, s.Name, c.Name, guard(ctx, env, c))
	}

	summary := env.Report.Summarize()
	log.Infof("harness: suite=%s done total=%d passed=%d failed=%d elapsed=%s",
		s.Name, summary.Total, summary.Passed, summary.Failed, time.Since(start).Round(time.Millisecond))
	return summary
}

// guard runs one check and turns a panic into a failed verdict so the rest
// of the suite still runs.
func guard(ctx context.Context, env *Env, c Check) (v Verdict) {
	defer func() {
		if p := recover(); p != nil {
			log.Errorf("harness: check %q panicked: %v", c.Name, p)
			v = Fail(fmt.Sprintf("Error running check: %v", p), map[string]any{"error": fmt.Sprint(p)})
		}
	}()
	if c.Run == nil {
		return Fail("check has no body", nil)
	}
	return c.Run(ctx, env)
}

func record(r *report.Report, suite, name string, v Verdict) {
	if v.Skipped {
		log.Infof("harness: skipped suite=%s check=%q: %s", suite, name, v.Message)
		return
	}
	log.WithFields(log.Fields{"suite": suite, "check": name, "success": v.Success}).Debug("harness: recorded")
	r.Record(name, v.Success, v.Message, v.Details)
}
