package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tmater/propcheck/internal/alert"
	"github.com/tmater/propcheck/internal/config"
	"github.com/tmater/propcheck/internal/harness"
	"github.com/tmater/propcheck/internal/metrics"
	"github.com/tmater/propcheck/internal/probe"
	"github.com/tmater/propcheck/internal/report"
	"github.com/tmater/propcheck/internal/store"
	"github.com/tmater/propcheck/internal/suites"
	"github.com/tmater/propcheck/internal/verdict"
)

func newSuiteCommand(opts *rootOptions, name string) *cobra.Command {
	s, _ := suites.ByName(name)
	return &cobra.Command{
		Use:   name,
		Short: "Run the " + s.Title + " suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runSuites(cmd.Context(), cmd.OutOrStdout(), s)
		},
	}
}

func newAllCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run every built-in suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.runSuites(cmd.Context(), cmd.OutOrStdout(), suites.Builtin()...)
		},
	}
}

func newFileCommand(opts *rootOptions) *cobra.Command {
	var paths []string
	cmd := &cobra.Command{
		Use:   "run -f suite.yaml",
		Short: "Run suites defined in YAML files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var list []harness.Suite
			for _, p := range paths {
				sf, err := config.LoadSuite(p, opts.env)
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				list = append(list, suites.FromFile(sf))
			}
			return opts.runSuites(cmd.Context(), cmd.OutOrStdout(), list...)
		},
	}
	cmd.Flags().StringArrayVarP(&paths, "file", "f", nil, "suite file (repeatable)")
	cmd.MarkFlagRequired("file")
	return cmd
}

// runSuites runs each suite, prints its report and hands it to the optional
// sinks. The exit code reflects all suites together.
func (o *rootOptions) runSuites(ctx context.Context, out io.Writer, list ...harness.Suite) error {
	s := o.settings
	runner := probe.NewRunner(
		probe.WithTimeout(s.Timeout),
		probe.WithRateLimit(s.RateLimit),
		probe.WithUserAgent("propcheck/"+version),
	)

	var db *store.Store
	if s.ResultsDSN != "" {
		var err error
		if db, err = store.New(s.ResultsDSN); err != nil {
			log.Warnf("store: disabled: %s", err)
		} else {
			defer db.Close()
		}
	}

	var summaries []report.Summary
	for _, suite := range list {
		rep := suite.NewReport(s.BaseURL)
		if o.live {
			rep.Stream(os.Stderr)
		}
		env := &harness.Env{Settings: s, Runner: runner, Report: rep}

		started := time.Now()
		sum := harness.Run(ctx, env, suite, harness.Options{Parallel: s.Parallel})
		finished := time.Now()

		fmt.Fprint(out, rep.Render())
		summaries = append(summaries, sum)

		o.publish(ctx, db, suite, rep, sum, started, finished)
	}

	total := verdict.Merge(summaries...)
	if code := verdict.ExitCode(total, s.MaxFailures, o.exitZero); code != 0 {
		return &exitError{
			code: code,
			msg:  fmt.Sprintf("%d of %d checks failed (max %d)", total.Failed, total.Total, s.MaxFailures),
		}
	}
	return nil
}

// publish sends a finished run to the store, the alert webhook and the
// Pushgateway. None of them can fail the run.
func (o *rootOptions) publish(ctx context.Context, db *store.Store, suite harness.Suite, rep *report.Report, sum report.Summary, started, finished time.Time) {
	s := o.settings
	failing := verdict.Failing(sum, s.MaxFailures)

	var runID string
	if db != nil {
		id, err := db.SaveRun(ctx, store.Run{
			Suite:      suite.Name,
			Target:     rep.Target,
			StartedAt:  started,
			FinishedAt: finished,
			Summary:    sum,
		}, rep.Outcomes())
		if err != nil {
			log.Errorf("store: failed to save run suite=%s: %s", suite.Name, err)
		} else {
			runID = id.String()
			log.Infof("store: saved run id=%s suite=%s", runID, suite.Name)
		}
	}

	if failing && s.AlertWebhook != "" {
		payload := alert.NewRunAlert(suite.Name, rep, failing)
		payload.RunID = runID
		if err := alert.Fire(s.AlertWebhook, payload); err != nil {
			log.Errorf("alert: failed to fire webhook suite=%s: %s", suite.Name, err)
		} else {
			log.Infof("alert: fired webhook suite=%s failed=%d", suite.Name, sum.Failed)
		}
	}

	if s.Pushgateway != "" {
		m := metrics.New()
		m.Observe(sum, finished.Sub(started), finished)
		if err := m.Push(s.Pushgateway, suite.Name); err != nil {
			log.Errorf("%s", err)
		}
	}
}
