package main

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tmater/propcheck/internal/config"
)

// rootOptions are the persistent flags plus what preRun derives from them.
type rootOptions struct {
	envFile     string
	maxFailures int
	exitZero    bool
	parallel    int
	noStore     bool
	live        bool

	settings config.Settings
	env      *config.Env
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:               "propcheck",
		Short:             "Verify a deployed property-management application over HTTP",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.preRun,
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "KEY=value file to read settings from")
	cmd.PersistentFlags().IntVar(&opts.maxFailures, "max-failures", 0, "failed checks tolerated before exiting non-zero (overrides PROPCHECK_MAX_FAILURES)")
	cmd.PersistentFlags().BoolVar(&opts.exitZero, "exit-zero", false, "always exit 0, whatever failed")
	cmd.PersistentFlags().IntVar(&opts.parallel, "parallel", 1, "checks run at once (overrides PROPCHECK_PARALLEL)")
	cmd.PersistentFlags().BoolVar(&opts.noStore, "no-store", false, "do not record runs even if PROPCHECK_RESULTS_DSN is set")
	cmd.PersistentFlags().BoolVar(&opts.live, "live", false, "echo each outcome to stderr as it is recorded")

	for _, name := range []string{"comprehensive", "schema-cache", "oauth", "users"} {
		cmd.AddCommand(newSuiteCommand(opts, name))
	}
	cmd.AddCommand(newAllCommand(opts))
	cmd.AddCommand(newFileCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newPruneCommand(opts))

	return cmd
}

func (o *rootOptions) preRun(cmd *cobra.Command, _ []string) error {
	o.env = config.LoadEnv(o.envFile).MergeEnviron()
	o.settings = config.LoadSettings(o.env)

	if cmd.Flags().Changed("max-failures") {
		o.settings.MaxFailures = o.maxFailures
	}
	if cmd.Flags().Changed("parallel") {
		o.settings.Parallel = max(o.parallel, 1)
	}
	if o.noStore {
		o.settings.ResultsDSN = ""
	}

	setupLogging(o.settings.Logging)
	log.Debugf("config: loaded %d keys from %s, target=%s", o.env.Len(), o.envFile, o.settings.BaseURL)
	return nil
}

// setupLogging configures the global logger. Logs go to stderr so stdout
// carries only the report.
func setupLogging(cfg config.LoggingSettings) {
	log.SetOutput(os.Stderr)
	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("config: unknown LOG_LEVEL %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
