package main

import (
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultRetentionDays = 30

func newPruneCommand(opts *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete recorded runs older than the retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("days") {
				days = opts.settings.RetentionDays
			}
			if days <= 0 {
				days = defaultRetentionDays
			}

			db, err := opts.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			cutoff := time.Now().UTC().AddDate(0, 0, -days)
			n, err := db.EvictRunsBefore(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			log.Infof("eviction: deleted %d runs older than %d days", n, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", defaultRetentionDays, "retention in days (overrides PROPCHECK_RETENTION_DAYS)")
	return cmd
}
