package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tmater/propcheck/internal/store"
)

var errNoStore = errors.New("PROPCHECK_RESULTS_DSN is not set")

func (o *rootOptions) openStore() (*store.Store, error) {
	if o.settings.ResultsDSN == "" {
		return nil, errNoStore
	}
	return store.New(o.settings.ResultsDSN)
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var suite, runID string
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, or the outcomes of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := opts.openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if runID != "" {
				id, err := uuid.Parse(runID)
				if err != nil {
					return fmt.Errorf("invalid run id: %w", err)
				}
				outcomes, err := db.RunOutcomes(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "#\tRESULT\tTEST\tMESSAGE")
				for i, o := range outcomes {
					result := "PASS"
					if !o.Success {
						result = "FAIL"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, result, o.Name, o.Message)
				}
				return nil
			}

			runs, err := db.RecentRuns(cmd.Context(), suite, limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "ID\tSUITE\tFINISHED\tPASSED\tFAILED\tRATE")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.1f%%\n",
					r.ID, r.Suite, r.FinishedAt.Local().Format(time.DateTime), r.Summary.Passed, r.Summary.Failed, r.Summary.SuccessRate)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&suite, "suite", "", "only runs of this suite")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "show the outcomes of this run")
	return cmd
}
