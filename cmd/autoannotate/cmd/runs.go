package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/autoannotate/internal/types"
)

func newRunsCmd(global *globalOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := openRunStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			if store == nil {
				return fmt.Errorf("--db-url or AA_DATABASE_URL required")
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tMODULE\tVARIANT\tSTARTED\tAPPLIED\tSKIPPED\tFAILURES")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					r.ID, r.Module, r.Variant, r.StartedAt().Format(time.RFC3339), r.Applied, r.Skipped, r.Failures)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.AddCommand(newRunsShowCmd(global))
	return cmd
}

func newRunsShowCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show the annotations attached by a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := types.ParseRunID(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := openRunStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			if store == nil {
				return fmt.Errorf("--db-url or AA_DATABASE_URL required")
			}

			run, err := store.GetRun(cmd.Context(), id)
			if err != nil {
				return err
			}
			rows, err := store.ListRunAnnotations(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run %s  module=%s variant=%s etag=%s duration=%dms\n",
				run.ID, run.Module, run.Variant, run.RuleSetETag, run.DurationMs)
			for _, row := range rows {
				change, err := row.Change()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %-10s %s @%s\n", change.Kind, change.Declaration, change.Annotation.FQName)
			}
			return nil
		},
	}
}
