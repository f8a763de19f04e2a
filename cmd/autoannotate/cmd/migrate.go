package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/autoannotate/internal/core/db"
	"github.com/solatis/autoannotate/internal/logging"
)

func newMigrateCmd(global *globalOptions) *cobra.Command {
	var showStatus bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply run store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("--db-url or AA_DATABASE_URL required")
			}
			database, err := db.Open(cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer database.Close()

			if !showStatus {
				if err := db.MigrateUp(database); err != nil {
					return err
				}
				logger := logging.GetLogger("migrate")
				logger.Info().Msg("Migrations applied")
			}

			statuses, err := db.MigrateStatus(database)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT")
			for _, s := range statuses {
				state, at := "pending", "-"
				if s.Applied {
					state = "applied"
					if s.AppliedAt != nil {
						at = s.AppliedAt.Format(time.RFC3339)
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, state, at)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&showStatus, "status", false, "list migrations without applying them")
	return cmd
}
