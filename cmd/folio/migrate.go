package main

import (
	"fmt"

	"github.com/smallbiznis/folio/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Migrate stored collections to the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var runner *migration.Runner
			app, err := startApp(cmd.Context(), fx.Options(coreModules(), fx.Provide(migration.New)), &runner)
			if err != nil {
				return err
			}
			defer stopApp(app)

			res, err := runner.Run(cmd.Context())
			if err != nil {
				return err
			}
			if len(res.Applied) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "already at schema version %d\n", res.To)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d -> %d (applied %v)\n", res.From, res.To, res.Applied)
			if res.SnapshotDir != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "pre-migration snapshot: %s\n", res.SnapshotDir)
			}
			return nil
		},
	}
}
