package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/smallbiznis/folio/internal/backup"
	"github.com/smallbiznis/folio/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore backups",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Snapshot all collections into a compressed backup",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBackups(cmd, func(svc *backup.Service) error {
					h, err := svc.Create(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "created %s (%d bytes)\n", h.ID, h.Size)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List backups, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBackups(cmd, func(svc *backup.Service) error {
					handles, err := svc.List(cmd.Context())
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tCREATED\tSIZE")
					for _, h := range handles {
						fmt.Fprintf(w, "%s\t%s\t%d\n", h.ID, h.CreatedAt.Format("2006-01-02 15:04:05"), h.Size)
					}
					return w.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "restore <backup-id>",
			Short: "Replace all collections with a backup",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withBackups(cmd, func(svc *backup.Service) error {
					if err := svc.Restore(cmd.Context(), args[0]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", args[0])
					return nil
				})
			},
		},
	)
	return cmd
}

func withBackups(cmd *cobra.Command, fn func(*backup.Service) error) error {
	var svc *backup.Service
	app, err := startApp(cmd.Context(), fx.Options(coreModules(), migration.Module), &svc)
	if err != nil {
		return err
	}
	defer stopApp(app)
	return fn(svc)
}
