package main

import (
	"fmt"

	invoiceservice "github.com/smallbiznis/folio/internal/invoice/service"
	"github.com/smallbiznis/folio/internal/migration"
	"github.com/smallbiznis/folio/internal/ratelimit"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newRemindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send due-soon and overdue notifications",
		Long: `Notify about sent invoices that fall due within the configured reminder
lead days and about invoices already past due. Meant to run from cron; with
RATE_LIMIT_ENABLED a redis lease keeps overlapping runs from sending twice.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				invoices *invoiceservice.Service
				limiter  *ratelimit.Limiter
			)
			app, err := startApp(cmd.Context(), fx.Options(coreModules(), migration.Module), &invoices, &limiter)
			if err != nil {
				return err
			}
			defer stopApp(app)

			release, acquired, err := limiter.AcquireJob(cmd.Context(), "remind")
			if err != nil {
				return err
			}
			defer release()
			if !acquired {
				fmt.Fprintln(cmd.OutOrStdout(), "another reminder run holds the lock, skipping")
				return nil
			}

			res, err := invoices.Reminders(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "due soon: %d, overdue: %d\n", len(res.DueSoon), len(res.Overdue))
			return nil
		},
	}
}
