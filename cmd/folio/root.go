package main

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "folio",
		Short: "Folio - local invoicing and financial documents",
		Long: `Folio keeps companies, products and invoices on local storage, computes
invoice totals and renders invoices as PDF documents.

Data lives in FOLIO_DATA_DIR (default ./data). Run "folio serve" for the
local HTTP API or use the subcommands for one-shot tasks.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("company", "", "company id (defaults to the active company, then the primary one)")

	root.AddCommand(
		newServeCmd(),
		newRenderCmd(),
		newBackupCmd(),
		newProductsCmd(),
		newMigrateCmd(),
		newRemindCmd(),
	)
	return root
}
