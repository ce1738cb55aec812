package main

import (
	"fmt"
	"os"

	"github.com/gosimple/slug"
	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	invoiceservice "github.com/smallbiznis/folio/internal/invoice/service"
	"github.com/smallbiznis/folio/internal/migration"
	"github.com/smallbiznis/folio/internal/render"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newRenderCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "render <invoice-id>",
		Short: "Render an invoice as PDF",
		Example: `  # Write the PDF next to the current directory, named after the invoice number
  folio render 1843021011205402900

  # Choose the output file
  folio render 1843021011205402900 -o invoice.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				companies companydomain.Service
				invoices  *invoiceservice.Service
				renderer  *render.Renderer
			)
			app, err := startApp(cmd.Context(), fx.Options(coreModules(), migration.Module), &companies, &invoices, &renderer)
			if err != nil {
				return err
			}
			defer stopApp(app)

			companyID, _ := cmd.Flags().GetString("company")
			company, err := companies.Resolve(cmd.Context(), companyID)
			if err != nil {
				return err
			}
			inv, err := invoices.Get(cmd.Context(), company.ID, args[0])
			if err != nil {
				return err
			}
			body, err := renderer.Render(cmd.Context(), *inv, *company)
			if err != nil {
				return err
			}

			if output == "" {
				output = slug.Make("invoice-"+inv.Number) + ".pdf"
			}
			if err := os.WriteFile(output, body, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", output, len(body))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	return cmd
}
