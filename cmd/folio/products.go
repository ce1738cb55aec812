package main

import (
	"io"
	"os"

	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	"github.com/smallbiznis/folio/internal/migration"
	productdomain "github.com/smallbiznis/folio/internal/product/domain"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Product catalog tasks",
	}

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the product catalog as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				companies companydomain.Service
				products  productdomain.Service
			)
			app, err := startApp(cmd.Context(), fx.Options(coreModules(), migration.Module), &companies, &products)
			if err != nil {
				return err
			}
			defer stopApp(app)

			companyID, _ := cmd.Flags().GetString("company")
			company, err := companies.Resolve(cmd.Context(), companyID)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return products.ExportCSV(cmd.Context(), company.ID, w)
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	cmd.AddCommand(export)
	return cmd
}
