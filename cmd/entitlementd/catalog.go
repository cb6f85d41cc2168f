package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medtrack-app/entitlements/pkg/catalog"
)

func newCatalogCommand(rt *runtime) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the effective feature catalog",
		Long: `Print the feature catalog the service would load, either the bundled
one or the file named by CATALOG_PATH.

Examples:
  entitlementd catalog
  entitlementd catalog --format yaml > catalog.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := rt.catalog()
			if err != nil {
				return err
			}
			switch format {
			case "table":
				return printCatalogTable(cmd.OutOrStdout(), cat)
			case "yaml":
				return catalog.WriteYAML(cmd.OutOrStdout(), cat)
			default:
				return fmt.Errorf("unknown format %q: use table or yaml", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or yaml")
	return cmd
}

func printCatalogTable(w io.Writer, cat *catalog.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tBASIC\tSTANDARD\tPREMIUM\tDESCRIPTION")
	for _, f := range cat.Features() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			f.Name,
			mark(f.IncludedIn.Basic),
			mark(f.IncludedIn.Standard),
			mark(f.IncludedIn.Premium),
			strings.TrimSpace(f.Description),
		)
	}
	return tw.Flush()
}

func mark(included bool) string {
	if included {
		return "yes"
	}
	return "-"
}
