package cmd

import (
	"github.com/lehigh-university-libraries/shaperenamer/internal/catalogcmd"
	"github.com/spf13/cobra"
)

func newCatalogCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Build, match and inspect the file catalog",
		Long: `Work with the SQLite catalog of images and shapefiles directly.

The run command performs scan and match itself; these subcommands run the steps
one at a time, report on a catalog, and export it to parquet or jsonl.`,
	}

	cmd.AddCommand(catalogcmd.NewScanCmd(root.loadConfig))
	cmd.AddCommand(catalogcmd.NewMatchCmd(root.loadConfig))
	cmd.AddCommand(catalogcmd.NewStatusCmd(root.loadConfig))
	cmd.AddCommand(catalogcmd.NewExportCmd(root.loadConfig))
	cmd.AddCommand(catalogcmd.NewInspectCmd())

	return cmd
}
