package catalogcmd

import (
	"context"
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/shaperenamer/internal/config"
	"github.com/lehigh-university-libraries/shaperenamer/internal/export"
	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command
func NewExportCmd(load ConfigFunc) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export catalog records to parquet or jsonl",
		Example: `  # Parquet for analysis
  shaperenamer catalog export --catalog ./catalog.db --out catalog.parquet

  # One JSON object per line
  shaperenamer catalog export --catalog ./catalog.db --out catalog.jsonl`,
	}
	loadCatalog := addCatalogFlag(cmd, load)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadCatalog()
		if err != nil {
			return err
		}
		return executeExport(commandContext(cmd), cfg, outputPath, cmd.OutOrStdout())
	}

	cmd.Flags().StringVar(&outputPath, "out", "catalog.parquet", "Output file (.parquet or .jsonl)")

	return cmd
}

func executeExport(ctx context.Context, cfg config.Config, outputPath string, out io.Writer) error {
	cat, err := openExisting(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	rows, err := export.Rows(ctx, cat)
	if err != nil {
		return err
	}
	if err := export.Write(outputPath, rows); err != nil {
		return err
	}

	fmt.Fprintf(out, "Exported %d records to %s\n", len(rows), outputPath)
	return nil
}
