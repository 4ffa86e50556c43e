package catalogcmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lehigh-university-libraries/shaperenamer/internal/catalog"
	"github.com/lehigh-university-libraries/shaperenamer/internal/config"
	"github.com/lehigh-university-libraries/shaperenamer/internal/geometry"
	"github.com/lehigh-university-libraries/shaperenamer/internal/metrics"
	"github.com/lehigh-university-libraries/shaperenamer/internal/renamer"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command
func NewScanCmd(load ConfigFunc) *cobra.Command {
	var req renamer.RunRequest
	var rebuild bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan image and shapefile roots into the catalog",
		Long: `Walk the image and shapefile roots, probe each file's centroid and write one
record per file. Records are upserted by path, so earlier matches survive a rescan,
and records of files that are no longer found are removed. Files already cataloged
with a centroid are not probed again unless --rebuild is given.
The catalog is marked complete only after both walks finish.`,
		Example: `  shaperenamer catalog scan --images /data/imagery --shapes /data/footprints --catalog ./catalog.db`,
	}
	loadCatalog := addCatalogFlag(cmd, load)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadCatalog()
		if err != nil {
			return err
		}
		return executeScan(commandContext(cmd), cfg, req, !rebuild, geometry.NewDispatch(), cmd.OutOrStdout())
	}

	cmd.Flags().StringVar(&req.ImageRoot, "images", "", "Directory containing the images (required)")
	cmd.Flags().StringVar(&req.ShapeRoot, "shapes", "", "Directory containing the PIXEL shapefiles (required)")
	cmd.Flags().StringVar(&req.OutputRoot, "output", "", "Output directory to leave out of the scan")
	cmd.Flags().StringVar(&req.Extension, "extension", ".img", "Image file extension")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Probe the geometry of every file again")

	_ = cmd.MarkFlagRequired("images")
	_ = cmd.MarkFlagRequired("shapes")

	return cmd
}

func executeScan(ctx context.Context, cfg config.Config, req renamer.RunRequest, reuseGeometry bool, provider geometry.Provider, out io.Writer) error {
	cat, err := catalog.OpenSQLite(cfg.CatalogPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	logger := config.ConsoleLogger(os.Stderr, config.Level(cfg.Verbose))
	rec := metrics.New()

	summary, err := renamer.Scan(ctx, cat, cfg, provider, req, reuseGeometry, logger, rec)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	fmt.Fprintf(out, "Images:             %d (%d sidecars, %d geometry failures)\n",
		summary.Images.Written, summary.Images.Sidecars, len(summary.Images.Errors))
	fmt.Fprintf(out, "Shapefiles:         %d (%d ignored, %d geometry failures)\n",
		summary.Shapes.Written, summary.Shapes.Ignored, len(summary.Shapes.Errors))
	fmt.Fprintf(out, "Unchanged:          %d\n", summary.Images.Reused+summary.Shapes.Reused)
	fmt.Fprintf(out, "Removed:            %d\n", summary.Images.Removed+summary.Shapes.Removed)
	fmt.Fprintf(out, "Catalog:            %s\n", cat.Path())

	return rec.WriteTextfile(cfg.MetricsFile)
}
