package cmd

import (
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/shaperenamer/internal/geometry"
	"github.com/lehigh-university-libraries/shaperenamer/internal/renamer"
	"github.com/spf13/cobra"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var req renamer.RunRequest
	var catalogPath string
	var noCache bool
	var rebuild bool
	var matchMode string
	var workers int
	var retries int
	var strictShapes bool
	var metricsFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Catalog, match and copy images with their shapefiles",
		Long: `Run the full pipeline: scan the image and shapefile roots into the catalog,
match every image to a PIXEL shapefile, then copy and rename both into the output root.

The catalog is reused between runs. It is rebuilt when empty, when --rebuild is
given, or always when --no-cache is set. Files already present in the output are
skipped, so a run can be repeated safely.`,
		Example: `  # Rename .img files
  shaperenamer run --images /data/imagery --shapes /data/footprints --output /data/renamed

  # GeoTIFFs, centroid matching only, rebuilt catalog
  shaperenamer run --images ./tif --shapes ./shp --output ./out --extension .tif --match-mode centroid --rebuild`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("catalog") {
				cfg.CatalogPath = catalogPath
			}
			if flags.Changed("no-cache") {
				cfg.NoCache = noCache
			}
			if flags.Changed("rebuild") {
				cfg.Rebuild = rebuild
			}
			if flags.Changed("match-mode") {
				cfg.MatchMode = matchMode
			}
			if flags.Changed("workers") {
				cfg.Workers = workers
			}
			if flags.Changed("retries") {
				cfg.CopyRetries = retries
			}
			if flags.Changed("strict-shapes") {
				cfg.StrictShapeSidecars = strictShapes
			}
			if flags.Changed("metrics-file") {
				cfg.MetricsFile = metricsFile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			runner := renamer.NewRunner(cfg, geometry.NewDispatch(), os.Stderr)
			result, err := runner.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			printRunResult(result)
			if len(result.Failures) > 0 {
				return fmt.Errorf("%d files failed to copy, see %s", len(result.Failures), result.LogPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.ImageRoot, "images", "", "Directory containing the images (required)")
	cmd.Flags().StringVar(&req.ShapeRoot, "shapes", "", "Directory containing the PIXEL shapefiles (required)")
	cmd.Flags().StringVar(&req.OutputRoot, "output", "", "Output directory (required)")
	cmd.Flags().StringVar(&req.Extension, "extension", ".img", "Image file extension")
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Path to the SQLite catalog")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Use an in-memory catalog and rescan everything")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Rescan the roots into the existing catalog")
	cmd.Flags().StringVar(&matchMode, "match-mode", "", "Matching mode (auto, identifier, or centroid)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent geometry probes and copies")
	cmd.Flags().IntVar(&retries, "retries", 0, "Copy attempts before a checksum failure is reported")
	cmd.Flags().BoolVar(&strictShapes, "strict-shapes", false, "Stop copying a shapefile set at the first missing companion")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")

	_ = cmd.MarkFlagRequired("images")
	_ = cmd.MarkFlagRequired("shapes")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func printRunResult(result renamer.RunResult) {
	fmt.Println("\n========================================")
	fmt.Println("Run Summary")
	fmt.Println("========================================")
	fmt.Printf("Copied:             %d\n", result.Copied)
	fmt.Printf("Skipped (exists):   %d\n", result.Skipped)
	fmt.Printf("Failures:           %d\n", len(result.Failures))
	fmt.Printf("Unmatched images:   %d\n", result.Unmatched)
	fmt.Printf("Uncategorized:      %d\n", result.Uncategorized)
	fmt.Printf("Duplicate names:    %d\n", result.Duplicates)
	fmt.Println()
	fmt.Printf("Log:                %s\n", result.LogPath)
	fmt.Printf("Manifest:           %s\n", result.ManifestPath)
	if result.SummaryPath != "" {
		fmt.Printf("Summary:            %s\n", result.SummaryPath)
	}
	for _, f := range result.Failures {
		fmt.Printf("  FAILED %s\n", f.Error())
	}
	fmt.Println("========================================")
}
