package catalogcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lehigh-university-libraries/shaperenamer/internal/catalog"
	"github.com/lehigh-university-libraries/shaperenamer/internal/config"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
	"github.com/lehigh-university-libraries/shaperenamer/internal/report"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates the status command
func NewStatusCmd(load ConfigFunc) *cobra.Command {
	var outputRoot string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show record counts and completeness of a catalog",
		Example: `  # Catalog only
  shaperenamer catalog status --catalog ./catalog.db

  # Catalog plus the last run written to an output directory
  shaperenamer catalog status --catalog ./catalog.db --output /data/renamed`,
	}
	loadCatalog := addCatalogFlag(cmd, load)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadCatalog()
		if err != nil {
			return err
		}
		return executeStatus(commandContext(cmd), cfg, outputRoot, cmd.OutOrStdout())
	}

	cmd.Flags().StringVar(&outputRoot, "output", "", "Output directory whose last run summary is shown")

	return cmd
}

// Status summarizes one catalog
type Status struct {
	Images         int
	Shapes         int
	Matched        int
	NoCentroid     int
	Copied         int
	ImagesComplete bool
	ShapesComplete bool
	ImageSource    string
	ShapeSource    string
}

// Collect counts the records of cat
func Collect(ctx context.Context, cat catalog.Catalog) (Status, error) {
	var s Status

	images, err := cat.Images(ctx)
	if err != nil {
		return s, err
	}
	shapes, err := cat.Shapes(ctx)
	if err != nil {
		return s, err
	}

	s.Images = len(images)
	s.Shapes = len(shapes)
	for _, img := range images {
		if img.MatchedTo != "" {
			s.Matched++
		}
		if img.Centroid == nil {
			s.NoCentroid++
		}
		if img.OutputPath != "" {
			s.Copied++
		}
	}
	for _, shape := range shapes {
		if shape.Centroid == nil {
			s.NoCentroid++
		}
	}

	if s.ImagesComplete, err = cat.IsComplete(ctx, models.ClassImage); err != nil {
		return s, err
	}
	if s.ShapesComplete, err = cat.IsComplete(ctx, models.ClassShape); err != nil {
		return s, err
	}
	if s.ImageSource, err = cat.Source(ctx, models.ClassImage); err != nil {
		return s, err
	}
	if s.ShapeSource, err = cat.Source(ctx, models.ClassShape); err != nil {
		return s, err
	}
	return s, nil
}

func executeStatus(ctx context.Context, cfg config.Config, outputRoot string, out io.Writer) error {
	cat, err := openExisting(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	s, err := Collect(ctx, cat)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	fmt.Fprintf(out, "Catalog:            %s\n", cat.Path())
	fmt.Fprintf(out, "Images:             %d (complete: %t)\n", s.Images, s.ImagesComplete)
	fmt.Fprintf(out, "  scanned from:     %s\n", s.ImageSource)
	fmt.Fprintf(out, "Shapefiles:         %d (complete: %t)\n", s.Shapes, s.ShapesComplete)
	fmt.Fprintf(out, "  scanned from:     %s\n", s.ShapeSource)
	fmt.Fprintf(out, "Matched images:     %d\n", s.Matched)
	fmt.Fprintf(out, "Copied images:      %d\n", s.Copied)
	fmt.Fprintf(out, "Missing centroids:  %d\n", s.NoCentroid)

	if outputRoot == "" {
		return nil
	}

	path, last, err := report.Latest(outputRoot)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(out, "Last run:           none in %s\n", outputRoot)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Last run:           %s\n", path)
	fmt.Fprintf(out, "  started:          %s\n", last.Config.Started.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  copied:           %d\n", last.Copied)
	fmt.Fprintf(out, "  skipped:          %d\n", last.Skipped)
	fmt.Fprintf(out, "  unmatched:        %d\n", last.Unmatched)
	fmt.Fprintf(out, "  failures:         %d\n", len(last.Failures))
	return nil
}
