package catalogcmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lehigh-university-libraries/shaperenamer/internal/config"
	"github.com/lehigh-university-libraries/shaperenamer/internal/matcher"
	"github.com/lehigh-university-libraries/shaperenamer/internal/metrics"
	"github.com/lehigh-university-libraries/shaperenamer/internal/models"
	"github.com/spf13/cobra"
)

// NewMatchCmd creates the match command
func NewMatchCmd(load ConfigFunc) *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match unmatched catalog images to shapefiles",
		Long: `Match every catalog image that has no shapefile yet and store the result.
The catalog must be complete; run "catalog scan" first.`,
		Example: `  shaperenamer catalog match --catalog ./catalog.db --match-mode identifier`,
	}
	loadCatalog := addCatalogFlag(cmd, load)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadCatalog()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("match-mode") {
			cfg.MatchMode = mode
		}
		return executeMatch(commandContext(cmd), cfg, cmd.OutOrStdout())
	}

	cmd.Flags().StringVar(&mode, "match-mode", "", "Matching mode (auto, identifier, or centroid)")

	return cmd
}

func executeMatch(ctx context.Context, cfg config.Config, out io.Writer) error {
	mode, err := matcher.ParseMode(cfg.MatchMode)
	if err != nil {
		return err
	}

	cat, err := openExisting(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	logger := config.ConsoleLogger(os.Stderr, config.Level(cfg.Verbose))
	rec := metrics.New()

	results, err := matcher.New(mode, logger, rec).Run(ctx, cat)
	if err != nil {
		return err
	}

	counts := make(map[models.MatchMethod]int)
	for _, r := range results {
		counts[r.Method]++
	}

	fmt.Fprintf(out, "Images:             %d\n", len(results))
	for _, method := range []models.MatchMethod{models.MatchIdentifier, models.MatchCentroid, models.MatchCached, models.MatchNone} {
		fmt.Fprintf(out, "  %-17s %d\n", string(method)+":", counts[method])
	}

	return rec.WriteTextfile(cfg.MetricsFile)
}
