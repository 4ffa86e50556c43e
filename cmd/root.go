package cmd

import (
	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/shaperenamer/internal/config"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// loadConfig reads the config file and environment, then applies --verbose
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "shaperenamer",
		Short: "Rename satellite imagery and pair it with its footprint shapefiles",
		Long: `Shaperenamer catalogs raster images and PIXEL footprint shapefiles, matches
each image to a shapefile by site identifier or by nearest centroid, and copies
both into a PAN / PSH / uncategorized_images / shp output tree under a common name.

Every copy is checksum verified and recorded in manifest.txt.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Verbose logging")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newCatalogCmd(opts))
	cmd.AddCommand(newClassifyCmd())

	return cmd
}
