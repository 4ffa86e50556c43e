package catalogcmd

import (
	"context"
	"fmt"
	"os"

	"github.com/lehigh-university-libraries/shaperenamer/internal/catalog"
	"github.com/lehigh-university-libraries/shaperenamer/internal/config"
	"github.com/spf13/cobra"
)

// ConfigFunc loads the effective configuration of the invoking command
type ConfigFunc func() (config.Config, error)

// addCatalogFlag registers --catalog and returns a loader applying it
func addCatalogFlag(cmd *cobra.Command, load ConfigFunc) ConfigFunc {
	var path string
	cmd.Flags().StringVar(&path, "catalog", "", "Path to the SQLite catalog")

	return func() (config.Config, error) {
		cfg, err := load()
		if err != nil {
			return cfg, err
		}
		if cmd.Flags().Changed("catalog") {
			cfg.CatalogPath = path
		}
		cfg.NoCache = false
		return cfg, cfg.Validate()
	}
}

// openExisting opens a catalog that must already exist on disk
func openExisting(cfg config.Config) (*catalog.SQLiteStore, error) {
	if _, err := os.Stat(cfg.CatalogPath); err != nil {
		return nil, fmt.Errorf("catalog not found: %s", cfg.CatalogPath)
	}
	return catalog.OpenSQLite(cfg.CatalogPath)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
