package catalogcmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/lehigh-university-libraries/shaperenamer/internal/export"
	"github.com/spf13/cobra"
)

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var path string
	var limit int
	var class string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print records of an exported catalog",
		Long: `Inspect records from a parquet or jsonl catalog export.

Useful for checking which images lack a centroid or a shapefile match
without opening the SQLite catalog.`,
		Example: `  # First 20 records
  shaperenamer catalog inspect --file catalog.parquet --limit 20

  # Only shapefiles, all of them
  shaperenamer catalog inspect --file catalog.jsonl --class shapes --limit 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeInspect(path, class, limit, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&path, "file", "", "Path to a parquet or jsonl export (required)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of records to print (0 for all)")
	cmd.Flags().StringVar(&class, "class", "", "Only print this record class (images or shapes)")

	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func executeInspect(path, class string, limit int, out io.Writer) error {
	rows, err := export.NewLoader(path).Load()
	if err != nil {
		return fmt.Errorf("failed to load export: %w", err)
	}

	if class != "" {
		filtered := rows[:0]
		for _, row := range rows {
			if row.Class == class {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	total := len(rows)
	if limit > 0 && limit < total {
		rows = rows[:limit]
	}

	fmt.Fprintf(out, "Loaded %d records from %s\n", total, path)
	fmt.Fprintln(out, strings.Repeat("=", 80))

	for i, row := range rows {
		fmt.Fprintf(out, "RECORD %d/%d\n", i+1, total)
		fmt.Fprintln(out, strings.Repeat("-", 80))
		fmt.Fprintf(out, "Class:          %s\n", row.Class)
		fmt.Fprintf(out, "ID:             %s\n", row.ID)
		fmt.Fprintf(out, "Original path:  %s\n", row.OriginalPath)
		if row.OutputPath != "" {
			fmt.Fprintf(out, "Output path:    %s\n", row.OutputPath)
		}
		if row.MatchedTo != "" {
			fmt.Fprintf(out, "Matched to:     %s\n", row.MatchedTo)
		}
		if c := row.Centroid(); c != nil {
			fmt.Fprintf(out, "Centroid:       %f, %f\n", c.X, c.Y)
		} else {
			fmt.Fprintf(out, "Centroid:       (unavailable)\n")
		}
		if row.LastAccess != "" {
			fmt.Fprintf(out, "Last access:    %s\n", row.LastAccess)
		}
		fmt.Fprintln(out)
	}

	return nil
}
