package cmd

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/shaperenamer/internal/filename"
	"github.com/spf13/cobra"
)

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify FILENAME...",
		Short: "Show how filenames are categorized and renamed",
		Example: `  shaperenamer classify 123456789012_PAN.img 123456789012_PIXEL_SHAPE.shp`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range args {
				id, err := filename.Classify(name)
				if err != nil {
					fmt.Fprintf(out, "%s\n  error: %v\n", name, err)
					continue
				}
				fmt.Fprintf(out, "%s\n", name)
				fmt.Fprintf(out, "  site id:    %s\n", id.SiteID)
				fmt.Fprintf(out, "  category:   %s\n", id.Category)
				fmt.Fprintf(out, "  pixel:      %t\n", id.HasPixelMarker())
				fmt.Fprintf(out, "  match keys: %s\n", strings.Join(id.MatchKeys(), ", "))
				fmt.Fprintf(out, "  renamed:    %s\n", id.RenamedName())
			}
			return nil
		},
	}
}
