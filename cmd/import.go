package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/territory-cli/internal/importer"
)

var (
	importFile   string
	importRegion string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a client book and match it against the dealer registry",
	RunE: func(cmd *cobra.Command, _ []string) error {
		mode := "registry"
		if cfg.Import.GeocodeMissing {
			mode = "import"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		report, err := importer.New(st, newGeocoder()).Run(cmd.Context(), importFile, importRegion)
		if err != nil {
			return err
		}

		fmt.Printf("imported %d clients from %s: %d matched, %d need review, %d unmatched, %d geocoded\n",
			report.Total, report.Source, report.Matched, report.Review, report.NoMatch, report.Geocoded)
		for _, m := range report.Matches {
			if m.Kind == importer.MatchReview {
				fmt.Printf("  review: %q vs dealer %q (%.0f%%)\n",
					m.Row.Name, m.Dealer.Name, m.Confidence*100)
			}
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "CSV or XLSX file (required)")
	importCmd.Flags().StringVar(&importRegion, "region", "", "region to match dealers in (required)")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(importCmd)
}
