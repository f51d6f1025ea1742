package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/territory-cli/internal/scanner"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List scannable regions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog, err := loadCatalog()
		if err != nil {
			return err
		}

		for _, r := range catalog.All() {
			cells := scanner.CellCount(r.Bounds, scanner.GridStepDegrees)
			fmt.Printf("%-12s bounds N%.1f S%.1f E%.1f W%.1f  %d grid cells, %d cities\n",
				r.Name, r.Bounds.North, r.Bounds.South, r.Bounds.East, r.Bounds.West,
				cells, len(r.Cities))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(regionsCmd)
}
