package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/territory-cli/internal/model"
	"github.com/sells-group/territory-cli/internal/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan <region>",
	Short: "Sweep a region's grid for car dealerships",
	Long:  "Tiles the region's bounding box on a 0.5 degree grid, searches each cell, and atomically replaces the region's dealer registry. Ctrl-C stops the sweep and saves what was found so far.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("scan"); err != nil {
			return err
		}

		region := args[0]

		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sc := scanner.New(catalog, newPlacesClient(), st, consoleSink{})

		// First SIGINT cancels cooperatively; the scan still finalizes and
		// persists partial results.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			if _, ok := <-sigCh; ok {
				fmt.Fprintln(os.Stderr, "\ninterrupted, finishing current cell and saving partial results")
				sc.Cancel(region)
			}
		}()

		res, err := sc.Scan(cmd.Context(), region)
		if err != nil {
			return err
		}

		state := "complete"
		if res.Cancelled {
			state = "cancelled"
		}
		fmt.Printf("scan %s: %d dealers in %s (%d/%d cells, %d request failures, %s)\n",
			state, len(res.Dealers), res.Region,
			res.CellsProcessed, res.TotalCells, res.RequestFailures,
			res.Elapsed.Round(time.Second))
		return nil
	},
}

// consoleSink prints a progress line per processed cell and logs failures.
type consoleSink struct{}

func (consoleSink) Progress(p scanner.Progress) {
	fmt.Printf("\r%s: cell %d/%d, %d candidates, %d failures",
		p.Region, p.CellsProcessed, p.TotalCells, p.CandidatesFound, p.RequestFailures)
	if p.CellsProcessed == p.TotalCells {
		fmt.Println()
	}
}

func (consoleSink) RequestFailed(region string, pt model.SearchPoint, term string, err error) {
	zap.L().Warn("search request failed",
		zap.String("region", region),
		zap.Int("row", pt.Row),
		zap.Int("col", pt.Col),
		zap.String("term", term),
		zap.Error(err),
	)
}

func (consoleSink) Done(scanner.Summary) {}

func init() {
	rootCmd.AddCommand(scanCmd)
}
