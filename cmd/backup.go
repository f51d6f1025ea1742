package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/territory-cli/internal/store"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export and restore registry snapshots",
}

var backupOut string

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a full registry snapshot to a JSON file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("registry"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		b, err := store.Export(cmd.Context(), st)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode backup")
		}
		if err := os.WriteFile(backupOut, data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", backupOut)
		}

		dealers := 0
		for _, ds := range b.Dealers {
			dealers += len(ds)
		}
		fmt.Printf("exported %d dealers, %d reps, %d clients to %s\n",
			dealers, len(b.Reps), len(b.Clients), backupOut)
		return nil
	},
}

var backupIn string

var backupImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore a registry snapshot from a JSON file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("registry"); err != nil {
			return err
		}

		data, err := os.ReadFile(backupIn)
		if err != nil {
			return eris.Wrapf(err, "read %s", backupIn)
		}
		var b store.Backup
		if err := json.Unmarshal(data, &b); err != nil {
			return eris.Wrap(err, "decode backup")
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := store.Import(cmd.Context(), st, &b); err != nil {
			return err
		}
		fmt.Printf("restored snapshot from %s (exported %s)\n",
			backupIn, b.ExportedAt.Format("2006-01-02 15:04"))
		return nil
	},
}

func init() {
	backupExportCmd.Flags().StringVar(&backupOut, "out", "territory-backup.json", "output file")
	backupImportCmd.Flags().StringVar(&backupIn, "in", "", "snapshot file (required)")
	_ = backupImportCmd.MarkFlagRequired("in")

	backupCmd.AddCommand(backupExportCmd, backupImportCmd)
	rootCmd.AddCommand(backupCmd)
}
