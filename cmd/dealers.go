package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/territory-cli/internal/model"
)

var dealersCmd = &cobra.Command{
	Use:   "dealers",
	Short: "Inspect and manage the dealer registry",
}

var dealersStatusFilter string

var dealersListCmd = &cobra.Command{
	Use:   "list <region>",
	Short: "List dealers in a region",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("registry"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		dealers, err := st.Dealers(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		shown := 0
		for _, d := range dealers {
			if dealersStatusFilter != "" && string(d.Status) != dealersStatusFilter {
				continue
			}
			shown++
			line := fmt.Sprintf("%-28s %-40s %.4f,%.4f  %.1f (%d)",
				d.PlaceID, d.Name, d.Lat, d.Lng, d.Rating, d.RatingCount)
			if d.Status == model.DealerAssigned {
				line += "  assigned to " + d.AssignedRep
			}
			fmt.Println(line)
		}
		fmt.Printf("%d dealers\n", shown)
		return nil
	},
}

var assignRepID string

var dealersAssignCmd = &cobra.Command{
	Use:   "assign <region> <place-id>",
	Short: "Assign a dealer to a rep",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("registry"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if _, err := st.GetRep(cmd.Context(), assignRepID); err != nil {
			return err
		}
		if err := st.AssignDealer(cmd.Context(), args[0], args[1], assignRepID); err != nil {
			return err
		}
		fmt.Printf("assigned %s to %s\n", args[1], assignRepID)
		return nil
	},
}

var dealersUnassignCmd = &cobra.Command{
	Use:   "unassign <region> <place-id>",
	Short: "Return a dealer to the available pool",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("registry"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.UnassignDealer(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("unassigned %s\n", args[1])
		return nil
	},
}

func init() {
	dealersListCmd.Flags().StringVar(&dealersStatusFilter, "status", "", "filter by status (available|assigned)")
	dealersAssignCmd.Flags().StringVar(&assignRepID, "rep", "", "rep ID (required)")
	_ = dealersAssignCmd.MarkFlagRequired("rep")

	dealersCmd.AddCommand(dealersListCmd, dealersAssignCmd, dealersUnassignCmd)
	rootCmd.AddCommand(dealersCmd)
}
