package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/territory-cli/internal/model"
	"github.com/sells-group/territory-cli/internal/territory"
)

var repsCmd = &cobra.Command{
	Use:   "reps",
	Short: "Manage sales representatives",
}

var repsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reps",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("registry"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		reps, err := st.Reps(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range reps {
			fmt.Printf("%-36s %-24s %-24s %s  %d territory points\n",
				r.ID, r.Name, r.Email, r.Color, len(r.Territory))
		}
		fmt.Printf("%d reps\n", len(reps))
		return nil
	},
}

var (
	repName  string
	repEmail string
	repColor string
)

var repsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a rep",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("registry"); err != nil {
			return err
		}
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		existing, err := st.Reps(cmd.Context())
		if err != nil {
			return err
		}

		rep := model.Rep{
			ID:        uuid.NewString(),
			Name:      repName,
			Email:     repEmail,
			Color:     repColor,
			Visible:   true,
			CreatedAt: time.Now().UTC(),
		}
		if rep.Color == "" {
			rep.Color = territory.NextColor(len(existing))
		}

		if err := st.SaveRep(cmd.Context(), rep); err != nil {
			return err
		}
		fmt.Printf("created rep %s (%s)\n", rep.ID, rep.Color)
		return nil
	},
}

var repsRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a rep",
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

		if err := st.DeleteRep(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil
	},
}

var territoryPoints string

var repsTerritoryCmd = &cobra.Command{
	Use:   "territory <id>",
	Short: "Set a rep's territory polygon",
	Long:  `Vertices are given as --points "lat,lng;lat,lng;..." with at least three points.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("registry"); err != nil {
			return err
		}

		vertices, err := parsePoints(territoryPoints)
		if err != nil {
			return err
		}
		// Validate the polygon before persisting it.
		if _, err := territory.NewPolygon(vertices); err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rep, err := st.GetRep(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		rep.Territory = vertices
		if err := st.SaveRep(cmd.Context(), *rep); err != nil {
			return err
		}
		fmt.Printf("set %d-point territory for %s\n", len(vertices), rep.Name)
		return nil
	},
}

func parsePoints(s string) ([]model.LatLng, error) {
	var vertices []model.LatLng
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ",", 2)
		if len(parts) != 2 {
			return nil, eris.Errorf("invalid point %q, want lat,lng", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid latitude in %q", pair)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid longitude in %q", pair)
		}
		vertices = append(vertices, model.LatLng{Lat: lat, Lng: lng})
	}
	return vertices, nil
}

func init() {
	repsAddCmd.Flags().StringVar(&repName, "name", "", "rep name (required)")
	repsAddCmd.Flags().StringVar(&repEmail, "email", "", "rep email")
	repsAddCmd.Flags().StringVar(&repColor, "color", "", "map color (default: next palette color)")
	_ = repsAddCmd.MarkFlagRequired("name")

	repsTerritoryCmd.Flags().StringVar(&territoryPoints, "points", "", `polygon vertices "lat,lng;lat,lng;..." (required)`)
	_ = repsTerritoryCmd.MarkFlagRequired("points")

	repsCmd.AddCommand(repsListCmd, repsAddCmd, repsRmCmd, repsTerritoryCmd)
	rootCmd.AddCommand(repsCmd)
}
