package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/solarfocus/internal/tui"
)

func newStationsCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stations",
		Short: "List the stations visible to the API account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openSession(cmd)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context())

			stations, err := s.api.StationList(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing stations: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stations)
			}
			fmt.Fprintln(out, tui.RenderStationList(stations, outputWidth(out)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the station list as JSON")
	return cmd
}
