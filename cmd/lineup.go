package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/lineupwatch/lineupwatch/pkg/show"
	"github.com/lineupwatch/lineupwatch/pkg/venues"
	"github.com/spf13/cobra"
)

// lineupCmd prints what one venue returns for one date, before any matching.
var lineupCmd = &cobra.Command{
	Use:   "lineup <venue-id>",
	Short: "Print the full lineup of one venue for one date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		if date != show.Today && !show.IsCanonicalDate(date) {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD or %q", date, show.Today)
		}

		registry, err := buildRegistry(cmd)
		if err != nil {
			return err
		}
		v, ok := registry.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown venue %q (known: %s)", args[0], strings.Join(registry.IDs(), ", "))
		}

		shows, err := v.FetchLineup(cmd.Context(), date)
		if err != nil {
			return err
		}
		for _, msg := range cacheFailures([]venues.Venue{v}) {
			fmt.Fprintln(os.Stderr, msg)
		}
		if len(shows) == 0 {
			fmt.Fprintf(os.Stdout, "No shows listed at %s for %s.\n", v.Name(), date)
			return nil
		}
		for _, s := range shows {
			fmt.Fprintln(os.Stdout, s.String())
			if link := s.Origin[show.OriginShowURL]; link != "" {
				fmt.Fprintf(os.Stdout, "    %s\n", link)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lineupCmd)
	lineupCmd.Flags().String("date", show.Today, "Date to fetch (YYYY-MM-DD or today)")
}
