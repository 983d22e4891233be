package cmd

import (
	"context"
	"fmt"

	"github.com/lineupwatch/lineupwatch/pkg/show"
	"github.com/lineupwatch/lineupwatch/pkg/storage"
	"github.com/lineupwatch/lineupwatch/pkg/venues"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently discovered matches (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath, _ := cmd.Flags().GetString("dbpath")
		limit, _ := cmd.Flags().GetInt("limit")
		upcoming, _ := cmd.Flags().GetBool("upcoming")
		venue, _ := cmd.Flags().GetString("venue")

		db, err := openExistingDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		var entries []storage.Entry
		if upcoming {
			today := venues.Clock(viper.GetString("timezone"))().Format(show.DateLayout)
			entries, err = db.ListMatches(context.Background(), storage.ListOptions{VenueID: venue, FromDate: today})
		} else {
			entries, err = db.ListRecentMatches(context.Background(), limit)
		}
		if err != nil {
			return err
		}

		for _, e := range entries {
			if !upcoming && venue != "" && venue != e.VenueID {
				continue
			}
			ts := e.FirstSeenAt.Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %s  %-14s  %s  %s\n", ts, e.Date, e.VenueID, e.Slot, e.Performer)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/lineupwatch/lineupwatch.sqlite)")
	historyCmd.Flags().Int("limit", 50, "Number of recent matches to show")
	historyCmd.Flags().Bool("upcoming", false, "List every stored match from today on, by show date")
	historyCmd.Flags().String("venue", "", "Only show matches for this venue identifier")
}
