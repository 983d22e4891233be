package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"text/tabwriter"

	"github.com/lineupwatch/lineupwatch/internal/utils"
	"github.com/spf13/cobra"
)

var dbPath string

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the lineupwatch history database",
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		absPath, err := utils.GetAbsDBPath(dbPath)
		if err != nil {
			return err
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", absPath)
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		// Print schema first
		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, absPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, absPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints match counts per venue and the last check cycle.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openExistingDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		stats, err := db.GetStats(ctx)
		if err != nil {
			return err
		}

		if len(stats) == 0 {
			fmt.Println("No data in the database to generate stats.")
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "VENUE\tMATCHES\tCOMEDIANS\tLATEST SHOW\t")

			var totalMatches int
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t\n", s.Venue, s.MatchCount, s.PerformerCount, s.LastDate)
				totalMatches += s.MatchCount
			}

			fmt.Fprintln(w, " \t \t \t \t")
			fmt.Fprintf(w, "TOTAL\t%d\t \t \t\n", totalMatches)
			w.Flush()
		}

		run, err := db.LastRun(ctx)
		if err != nil {
			return err
		}
		if run != nil {
			fmt.Printf("\nLast check: %s (%d days, %d fetches, %d failed, %d matches, %d new)\n",
				run.StartedAt.Format("2006-01-02 15:04:05"), run.Days, run.Cells, run.Failures, run.Matches, run.NewMatches)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(statsCmd)
	dbCmd.PersistentFlags().StringVar(&dbPath, "dbpath", "", "Path to SQLite DB file (default: ~/.config/lineupwatch/lineupwatch.sqlite)")
}
