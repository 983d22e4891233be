package cmd

import (
	"github.com/lineupwatch/lineupwatch/internal/server"
	"github.com/lineupwatch/lineupwatch/pkg/show"
	"github.com/lineupwatch/lineupwatch/pkg/venues"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the match history as a read-only JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("listen")
		user, _ := cmd.Flags().GetString("user")
		pass, _ := cmd.Flags().GetString("pass")
		dbPath, _ := cmd.Flags().GetString("dbpath")

		db, err := openExistingDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		clock := venues.Clock(viper.GetString("timezone"))
		today := func() string { return clock().Format(show.DateLayout) }
		return server.New(db, user, pass, today).Start(addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "127.0.0.1:8080", "Address to listen on")
	serveCmd.Flags().String("user", "", "Basic auth username (empty disables auth)")
	serveCmd.Flags().String("pass", "", "Basic auth password")
	serveCmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/lineupwatch/lineupwatch.sqlite)")
}
