package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lineupwatch/lineupwatch/internal/utils"
	"github.com/lineupwatch/lineupwatch/pkg/ai"
	"github.com/lineupwatch/lineupwatch/pkg/matching"
	"github.com/lineupwatch/lineupwatch/pkg/storage"
	"github.com/lineupwatch/lineupwatch/pkg/venues"
	"github.com/lineupwatch/lineupwatch/pkg/venues/comedycellar"
	"github.com/lineupwatch/lineupwatch/pkg/venues/demo"
	"github.com/lineupwatch/lineupwatch/pkg/venues/thestand"
	"github.com/lineupwatch/lineupwatch/pkg/whttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var defaultFavorites = []string{
	"Andrew Schulz",
	"Shane Gillis",
	"Kam Patterson",
	"Mark Normand",
	"Hasan Minhaj",
	"Ari Matti",
	"Ralph Barbosa",
	"Chris Distefano",
	"Marcello Hernandez",
	"Chris Rock",
	"Larry David",
	"Adam Sandler",
	"Ari Shaffir",
	"Sam Morril",
	"Tom Segura",
	"John Mulaney",
	"Matt Rife",
}

// configList reads a list key. Environment values arrive as one
// comma-separated string, which GetStringSlice would split on spaces.
func configList(key string) []string {
	if raw, ok := viper.Get(key).(string); ok {
		return utils.SplitList(raw)
	}
	return viper.GetStringSlice(key)
}

func favoritesFromConfig() matching.Favorites {
	return matching.NewFavorites(configList("favorites")...)
}

func newHTTPClient(cmd *cobra.Command) (*whttp.Client, error) {
	proxy, _ := cmd.Flags().GetString("proxy")
	return whttp.NewClient(whttp.Options{
		Timeout:  viper.GetDuration("timeout"),
		RetryMax: whttp.DefaultRetryMax,
		Proxy:    proxy,
	})
}

// buildRegistry wires every venue that can run with the current config. The
// Stand needs an extraction backend and is skipped without an API key.
// --demo adds the offline demo venue.
func buildRegistry(cmd *cobra.Command) (*venues.Registry, error) {
	client, err := newHTTPClient(cmd)
	if err != nil {
		return nil, err
	}
	clock := venues.Clock(viper.GetString("timezone"))

	cellar := comedycellar.New(client)
	cellar.SetClock(clock)
	all := []venues.Venue{cellar}

	apiKey := viper.GetString("ai.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey != "" {
		extractor, err := ai.NewExtractor(ai.Config{
			Provider: viper.GetString("ai.provider"),
			APIKey:   apiKey,
			Model:    viper.GetString("ai.model"),
			Endpoint: viper.GetString("ai.endpoint"),
			Client:   client,
		})
		if err != nil {
			return nil, err
		}
		stand := thestand.New(client, extractor)
		stand.SetClock(clock)
		all = append(all, stand)
	} else {
		utils.Log.Infof("Skipping %s: ai.api_key not found in config.", thestand.VenueName)
	}

	if useDemo, _ := cmd.Flags().GetBool("demo"); useDemo {
		all = append(all, demo.New(clock))
	}

	return venues.NewRegistry(all...)
}

// openDB opens the history database at dbPath, creating its directory.
func openDB(dbPath string) (*storage.DB, string, error) {
	absPath, err := utils.GetAbsDBPath(dbPath)
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, "", fmt.Errorf("creating database directory: %w", err)
	}
	db, err := storage.Open(absPath)
	if err != nil {
		return nil, "", err
	}
	return db, absPath, nil
}

// openExistingDB is openDB for read-only commands: a missing file is an error.
func openExistingDB(dbPath string) (*storage.DB, error) {
	absPath, err := utils.GetAbsDBPath(dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("database not found: %s", absPath)
	}
	return storage.Open(absPath)
}

func splitVenueFlag(cmd *cobra.Command) []string {
	raw, _ := cmd.Flags().GetString("venue")
	return utils.SplitList(strings.ToLower(raw))
}
