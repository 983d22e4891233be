package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/lineupwatch/lineupwatch/internal/utils"
	"github.com/lineupwatch/lineupwatch/pkg/notify"
	"github.com/lineupwatch/lineupwatch/pkg/polling"
	"github.com/lineupwatch/lineupwatch/pkg/show"
	"github.com/lineupwatch/lineupwatch/pkg/storage"
	"github.com/lineupwatch/lineupwatch/pkg/venues"
	"github.com/lineupwatch/lineupwatch/pkg/venues/comedycellar"
	"github.com/lineupwatch/lineupwatch/pkg/venues/thestand"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// checkCmd implements: lineupwatch check
//
//	--venue string      Comma-separated venue identifiers (default: all configured)
//	--days int          Days to check, starting today
//	--concurrency int   Venues checked in parallel
//	--notify string     none, dry-run or email
//	--db                Record matches in the history database and flag new ones
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every venue for shows with your favorite comedians",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'lineupwatch check --help'", args[0])
		}
		return runCheck(cmd, splitVenueFlag(cmd))
	},
}

var checkCellarCmd = &cobra.Command{
	Use:   "cellar",
	Short: "Check only the Comedy Cellar",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCheck(cmd, []string{comedycellar.VenueID})
	},
}

var checkStandCmd = &cobra.Command{
	Use:   "stand",
	Short: "Check only The Stand NYC",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCheck(cmd, []string{thestand.VenueID})
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.AddCommand(checkCellarCmd)
	checkCmd.AddCommand(checkStandCmd)

	checkCmd.Flags().String("venue", "", "Comma-separated venue identifiers to check (default: all)")
	checkCmd.PersistentFlags().Int("days", 0, "Number of days to check starting today (default: window_days from config)")
	checkCmd.PersistentFlags().Int("concurrency", 0, "Number of venues checked in parallel (default: concurrency from config)")
	checkCmd.PersistentFlags().String("notify", "none", "Deliver the report: none, dry-run or email")
	checkCmd.PersistentFlags().Bool("db", false, "Record matches in the history database and flag new ones")
	checkCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/lineupwatch/lineupwatch.sqlite)")
}

func runCheck(cmd *cobra.Command, venueIDs []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		days = viper.GetInt("window_days")
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = viper.GetInt("concurrency")
	}
	notifyMode, _ := cmd.Flags().GetString("notify")
	useDB, _ := cmd.Flags().GetBool("db")
	dbPath, _ := cmd.Flags().GetString("dbpath")

	notifier, err := newNotifier(notifyMode, days, os.Stdout)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cmd)
	if err != nil {
		return err
	}
	selected, err := registry.Select(venueIDs)
	if err != nil {
		return err
	}

	var progress cellProgress
	progress.total = int64(len(selected) * days)
	res, err := polling.CheckAll(ctx, polling.Config{
		Venues:      selected,
		Favorites:   favoritesFromConfig(),
		WindowDays:  days,
		Now:         venues.Clock(viper.GetString("timezone")),
		Concurrency: concurrency,
		Log:         utils.Log,
		OnCellDone:  progress.done,
	})
	if err != nil {
		return err
	}
	for _, msg := range cacheFailures(selected) {
		utils.Log.Warn(msg)
	}

	var fresh map[string]bool
	if useDB {
		fresh, err = recordHistory(ctx, dbPath, res)
		if err != nil {
			return err
		}
	}

	printResult(os.Stdout, res, fresh)

	if failures := res.Failures(); len(failures) > 0 {
		utils.Log.Warnf("%d of %d lineup fetches failed", len(failures), len(res.Cells))
	}

	if notifier != nil {
		return notifier.Notify(ctx, res.Matches)
	}
	return nil
}

// cellProgress logs one debug line per finished (venue, date) cell.
type cellProgress struct {
	finished atomic.Int64
	total    int64
}

func (p *cellProgress) done(c polling.CellResult) {
	n := p.finished.Add(1)
	switch {
	case c.Err != nil:
		utils.Log.Debugf("[%d/%d] %s %s: failed", n, p.total, c.VenueID, c.Date)
	default:
		utils.Log.Debugf("[%d/%d] %s %s: %d shows, %d matching slots", n, p.total, c.VenueID, c.Date, c.Shows, len(c.Matches))
	}
}

// cacheReporter is implemented by venues that load their whole schedule once.
type cacheReporter interface {
	CacheStatus() (loaded bool, records int, err error)
}

// cacheFailures describes every venue whose one-time schedule load failed.
// Such a venue answers every date with an empty lineup.
func cacheFailures(vs []venues.Venue) []string {
	var out []string
	for _, v := range vs {
		cr, ok := v.(cacheReporter)
		if !ok {
			continue
		}
		if loaded, _, err := cr.CacheStatus(); loaded && err != nil {
			out = append(out, fmt.Sprintf("%s schedule could not be loaded, its lineups are empty: %v", v.Name(), err))
		}
	}
	return out
}

func newNotifier(mode string, days int, w io.Writer) (notify.Notifier, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "none":
		return nil, nil
	case "dry-run", "dryrun":
		return &notify.DryRunNotifier{W: w, Days: days}, nil
	case "email":
		return notify.NewEmailNotifier(notify.EmailConfig{
			Smtp: notify.SmtpConfig{
				Server:   viper.GetString("email.smtp_host"),
				Port:     viper.GetInt("email.smtp_port"),
				Username: viper.GetString("email.username"),
				Password: viper.GetString("email.password"),
			},
			From: viper.GetString("email.from"),
			To:   configList("email.to"),
			Days: days,
		})
	default:
		return nil, fmt.Errorf("unknown notify mode %q (available: none, dry-run, email)", mode)
	}
}

// recordHistory stores every match of res and returns the keys of the ones
// seen for the first time.
func recordHistory(ctx context.Context, dbPath string, res *polling.CheckResult) (map[string]bool, error) {
	db, absPath, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	lock, err := utils.LockHistory(ctx, absPath)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	var entries []storage.Entry
	for _, c := range res.Cells {
		if c.Err == nil && len(c.Matches) > 0 {
			entries = append(entries, storage.BuildEntries(c.VenueID, c.Venue, c.Date, c.Matches)...)
		}
	}

	created, err := db.RecordMatches(ctx, entries)
	if err != nil {
		return nil, err
	}
	if _, err := db.RecordRun(ctx, storage.Run{
		Days:       len(res.Dates),
		Cells:      len(res.Cells),
		Failures:   len(res.Failures()),
		Matches:    len(entries),
		NewMatches: len(created),
	}); err != nil {
		return nil, err
	}

	fresh := make(map[string]bool, len(created))
	for _, e := range created {
		fresh[matchKey(e.Venue, e.Date, e.Slot, e.Performer)] = true
	}
	return fresh, nil
}

func matchKey(venue, date, slot, performer string) string {
	return venue + "|" + date + "|" + slot + "|" + performer
}

// printResult writes the report grouped by venue, then date, then slot.
// Performers in fresh are flagged as new.
func printResult(w io.Writer, res *polling.CheckResult, fresh map[string]bool) {
	if len(res.Matches) == 0 {
		fmt.Fprintf(w, "No shows with your favorite comedians in the next %d days.\n", len(res.Dates))
		return
	}

	for _, venue := range sortedKeys(res.Matches) {
		fmt.Fprintf(w, "🎭 %s\n", venue)
		byDate := res.Matches[venue]
		for _, date := range sortedKeys(byDate) {
			fmt.Fprintf(w, "  📅 %s\n", show.DisplayDate(date))
			for _, slot := range sortedKeys(byDate[date]) {
				var names []string
				for _, p := range byDate[date][slot] {
					if fresh[matchKey(venue, date, slot, p)] {
						p += " [new]"
					}
					names = append(names, p)
				}
				fmt.Fprintf(w, "    %s: %s\n", slot, strings.Join(names, ", "))
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
