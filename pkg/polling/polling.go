package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lineupwatch/lineupwatch/pkg/matching"
	"github.com/lineupwatch/lineupwatch/pkg/show"
	"github.com/lineupwatch/lineupwatch/pkg/venues"
)

// DefaultWindowDays is how many consecutive days, starting today, one check covers.
const DefaultWindowDays = 21

var (
	ErrNoFavorites = errors.New("no favorite performers configured")
	ErrNoVenues    = errors.New("no venues to check")
	ErrBadDate     = errors.New("date is not YYYY-MM-DD")
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Result groups matches by venue name, then date, then slot label. Only
// non-empty branches are present; no matches at all is an empty map.
type Result map[string]map[string]matching.Matches

// CellResult is the outcome of one (venue, date) fetch.
type CellResult struct {
	Venue   string
	VenueID string
	Date    string
	Shows   int
	Matches matching.Matches
	Err     error
}

// Config holds everything CheckAll needs for one cycle.
type Config struct {
	Venues    []venues.Venue
	Favorites matching.Favorites

	// Dates overrides the window. When nil, WindowDays dates from Now are used.
	Dates      []string
	WindowDays int              // defaults to DefaultWindowDays if <= 0
	Now        func() time.Time // defaults to time.Now

	// Concurrency > 1 checks that many venues in parallel. Dates within a
	// venue are always fetched in order.
	Concurrency int
	Log         Logger // optional; nil = no logging

	// OnCellDone is called after every (venue, date) fetch, possibly from
	// several goroutines when Concurrency > 1. Nil = no callback.
	OnCellDone func(CellResult)
}

// CheckResult holds the outcome of one check cycle.
type CheckResult struct {
	Matches Result
	Dates   []string
	// Cells lists every (venue, date) outcome in venue then date order.
	Cells []CellResult
}

// Failures returns the cells whose fetch failed.
func (r *CheckResult) Failures() []CellResult {
	var out []CellResult
	for _, c := range r.Cells {
		if c.Err != nil {
			out = append(out, c)
		}
	}
	return out
}

// CheckAll runs one check cycle: every venue over every date in the window.
// A failed (venue, date) fetch is logged and skipped; only invalid
// configuration aborts the cycle.
func CheckAll(ctx context.Context, cfg Config) (*CheckResult, error) {
	if len(cfg.Favorites) == 0 {
		return nil, ErrNoFavorites
	}
	if len(cfg.Venues) == 0 {
		return nil, ErrNoVenues
	}

	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	var dates []string
	if cfg.Dates == nil {
		days := cfg.WindowDays
		if days <= 0 {
			days = DefaultWindowDays
		}
		dates = show.Window(now(), days)
	} else {
		dates = make([]string, 0, len(cfg.Dates))
		for _, d := range cfg.Dates {
			resolved := show.ResolveDate(d, now())
			if !show.IsCanonicalDate(resolved) {
				return nil, fmt.Errorf("%w: %q", ErrBadDate, d)
			}
			dates = append(dates, resolved)
		}
	}

	perVenue := checkVenuesConcurrently(ctx, cfg.Venues, dates, cfg.Favorites, cfg.Concurrency, log, cfg.OnCellDone)

	result := &CheckResult{Matches: Result{}, Dates: dates}
	for i, v := range cfg.Venues {
		cells := perVenue[i]
		result.Cells = append(result.Cells, cells...)

		byDate := map[string]matching.Matches{}
		for _, c := range cells {
			if c.Err == nil && len(c.Matches) > 0 {
				byDate[c.Date] = c.Matches
			}
		}
		if len(byDate) > 0 {
			result.Matches[v.Name()] = byDate
		}
	}

	log.Infof("Checked %d venues over %d dates: %d venues with matches, %d failed fetches",
		len(cfg.Venues), len(dates), len(result.Matches), len(result.Failures()))
	return result, nil
}

// checkVenuesConcurrently runs checkVenue for every venue using a worker pool
// and returns the cells indexed like vs.
func checkVenuesConcurrently(
	ctx context.Context,
	vs []venues.Venue,
	dates []string,
	favorites matching.Favorites,
	concurrency int,
	log Logger,
	onDone func(CellResult),
) [][]CellResult {
	out := make([][]CellResult, len(vs))

	if concurrency <= 1 {
		for i, v := range vs {
			out[i] = checkVenue(ctx, v, dates, favorites, log, onDone)
		}
		return out
	}

	idxChan := make(chan int, len(vs))
	var wg sync.WaitGroup
	for w := 0; w < concurrency && w < len(vs); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				// Each worker writes only its own index.
				out[i] = checkVenue(ctx, vs[i], dates, favorites, log, onDone)
			}
		}()
	}

	for i := range vs {
		idxChan <- i
	}
	close(idxChan)
	wg.Wait()

	return out
}

// checkVenue fetches and matches every date for one venue, in order.
func checkVenue(
	ctx context.Context,
	v venues.Venue,
	dates []string,
	favorites matching.Favorites,
	log Logger,
	onDone func(CellResult),
) []CellResult {
	cells := make([]CellResult, 0, len(dates))
	for _, date := range dates {
		cell := CellResult{Venue: v.Name(), VenueID: v.Identifier(), Date: date}

		shows, err := v.FetchLineup(ctx, date)
		if err != nil {
			log.Warnf("Error fetching %s lineup for %s: %v", v.Name(), date, err)
			cell.Err = err
		} else {
			cell.Shows = len(shows)
			cell.Matches = matching.FindFavorites(shows, favorites)
			log.Debugf("%s %s: %d shows, %d matching slots", v.Identifier(), date, len(shows), len(cell.Matches))
		}

		cells = append(cells, cell)
		if onDone != nil {
			onDone(cell)
		}
	}
	return cells
}
