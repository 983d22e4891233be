// Package thestand reads The Stand NYC calendar. The page has no stable
// structure, so it is cleaned and handed once to an extraction backend; the
// whole rolling schedule is then served from memory.
package thestand

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lineupwatch/lineupwatch/internal/utils"
	"github.com/lineupwatch/lineupwatch/pkg/ai"
	"github.com/lineupwatch/lineupwatch/pkg/show"
	"github.com/lineupwatch/lineupwatch/pkg/venues"
	"github.com/lineupwatch/lineupwatch/pkg/whttp"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

const (
	VenueName = "The Stand NYC"
	VenueID   = "the_stand_nyc"
	ShowsURL  = "https://thestandnyc.com/shows"
)

type cacheState int

const (
	unloaded cacheState = iota
	loaded
)

type Venue struct {
	client    *whttp.Client
	extractor ai.Extractor
	showsURL  string
	now       func() time.Time

	// once guards the single unloaded -> loaded transition. mu lets
	// CacheStatus observe it while a load is in flight.
	once    sync.Once
	mu      sync.RWMutex
	state   cacheState
	records []ai.ShowRecord
	loadErr error
}

func New(client *whttp.Client, extractor ai.Extractor) *Venue {
	return &Venue{
		client:    client,
		extractor: extractor,
		showsURL:  ShowsURL,
		now:       venues.Clock(venues.DefaultZone),
	}
}

// SetClock replaces the clock used to resolve "today".
func (v *Venue) SetClock(now func() time.Time) { v.now = now }

func (v *Venue) Name() string       { return VenueName }
func (v *Venue) Identifier() string { return VenueID }

// FetchLineup loads the schedule on first use and filters it by exact date.
// A failed load leaves the venue with an empty schedule for the life of the
// process; it never surfaces as an error here.
func (v *Venue) FetchLineup(ctx context.Context, date string) ([]show.Show, error) {
	v.once.Do(func() { v.load(ctx) })
	return v.filter(show.ResolveDate(date, v.now())), nil
}

// CacheStatus reports whether the schedule was loaded, how many records it
// holds, and the error that emptied it, if any.
func (v *Venue) CacheStatus() (bool, int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.state != loaded {
		return false, 0, nil
	}
	return true, len(v.records), v.loadErr
}

func (v *Venue) load(ctx context.Context) {
	records, err := v.fetchRecords(ctx)
	if err != nil {
		utils.Log.Warnf("Error loading shows from %s: %v", VenueName, err)
		records = nil
	}
	v.mu.Lock()
	v.records = records
	v.loadErr = err
	v.state = loaded
	v.mu.Unlock()
	utils.Log.Infof("Cached %d shows from %s", len(records), VenueName)
}

func (v *Venue) fetchRecords(ctx context.Context) ([]ai.ShowRecord, error) {
	res, err := v.client.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method: "GET",
		URL:    v.showsURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", venues.ErrFetch, v.showsURL, err)
	}

	cleaned, err := CleanHTML(res.BodyString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", venues.ErrMalformed, err)
	}

	return v.extractor.ExtractShows(ctx, cleaned, VenueName)
}

func (v *Venue) filter(date string) []show.Show {
	shows := make([]show.Show, 0)
	for _, r := range v.records {
		if r.Date != date {
			continue
		}
		origin := map[string]string{
			show.OriginVenue:   VenueName,
			show.OriginShowURL: v.deepLink(r.ShowURL),
		}
		shows = append(shows, show.New(slotLabel(r), r.Comedians, date, origin))
	}
	return shows
}

func slotLabel(r ai.ShowRecord) string {
	if r.VenueLocation != "" {
		return fmt.Sprintf("%s - %s (%s)", r.Time, VenueName, r.VenueLocation)
	}
	return fmt.Sprintf("%s - %s", r.Time, VenueName)
}

// deepLink resolves link against the shows page. Links that point at another
// registrable domain are dropped since the backend output is not trusted.
func (v *Venue) deepLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	base, err := url.Parse(v.showsURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(link)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	if !sameSite(base.Hostname(), abs.Hostname()) {
		utils.Log.Debugf("[%s] dropping off-site show link %q", VenueID, link)
		return ""
	}
	return abs.String()
}

func sameSite(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	da, err := publicsuffix.Domain(strings.ToLower(a))
	if err != nil {
		return false
	}
	db, err := publicsuffix.Domain(strings.ToLower(b))
	if err != nil {
		return false
	}
	return da == db
}

// CleanHTML strips scripts, styles and page chrome, keeping the main content
// subtree (<main>, else div.shows, else the whole document).
func CleanHTML(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	doc.Find("script, style, nav, footer, header").Remove()

	content := doc.Find("main").First()
	if content.Length() == 0 {
		content = doc.Find("div.shows").First()
	}
	if content.Length() == 0 {
		return doc.Html()
	}
	return goquery.OuterHtml(content)
}
