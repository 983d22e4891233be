// Package comedycellar reads the Comedy Cellar (New York) lineup API, which
// answers one date per request with a JSON envelope around an HTML fragment.
package comedycellar

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/lineupwatch/lineupwatch/internal/utils"
	"github.com/lineupwatch/lineupwatch/pkg/show"
	"github.com/lineupwatch/lineupwatch/pkg/venues"
	"github.com/lineupwatch/lineupwatch/pkg/whttp"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	VenueName = "Comedy Cellar"
	VenueID   = "comedy_cellar"

	APIURL     = "https://www.comedycellar.com/lineup/api/"
	siteOrigin = "https://www.comedycellar.com"
	referer    = "https://www.comedycellar.com/new-york-line-up/"

	// UnknownPerformer stands in for an act whose name node is missing.
	UnknownPerformer = "Unknown"
)

type Venue struct {
	client *whttp.Client
	apiURL string
	now    func() time.Time
}

func New(client *whttp.Client) *Venue {
	return &Venue{
		client: client,
		apiURL: APIURL,
		now:    venues.Clock(venues.DefaultZone),
	}
}

// SetClock replaces the clock used to resolve "today".
func (v *Venue) SetClock(now func() time.Time) { v.now = now }

func (v *Venue) Name() string       { return VenueName }
func (v *Venue) Identifier() string { return VenueID }

const lineupQuery = `{"date":"","venue":"newyork","type":"lineup"}`

// FetchLineup issues one request for date and parses the returned fragment.
func (v *Venue) FetchLineup(ctx context.Context, date string) ([]show.Show, error) {
	date = show.ResolveDate(date, v.now())
	if !show.IsCanonicalDate(date) {
		return nil, fmt.Errorf("%w: %s lineup: date %q is not YYYY-MM-DD", venues.ErrMalformed, VenueName, date)
	}

	query, err := sjson.Set(lineupQuery, "date", date)
	if err != nil {
		return nil, err
	}
	form := url.Values{
		"action": {"cc_get_shows"},
		"json":   {query},
	}

	res, err := v.client.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		Method: "POST",
		URL:    v.apiURL,
		Body:   form.Encode(),
		Headers: []whttp.WHTTPHeader{
			{Name: "Content-Type", Value: "application/x-www-form-urlencoded; charset=UTF-8"},
			{Name: "Origin", Value: siteOrigin},
			{Name: "Referer", Value: referer},
			{Name: "User-Agent", Value: "Mozilla/5.0"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s lineup for %s: %w", venues.ErrFetch, VenueName, date, err)
	}

	if !gjson.Valid(res.BodyString) {
		return nil, fmt.Errorf("%w: %s lineup for %s: response is not JSON", venues.ErrMalformed, VenueName, date)
	}
	fragment := gjson.Get(res.BodyString, "show.html")
	if !fragment.Exists() || fragment.Type != gjson.String {
		return nil, fmt.Errorf("%w: %s lineup for %s: missing show.html", venues.ErrMalformed, VenueName, date)
	}

	shows, err := parseLineup(strings.NewReader(fragment.String()), date)
	if err != nil {
		return nil, fmt.Errorf("%w: %s lineup for %s: %w", venues.ErrMalformed, VenueName, date, err)
	}
	utils.Log.Debugf("[%s] %s: %d shows", VenueID, date, len(shows))
	return shows, nil
}

// parseLineup walks every .set-header block: its h2 is the slot label and the
// next div sibling lists one .set-content entry per act.
func parseLineup(r io.Reader, date string) ([]show.Show, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	origin := map[string]string{show.OriginVenue: VenueName}
	shows := make([]show.Show, 0)

	doc.Find(".set-header").Each(func(_ int, header *goquery.Selection) {
		title := header.Find("h2").First()
		if title.Length() == 0 {
			title = header
		}

		var performers []string
		header.NextAllFiltered("div").First().Find(".set-content").Each(func(_ int, act *goquery.Selection) {
			performers = append(performers, performerName(act))
		})

		shows = append(shows, show.New(slotLabel(title.Text()), performers, date, origin))
	})

	return shows, nil
}

// slotLabel drops the word "show" from a header such as
// "9:00 PM show - Olive Tree Room" and collapses whitespace.
func slotLabel(text string) string {
	text = strings.ReplaceAll(text, "show", "")
	return strings.Join(strings.Fields(text), " ")
}

// performerName keeps the act even when its name cannot be read; the number of
// acts is more reliable than the names.
func performerName(act *goquery.Selection) string {
	name := act.Find("span.name").First()
	if name.Length() == 0 {
		return UnknownPerformer
	}
	text := strings.TrimSpace(name.Text())
	if text == "" {
		return UnknownPerformer
	}
	return text
}
