// Package demo is an offline venue with a fixed schedule relative to today.
// It exercises matching, history and notification without touching a real
// club site.
package demo

import (
	"context"
	"fmt"
	"time"

	"github.com/lineupwatch/lineupwatch/pkg/show"
	"github.com/lineupwatch/lineupwatch/pkg/venues"
)

const (
	VenueName = "Demo Club"
	VenueID   = "demo"
)

type Venue struct {
	now func() time.Time
}

func New(now func() time.Time) *Venue {
	if now == nil {
		now = time.Now
	}
	return &Venue{now: now}
}

func (v *Venue) Name() string       { return VenueName }
func (v *Venue) Identifier() string { return VenueID }

// FetchLineup returns shows on days 0, 2 and 9 of the window and fails on
// day 4, so a full cycle has both matches and an isolated failure.
func (v *Venue) FetchLineup(ctx context.Context, date string) ([]show.Show, error) {
	today := v.now().Format(show.DateLayout)
	date = show.ResolveDate(date, v.now())

	d, err := time.Parse(show.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q", venues.ErrMalformed, date)
	}
	t, _ := time.Parse(show.DateLayout, today)
	offset := int(d.Sub(t).Hours() / 24)

	origin := map[string]string{show.OriginVenue: VenueName}
	switch offset {
	case 0:
		return []show.Show{
			show.New("8:00 PM - Main Room", []string{"Mark Normand", "Unknown"}, date, origin),
			show.New("10:30 PM - Main Room", []string{"Local Opener"}, date, origin),
		}, nil
	case 2:
		return []show.Show{
			show.New("9:00 PM - Back Room", []string{"Sam Morril", "Mark Normand"}, date, origin),
		}, nil
	case 4:
		return nil, fmt.Errorf("%w: demo outage on %s", venues.ErrFetch, date)
	case 9:
		return []show.Show{
			show.New("7:00 PM - Main Room", []string{"Chris Rock", "Chris Rock"}, date, origin),
		}, nil
	default:
		return []show.Show{}, nil
	}
}
