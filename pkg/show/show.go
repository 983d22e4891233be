package show

import (
	"fmt"
	"time"
)

// DateLayout is the canonical date format every Show carries.
const DateLayout = "2006-01-02"

// Today is the sentinel a caller may pass instead of a concrete date to ask a
// venue for its own notion of the current day.
const Today = "today"

// Origin keys carried in Show.Origin.
const (
	OriginVenue   = "venue"
	OriginShowURL = "show_url"
)

// Show is one performance on one date at one venue.
type Show struct {
	// SlotLabel combines time, room and venue, e.g. "9:00 PM - Olive Tree Room".
	SlotLabel string
	// Performers keeps upstream order. The same act may appear more than once.
	Performers []string
	// Date is always formatted with DateLayout.
	Date string
	// Origin is opaque provenance and is never used for matching.
	Origin map[string]string
}

// New builds a Show, copying the slices and maps it is handed so the value
// cannot be changed through the caller's references afterwards.
func New(slotLabel string, performers []string, date string, origin map[string]string) Show {
	p := make([]string, len(performers))
	copy(p, performers)

	o := make(map[string]string, len(origin))
	for k, v := range origin {
		o[k] = v
	}

	return Show{
		SlotLabel:  slotLabel,
		Performers: p,
		Date:       date,
		Origin:     o,
	}
}

func (s Show) String() string {
	return fmt.Sprintf("Show(date=%s, slot=%s, performers=%v)", s.Date, s.SlotLabel, s.Performers)
}

// Window returns days consecutive dates starting at from (inclusive), in
// DateLayout. The date is taken in from's location.
func Window(from time.Time, days int) []string {
	if days <= 0 {
		return []string{}
	}
	y, m, d := from.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, from.Location())

	out := make([]string, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, start.AddDate(0, 0, i).Format(DateLayout))
	}
	return out
}

// ResolveDate turns the Today sentinel into a concrete date using now.
// Any other value is returned unchanged; it is not validated.
func ResolveDate(date string, now time.Time) string {
	if date == Today {
		return now.Format(DateLayout)
	}
	return date
}

// IsCanonicalDate reports whether date is a valid, zero-padded YYYY-MM-DD value.
func IsCanonicalDate(date string) bool {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	return t.Format(DateLayout) == date
}

// DisplayDate renders a canonical date for humans ("Monday, November 03, 2025").
// Unparsable input is returned as is.
func DisplayDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 02, 2006")
}
