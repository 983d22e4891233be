package storage

import (
	"fmt"
	"sort"
	"strings"
)

func identityKey(venueID, date, slot, performer string, occurrence int) string {
	if venueID == "" || date == "" || performer == "" {
		return ""
	}
	return fmt.Sprintf("%s|%s|%s|%s|%d", venueID, date, slot, performer, occurrence)
}

// BuildEntries flattens the matches of one (venue, date) into entries. A
// performer repeated within a slot gets increasing occurrence numbers. Names
// are stored exactly as matched; blank ones are skipped.
func BuildEntries(venueID, venue, date string, matches map[string][]string) []Entry {
	slots := make([]string, 0, len(matches))
	for slot := range matches {
		slots = append(slots, slot)
	}
	sort.Strings(slots)

	var out []Entry
	for _, slot := range slots {
		performers := matches[slot]
		seen := map[string]int{}
		for _, p := range performers {
			if strings.TrimSpace(p) == "" {
				continue
			}
			out = append(out, Entry{
				VenueID:    venueID,
				Venue:      venue,
				Date:       date,
				Slot:       slot,
				Performer:  p,
				Occurrence: seen[p],
			})
			seen[p]++
		}
	}
	return out
}
