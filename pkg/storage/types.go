package storage

import "time"

// Entry is one favorite performer seen in one slot of one venue's lineup.
type Entry struct {
	// Lineup info
	VenueID string `json:"venue_id"`
	Venue   string `json:"venue"`
	Date    string `json:"date"` // YYYY-MM-DD
	Slot    string `json:"slot"`

	// Performer info
	Performer string `json:"performer"`
	// Occurrence disambiguates a performer listed more than once in a slot.
	Occurrence int `json:"occurrence"`

	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// Run summarizes one check cycle.
type Run struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	Days       int       `json:"days"`
	Cells      int       `json:"cells"`
	Failures   int       `json:"failures"`
	Matches    int       `json:"matches"`
	NewMatches int       `json:"new_matches"`
}

// VenueStats aggregates the history of one venue.
type VenueStats struct {
	VenueID        string `json:"venue_id"`
	Venue          string `json:"venue"`
	MatchCount     int    `json:"match_count"`
	PerformerCount int    `json:"performer_count"`
	LastDate       string `json:"last_date"`
}
