package venues

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lineupwatch/lineupwatch/pkg/show"
)

// Failure kinds a Venue may report. Callers test them with errors.Is.
var (
	// ErrFetch covers network errors, timeouts and non-2xx answers.
	ErrFetch = errors.New("fetch failed")
	// ErrMalformed covers upstream payloads whose shape is not what the venue expects.
	ErrMalformed = errors.New("malformed upstream data")
)

// Venue defines the common contract over heterogeneous comedy-club sources,
// abstracting away how each one publishes its lineup.
type Venue interface {
	// Name is the human-readable venue name used as the report key.
	Name() string
	// Identifier is a stable, unique key used for logging and lookups.
	Identifier() string
	// FetchLineup returns the shows on date (YYYY-MM-DD or show.Today).
	// A day without shows is an empty slice and a nil error.
	FetchLineup(ctx context.Context, date string) ([]show.Show, error)
}

// Registry is a read-only lookup of venues by identifier that keeps
// registration order.
type Registry struct {
	ordered []Venue
	byID    map[string]Venue
}

func NewRegistry(vs ...Venue) (*Registry, error) {
	r := &Registry{byID: make(map[string]Venue, len(vs))}
	for _, v := range vs {
		if v == nil {
			return nil, errors.New("venue must not be nil")
		}
		id := strings.ToLower(strings.TrimSpace(v.Identifier()))
		if id == "" {
			return nil, fmt.Errorf("venue %q has an empty identifier", v.Name())
		}
		if _, ok := r.byID[id]; ok {
			return nil, fmt.Errorf("duplicate venue identifier %q", id)
		}
		r.byID[id] = v
		r.ordered = append(r.ordered, v)
	}
	return r, nil
}

func (r *Registry) Get(id string) (Venue, bool) {
	v, ok := r.byID[strings.ToLower(strings.TrimSpace(id))]
	return v, ok
}

// All returns the venues in registration order.
func (r *Registry) All() []Venue {
	out := make([]Venue, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Select returns the venues named by ids, or all of them when ids is empty.
func (r *Registry) Select(ids []string) ([]Venue, error) {
	if len(ids) == 0 {
		return r.All(), nil
	}
	out := make([]Venue, 0, len(ids))
	for _, id := range ids {
		v, ok := r.Get(id)
		if !ok {
			return nil, fmt.Errorf("unknown venue %q (known: %s)", id, strings.Join(r.IDs(), ", "))
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.ordered))
	for _, v := range r.ordered {
		ids = append(ids, v.Identifier())
	}
	return ids
}

// DefaultZone is the zone both built-in venues advertise their calendars in.
const DefaultZone = "America/New_York"

// Clock returns a function reporting the current time in the named IANA zone,
// falling back to the local zone when tzdata for it is unavailable.
func Clock(zone string) func() time.Time {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.Local
	}
	return func() time.Time { return time.Now().In(loc) }
}
