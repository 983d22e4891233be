package matching

import "github.com/lineupwatch/lineupwatch/pkg/show"

// Favorites is a set of performer names compared by exact string equality.
type Favorites map[string]struct{}

// NewFavorites builds a set from a list. Names are kept verbatim; no trimming
// or case folding is applied.
func NewFavorites(names ...string) Favorites {
	f := make(Favorites, len(names))
	for _, n := range names {
		f[n] = struct{}{}
	}
	return f
}

// Contains reports whether name is a favorite.
func (f Favorites) Contains(name string) bool {
	_, ok := f[name]
	return ok
}

// Matches maps a slot label to the favorites performing in it, in show order.
type Matches map[string][]string

// FindFavorites returns, per slot label, the favorite performers found in
// shows. A favorite listed twice in one show is returned twice. Shows with no
// favorites contribute no key, so every value in the result is non-empty.
func FindFavorites(shows []show.Show, favorites Favorites) Matches {
	out := Matches{}
	for _, s := range shows {
		for _, p := range s.Performers {
			if favorites.Contains(p) {
				out[s.SlotLabel] = append(out[s.SlotLabel], p)
			}
		}
	}
	return out
}
