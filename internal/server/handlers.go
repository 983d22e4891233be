package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/lineupwatch/lineupwatch/pkg/show"
	"github.com/lineupwatch/lineupwatch/pkg/storage"
)

type statsResponse struct {
	Venues  []storage.VenueStats `json:"venues"`
	LastRun *storage.Run         `json:"last_run"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	run, err := s.DB.LastRun(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []storage.VenueStats{}
	}
	writeJSON(w, statsResponse{Venues: stats, LastRun: run})
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	// Parse query params for filtering
	q := r.URL.Query()
	opts := storage.ListOptions{
		VenueID:  q.Get("venue"),
		FromDate: q.Get("from"),
	}
	if opts.FromDate != "" && !show.IsCanonicalDate(opts.FromDate) {
		http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	entries, err := s.DB.ListMatches(r.Context(), opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	entries, err := s.DB.ListMatches(r.Context(), storage.ListOptions{
		VenueID:  r.URL.Query().Get("venue"),
		FromDate: s.Today(),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.DB.ListRecentMatches(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
