package server

import (
	"net/http"
	"time"

	"github.com/lineupwatch/lineupwatch/internal/utils"
	"github.com/lineupwatch/lineupwatch/pkg/storage"
)

// Server exposes the match history read-only over HTTP.
type Server struct {
	DB       *storage.DB
	Username string
	Password string
	// Today reports the current show date for the upcoming listing.
	Today func() string
}

func New(db *storage.DB, user, pass string, today func() string) *Server {
	return &Server{
		DB:       db,
		Username: user,
		Password: pass,
		Today:    today,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))
	mux.HandleFunc("GET /api/matches", s.basicAuth(s.handleMatches))
	mux.HandleFunc("GET /api/matches/upcoming", s.basicAuth(s.handleUpcoming))
	mux.HandleFunc("GET /api/matches/recent", s.basicAuth(s.handleRecent))

	return mux
}

func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	utils.Log.Infof("Starting server on %s", addr)
	return srv.ListenAndServe()
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
