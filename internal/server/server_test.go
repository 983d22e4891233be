package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/lineupwatch/lineupwatch/pkg/storage"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, user, pass string) *httptest.Server {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.RecordMatches(context.Background(), []storage.Entry{
		{VenueID: "comedy_cellar", Venue: "Comedy Cellar", Date: "2025-11-01", Slot: "9:00 PM", Performer: "Mark Normand"},
		{VenueID: "the_stand_nyc", Venue: "The Stand NYC", Date: "2025-11-04", Slot: "7:00 PM", Performer: "Sam Morril"},
	})
	require.NoError(t, err)

	srv := httptest.NewServer(New(db, user, pass, func() string { return "2025-11-03" }).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestMatchesEndpoints(t *testing.T) {
	srv := newTestServer(t, "", "")

	var all []storage.Entry
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/matches", &all))
	require.Len(t, all, 2)

	var cellar []storage.Entry
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/matches?venue=comedy_cellar", &cellar))
	require.Len(t, cellar, 1)
	require.Equal(t, "Mark Normand", cellar[0].Performer)

	var upcoming []storage.Entry
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/matches/upcoming", &upcoming))
	require.Len(t, upcoming, 1)
	require.Equal(t, "2025-11-04", upcoming[0].Date)

	var recent []storage.Entry
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/matches/recent?limit=1", &recent))
	require.Len(t, recent, 1)

	require.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/matches?from=11/03/2025", nil))
	require.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/matches/recent?limit=-2", nil))
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t, "", "")

	var stats statsResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/stats", &stats))
	require.Len(t, stats.Venues, 2)
	require.Nil(t, stats.LastRun)
}

func TestBasicAuth(t *testing.T) {
	srv := newTestServer(t, "admin", "secret")

	resp, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/stats", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
