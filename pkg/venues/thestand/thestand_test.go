package thestand

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lineupwatch/lineupwatch/pkg/ai"
	"github.com/lineupwatch/lineupwatch/pkg/show"
	"github.com/lineupwatch/lineupwatch/pkg/venues"
	"github.com/lineupwatch/lineupwatch/pkg/whttp"
)

const page = `<html><head><title>Shows</title><style>.x{}</style><script>var tracking = 1;</script></head>
<body>
<header><a href="/">The Stand</a></header>
<nav><a href="/shows">Shows</a></nav>
<main><div class="card"><h3>Mon Nov 3</h3><p>7:00 PM Upstairs: Mark Normand, Sam Morril &amp; More!</p></div></main>
<footer>© The Stand</footer>
</body></html>`

type stubExtractor struct {
	calls   int32
	gotText string
	records []ai.ShowRecord
	err     error
}

func (s *stubExtractor) ExtractShows(ctx context.Context, text, venueName string) ([]ai.ShowRecord, error) {
	atomic.AddInt32(&s.calls, 1)
	s.gotText = text
	return s.records, s.err
}

func newTestVenue(t *testing.T, status int, ex ai.Extractor) (*Venue, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	c, err := whttp.NewClient(whttp.Options{Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	v := New(c, ex)
	v.showsURL = srv.URL + "/shows"
	v.now = func() time.Time { return time.Date(2025, time.November, 3, 9, 0, 0, 0, time.UTC) }
	return v, &hits
}

func TestFetchLineupExtractsOnce(t *testing.T) {
	ex := &stubExtractor{records: []ai.ShowRecord{
		{Date: "2025-11-03", Time: "7:00 PM", VenueLocation: "Upstairs", Comedians: []string{"Mark Normand", "Sam Morril"}, ShowURL: "/shows/mark-normand"},
		{Date: "2025-11-03", Time: "9:30 PM", Comedians: []string{"Tom Segura"}},
		{Date: "2025-11-04", Time: "8:00 PM", Comedians: []string{"Ari Shaffir"}},
	}}
	v, hits := newTestVenue(t, http.StatusOK, ex)

	first, err := v.FetchLineup(context.Background(), "2025-11-03")
	if err != nil {
		t.Fatalf("FetchLineup() error: %v", err)
	}
	second, err := v.FetchLineup(context.Background(), "2025-11-03")
	if err != nil {
		t.Fatalf("FetchLineup() error: %v", err)
	}
	if _, err := v.FetchLineup(context.Background(), "2025-11-04"); err != nil {
		t.Fatalf("FetchLineup() error: %v", err)
	}

	if n := atomic.LoadInt32(&ex.calls); n != 1 {
		t.Errorf("extractor called %d times, want 1", n)
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Errorf("page fetched %d times, want 1", n)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached calls differ:\n%s", diff)
	}

	want := []show.Show{
		show.New("7:00 PM - The Stand NYC (Upstairs)", []string{"Mark Normand", "Sam Morril"}, "2025-11-03",
			map[string]string{"venue": "The Stand NYC", "show_url": strings.TrimSuffix(v.showsURL, "/shows") + "/shows/mark-normand"}),
		show.New("9:30 PM - The Stand NYC", []string{"Tom Segura"}, "2025-11-03",
			map[string]string{"venue": "The Stand NYC", "show_url": ""}),
	}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Fatalf("FetchLineup() mismatch (-want +got):\n%s", diff)
	}

	if strings.Contains(ex.gotText, "tracking") || strings.Contains(ex.gotText, "<nav") || strings.Contains(ex.gotText, "<footer") {
		t.Errorf("extractor received uncleaned HTML: %s", ex.gotText)
	}
	if !strings.HasPrefix(ex.gotText, "<main>") {
		t.Errorf("extractor should receive the <main> subtree, got %q", ex.gotText)
	}

	loadedOK, n, loadErr := v.CacheStatus()
	if !loadedOK || n != 3 || loadErr != nil {
		t.Errorf("CacheStatus() = %v, %d, %v", loadedOK, n, loadErr)
	}
}

func TestFetchLineupExactDate(t *testing.T) {
	ex := &stubExtractor{records: []ai.ShowRecord{
		{Date: "2025-11-03", Time: "7:00 PM", Comedians: []string{"Mark Normand"}},
	}}
	v, _ := newTestVenue(t, http.StatusOK, ex)

	for _, date := range []string{"2025-11-3", "2025-11-02", "2025-11-04", " 2025-11-03"} {
		shows, err := v.FetchLineup(context.Background(), date)
		if err != nil {
			t.Fatal(err)
		}
		if len(shows) != 0 {
			t.Errorf("FetchLineup(%q) returned %d shows, want 0", date, len(shows))
		}
	}

	shows, _ := v.FetchLineup(context.Background(), "2025-11-03")
	if len(shows) != 1 {
		t.Errorf("FetchLineup(exact) returned %d shows, want 1", len(shows))
	}
	today, _ := v.FetchLineup(context.Background(), show.Today)
	if len(today) != 1 {
		t.Errorf("FetchLineup(today) returned %d shows, want 1", len(today))
	}
}

func TestFetchLineupOutOfWindow(t *testing.T) {
	records, err := ai.ParseShows("```json\n[{\"date\":\"2026-03-01\",\"time\":\"8:00 PM\",\"comedians\":[\"Mark Normand\"]}]\n```")
	if err != nil {
		t.Fatal(err)
	}
	ex := &stubExtractor{records: records}
	v, _ := newTestVenue(t, http.StatusOK, ex)

	for _, date := range show.Window(v.now(), 21) {
		shows, err := v.FetchLineup(context.Background(), date)
		if err != nil {
			t.Fatal(err)
		}
		if len(shows) != 0 {
			t.Fatalf("FetchLineup(%s) = %v, want empty", date, shows)
		}
	}
}

func TestFetchLineupLoadFailures(t *testing.T) {
	t.Run("page error", func(t *testing.T) {
		ex := &stubExtractor{}
		v, hits := newTestVenue(t, http.StatusNotFound, ex)

		for i := 0; i < 3; i++ {
			shows, err := v.FetchLineup(context.Background(), "2025-11-03")
			if err != nil || len(shows) != 0 {
				t.Fatalf("FetchLineup() = %v, %v; want empty and nil", shows, err)
			}
		}
		if atomic.LoadInt32(&ex.calls) != 0 {
			t.Error("extractor should not run when the page fails")
		}
		if atomic.LoadInt32(hits) != 1 {
			t.Errorf("failed load should not be retried, page hit %d times", *hits)
		}
		loadedOK, n, err := v.CacheStatus()
		if !loadedOK || n != 0 || !errors.Is(err, venues.ErrFetch) {
			t.Errorf("CacheStatus() = %v, %d, %v", loadedOK, n, err)
		}
	})

	t.Run("extractor error", func(t *testing.T) {
		ex := &stubExtractor{
			records: []ai.ShowRecord{{Date: "2025-11-03", Time: "7:00 PM", Comedians: []string{"X"}}},
			err:     ai.ErrUnparseable,
		}
		v, _ := newTestVenue(t, http.StatusOK, ex)
		shows, err := v.FetchLineup(context.Background(), "2025-11-03")
		if err != nil || len(shows) != 0 {
			t.Fatalf("FetchLineup() = %v, %v; want empty and nil", shows, err)
		}
		if _, _, err := v.CacheStatus(); !errors.Is(err, ai.ErrUnparseable) {
			t.Errorf("CacheStatus() err = %v", err)
		}
	})
}

func TestCacheStatusBeforeLoad(t *testing.T) {
	v := New(whttp.MustNewClient(time.Second), &stubExtractor{})
	if loadedOK, _, _ := v.CacheStatus(); loadedOK {
		t.Error("venue should start unloaded")
	}
}

func TestDeepLink(t *testing.T) {
	v := New(whttp.MustNewClient(time.Second), &stubExtractor{})
	tests := map[string]string{
		"":                                "",
		"/shows/123":                      "https://thestandnyc.com/shows/123",
		"https://www.thestandnyc.com/s/1": "https://www.thestandnyc.com/s/1",
		"https://evil.example.com/phish":  "",
		"javascript:alert(1)":             "",
		"tickets?id=9":                    "https://thestandnyc.com/tickets?id=9",
	}
	for in, want := range tests {
		if got := v.deepLink(in); got != want {
			t.Errorf("deepLink(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanHTMLFallbacks(t *testing.T) {
	got, err := CleanHTML(`<body><nav>menu</nav><div class="shows"><p>Show</p></div><div>other</div></body>`)
	if err != nil {
		t.Fatal(err)
	}
	if got != `<div class="shows"><p>Show</p></div>` {
		t.Errorf("CleanHTML(div.shows) = %q", got)
	}

	got, err = CleanHTML(`<body><script>x()</script><p>Only content</p></body>`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "x()") || !strings.Contains(got, "Only content") {
		t.Errorf("CleanHTML(document) = %q", got)
	}
}

type blockingExtractor struct {
	release chan struct{}
}

func (b *blockingExtractor) ExtractShows(ctx context.Context, text, venueName string) ([]ai.ShowRecord, error) {
	<-b.release
	return []ai.ShowRecord{{Date: "2025-11-03", Time: "7:00 PM", Comedians: []string{"Mark Normand"}}}, nil
}

func TestCacheStatusDuringLoad(t *testing.T) {
	ex := &blockingExtractor{release: make(chan struct{})}
	v, _ := newTestVenue(t, http.StatusOK, ex)

	done := make(chan []show.Show)
	go func() {
		shows, _ := v.FetchLineup(context.Background(), "2025-11-03")
		done <- shows
	}()

	for i := 0; i < 50; i++ {
		if loadedOK, _, _ := v.CacheStatus(); loadedOK {
			t.Fatal("venue reported loaded before the extractor returned")
		}
		time.Sleep(time.Millisecond)
	}
	close(ex.release)

	if shows := <-done; len(shows) != 1 {
		t.Fatalf("FetchLineup() returned %d shows, want 1", len(shows))
	}
	if loadedOK, n, err := v.CacheStatus(); !loadedOK || n != 1 || err != nil {
		t.Errorf("CacheStatus() = %v, %d, %v", loadedOK, n, err)
	}
}
