package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/cinelist/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler, sessionID string, accountID int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		BaseURL:   srv.URL,
		APIKey:    "test-key",
		SessionID: sessionID,
		AccountID: accountID,
		Timeout:   5 * time.Second,
		RetryWait: time.Millisecond,
	}, quietLogger())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestFetchWatchListPage(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /account/42/watchlist/movies", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q, want test-key", got)
		}
		if got := q.Get("session_id"); got != "sess" {
			t.Errorf("session_id = %q, want sess", got)
		}
		if got := q.Get("page"); got != "3" {
			t.Errorf("page = %q, want 3", got)
		}
		if got := q.Get("sort_by"); got != "created_at.desc" {
			t.Errorf("sort_by = %q, want created_at.desc", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"page": 3,
			"results": []map[string]any{
				{"id": 603, "title": "The Matrix", "release_date": "1999-03-30", "genre_ids": []int{28, 878}, "vote_average": 8.2, "vote_count": 25000, "original_language": "en"},
				{"id": 0, "title": "broken"},
			},
			"total_pages":   4,
			"total_results": 61,
		})
	})

	c := newTestClient(t, mux, "sess", 42)
	page, err := c.FetchWatchListPage(context.Background(), 3, domain.SortCreatedDesc)
	if err != nil {
		t.Fatalf("FetchWatchListPage returned error: %v", err)
	}
	if page.Page != 3 || page.TotalPages != 4 || page.TotalResults != 61 {
		t.Fatalf("page meta = %d/%d/%d, want 3/4/61", page.Page, page.TotalPages, page.TotalResults)
	}
	if len(page.Results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(page.Results))
	}
	m := page.Results[0]
	if m.ID != 603 || m.Title != "The Matrix" || m.Year() != 1999 {
		t.Fatalf("movie = %+v, want The Matrix (1999)", m)
	}
	if len(m.GenreIDs) != 2 || m.Languages[0] != "en" {
		t.Fatalf("movie genres/languages = %v/%v", m.GenreIDs, m.Languages)
	}
}

func TestFetchWatchListPage_ResolvesAccountID(t *testing.T) {
	t.Parallel()

	var accountCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /account", func(w http.ResponseWriter, r *http.Request) {
		accountCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "username": "neo", "iso_3166_1": "us"})
	})
	mux.HandleFunc("GET /account/7/watchlist/movies", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"page": 1, "results": []any{}, "total_pages": 0, "total_results": 0})
	})

	c := newTestClient(t, mux, "sess", 0)
	for i := 0; i < 2; i++ {
		if _, err := c.FetchWatchListPage(context.Background(), 1, ""); err != nil {
			t.Fatalf("FetchWatchListPage returned error: %v", err)
		}
	}
	if got := accountCalls.Load(); got != 1 {
		t.Fatalf("account lookups = %d, want 1", got)
	}
	if _, id := c.Session(); id != 7 {
		t.Fatalf("account id = %d, want 7", id)
	}
}

func TestFetchWatchListPage_RequiresSession(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.NotFoundHandler(), "", 0)
	_, err := c.FetchWatchListPage(context.Background(), 1, domain.SortCreatedDesc)
	if !errors.Is(err, domain.ErrSessionRequired) {
		t.Fatalf("error = %v, want ErrSessionRequired", err)
	}
}

func TestConfirmAdd_AlreadyPresent(t *testing.T) {
	t.Parallel()

	var posts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /movie/603/account_states", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 603, "watchlist": true, "rated": false})
	})
	mux.HandleFunc("POST /account/42/watchlist", func(w http.ResponseWriter, r *http.Request) {
		posts.Add(1)
		writeJSON(w, http.StatusCreated, map[string]any{"status_code": 1, "status_message": "Success."})
	})

	c := newTestClient(t, mux, "sess", 42)
	conf, err := c.ConfirmAdd(context.Background(), 603)
	if err != nil {
		t.Fatalf("ConfirmAdd returned error: %v", err)
	}
	if !conf.AlreadyPresent || conf.Success {
		t.Fatalf("confirmation = %+v, want already present", conf)
	}
	if posts.Load() != 0 {
		t.Fatal("ConfirmAdd posted although the movie was already listed")
	}
}

func TestConfirmAddAndRemove(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var bodies []WatchlistRequest
	mux := http.NewServeMux()
	mux.HandleFunc("GET /movie/603/account_states", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"id": 603, "watchlist": false, "rated": map[string]any{"value": 8}})
	})
	mux.HandleFunc("POST /account/42/watchlist", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json;charset=utf-8" {
			t.Errorf("Content-Type = %q", ct)
		}
		var in WatchlistRequest
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		mu.Lock()
		bodies = append(bodies, in)
		mu.Unlock()
		if in.Watchlist {
			writeJSON(w, http.StatusCreated, map[string]any{"success": true, "status_code": 1, "status_message": "Success."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "status_code": 13, "status_message": "The item/record was deleted successfully."})
	})

	c := newTestClient(t, mux, "sess", 42)

	conf, err := c.ConfirmAdd(context.Background(), 603)
	if err != nil {
		t.Fatalf("ConfirmAdd returned error: %v", err)
	}
	if !conf.Success {
		t.Fatalf("confirmation = %+v, want success", conf)
	}

	ok, err := c.ConfirmRemove(context.Background(), 603)
	if err != nil || !ok {
		t.Fatalf("ConfirmRemove = %v, %v, want true, nil", ok, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 2 {
		t.Fatalf("posts = %d, want 2", len(bodies))
	}
	want := []WatchlistRequest{
		{MediaType: "movie", MediaID: 603, Watchlist: true},
		{MediaType: "movie", MediaID: 603, Watchlist: false},
	}
	for i := range want {
		if bodies[i] != want[i] {
			t.Fatalf("body %d = %+v, want %+v", i, bodies[i], want[i])
		}
	}
}

func TestConfirmRemove_NotAccepted(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /account/42/watchlist", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "status_code": 3, "status_message": "nope"})
	})

	c := newTestClient(t, mux, "sess", 42)
	ok, err := c.ConfirmRemove(context.Background(), 1)
	if err != nil || ok {
		t.Fatalf("ConfirmRemove = %v, %v, want false, nil", ok, err)
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /movie/popular", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "status_code": 7, "status_message": "Invalid API key: You must be granted a valid key."})
	})
	mux.HandleFunc("GET /movie/1/account_states", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "status_code": 34, "status_message": "The resource you requested could not be found."})
	})
	mux.HandleFunc("GET /genre/movie/list", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	c := newTestClient(t, mux, "sess", 42)

	_, err := c.PopularMovies(context.Background(), 1, "US")
	if !errors.Is(err, domain.ErrAuthFailed) {
		t.Fatalf("PopularMovies error = %v, want ErrAuthFailed", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != 7 {
		t.Fatalf("error = %#v, want APIError with code 7", err)
	}

	_, err = c.ConfirmAdd(context.Background(), 1)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ConfirmAdd error = %v, want ErrNotFound", err)
	}

	_, err = c.Genres(context.Background())
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("Genres error = %v, want status 400", err)
	}
	if errors.Is(err, domain.ErrAuthFailed) || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("400 mapped to a domain error: %v", err)
	}
}

func TestServerOffline(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	c := NewClient(ClientConfig{BaseURL: baseURL, APIKey: "k", RetryWait: time.Millisecond}, quietLogger())
	_, err := c.Genres(context.Background())
	if !errors.Is(err, domain.ErrServerOffline) {
		t.Fatalf("error = %v, want ErrServerOffline", err)
	}
}

func TestRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /configuration/countries", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{
			{"iso_3166_1": "fr", "english_name": "France", "native_name": "France"},
			{"iso_3166_1": "", "english_name": "nowhere"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k", RetryMax: 2, RetryWait: time.Millisecond}, quietLogger())

	countries, err := c.Countries(context.Background())
	if err != nil {
		t.Fatalf("Countries returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
	if len(countries) != 1 || countries[0].Code != "FR" || countries[0].EnglishName != "France" {
		t.Fatalf("countries = %+v, want [FR France]", countries)
	}
}

func TestSearchMovies(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /search/movie", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("query"); got != "matrix" {
			t.Errorf("query = %q, want matrix", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"page":          1,
			"results":       []map[string]any{{"id": 603, "title": "", "original_title": "The Matrix"}},
			"total_pages":   1,
			"total_results": 1,
		})
	})

	c := newTestClient(t, mux, "", 0)
	page, err := c.SearchMovies(context.Background(), "  matrix ", 1)
	if err != nil {
		t.Fatalf("SearchMovies returned error: %v", err)
	}
	if len(page.Results) != 1 || page.Results[0].Title != "The Matrix" {
		t.Fatalf("results = %+v, want title from original_title", page.Results)
	}

	empty, err := c.SearchMovies(context.Background(), "   ", 1)
	if err != nil || len(empty.Results) != 0 {
		t.Fatalf("blank search = %+v, %v, want empty", empty, err)
	}
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var deleted string
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /authentication/session", func(w http.ResponseWriter, r *http.Request) {
		var in sessionRequest
		_ = json.NewDecoder(r.Body).Decode(&in)
		mu.Lock()
		deleted = in.SessionID
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	c := newTestClient(t, mux, "sess", 42)
	if err := c.DeleteSession(context.Background()); err != nil {
		t.Fatalf("DeleteSession returned error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if deleted != "sess" {
		t.Fatalf("deleted session = %q, want sess", deleted)
	}
	if sid, id := c.Session(); sid != "" || id != 0 {
		t.Fatalf("session after delete = %q/%d, want empty", sid, id)
	}
}

func TestStatusResponseOK(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name string
		s    StatusResponse
		want bool
	}{
		{"explicit success", StatusResponse{Success: &yes}, true},
		{"explicit failure", StatusResponse{Success: &no, StatusCode: 1}, false},
		{"created", StatusResponse{StatusCode: 1}, true},
		{"updated", StatusResponse{StatusCode: 12}, true},
		{"deleted", StatusResponse{StatusCode: 13}, true},
		{"other", StatusResponse{StatusCode: 3}, false},
	}
	for _, tt := range tests {
		if got := tt.s.OK(); got != tt.want {
			t.Fatalf("%s: OK() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
