package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mmcdole/cinelist/internal/domain"
)

type fakeSearchClient struct {
	results []domain.Movie
	err     error
}

func (f *fakeSearchClient) SearchMovies(ctx context.Context, query string, page int) (domain.Page[domain.Movie], error) {
	if f.err != nil {
		return domain.Page[domain.Movie]{}, f.err
	}
	return domain.Page[domain.Movie]{Results: f.results, Page: 1, TotalPages: 1, TotalResults: 57}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func titles(movies []domain.Movie) []string {
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = m.Title
	}
	return out
}

func TestService_SearchRanksMatchesFirst(t *testing.T) {
	client := &fakeSearchClient{results: []domain.Movie{
		{ID: 1, Title: "Thomas Anderson Story"},
		{ID: 2, Title: "The Matrix Reloaded"},
		{ID: 3, Title: "The Matrix"},
	}}
	svc := NewService(client, quietLogger())

	res, err := svc.Search(context.Background(), "matrix")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if res.Local {
		t.Fatal("Local = true for a remote search")
	}
	if res.Total != 57 {
		t.Fatalf("Total = %d, want 57", res.Total)
	}
	got := titles(res.Movies)
	if len(got) != 3 || got[0] != "The Matrix" || got[1] != "The Matrix Reloaded" || got[2] != "Thomas Anderson Story" {
		t.Fatalf("ranked titles = %v", got)
	}
}

func TestService_FallsBackToLocalIndex(t *testing.T) {
	client := &fakeSearchClient{err: domain.ErrServerOffline}
	svc := NewService(client, quietLogger())
	svc.IndexMovies([]domain.Movie{
		{ID: 10, Title: "Heat"},
		{ID: 11, Title: "The Heat"},
		{ID: 12, Title: "Alien"},
	})

	res, err := svc.Search(context.Background(), "heat")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if !res.Local {
		t.Fatal("Local = false after remote failure")
	}
	got := titles(res.Movies)
	if len(got) != 2 || got[0] != "Heat" {
		t.Fatalf("local titles = %v, want Heat first of two", got)
	}

	svc.ClearIndex()
	if got := svc.SearchLocal("heat"); len(got) != 0 {
		t.Fatalf("SearchLocal after clear = %v, want none", titles(got))
	}
}

func TestService_AuthErrorsAreReturned(t *testing.T) {
	svc := NewService(&fakeSearchClient{err: domain.ErrAuthFailed}, quietLogger())
	if _, err := svc.Search(context.Background(), "heat"); !errors.Is(err, domain.ErrAuthFailed) {
		t.Fatalf("Search error = %v, want ErrAuthFailed", err)
	}
}

func TestService_BlankQuery(t *testing.T) {
	svc := NewService(&fakeSearchClient{err: errors.New("must not be called")}, quietLogger())
	res, err := svc.Search(context.Background(), "   ")
	if err != nil || len(res.Movies) != 0 {
		t.Fatalf("Search(blank) = %+v, %v, want empty", res, err)
	}
}

func TestFilterIndex(t *testing.T) {
	idx := NewFilterIndex([]domain.Movie{
		{ID: 1, Title: "The Matrix"},
		{ID: 2, Title: "Batman"},
		{ID: 3, Title: "Matilda"},
	})

	if idx.Len() != 3 || idx.String(0) != "the matrix" {
		t.Fatalf("source = %d/%q", idx.Len(), idx.String(0))
	}

	all := idx.Filter("")
	if len(all) != 3 || all[1].Movie.ID != 2 || all[1].Index != 1 {
		t.Fatalf("empty filter = %+v, want all in order", all)
	}

	results := idx.Filter("MAT")
	ids := map[int]bool{}
	for _, r := range results {
		ids[r.Movie.ID] = true
		if len(r.MatchedIndexes) != 3 {
			t.Fatalf("MatchedIndexes for %q = %v, want 3 positions", r.Movie.Title, r.MatchedIndexes)
		}
	}
	if len(results) != 2 || !ids[1] || !ids[3] {
		t.Fatalf("filter MAT matched %v, want The Matrix and Matilda", ids)
	}
}
