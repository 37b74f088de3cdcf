package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mmcdole/cinelist/internal/domain"
	"github.com/mmcdole/cinelist/internal/store"
)

type fakeClient struct {
	genreCalls   int
	countryCalls int
	err          error
}

func (f *fakeClient) Genres(ctx context.Context) ([]domain.Genre, error) {
	f.genreCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Genre{{ID: 28, Name: "Action"}, {ID: 878, Name: "Science Fiction"}}, nil
}

func (f *fakeClient) Countries(ctx context.Context) ([]domain.Country, error) {
	f.countryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Country{{Code: "US", EnglishName: "United States of America"}, {Code: "FR", EnglishName: "France"}}, nil
}

func newService(t *testing.T, client *fakeClient) (*Service, *store.CatalogStore) {
	t.Helper()
	st, err := store.NewCatalogStore("", "")
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(client, st, time.Hour, logger), st
}

func TestService_CachesWithinTTL(t *testing.T) {
	client := &fakeClient{}
	svc, _ := newService(t, client)

	for i := 0; i < 3; i++ {
		if err := svc.Load(context.Background()); err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
	}
	if client.genreCalls != 1 || client.countryCalls != 1 {
		t.Fatalf("remote calls = %d/%d, want 1/1", client.genreCalls, client.countryCalls)
	}

	if got := svc.GenreNames([]int{878, 1, 28}); len(got) != 2 || got[0] != "Science Fiction" || got[1] != "Action" {
		t.Fatalf("GenreNames = %v, want [Science Fiction Action]", got)
	}
	if got := svc.CountryName("fr"); got != "France" {
		t.Fatalf("CountryName(fr) = %q, want France", got)
	}
	if got := svc.CountryName("XX"); got != "XX" {
		t.Fatalf("CountryName(XX) = %q, want XX", got)
	}
}

func TestService_RefetchesAfterTTL(t *testing.T) {
	client := &fakeClient{}
	svc, _ := newService(t, client)

	if _, err := svc.Genres(context.Background()); err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := svc.Genres(context.Background()); err != nil {
		t.Fatal(err)
	}
	if client.genreCalls != 2 {
		t.Fatalf("genre calls = %d, want 2", client.genreCalls)
	}
}

func TestService_StaleFallback(t *testing.T) {
	client := &fakeClient{}
	svc, _ := newService(t, client)

	if _, err := svc.Countries(context.Background()); err != nil {
		t.Fatal(err)
	}
	client.err = domain.ErrServerOffline
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	countries, err := svc.Countries(context.Background())
	if err != nil {
		t.Fatalf("Countries returned error with stale cache: %v", err)
	}
	if len(countries) != 2 {
		t.Fatalf("len(countries) = %d, want 2", len(countries))
	}
}

func TestService_ErrorWithoutCache(t *testing.T) {
	client := &fakeClient{err: domain.ErrServerOffline}
	svc, _ := newService(t, client)

	if _, err := svc.Genres(context.Background()); !errors.Is(err, domain.ErrServerOffline) {
		t.Fatalf("Genres error = %v, want ErrServerOffline", err)
	}
	if err := svc.Load(context.Background()); !errors.Is(err, domain.ErrServerOffline) {
		t.Fatalf("Load error = %v, want ErrServerOffline", err)
	}
}

func TestService_Refresh(t *testing.T) {
	client := &fakeClient{}
	svc, _ := newService(t, client)

	if err := svc.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if client.genreCalls != 2 || client.countryCalls != 2 {
		t.Fatalf("remote calls = %d/%d, want 2/2", client.genreCalls, client.countryCalls)
	}
}
