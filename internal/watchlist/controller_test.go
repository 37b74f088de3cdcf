package watchlist

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/cinelist/internal/domain"
)

// fakeRemote is an in-memory watch list ordered newest first
type fakeRemote struct {
	mu       sync.Mutex
	pageSize int
	list     []domain.Movie

	fetchCalls []int
	fetchErr   error
	addErr     error
	rejectAll  bool

	// When set, FetchWatchListPage signals entered and waits on release
	entered chan struct{}
	release chan struct{}
}

func newFakeRemote(pageSize int, ids ...int) *fakeRemote {
	return &fakeRemote{pageSize: pageSize, list: movies(ids...)}
}

func (f *fakeRemote) FetchWatchListPage(ctx context.Context, page int, sort domain.SortOrder) (domain.Page[domain.Movie], error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return domain.Page[domain.Movie]{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls = append(f.fetchCalls, page)
	if f.fetchErr != nil {
		return domain.Page[domain.Movie]{}, f.fetchErr
	}

	lo := (page - 1) * f.pageSize
	hi := min(lo+f.pageSize, len(f.list))
	var results []domain.Movie
	if lo >= 0 && lo < len(f.list) {
		results = slices.Clone(f.list[lo:hi])
	}
	return domain.Page[domain.Movie]{
		Results:      results,
		Page:         page,
		TotalPages:   (len(f.list) + f.pageSize - 1) / f.pageSize,
		TotalResults: len(f.list),
	}, nil
}

func (f *fakeRemote) ConfirmAdd(ctx context.Context, movieID int) (domain.AddConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return domain.AddConfirmation{}, f.addErr
	}
	if f.rejectAll {
		return domain.AddConfirmation{}, nil
	}
	if slices.ContainsFunc(f.list, func(m domain.Movie) bool { return m.ID == movieID }) {
		return domain.AddConfirmation{AlreadyPresent: true}, nil
	}
	f.list = slices.Insert(f.list, 0, domain.Movie{ID: movieID})
	return domain.AddConfirmation{Success: true}, nil
}

func (f *fakeRemote) ConfirmRemove(ctx context.Context, movieID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejectAll {
		return false, nil
	}
	before := len(f.list)
	f.list = slices.DeleteFunc(f.list, func(m domain.Movie) bool { return m.ID == movieID })
	return len(f.list) < before, nil
}

func (f *fakeRemote) ids() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return itemIDs(f.list)
}

func (f *fakeRemote) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.fetchCalls)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// drain fetches pages until everything remote is mirrored
func drain(t *testing.T, c *Controller) {
	t.Helper()
	c.SetScrolling(true)
	for i := 0; i < 1000; i++ {
		fetched, err := c.EndReached(context.Background())
		if err != nil {
			t.Fatalf("EndReached returned error: %v", err)
		}
		if !fetched {
			return
		}
	}
	t.Fatal("drain did not converge")
}

func TestController_LoadFetchesFirstPage(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(PageSize, idRange(1, 46)...)
	c := NewController(remote, testLogger())

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	snap := c.Snapshot()
	if got, want := itemIDs(snap.Items), idRange(1, 21); !equalInts(got, want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	if snap.RemoteTotal != 45 {
		t.Fatalf("RemoteTotal = %d, want 45", snap.RemoteTotal)
	}
	if snap.CurrentPage != 1 {
		t.Fatalf("CurrentPage = %d, want 1", snap.CurrentPage)
	}
	if got := remote.calls(); !equalInts(got, []int{1}) {
		t.Fatalf("fetched pages = %v, want [1]", got)
	}
}

func TestController_LoadEmptyList(t *testing.T) {
	t.Parallel()

	c := NewController(newFakeRemote(PageSize), testLogger())
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	snap := c.Snapshot()
	if len(snap.Items) != 0 || snap.RemoteTotal != 0 || snap.Loading {
		t.Fatalf("snapshot = %+v, want empty and idle", snap)
	}
	if !snap.Primed {
		t.Fatal("Primed = false after loading an empty list, want true")
	}
	if c.ShouldFetch() {
		t.Fatal("ShouldFetch = true for empty list")
	}
}

func TestController_EndReachedRequiresScrolling(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(PageSize, idRange(1, 46)...)
	c := NewController(remote, testLogger())
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	fetched, err := c.EndReached(context.Background())
	if err != nil {
		t.Fatalf("EndReached returned error: %v", err)
	}
	if fetched {
		t.Fatal("EndReached fetched while not scrolling")
	}
	if got := len(remote.calls()); got != 1 {
		t.Fatalf("fetch calls = %d, want 1", got)
	}

	c.SetScrolling(true)
	if !c.ShouldFetch() {
		t.Fatal("ShouldFetch = false while scrolling with more remote items")
	}
	fetched, err = c.EndReached(context.Background())
	if err != nil || !fetched {
		t.Fatalf("EndReached = %v, %v, want true, nil", fetched, err)
	}
	if got := remote.calls(); !equalInts(got, []int{1, 2}) {
		t.Fatalf("fetched pages = %v, want [1 2]", got)
	}
}

func TestController_EndReachedSkipsWhenAllMirrored(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(PageSize, idRange(1, 41)...)
	c := NewController(remote, testLogger())
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	drain(t, c)

	if got := len(c.Snapshot().Items); got != 40 {
		t.Fatalf("len(items) = %d, want 40", got)
	}
	calls := len(remote.calls())

	fetched, err := c.EndReached(context.Background())
	if err != nil || fetched {
		t.Fatalf("EndReached = %v, %v, want false, nil", fetched, err)
	}
	if got := len(remote.calls()); got != calls {
		t.Fatalf("fetch calls = %d, want %d", got, calls)
	}
}

func TestController_EndReachedSkipsWhileLoading(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(PageSize, idRange(1, 61)...)
	c := NewController(remote, testLogger())
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	remote.entered = make(chan struct{})
	remote.release = make(chan struct{})
	c.SetScrolling(true)

	done := make(chan error, 1)
	go func() {
		_, err := c.EndReached(context.Background())
		done <- err
	}()

	select {
	case <-remote.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not start")
	}

	if !c.Snapshot().Loading {
		t.Fatal("Loading = false during fetch")
	}
	if c.ShouldFetch() {
		t.Fatal("ShouldFetch = true during fetch")
	}
	fetched, err := c.EndReached(context.Background())
	if err != nil || fetched {
		t.Fatalf("re-entrant EndReached = %v, %v, want false, nil", fetched, err)
	}

	close(remote.release)
	if err := <-done; err != nil {
		t.Fatalf("EndReached returned error: %v", err)
	}
	if got := remote.calls(); !equalInts(got, []int{1, 2}) {
		t.Fatalf("fetched pages = %v, want [1 2]", got)
	}
}

func TestController_FetchFailureClearsLoading(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(PageSize, idRange(1, 46)...)
	c := NewController(remote, testLogger())
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	remote.mu.Lock()
	remote.fetchErr = domain.ErrServerOffline
	remote.mu.Unlock()

	c.SetScrolling(true)
	_, err := c.EndReached(context.Background())
	if !errors.Is(err, domain.ErrServerOffline) {
		t.Fatalf("EndReached error = %v, want ErrServerOffline", err)
	}

	snap := c.Snapshot()
	if snap.Loading {
		t.Fatal("Loading = true after failed fetch")
	}
	if len(snap.Items) != 20 {
		t.Fatalf("len(items) = %d, want 20", len(snap.Items))
	}

	remote.mu.Lock()
	remote.fetchErr = nil
	remote.mu.Unlock()

	fetched, err := c.EndReached(context.Background())
	if err != nil || !fetched {
		t.Fatalf("retry EndReached = %v, %v, want true, nil", fetched, err)
	}
}

func TestController_AddPrependsAfterConfirmation(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(PageSize, idRange(1, 46)...)
	c := NewController(remote, testLogger())
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	outcome, err := c.Add(context.Background(), domain.Movie{ID: 500, Title: "Heat"})
	if err != nil || outcome != OutcomeApplied {
		t.Fatalf("Add = %v, %v, want applied, nil", outcome, err)
	}

	snap := c.Snapshot()
	if snap.Items[0].ID != 500 {
		t.Fatalf("first item = %d, want 500", snap.Items[0].ID)
	}
	if snap.RemoteTotal != 46 || snap.Drift != 1 {
		t.Fatalf("RemoteTotal, Drift = %d, %d, want 46, 1", snap.RemoteTotal, snap.Drift)
	}
	if !c.Contains(500) {
		t.Fatal("Contains(500) = false")
	}

	// Page 2 is now 20..39 remotely; the first slot was already mirrored
	drain(t, c)
	if got, want := itemIDs(c.Snapshot().Items), remote.ids(); !equalInts(got, want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
}

func TestController_AddAlreadyPresent(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(PageSize, idRange(1, 46)...)
	c := NewController(remote, testLogger())
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	// 30 is on the remote list but not mirrored yet
	outcome, err := c.Add(context.Background(), domain.Movie{ID: 30})
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if outcome != OutcomeAlreadyPresent {
		t.Fatalf("outcome = %v, want already_present", outcome)
	}

	snap := c.Snapshot()
	if len(snap.Items) != 20 || snap.RemoteTotal != 45 || snap.Drift != 0 {
		t.Fatalf("snapshot changed: items %d total %d drift %d", len(snap.Items), snap.RemoteTotal, snap.Drift)
	}
}

func TestController_AddFailureKeepsMirror(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(PageSize, idRange(1, 6)...)
	c := NewController(remote, testLogger())
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	remote.mu.Lock()
	remote.addErr = domain.ErrServerOffline
	remote.mu.Unlock()

	outcome, err := c.Add(context.Background(), domain.Movie{ID: 99})
	if !errors.Is(err, domain.ErrServerOffline) {
		t.Fatalf("Add error = %v, want ErrServerOffline", err)
	}
	if outcome != OutcomeFailed {
		t.Fatalf("outcome = %v, want failed", outcome)
	}
	if c.Contains(99) {
		t.Fatal("failed add changed the mirror")
	}
}

func TestController_RejectedMutations(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(PageSize, idRange(1, 6)...)
	c := NewController(remote, testLogger())
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	remote.mu.Lock()
	remote.rejectAll = true
	remote.mu.Unlock()

	outcome, err := c.Add(context.Background(), domain.Movie{ID: 99})
	if !errors.Is(err, domain.ErrRemoteRejected) || outcome != OutcomeRejected {
		t.Fatalf("Add = %v, %v, want rejected, ErrRemoteRejected", outcome, err)
	}

	outcome, err = c.Remove(context.Background(), 3)
	if !errors.Is(err, domain.ErrRemoteRejected) || outcome != OutcomeRejected {
		t.Fatalf("Remove = %v, %v, want rejected, ErrRemoteRejected", outcome, err)
	}
	if !c.Contains(3) {
		t.Fatal("rejected remove dropped the movie")
	}
}

func TestController_RemoveRefetchesShiftedSlot(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(PageSize, idRange(1, 46)...)
	c := NewController(remote, testLogger())
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	outcome, err := c.Remove(context.Background(), 4)
	if err != nil || outcome != OutcomeApplied {
		t.Fatalf("Remove = %v, %v, want applied, nil", outcome, err)
	}

	c.SetScrolling(true)
	if _, err := c.EndReached(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Drift -1 refetches page 1 from index 19 to pick up movie 21
	if got := remote.calls(); !equalInts(got, []int{1, 1}) {
		t.Fatalf("fetched pages = %v, want [1 1]", got)
	}
	want := append(idRange(1, 4), idRange(5, 22)...)
	if got := itemIDs(c.Snapshot().Items); !equalInts(got, want) {
		t.Fatalf("items = %v, want %v", got, want)
	}

	drain(t, c)
	if got, want := itemIDs(c.Snapshot().Items), remote.ids(); !equalInts(got, want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
}

func TestController_ResetDiscardsInFlightPage(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(PageSize, idRange(1, 61)...)
	c := NewController(remote, testLogger())
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	remote.entered = make(chan struct{})
	remote.release = make(chan struct{})
	c.SetScrolling(true)

	done := make(chan error, 1)
	go func() {
		_, err := c.EndReached(context.Background())
		done <- err
	}()
	<-remote.entered

	c.Reset()
	close(remote.release)

	if err := <-done; !errors.Is(err, domain.ErrStaleFetch) {
		t.Fatalf("EndReached error = %v, want ErrStaleFetch", err)
	}

	snap := c.Snapshot()
	if len(snap.Items) != 0 || snap.Loading || snap.Primed {
		t.Fatalf("snapshot after reset = %+v, want empty", snap)
	}
	if c.IsScrolling() {
		t.Fatal("IsScrolling = true after reset")
	}
}

func TestController_SubscribeNotifies(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(PageSize, idRange(1, 11)...)
	c := NewController(remote, testLogger())

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	count := len(seen)
	last := seen[len(seen)-1]
	sawLoading := slices.ContainsFunc(seen, func(s Snapshot) bool { return s.Loading })
	mu.Unlock()

	if count < 2 {
		t.Fatalf("notifications = %d, want at least 2", count)
	}
	if !sawLoading {
		t.Fatal("no notification reported Loading")
	}
	if len(last.Items) != 10 || last.Loading {
		t.Fatalf("last snapshot = %+v, want 10 items and idle", last)
	}

	unsubscribe()
	if _, err := c.Add(context.Background(), domain.Movie{ID: 77}); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != count {
		t.Fatalf("notifications after unsubscribe = %d, want %d", len(seen), count)
	}
}

func TestController_WithPageSize(t *testing.T) {
	t.Parallel()

	remote := newFakeRemote(3, idRange(1, 11)...)
	c := NewController(remote, testLogger(), WithPageSize(3))
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := len(c.Snapshot().Items); got != 3 {
		t.Fatalf("len(items) = %d, want 3", got)
	}
	drain(t, c)
	if got := remote.calls(); !equalInts(got, []int{1, 2, 3, 4}) {
		t.Fatalf("fetched pages = %v, want [1 2 3 4]", got)
	}
}

func TestController_RandomMutationsConverge(t *testing.T) {
	t.Parallel()

	for seed := uint64(1); seed <= 25; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7919))
		pageSize := 1 + rng.IntN(6)
		remote := newFakeRemote(pageSize, idRange(1, 1+rng.IntN(40))...)
		c := NewController(remote, testLogger(), WithPageSize(pageSize))
		if err := c.Load(context.Background()); err != nil {
			t.Fatalf("seed %d: Load returned error: %v", seed, err)
		}
		c.SetScrolling(true)

		nextID := 1000
		for step := 0; step < 60; step++ {
			switch rng.IntN(3) {
			case 0:
				nextID++
				if _, err := c.Add(context.Background(), domain.Movie{ID: nextID}); err != nil {
					t.Fatalf("seed %d: Add returned error: %v", seed, err)
				}
			case 1:
				items := c.Snapshot().Items
				if len(items) == 0 {
					continue
				}
				id := items[rng.IntN(len(items))].ID
				if _, err := c.Remove(context.Background(), id); err != nil {
					t.Fatalf("seed %d: Remove returned error: %v", seed, err)
				}
			default:
				if _, err := c.EndReached(context.Background()); err != nil {
					t.Fatalf("seed %d: EndReached returned error: %v", seed, err)
				}
			}

			// The mirror is always a prefix of the remote list
			got, want := itemIDs(c.Snapshot().Items), remote.ids()
			if len(got) > len(want) || !equalInts(got, want[:len(got)]) {
				t.Fatalf("seed %d step %d: mirror %v is not a prefix of %v", seed, step, got, want)
			}
		}

		drain(t, c)
		if got, want := itemIDs(c.Snapshot().Items), remote.ids(); !equalInts(got, want) {
			t.Fatalf("seed %d: items = %v, want %v", seed, got, want)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{
		OutcomeApplied:        "applied",
		OutcomeAlreadyPresent: "already_present",
		OutcomeRejected:       "rejected",
		OutcomeFailed:         "failed",
	}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Fatalf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
