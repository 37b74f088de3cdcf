package watchlist

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/mmcdole/cinelist/internal/domain"
)

// PageSize is the number of movies TMDB returns per watch list page.
// It is fixed by the server, not chosen here.
const PageSize = 20

// FetchRequest describes the next remote page to fetch and how to apply it.
type FetchRequest struct {
	Page       int    // 1-indexed remote page to request
	StartIndex int    // First index within the page that is not yet mirrored
	PageOffset int    // floor(drift / pageSize) at request time
	Advance    int    // Pages currentPage moves by once the page is consumed
	Drift      int    // Drift in effect when the request was computed
	Generation string // Mirror generation the request belongs to
}

// ComputeNextFetch maps the page the mirror is aligned to plus the net local
// drift onto the remote page that now holds the next unseen movies.
//
// Every local add shifts the server's page boundaries forward by one slot and
// every local remove shifts them back by one, so the next unseen movie sits
// drift slots past the start of page currentPage+1.
func ComputeNextFetch(currentPage, drift, pageSize int) FetchRequest {
	if pageSize <= 0 {
		pageSize = PageSize
	}
	offset := floorDiv(drift, pageSize)
	return FetchRequest{
		Page:       currentPage + offset + 1,
		StartIndex: (pageSize + drift%pageSize) % pageSize,
		PageOffset: offset,
		Advance:    offset + 1,
		Drift:      drift,
	}
}

// floorDiv divides rounding toward negative infinity. Go's / truncates toward zero.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Mirror holds the locally materialized prefix of the remote watch list and
// the drift accumulated by local mutations since the last consumed page.
type Mirror struct {
	mu sync.Mutex

	items []domain.Movie
	ids   map[int]struct{}

	remoteTotal int
	currentPage int
	drift       int
	loading     bool
	primed      bool // page 1 has been answered
	generation  string
	version     uint64 // bumped on every change, survives Reset
}

// NewMirror creates an empty mirror aligned to page 1
func NewMirror() *Mirror {
	m := &Mirror{}
	m.reset()
	return m
}

func (m *Mirror) reset() {
	m.items = nil
	m.ids = make(map[int]struct{})
	m.remoteTotal = 0
	m.currentPage = 1
	m.drift = 0
	m.loading = false
	m.primed = false
	m.generation = uuid.NewString()
}

// Reset discards all state and starts a new generation. In-flight fetches
// computed before the reset are rejected by Consume.
func (m *Mirror) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
	m.version++
}

// ApplyLocalAdd prepends a movie that the remote list has just accepted.
func (m *Mirror) ApplyLocalAdd(movie domain.Movie) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[movie.ID]; ok {
		return domain.ErrDuplicateItem
	}
	m.items = slices.Insert(m.items, 0, movie)
	m.ids[movie.ID] = struct{}{}
	m.remoteTotal++
	m.drift++
	m.version++
	return nil
}

// ApplyLocalRemove drops a movie that the remote list has just removed.
func (m *Mirror) ApplyLocalRemove(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[id]; !ok {
		return domain.ErrItemNotFound
	}
	m.items = slices.DeleteFunc(m.items, func(mv domain.Movie) bool { return mv.ID == id })
	delete(m.ids, id)
	m.remoteTotal--
	m.drift--
	m.version++
	return nil
}

// NextFetch computes the next page to request from the current state.
// Before page 1 has been consumed it always asks for page 1.
func (m *Mirror) NextFetch(pageSize int) FetchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextFetch(pageSize)
}

func (m *Mirror) nextFetch(pageSize int) FetchRequest {
	var req FetchRequest
	if !m.primed {
		req = FetchRequest{Page: 1, Drift: m.drift}
	} else {
		req = ComputeNextFetch(m.currentPage, m.drift, pageSize)
	}
	req.Generation = m.generation
	return req
}

// TryBeginFetch marks a fetch as outstanding and returns its request.
// It returns false if a fetch is already outstanding, or if requireMore is
// set and every remote movie is already mirrored.
func (m *Mirror) TryBeginFetch(pageSize int, requireMore bool) (FetchRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loading {
		return FetchRequest{}, false
	}
	if requireMore && len(m.items) == m.remoteTotal {
		return FetchRequest{}, false
	}
	m.loading = true
	m.version++
	return m.nextFetch(pageSize), true
}

// AbortFetch clears the outstanding fetch after a remote failure.
// Requests from an earlier generation are ignored.
func (m *Mirror) AbortFetch(req FetchRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Generation == m.generation {
		m.loading = false
		m.version++
	}
}

// Consume applies a fetched page. An empty page changes nothing and returns
// false, except that an empty page 1 primes the mirror: the remote list is
// known to be empty. Otherwise fetched[req.StartIndex:] is appended, the remote total is
// replaced, currentPage advances by req.Advance and drift resets to zero.
// Pages for a previous generation return ErrStaleFetch.
func (m *Mirror) Consume(req FetchRequest, fetched []domain.Movie, newRemoteTotal int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.Generation != m.generation {
		return false, domain.ErrStaleFetch
	}
	m.loading = false
	m.version++

	if len(fetched) == 0 {
		if !m.primed {
			m.remoteTotal = newRemoteTotal
			m.primed = true
		}
		return false, nil
	}

	start := min(max(req.StartIndex, 0), len(fetched))
	for _, mv := range fetched[start:] {
		// The remote list may have been changed by another client
		if _, dup := m.ids[mv.ID]; dup {
			continue
		}
		m.items = append(m.items, mv)
		m.ids[mv.ID] = struct{}{}
	}
	m.remoteTotal = newRemoteTotal
	m.currentPage += req.Advance
	m.drift = 0
	m.primed = true
	return true, nil
}

// HasMore reports whether the remote list holds movies not yet mirrored
func (m *Mirror) HasMore() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items) < m.remoteTotal
}

// Contains reports whether a movie id is mirrored
func (m *Mirror) Contains(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[id]
	return ok
}

// Generation returns the id of the current session of this mirror
func (m *Mirror) Generation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Snapshot is a read-only copy of the mirror state
type Snapshot struct {
	Items       []domain.Movie
	RemoteTotal int
	CurrentPage int
	Drift       int
	Loading     bool
	Primed      bool
	Version     uint64 // orders snapshots taken concurrently
}

// Snapshot returns a copy of the current state; the items slice is not shared
func (m *Mirror) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Items:       slices.Clone(m.items),
		RemoteTotal: m.remoteTotal,
		CurrentPage: m.currentPage,
		Drift:       m.drift,
		Loading:     m.loading,
		Primed:      m.primed,
		Version:     m.version,
	}
}
