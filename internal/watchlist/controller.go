package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mmcdole/cinelist/internal/domain"
)

// Outcome reports what a mutation command did
type Outcome int

const (
	// OutcomeApplied means the remote list changed and the mirror followed
	OutcomeApplied Outcome = iota
	// OutcomeAlreadyPresent means the movie was already on the remote list; nothing changed
	OutcomeAlreadyPresent
	// OutcomeRejected means the remote call answered without success
	OutcomeRejected
	// OutcomeFailed means the mutation could not be completed
	OutcomeFailed
)

// String returns a short label for logs
func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlreadyPresent:
		return "already_present"
	case OutcomeRejected:
		return "rejected"
	default:
		return "failed"
	}
}

// Controller decides when the watch list fetches its next page and applies
// add/remove commands to the mirror once the remote service confirms them.
type Controller struct {
	source   domain.WatchListSource
	mirror   *Mirror
	logger   *slog.Logger
	pageSize int
	sort     domain.SortOrder

	mu        sync.Mutex
	scrolling bool
	subs      map[int]func(Snapshot)
	nextSubID int
}

// Option configures a Controller
type Option func(*Controller)

// WithPageSize overrides the remote page size (tests use small pages)
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithMirror shares an existing mirror with the controller
func WithMirror(m *Mirror) Option {
	return func(c *Controller) { c.mirror = m }
}

// NewController creates a controller over an empty mirror
func NewController(source domain.WatchListSource, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		source:   source,
		logger:   logger,
		pageSize: PageSize,
		sort:     domain.SortCreatedDesc,
		subs:     make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.mirror == nil {
		c.mirror = NewMirror()
	}
	return c
}

// Snapshot returns the read-only view of the watch list
func (c *Controller) Snapshot() Snapshot {
	return c.mirror.Snapshot()
}

// Contains reports whether the movie is on the mirrored watch list
func (c *Controller) Contains(id int) bool {
	return c.mirror.Contains(id)
}

// Subscribe registers fn for every state change. The returned func unsubscribes.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	fns := make([]func(Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	if len(fns) == 0 {
		return
	}
	snap := c.mirror.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// SetScrolling records whether the user is actively scrolling the list
func (c *Controller) SetScrolling(scrolling bool) {
	c.mu.Lock()
	c.scrolling = scrolling
	c.mu.Unlock()
}

// IsScrolling reports the last scroll state
func (c *Controller) IsScrolling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scrolling
}

// ShouldFetch evaluates the fetch-trigger policy without starting a fetch:
// more movies exist remotely, the user is scrolling, and nothing is loading.
func (c *Controller) ShouldFetch() bool {
	if !c.IsScrolling() {
		return false
	}
	snap := c.mirror.Snapshot()
	return !snap.Loading && len(snap.Items) != snap.RemoteTotal
}

// EndReached is called when the visible list nears its end. It fetches the
// next page if the trigger policy allows and reports whether it did.
func (c *Controller) EndReached(ctx context.Context) (bool, error) {
	if !c.IsScrolling() {
		return false, nil
	}
	req, ok := c.mirror.TryBeginFetch(c.pageSize, true)
	if !ok {
		return false, nil
	}
	c.notify()

	if err := c.fetch(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}

// Load fetches the first page for a new session, discarding any previous state.
func (c *Controller) Load(ctx context.Context) error {
	c.mirror.Reset()
	req, ok := c.mirror.TryBeginFetch(c.pageSize, false)
	if !ok {
		// A fresh generation is never loading
		return nil
	}
	c.notify()
	return c.fetch(ctx, req)
}

func (c *Controller) fetch(ctx context.Context, req FetchRequest) error {
	c.logger.Debug("fetching watch list page",
		"page", req.Page, "startIndex", req.StartIndex, "drift", req.Drift)

	page, err := c.source.FetchWatchListPage(ctx, req.Page, c.sort)
	if err != nil {
		c.mirror.AbortFetch(req)
		c.notify()
		c.logger.Error("failed to fetch watch list page", "error", err, "page", req.Page)
		return fmt.Errorf("fetching watch list page %d: %w", req.Page, err)
	}

	consumed, err := c.mirror.Consume(req, page.Results, page.TotalResults)
	if errors.Is(err, domain.ErrStaleFetch) {
		c.logger.Info("discarded watch list page from previous session", "page", req.Page)
		return err
	}
	c.notify()

	if !consumed {
		c.logger.Debug("watch list page was empty", "page", req.Page)
		return nil
	}
	c.logger.Debug("consumed watch list page",
		"page", req.Page, "received", len(page.Results), "total", page.TotalResults)
	return nil
}

// Add confirms the movie with the remote list, then prepends it locally.
func (c *Controller) Add(ctx context.Context, movie domain.Movie) (Outcome, error) {
	gen := c.mirror.Generation()

	conf, err := c.source.ConfirmAdd(ctx, movie.ID)
	if err != nil {
		c.logger.Error("failed to add to watch list", "error", err, "movieID", movie.ID)
		return OutcomeFailed, fmt.Errorf("adding %q to watch list: %w", movie.Title, err)
	}
	if conf.AlreadyPresent {
		c.logger.Info("movie already in watch list", "movieID", movie.ID)
		return OutcomeAlreadyPresent, nil
	}
	if !conf.Success {
		c.logger.Warn("watch list add rejected", "movieID", movie.ID)
		return OutcomeRejected, domain.ErrRemoteRejected
	}
	if c.mirror.Generation() != gen {
		// The session ended while the call was in flight
		return OutcomeFailed, domain.ErrStaleFetch
	}

	if err := c.mirror.ApplyLocalAdd(movie); err != nil {
		c.logger.Error("local watch list add failed", "error", err, "movieID", movie.ID)
		return OutcomeFailed, fmt.Errorf("adding %q to watch list: %w", movie.Title, err)
	}
	c.notify()
	c.logger.Info("added to watch list", "movieID", movie.ID, "title", movie.Title)
	return OutcomeApplied, nil
}

// Remove confirms the removal with the remote list, then drops it locally.
func (c *Controller) Remove(ctx context.Context, id int) (Outcome, error) {
	gen := c.mirror.Generation()

	ok, err := c.source.ConfirmRemove(ctx, id)
	if err != nil {
		c.logger.Error("failed to remove from watch list", "error", err, "movieID", id)
		return OutcomeFailed, fmt.Errorf("removing movie %d from watch list: %w", id, err)
	}
	if !ok {
		c.logger.Warn("watch list remove rejected", "movieID", id)
		return OutcomeRejected, domain.ErrRemoteRejected
	}
	if c.mirror.Generation() != gen {
		return OutcomeFailed, domain.ErrStaleFetch
	}

	if err := c.mirror.ApplyLocalRemove(id); err != nil {
		c.logger.Error("local watch list remove failed", "error", err, "movieID", id)
		return OutcomeFailed, fmt.Errorf("removing movie %d from watch list: %w", id, err)
	}
	c.notify()
	c.logger.Info("removed from watch list", "movieID", id)
	return OutcomeApplied, nil
}

// Reset discards the mirror for logout. Pages still in flight are dropped.
func (c *Controller) Reset() {
	c.mirror.Reset()
	c.SetScrolling(false)
	c.notify()
	c.logger.Info("watch list reset")
}
