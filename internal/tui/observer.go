package tui

import (
	"sync"

	"github.com/mmcdole/cinelist/internal/watchlist"
)

// ChannelObserver adapts watch list change notifications to a channel for Bubble Tea.
type ChannelObserver struct {
	mu     sync.Mutex
	ch     chan watchlist.Snapshot
	latest uint64
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(ch chan watchlist.Snapshot) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// OnChange sends the snapshot without blocking. Snapshots older than the last
// one seen are dropped. When the channel is full the queued snapshot is
// replaced, since only the latest state matters.
func (o *ChannelObserver) OnChange(snap watchlist.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if snap.Version < o.latest {
		return
	}
	o.latest = snap.Version

	select {
	case o.ch <- snap:
		return
	default:
	}
	select {
	case <-o.ch:
	default:
	}
	select {
	case o.ch <- snap:
	default:
	}
}
