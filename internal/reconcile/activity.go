package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/storefront/realtime/internal/core/domain"
)

const (
	defaultQuietWindow = 500 * time.Millisecond
	minFlushTick       = time.Millisecond
)

// ActivityBuffer coalesces bursts of activity entries. Entries are held per
// actor and released as one batch once that actor has been quiet for the
// window. A repeated activity id inside a pending batch is dropped.
type ActivityBuffer struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[string]*actorBatch
	flush   func(batch []domain.ActivityEntry, now time.Time)
}

type actorBatch struct {
	entries  []domain.ActivityEntry
	ids      map[string]struct{}
	lastSeen time.Time
}

// NewActivityBuffer returns a buffer that hands released batches to flush.
func NewActivityBuffer(window time.Duration, flush func(batch []domain.ActivityEntry, now time.Time)) *ActivityBuffer {
	if window <= 0 {
		window = defaultQuietWindow
	}
	return &ActivityBuffer{
		window:  window,
		pending: make(map[string]*actorBatch),
		flush:   flush,
	}
}

// Add buffers e and restarts its actor's quiet window. It reports false when
// e duplicates an entry already pending.
func (b *ActivityBuffer) Add(e domain.ActivityEntry, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	batch, ok := b.pending[e.UserID]
	if !ok {
		batch = &actorBatch{ids: make(map[string]struct{})}
		b.pending[e.UserID] = batch
	}
	if _, dup := batch.ids[e.ID]; dup {
		return false
	}
	batch.ids[e.ID] = struct{}{}
	batch.entries = append(batch.entries, e)
	batch.lastSeen = now
	return true
}

// FlushDue releases the batches of every actor quiet since now-window and
// returns how many entries were released.
func (b *ActivityBuffer) FlushDue(now time.Time) int {
	return b.release(now, func(batch *actorBatch) bool {
		return now.Sub(batch.lastSeen) >= b.window
	})
}

// FlushAll releases everything pending regardless of the window.
func (b *ActivityBuffer) FlushAll(now time.Time) int {
	return b.release(now, func(*actorBatch) bool { return true })
}

// Pending returns the number of buffered entries.
func (b *ActivityBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, batch := range b.pending {
		n += len(batch.entries)
	}
	return n
}

func (b *ActivityBuffer) release(now time.Time, due func(*actorBatch) bool) int {
	b.mu.Lock()
	var out []domain.ActivityEntry
	for actor, batch := range b.pending {
		if due(batch) {
			out = append(out, batch.entries...)
			delete(b.pending, actor)
		}
	}
	b.mu.Unlock()

	if len(out) == 0 {
		return 0
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if b.flush != nil {
		b.flush(out, now)
	}
	return len(out)
}

// Run checks for quiet actors at a fraction of the window until ctx is
// cancelled, then releases whatever is left.
func (b *ActivityBuffer) Run(ctx context.Context) {
	ticker := time.NewTicker(flushTick(b.window))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.FlushAll(time.Now())
			return
		case now := <-ticker.C:
			b.FlushDue(now)
		}
	}
}

func flushTick(window time.Duration) time.Duration {
	return max(window/5, minFlushTick)
}
