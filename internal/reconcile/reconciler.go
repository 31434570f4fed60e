// Package reconcile keeps a client's local view of storefront state in step
// with the hub's event stream, and re-hydrates it from snapshot reads after a
// reconnect gap.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/core/ports"
	"github.com/storefront/realtime/internal/pkg/eventcodec"
)

const (
	defaultDedupeSize    = 1024
	defaultSnapshotLimit = 200
)

// Options tunes a Reconciler.
type Options struct {
	// QuietWindow is how long an actor must be silent before its activity
	// entries are released as one batch.
	QuietWindow time.Duration
	// Retention bounds the age of entries kept in the activity log.
	Retention time.Duration
	// DedupeSize is how many recent event ids are remembered.
	DedupeSize int
	// SnapshotTimeout bounds a full hydration.
	SnapshotTimeout time.Duration
}

// Reconciler merges accepted events for one identity into its Cache.
type Reconciler struct {
	identity  *domain.Identity
	cache     *Cache
	activity  *ActivityBuffer
	seen      *idRing
	snapshots ports.SnapshotReader
	opts      Options
	log       zerolog.Logger

	now      func() time.Time
	onChange func(domain.Tag)
}

// New returns a Reconciler for identity (nil for an anonymous visitor).
func New(identity *domain.Identity, snapshots ports.SnapshotReader, opts Options, log zerolog.Logger) *Reconciler {
	if opts.DedupeSize <= 0 {
		opts.DedupeSize = defaultDedupeSize
	}
	r := &Reconciler{
		identity:  identity,
		cache:     NewCache(opts.Retention),
		seen:      newIDRing(opts.DedupeSize),
		snapshots: snapshots,
		opts:      opts,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
	r.activity = NewActivityBuffer(opts.QuietWindow, func(batch []domain.ActivityEntry, now time.Time) {
		r.cache.mergeActivity(batch, now)
		r.log.Debug().Int("entries", len(batch)).Msg("activity batch flushed")
		r.changed(domain.TagUserActivityLog)
	})
	return r
}

// OnChange registers fn to be called after a merge changes the cache.
// It must be set before events are applied. fn may be called from the
// stream consumer and from the activity flusher concurrently.
func (r *Reconciler) OnChange(fn func(domain.Tag)) { r.onChange = fn }

// Cache returns the local cache.
func (r *Reconciler) Cache() *Cache { return r.cache }

// Activity returns the activity coalescing buffer.
func (r *Reconciler) Activity() *ActivityBuffer { return r.activity }

// Apply decodes a wire frame and merges it. Malformed frames are returned as
// *domain.MalformedEventError and leave the cache untouched.
func (r *Reconciler) Apply(frame []byte) error {
	ev, err := domain.DecodeEvent(frame)
	if err != nil {
		return err
	}
	return r.ApplyEvent(ev)
}

// ApplyEvent merges ev if it is addressed to this client and has not been
// applied before.
func (r *Reconciler) ApplyEvent(ev domain.DomainEvent) error {
	if !ev.Target.Matches(r.identity) {
		r.log.Trace().Str("event_id", ev.ID).Str("target", string(ev.Target)).Msg("event not addressed to this client")
		return nil
	}

	payload, err := eventcodec.Decode(ev)
	if err != nil {
		return err
	}
	if ev.ID != "" && r.seen.seen(ev.ID) {
		r.log.Trace().Str("event_id", ev.ID).Msg("event already applied")
		return nil
	}

	if p, ok := payload.(*domain.UserActivityLogPayload); ok {
		r.activity.Add(domain.ActivityEntry{
			ID:          p.ActivityID,
			UserID:      p.UserID,
			ActionType:  p.ActionType,
			Description: p.Description,
			Timestamp:   p.Timestamp,
			Metadata:    p.Metadata,
		}, r.now())
		return nil
	}

	if r.cache.merge(ev, payload) {
		r.changed(ev.Tag)
	}
	return nil
}

// FlushActivity releases every pending activity entry into the cache.
func (r *Reconciler) FlushActivity() {
	r.activity.FlushAll(r.now())
}

// Run drives the activity buffer until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	r.activity.Run(ctx)
}

func (r *Reconciler) changed(tag domain.Tag) {
	if r.onChange != nil {
		r.onChange(tag)
	}
}

// Hydrate replaces the collections visible to this identity with server
// state. Reads run concurrently; a failed read leaves its collection as it
// was and is reported in the joined error.
func (r *Reconciler) Hydrate(ctx context.Context) error {
	if r.identity == nil || r.snapshots == nil {
		return nil
	}
	if r.opts.SnapshotTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.SnapshotTimeout)
		defer cancel()
	}

	var (
		g    errgroup.Group
		errs = make([]error, 4)
	)
	capture := func(i int, name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				errs[i] = fmt.Errorf("hydrate %s: %w", name, err)
			}
			return nil
		})
	}

	if r.identity.IsAdmin() {
		capture(0, "alerts", func() error {
			alerts, err := r.snapshots.ListAlerts(ctx, ports.AlertFilter{Limit: defaultSnapshotLimit})
			if err == nil {
				r.cache.replaceAlerts(alerts)
			}
			return err
		})
		capture(1, "transactions", func() error {
			txs, err := r.snapshots.ListTransactions(ctx, ports.TransactionFilter{Limit: defaultSnapshotLimit})
			if err == nil {
				r.cache.replaceTransactions(txs)
			}
			return err
		})
		capture(2, "orders", func() error {
			orders, err := r.snapshots.ListOrders(ctx, ports.OrderFilter{Role: domain.RoleAdmin})
			if err == nil {
				r.cache.replaceOrders(orders)
			}
			return err
		})
	} else {
		capture(2, "orders", func() error {
			orders, err := r.snapshots.ListOrders(ctx, ports.OrderFilter{UserID: r.identity.UserID, Role: r.identity.Role})
			if err == nil {
				r.cache.replaceOrders(orders)
			}
			return err
		})
		capture(3, "notifications", func() error {
			ns, err := r.snapshots.ListNotifications(ctx, r.identity.UserID)
			if err == nil {
				r.cache.replaceNotifications(ns)
			}
			return err
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	if err != nil {
		r.log.Warn().Err(err).Msg("hydration incomplete")
		return err
	}
	r.log.Debug().Str("role", r.identity.Role).Msg("cache hydrated")
	return nil
}

// idRing remembers the most recent n event ids.
type idRing struct {
	mu   sync.Mutex
	ids  []string
	next int
	set  map[string]struct{}
}

func newIDRing(n int) *idRing {
	return &idRing{ids: make([]string, n), set: make(map[string]struct{}, n)}
}

// seen reports whether id was recorded before, recording it if not.
func (r *idRing) seen(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.set[id]; ok {
		return true
	}
	if old := r.ids[r.next]; old != "" {
		delete(r.set, old)
	}
	r.ids[r.next] = id
	r.set[id] = struct{}{}
	r.next = (r.next + 1) % len(r.ids)
	return false
}
