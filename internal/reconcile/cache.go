package reconcile

import (
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/storefront/realtime/internal/core/domain"
)

// Cache holds the client-local entity collections. Every collection is keyed
// by entity id so re-applying the same data never duplicates an entry.
type Cache struct {
	mu sync.RWMutex

	orders        map[string]*domain.Order
	products      map[string]*domain.Product
	alerts        map[string]*domain.LowStockAlert
	notifications []*domain.Notification // newest first
	questions     map[string]*domain.Question
	flags         map[string]*domain.ModerationFlag
	returns       map[string]*domain.Return
	sellers       map[string]*domain.Seller
	transactions  []*domain.InventoryTransaction
	activity      []domain.ActivityEntry // newest first

	// votes holds the ids of voteUpdate events already counted, per answer.
	votes map[string]map[string]struct{}

	retention time.Duration
}

// NewCache returns an empty cache. Activity entries older than retention are
// evicted on every activity merge; zero keeps them forever.
func NewCache(retention time.Duration) *Cache {
	return &Cache{
		orders:    make(map[string]*domain.Order),
		products:  make(map[string]*domain.Product),
		alerts:    make(map[string]*domain.LowStockAlert),
		questions: make(map[string]*domain.Question),
		flags:     make(map[string]*domain.ModerationFlag),
		returns:   make(map[string]*domain.Return),
		sellers:   make(map[string]*domain.Seller),
		votes:     make(map[string]map[string]struct{}),
		retention: retention,
	}
}

// CacheState is a point-in-time copy of the cache, safe to read without locking.
type CacheState struct {
	Orders        map[string]domain.Order
	Products      map[string]domain.Product
	Alerts        map[string]domain.LowStockAlert
	Notifications []domain.Notification
	Questions     map[string]domain.Question
	Flags         map[string]domain.ModerationFlag
	Returns       map[string]domain.Return
	Sellers       map[string]domain.Seller
	Transactions  []domain.InventoryTransaction
	Activity      []domain.ActivityEntry
}

// Snapshot copies the current cache contents.
func (c *Cache) Snapshot() CacheState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := CacheState{
		Orders:        copyMap(c.orders),
		Products:      copyMap(c.products),
		Alerts:        copyMap(c.alerts),
		Notifications: make([]domain.Notification, len(c.notifications)),
		Questions:     make(map[string]domain.Question, len(c.questions)),
		Flags:         copyMap(c.flags),
		Returns:       copyMap(c.returns),
		Sellers:       copyMap(c.sellers),
		Transactions:  make([]domain.InventoryTransaction, len(c.transactions)),
		Activity:      append([]domain.ActivityEntry(nil), c.activity...),
	}
	for i, n := range c.notifications {
		s.Notifications[i] = *n
	}
	for i, tx := range c.transactions {
		s.Transactions[i] = *tx
	}
	for id, q := range c.questions {
		clone := *q
		clone.Answers = make(map[string]*domain.Answer, len(q.Answers))
		for aid, a := range q.Answers {
			ac := *a
			clone.Answers[aid] = &ac
		}
		s.Questions[id] = clone
	}
	return s
}

func copyMap[T any](in map[string]*T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = *v
	}
	return out
}

func pointerMap[T any](items []*T, id func(*T) string) map[string]*T {
	out := make(map[string]*T, len(items))
	for _, it := range items {
		clone := *it
		out[id(&clone)] = &clone
	}
	return out
}

// ── snapshot replacement ──────────────────────────────────────────────────────

func (c *Cache) replaceOrders(orders []*domain.Order) {
	m := pointerMap(orders, func(o *domain.Order) string { return o.ID })
	c.mu.Lock()
	c.orders = m
	c.mu.Unlock()
}

func (c *Cache) replaceAlerts(alerts []*domain.LowStockAlert) {
	m := pointerMap(alerts, func(a *domain.LowStockAlert) string { return a.ID })
	c.mu.Lock()
	c.alerts = m
	c.mu.Unlock()
}

func (c *Cache) replaceNotifications(ns []*domain.Notification) {
	out := make([]*domain.Notification, 0, len(ns))
	for _, n := range ns {
		clone := *n
		out = append(out, &clone)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	c.mu.Lock()
	c.notifications = out
	c.mu.Unlock()
}

func (c *Cache) replaceTransactions(txs []*domain.InventoryTransaction) {
	out := make([]*domain.InventoryTransaction, 0, len(txs))
	for _, tx := range txs {
		clone := *tx
		out = append(out, &clone)
	}
	c.mu.Lock()
	c.transactions = out
	c.mu.Unlock()
}

// ── activity log ──────────────────────────────────────────────────────────────

// mergeActivity inserts a flushed batch, skipping ids already logged, and
// evicts entries that fell out of the retention window.
func (c *Cache) mergeActivity(batch []domain.ActivityEntry, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	known := make(map[string]struct{}, len(c.activity))
	for _, e := range c.activity {
		known[e.ID] = struct{}{}
	}
	for _, e := range batch {
		if _, ok := known[e.ID]; ok {
			continue
		}
		known[e.ID] = struct{}{}
		e.Metadata = maps.Clone(e.Metadata)
		c.activity = append(c.activity, e)
	}
	sort.SliceStable(c.activity, func(i, j int) bool {
		return c.activity[i].Timestamp.After(c.activity[j].Timestamp)
	})

	if c.retention > 0 {
		cutoff := now.Add(-c.retention)
		kept := c.activity[:0]
		for _, e := range c.activity {
			if !e.Timestamp.Before(cutoff) {
				kept = append(kept, e)
			}
		}
		c.activity = kept
	}
}
