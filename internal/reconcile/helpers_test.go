package reconcile

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/core/ports"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var (
	alice = &domain.Identity{UserID: "u-1", Role: domain.RoleUser}
	bob   = &domain.Identity{UserID: "u-2", Role: domain.RoleUser}
	admin = &domain.Identity{UserID: "a-1", Role: domain.RoleAdmin}
)

// frame encodes a wire envelope the way the hub does.
func frame(t *testing.T, id string, tag domain.Tag, target domain.Target, payload any) []byte {
	t.Helper()
	ev, err := domain.NewEvent(tag, target, payload)
	require.NoError(t, err)
	ev.ID = id
	ev.PublishedAt = t0
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func newTestReconciler(identity *domain.Identity, snapshots ports.SnapshotReader) *Reconciler {
	r := New(identity, snapshots, Options{QuietWindow: 50 * time.Millisecond}, zerolog.Nop())
	r.now = func() time.Time { return t0 }
	return r
}

// stubSnapshots serves mutable in-memory server state.
type stubSnapshots struct {
	mu            sync.Mutex
	orders        map[string]*domain.Order
	notifications []*domain.Notification
	alerts        []*domain.LowStockAlert
	transactions  []*domain.InventoryTransaction
	ordersErr     error
	calls         int
}

func newStubSnapshots(orders ...domain.Order) *stubSnapshots {
	s := &stubSnapshots{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		s.putOrder(o)
	}
	return s
}

func (s *stubSnapshots) putOrder(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := o
	s.orders[o.ID] = &clone
}

func (s *stubSnapshots) setOrderStatus(id string, status domain.OrderStatus, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[id].Status = status
	s.orders[id].UpdatedAt = at
}

func (s *stubSnapshots) serverOrders(userID string) map[string]domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.Order)
	for id, o := range s.orders {
		if userID == "" || o.UserID == userID {
			out[id] = *o
		}
	}
	return out
}

func (s *stubSnapshots) ListAlerts(context.Context, ports.AlertFilter) ([]*domain.LowStockAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alerts, nil
}

func (s *stubSnapshots) ListTransactions(context.Context, ports.TransactionFilter) ([]*domain.InventoryTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions, nil
}

func (s *stubSnapshots) ListNotifications(_ context.Context, userID string) ([]*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *stubSnapshots) ListOrders(_ context.Context, f ports.OrderFilter) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.ordersErr != nil {
		return nil, s.ordersErr
	}
	var out []*domain.Order
	for _, o := range s.orders {
		if f.UserID == "" || o.UserID == f.UserID {
			clone := *o
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *stubSnapshots) orderCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
