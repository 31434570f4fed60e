package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories. They mirror the constraints the Mongo
// implementation enforces: one active alert per product, conditional resolve.
// ---------------------------------------------------------------------------

type stubProductRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.Product
	updateErr error
}

func newStubProductRepo(products ...domain.Product) *stubProductRepo {
	r := &stubProductRepo{byID: make(map[string]*domain.Product)}
	for _, p := range products {
		clone := p
		r.byID[p.ID] = &clone
	}
	return r
}

func (r *stubProductRepo) FindByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubProductRepo) UpdateStock(_ context.Context, id string, stock int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.Stock = stock
	p.UpdatedAt = at
	return nil
}

func (r *stubProductRepo) SetAlertStatus(_ context.Context, id string, status domain.AlertStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.AlertStatus = status
	return nil
}

type stubAlertRepo struct {
	mu    sync.Mutex
	byID  map[string]*domain.LowStockAlert
	order []string
}

func newStubAlertRepo() *stubAlertRepo {
	return &stubAlertRepo{byID: make(map[string]*domain.LowStockAlert)}
}

func (r *stubAlertRepo) Create(_ context.Context, a *domain.LowStockAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.ProductID == a.ProductID && existing.IsActive() {
			return domain.ErrDuplicateAlert
		}
	}
	clone := *a
	r.byID[a.ID] = &clone
	r.order = append(r.order, a.ID)
	return nil
}

func (r *stubAlertRepo) FindByID(_ context.Context, id string) (*domain.LowStockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrAlertNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *stubAlertRepo) FindActiveByProduct(_ context.Context, productID string) (*domain.LowStockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.ProductID == productID && a.IsActive() {
			clone := *a
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *stubAlertRepo) Resolve(_ context.Context, id string, acknowledged bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAlertNotFound
	}
	if !a.IsActive() {
		return domain.ErrAlreadyResolved
	}
	a.Status = domain.AlertStatusResolved
	a.Acknowledged = acknowledged
	a.ResolvedAt = &at
	return nil
}

func (r *stubAlertRepo) List(_ context.Context, f ports.AlertFilter) ([]*domain.LowStockAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.LowStockAlert
	for _, id := range r.order {
		a := r.byID[id]
		if f.ProductID != "" && a.ProductID != f.ProductID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	return out, nil
}

// activeCount returns how many alerts for productID are active right now.
func (r *stubAlertRepo) activeCount(productID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.byID {
		if a.ProductID == productID && a.IsActive() {
			n++
		}
	}
	return n
}

type stubLedger struct {
	mu        sync.Mutex
	insertErr error
	entries   []*domain.InventoryTransaction
	lastLimit int
}

func (l *stubLedger) Insert(_ context.Context, tx *domain.InventoryTransaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.insertErr != nil {
		return l.insertErr
	}
	l.entries = append(l.entries, tx)
	return nil
}

func (l *stubLedger) List(_ context.Context, f ports.TransactionFilter) ([]*domain.InventoryTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastLimit = f.Limit
	out := append([]*domain.InventoryTransaction(nil), l.entries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// stubPublisher records events in publish order.
type stubPublisher struct {
	mu     sync.Mutex
	seq    uint64
	events []domain.DomainEvent
}

func (p *stubPublisher) Publish(ev domain.DomainEvent) domain.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	ev.Seq = p.seq
	ev.ID = "ev-" + string(ev.Tag)
	p.events = append(p.events, ev)
	return ev
}

func (p *stubPublisher) tags() []domain.Tag {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Tag, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Tag
	}
	return out
}
