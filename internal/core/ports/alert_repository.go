package ports

import (
	"context"
	"time"

	"github.com/storefront/realtime/internal/core/domain"
)

// AlertFilter carries the snapshot query for low-stock alerts.
type AlertFilter struct {
	ProductID string             // optional
	Status    domain.AlertStatus // optional: active or resolved
	DateFrom  time.Time          // optional: created_at >= DateFrom
	DateTo    time.Time          // optional: created_at <= DateTo
	Limit     int                // 0 = repository default
}

// AlertRepository persists low-stock alerts.
type AlertRepository interface {
	// Create stores a new active alert. Returns domain.ErrDuplicateAlert when
	// the product already has an active one.
	Create(ctx context.Context, alert *domain.LowStockAlert) error
	FindByID(ctx context.Context, id string) (*domain.LowStockAlert, error)
	// FindActiveByProduct returns (nil, nil) when the product has no active alert.
	FindActiveByProduct(ctx context.Context, productID string) (*domain.LowStockAlert, error)
	// Resolve transitions an active alert to resolved. Returns
	// domain.ErrAlreadyResolved if the alert is no longer active.
	Resolve(ctx context.Context, id string, acknowledged bool, at time.Time) error
	List(ctx context.Context, filter AlertFilter) ([]*domain.LowStockAlert, error)
}

// ProductRepository is the inventory collaborator's product store, reduced to
// what the alert lifecycle needs.
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	UpdateStock(ctx context.Context, id string, stock int, at time.Time) error
	SetAlertStatus(ctx context.Context, id string, status domain.AlertStatus) error
}

// TransactionFilter carries the snapshot query for the stock ledger.
type TransactionFilter struct {
	ProductID string
	DateFrom  time.Time
	DateTo    time.Time
	Limit     int
}

// InventoryRepository appends to and reads the stock ledger.
type InventoryRepository interface {
	Insert(ctx context.Context, tx *domain.InventoryTransaction) error
	List(ctx context.Context, filter TransactionFilter) ([]*domain.InventoryTransaction, error)
}
