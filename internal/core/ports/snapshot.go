package ports

import (
	"context"

	"github.com/storefront/realtime/internal/core/domain"
)

// OrderFilter scopes an order snapshot. An empty UserID with Role admin
// returns every order.
type OrderFilter struct {
	UserID string
	Role   string
	Status string
}

// SnapshotReader is the request/response surface a client re-hydrates from
// after (re)connecting. Orders and notifications are served by external
// collaborators; alerts and the stock ledger by this service.
type SnapshotReader interface {
	ListAlerts(ctx context.Context, filter AlertFilter) ([]*domain.LowStockAlert, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*domain.InventoryTransaction, error)
	ListNotifications(ctx context.Context, userID string) ([]*domain.Notification, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
}
