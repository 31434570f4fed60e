package ports

import (
	"context"
	"time"

	"github.com/storefront/realtime/internal/core/domain"
)

// StockChangeInput is the DTO the inventory collaborator submits after a
// stock mutation. Exactly one of Delta or Stock is set.
type StockChangeInput struct {
	ProductID string
	Delta     *int // relative change
	Stock     *int // absolute level
	Reason    string
	Timestamp time.Time
}

// StockEvaluation describes what a stock level did to a product's alert.
type StockEvaluation struct {
	Transition domain.StockTransition
	Alert      *domain.LowStockAlert // nil when Transition is none
}

// AlertService owns the low-stock alert lifecycle.
type AlertService interface {
	ApplyStockChange(ctx context.Context, in StockChangeInput) (*StockEvaluation, error)
	EvaluateStockChange(ctx context.Context, product domain.Product, newStock int) (*StockEvaluation, error)
	AcknowledgeAlert(ctx context.Context, alertID string) (*domain.LowStockAlert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]*domain.LowStockAlert, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*domain.InventoryTransaction, error)
}
