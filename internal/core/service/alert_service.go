package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/core/ports"
	"github.com/storefront/realtime/internal/metrics"
)

const defaultSnapshotLimit = 200

type alertService struct {
	products  ports.ProductRepository
	alerts    ports.AlertRepository
	ledger    ports.InventoryRepository
	publisher ports.EventPublisher
	log       zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewAlertService returns an AlertService implementation.
func NewAlertService(
	products ports.ProductRepository,
	alerts ports.AlertRepository,
	ledger ports.InventoryRepository,
	publisher ports.EventPublisher,
	log zerolog.Logger,
) ports.AlertService {
	return &alertService{
		products:  products,
		alerts:    alerts,
		ledger:    ledger,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// ApplyStockChange persists a stock mutation, records it in the ledger and
// runs the alert lifecycle for the new level.
func (s *alertService) ApplyStockChange(ctx context.Context, in ports.StockChangeInput) (*ports.StockEvaluation, error) {
	if (in.Delta == nil) == (in.Stock == nil) {
		return nil, fmt.Errorf("apply stock change: %w (exactly one of delta or stock is required)", domain.ErrInvalidStock)
	}

	// 1. Load the product (threshold lives on it).
	product, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("apply stock change: %w", err)
	}

	// 2. Compute the new level.
	before := product.Stock
	after := before
	if in.Delta != nil {
		after = before + *in.Delta
	} else {
		after = *in.Stock
	}
	if after < 0 {
		return nil, fmt.Errorf("apply stock change: %w (product %s would reach %d)", domain.ErrInvalidStock, product.ID, after)
	}

	at := in.Timestamp
	if at.IsZero() {
		at = s.now()
	}

	// 3. Persist the stock level.
	if err := s.products.UpdateStock(ctx, product.ID, after, at); err != nil {
		return nil, fmt.Errorf("apply stock change: update stock: %w", err)
	}
	product.Stock = after
	product.UpdatedAt = at

	// 4. Ledger entry (non-fatal on failure).
	tx := &domain.InventoryTransaction{
		ID:          s.newID(),
		ProductID:   product.ID,
		Delta:       after - before,
		StockBefore: before,
		StockAfter:  after,
		Reason:      in.Reason,
		CreatedAt:   at,
	}
	if err := s.ledger.Insert(ctx, tx); err != nil {
		s.log.Warn().Err(err).Str("product_id", product.ID).Msg("failed to record inventory transaction")
	}

	// 5. Alert lifecycle.
	return s.EvaluateStockChange(ctx, *product, after)
}

// EvaluateStockChange opens or resolves the product's alert for newStock.
func (s *alertService) EvaluateStockChange(ctx context.Context, product domain.Product, newStock int) (*ports.StockEvaluation, error) {
	active, err := s.alerts.FindActiveByProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("evaluate stock change: %w", err)
	}
	product.Stock = newStock

	switch domain.EvaluateStock(product.LowStockThreshold, newStock, active != nil) {
	case domain.TransitionTrigger:
		return s.trigger(ctx, product, newStock)
	case domain.TransitionResolve:
		return s.resolve(ctx, product, active)
	default:
		return &ports.StockEvaluation{Transition: domain.TransitionNone}, nil
	}
}

func (s *alertService) trigger(ctx context.Context, product domain.Product, stock int) (*ports.StockEvaluation, error) {
	alert := domain.NewLowStockAlert(s.newID(), product, stock, s.now())
	if err := s.alerts.Create(ctx, alert); err != nil {
		if errors.Is(err, domain.ErrDuplicateAlert) {
			metrics.AlertTransitionsTotal.WithLabelValues("duplicate").Inc()
			s.log.Debug().Str("product_id", product.ID).Msg("active alert already open, trigger skipped")
			return &ports.StockEvaluation{Transition: domain.TransitionNone}, nil
		}
		return nil, fmt.Errorf("evaluate stock change: create alert: %w", err)
	}

	s.mirrorStatus(ctx, product.ID, domain.AlertStatusActive)
	product.AlertStatus = domain.AlertStatusActive
	s.publish(domain.TagLowStock, domain.LowStockPayload{Product: product, AlertID: alert.ID})
	metrics.AlertTransitionsTotal.WithLabelValues("trigger").Inc()

	s.log.Info().
		Str("product_id", product.ID).
		Str("alert_id", alert.ID).
		Int("stock", stock).
		Int("threshold", product.LowStockThreshold).
		Msg("low stock alert opened")

	return &ports.StockEvaluation{Transition: domain.TransitionTrigger, Alert: alert}, nil
}

func (s *alertService) resolve(ctx context.Context, product domain.Product, active *domain.LowStockAlert) (*ports.StockEvaluation, error) {
	now := s.now()
	if err := s.alerts.Resolve(ctx, active.ID, false, now); err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			// Acknowledged between the lookup and the update.
			return &ports.StockEvaluation{Transition: domain.TransitionNone}, nil
		}
		return nil, fmt.Errorf("evaluate stock change: resolve alert: %w", err)
	}
	_ = active.Resolve(now)

	s.mirrorStatus(ctx, product.ID, domain.AlertStatusResolved)
	product.AlertStatus = domain.AlertStatusResolved
	s.publish(domain.TagRestock, domain.RestockPayload{Product: product, AlertID: active.ID})
	metrics.AlertTransitionsTotal.WithLabelValues("resolve").Inc()

	s.log.Info().
		Str("product_id", product.ID).
		Str("alert_id", active.ID).
		Int("stock", product.Stock).
		Msg("low stock alert resolved by restock")

	return &ports.StockEvaluation{Transition: domain.TransitionResolve, Alert: active}, nil
}

// AcknowledgeAlert dismisses an active alert without requiring a stock change.
func (s *alertService) AcknowledgeAlert(ctx context.Context, alertID string) (*domain.LowStockAlert, error) {
	alert, err := s.alerts.FindByID(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("acknowledge alert: %w", err)
	}

	now := s.now()
	if err := alert.Acknowledge(now); err != nil {
		return nil, fmt.Errorf("acknowledge alert %s: %w", alertID, err)
	}
	if err := s.alerts.Resolve(ctx, alert.ID, true, now); err != nil {
		return nil, fmt.Errorf("acknowledge alert %s: %w", alertID, err)
	}

	s.mirrorStatus(ctx, alert.ProductID, domain.AlertStatusResolved)
	s.publish(domain.TagLowStockAcknowledged, domain.LowStockAcknowledgedPayload{
		AlertID:   alert.ID,
		ProductID: alert.ProductID,
	})
	metrics.AlertTransitionsTotal.WithLabelValues("acknowledge").Inc()

	s.log.Info().Str("alert_id", alert.ID).Str("product_id", alert.ProductID).Msg("low stock alert acknowledged")
	return alert, nil
}

func (s *alertService) ListAlerts(ctx context.Context, filter ports.AlertFilter) ([]*domain.LowStockAlert, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultSnapshotLimit
	}
	return s.alerts.List(ctx, filter)
}

func (s *alertService) ListTransactions(ctx context.Context, filter ports.TransactionFilter) ([]*domain.InventoryTransaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultSnapshotLimit
	}
	return s.ledger.List(ctx, filter)
}

// mirrorStatus copies the alert state onto the product. The alert record is
// authoritative, so a failure here is logged and not returned.
func (s *alertService) mirrorStatus(ctx context.Context, productID string, status domain.AlertStatus) {
	if err := s.products.SetAlertStatus(ctx, productID, status); err != nil {
		s.log.Warn().Err(err).Str("product_id", productID).Str("alert_status", string(status)).Msg("failed to mirror alert status")
	}
}

// publish sends an admin-targeted inventory event. Publishing happens after
// the mutation is committed; a failure to encode loses the event, which
// clients recover from on their next snapshot read.
func (s *alertService) publish(tag domain.Tag, payload any) {
	ev, err := domain.NewEvent(tag, domain.TargetAdmins, payload)
	if err != nil {
		s.log.Error().Err(err).Str("tag", string(tag)).Msg("failed to build event")
		return
	}
	s.publisher.Publish(ev)
}
