package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/storefront/realtime/internal/api/middleware"
	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/core/ports"
)

type stubEventService struct {
	validateFn func(in ports.PublishInput) error
	publishFn  func(ctx context.Context, in ports.PublishInput) (*ports.PublishResult, error)

	mu        sync.Mutex
	published []ports.PublishInput
}

func (s *stubEventService) Validate(in ports.PublishInput) error {
	if s.validateFn == nil {
		return nil
	}
	return s.validateFn(in)
}

func (s *stubEventService) Publish(ctx context.Context, in ports.PublishInput) (*ports.PublishResult, error) {
	s.mu.Lock()
	s.published = append(s.published, in)
	s.mu.Unlock()
	if s.publishFn != nil {
		return s.publishFn(ctx, in)
	}
	return &ports.PublishResult{Event: domain.DomainEvent{
		ID:     "ev-1",
		Seq:    1,
		Tag:    domain.Tag(in.Tag),
		Target: domain.Target(in.Target),
	}}, nil
}

type stubAlertService struct {
	acknowledgeFn      func(ctx context.Context, id string) (*domain.LowStockAlert, error)
	listAlertsFn       func(ctx context.Context, f ports.AlertFilter) ([]*domain.LowStockAlert, error)
	listTransactionsFn func(ctx context.Context, f ports.TransactionFilter) ([]*domain.InventoryTransaction, error)
}

func (s *stubAlertService) ApplyStockChange(context.Context, ports.StockChangeInput) (*ports.StockEvaluation, error) {
	return nil, nil
}

func (s *stubAlertService) EvaluateStockChange(context.Context, domain.Product, int) (*ports.StockEvaluation, error) {
	return nil, nil
}

func (s *stubAlertService) AcknowledgeAlert(ctx context.Context, id string) (*domain.LowStockAlert, error) {
	return s.acknowledgeFn(ctx, id)
}

func (s *stubAlertService) ListAlerts(ctx context.Context, f ports.AlertFilter) ([]*domain.LowStockAlert, error) {
	return s.listAlertsFn(ctx, f)
}

func (s *stubAlertService) ListTransactions(ctx context.Context, f ports.TransactionFilter) ([]*domain.InventoryTransaction, error) {
	return s.listTransactionsFn(ctx, f)
}

type stubDispatcher struct {
	changes []ports.StockChangeInput
	err     error
}

func (d *stubDispatcher) Enqueue(change ports.StockChangeInput) error {
	if d.err != nil {
		return d.err
	}
	d.changes = append(d.changes, change)
	return nil
}

func (d *stubDispatcher) EnqueueBatch(changes []ports.StockChangeInput) error {
	if d.err != nil {
		return d.err
	}
	d.changes = append(d.changes, changes...)
	return nil
}

// newContext builds an echo context with the validator registered and, when
// identity is non-nil, the auth claims set.
func newContext(method, target, body string, identity *domain.Identity) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if identity != nil {
		c.Set(middleware.KeyIdentity, identity)
		c.Set(middleware.KeyUserID, identity.UserID)
		c.Set(middleware.KeyRole, identity.Role)
	}
	return c, rec
}

var adminIdentity = &domain.Identity{UserID: "a-1", Role: domain.RoleAdmin}

func httpCode(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return http.StatusInternalServerError
}
