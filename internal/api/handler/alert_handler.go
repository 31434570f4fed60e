package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/core/ports"
)

const maxListLimit = 500

// StockDispatcher is the interface the handler uses to enqueue stock changes.
type StockDispatcher interface {
	Enqueue(change ports.StockChangeInput) error
	EnqueueBatch(changes []ports.StockChangeInput) error
}

// AlertHandler serves the inventory collaborator and the admin alert views.
type AlertHandler struct {
	service    ports.AlertService
	dispatcher StockDispatcher
}

func NewAlertHandler(service ports.AlertService, dispatcher StockDispatcher) *AlertHandler {
	return &AlertHandler{service: service, dispatcher: dispatcher}
}

// SubmitStockChanges handles POST /v1/inventory/stock-changes. Changes are
// queued per product and evaluated asynchronously; the response is 202.
func (h *AlertHandler) SubmitStockChanges(c echo.Context) error {
	var reqs []stockChangeRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}
	if len(reqs) > maxBatchSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch exceeds %d changes", maxBatchSize))
	}

	inputs := make([]ports.StockChangeInput, 0, len(reqs))
	for i, req := range reqs {
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("change[%d]: %s", i, err.Error()))
		}
		inputs = append(inputs, ports.StockChangeInput{
			ProductID: req.ProductID,
			Delta:     req.Delta,
			Stock:     req.Stock,
			Reason:    req.Reason,
			Timestamp: req.Timestamp,
		})
	}

	if err := h.dispatcher.EnqueueBatch(inputs); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "stock changes are not being accepted")
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "stock changes accepted",
		Count:   len(inputs),
	})
}

// ListAlerts handles GET /v1/alerts.
func (h *AlertHandler) ListAlerts(c echo.Context) error {
	q, err := parseListQuery(c)
	if err != nil {
		return err
	}
	status := domain.AlertStatus(q.Status)
	if status != "" && status != domain.AlertStatusActive && status != domain.AlertStatusResolved {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be one of: active resolved")
	}

	alerts, err := h.service.ListAlerts(c.Request().Context(), ports.AlertFilter{
		ProductID: q.ProductID,
		Status:    status,
		DateFrom:  q.From,
		DateTo:    q.To,
		Limit:     q.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse[*domain.LowStockAlert]{Data: nonNil(alerts)})
}

// ListTransactions handles GET /v1/inventory/transactions.
func (h *AlertHandler) ListTransactions(c echo.Context) error {
	q, err := parseListQuery(c)
	if err != nil {
		return err
	}

	txs, err := h.service.ListTransactions(c.Request().Context(), ports.TransactionFilter{
		ProductID: q.ProductID,
		DateFrom:  q.From,
		DateTo:    q.To,
		Limit:     q.Limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse[*domain.InventoryTransaction]{Data: nonNil(txs)})
}

// Acknowledge handles POST /v1/alerts/:id/acknowledge.
func (h *AlertHandler) Acknowledge(c echo.Context) error {
	if _, err := ctxAdmin(c); err != nil {
		return err
	}
	alert, err := h.service.AcknowledgeAlert(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, alert)
}

func parseListQuery(c echo.Context) (listQuery, error) {
	q := listQuery{
		ProductID: c.QueryParam("product_id"),
		Status:    c.QueryParam("status"),
	}

	var err error
	if q.From, err = parseTimeParam(c, "date_from"); err != nil {
		return q, err
	}
	if q.To, err = parseTimeParam(c, "date_to"); err != nil {
		return q, err
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return q, echo.NewHTTPError(http.StatusBadRequest, "date_to must not be before date_from")
	}

	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			return q, echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
		}
		q.Limit = n
	}
	return q, nil
}

// parseTimeParam accepts RFC 3339 timestamps or plain dates (YYYY-MM-DD).
func parseTimeParam(c echo.Context, name string) (time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, echo.NewHTTPError(http.StatusBadRequest, name+" must be RFC 3339 or YYYY-MM-DD")
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
