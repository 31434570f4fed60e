package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/core/ports"
)

// HTTPSnapshotReader reads hydration snapshots from the REST surface.
// Alerts and the stock ledger are served by the hub service itself; orders
// and notifications by the collaborators that own them, under the same base
// URL.
type HTTPSnapshotReader struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPSnapshotReader returns a reader for baseURL.
func NewHTTPSnapshotReader(baseURL, token string, timeout time.Duration) *HTTPSnapshotReader {
	return &HTTPSnapshotReader{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type listEnvelope[T any] struct {
	Data []*T `json:"data"`
}

func (r *HTTPSnapshotReader) ListAlerts(ctx context.Context, f ports.AlertFilter) ([]*domain.LowStockAlert, error) {
	q := url.Values{}
	if f.ProductID != "" {
		q.Set("product_id", f.ProductID)
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	setDates(q, f.DateFrom, f.DateTo)
	setLimit(q, f.Limit)
	return getList[domain.LowStockAlert](ctx, r, "/v1/alerts", q)
}

func (r *HTTPSnapshotReader) ListTransactions(ctx context.Context, f ports.TransactionFilter) ([]*domain.InventoryTransaction, error) {
	q := url.Values{}
	if f.ProductID != "" {
		q.Set("product_id", f.ProductID)
	}
	setDates(q, f.DateFrom, f.DateTo)
	setLimit(q, f.Limit)
	return getList[domain.InventoryTransaction](ctx, r, "/v1/inventory/transactions", q)
}

func (r *HTTPSnapshotReader) ListNotifications(ctx context.Context, userID string) ([]*domain.Notification, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	return getList[domain.Notification](ctx, r, "/v1/notifications", q)
}

func (r *HTTPSnapshotReader) ListOrders(ctx context.Context, f ports.OrderFilter) ([]*domain.Order, error) {
	q := url.Values{}
	if f.UserID != "" {
		q.Set("user_id", f.UserID)
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	return getList[domain.Order](ctx, r, "/v1/orders", q)
}

func getList[T any](ctx context.Context, r *HTTPSnapshotReader, path string, query url.Values) ([]*T, error) {
	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &ConnectionError{Op: "snapshot " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("snapshot %s: status=%d body=%s", path, resp.StatusCode, string(body))
	}
	var env listEnvelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("snapshot %s: decode: %w", path, err)
	}
	return env.Data, nil
}

func setDates(q url.Values, from, to time.Time) {
	if !from.IsZero() {
		q.Set("date_from", from.Format(time.RFC3339))
	}
	if !to.IsZero() {
		q.Set("date_to", to.Format(time.RFC3339))
	}
}

func setLimit(q url.Values, limit int) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
}
