package domain

import "time"

// LowStockAlert records a single threshold-crossing episode for one product.
// A resolved alert is never reactivated; the next crossing opens a new one.
type LowStockAlert struct {
	ID             string      `json:"id" bson:"_id"`
	ProductID      string      `json:"product_id" bson:"product_id"`
	StockAtTrigger int         `json:"stock_at_trigger" bson:"stock_at_trigger"`
	Threshold      int         `json:"threshold" bson:"threshold"`
	Status         AlertStatus `json:"status" bson:"status"`
	Acknowledged   bool        `json:"acknowledged" bson:"acknowledged"`
	CreatedAt      time.Time   `json:"created_at" bson:"created_at"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}

// StockTransition is the outcome of evaluating a stock level against a threshold.
type StockTransition string

const (
	TransitionNone    StockTransition = "none"
	TransitionTrigger StockTransition = "trigger"
	TransitionResolve StockTransition = "resolve"
)

// EvaluateStock decides what the new stock level means for the product's alert.
//
//	stock <= threshold, no active alert  → trigger
//	stock >  threshold, active alert     → resolve
//	anything else                        → none
func EvaluateStock(threshold, newStock int, hasActive bool) StockTransition {
	switch {
	case newStock <= threshold && !hasActive:
		return TransitionTrigger
	case newStock > threshold && hasActive:
		return TransitionResolve
	default:
		return TransitionNone
	}
}

// NewLowStockAlert opens an active alert for p at the given stock level.
func NewLowStockAlert(id string, p Product, stock int, now time.Time) *LowStockAlert {
	return &LowStockAlert{
		ID:             id,
		ProductID:      p.ID,
		StockAtTrigger: stock,
		Threshold:      p.LowStockThreshold,
		Status:         AlertStatusActive,
		CreatedAt:      now,
	}
}

// IsActive reports whether the alert is still open.
func (a *LowStockAlert) IsActive() bool {
	return a.Status == AlertStatusActive
}

// Resolve closes the alert because stock recovered.
func (a *LowStockAlert) Resolve(now time.Time) error {
	if !a.IsActive() {
		return ErrAlreadyResolved
	}
	a.Status = AlertStatusResolved
	a.ResolvedAt = &now
	return nil
}

// Acknowledge closes the alert by manual dismissal. Stock may still be low.
func (a *LowStockAlert) Acknowledge(now time.Time) error {
	if err := a.Resolve(now); err != nil {
		return err
	}
	a.Acknowledged = true
	return nil
}
