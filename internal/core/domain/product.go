package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertStatus is the low-stock alert state. Products use all three values;
// an individual alert is only ever active or resolved.
type AlertStatus string

const (
	AlertStatusNone     AlertStatus = "none"
	AlertStatusActive   AlertStatus = "active"
	AlertStatusResolved AlertStatus = "resolved"
)

// Product is the inventory view of a catalogue item.
type Product struct {
	ID                string          `json:"id" bson:"_id" validate:"required"`
	Name              string          `json:"name,omitempty" bson:"name"`
	Stock             int             `json:"stock" bson:"stock" validate:"gte=0"`
	LowStockThreshold int             `json:"low_stock_threshold" bson:"low_stock_threshold" validate:"gte=0"`
	AlertStatus       AlertStatus     `json:"alert_status,omitempty" bson:"alert_status"`
	BasePrice         decimal.Decimal `json:"base_price" bson:"base_price"`
	CurrentPrice      decimal.Decimal `json:"current_price" bson:"current_price"`
	UpdatedAt         time.Time       `json:"updated_at" bson:"updated_at"`
}

// InventoryTransaction is one entry of the stock ledger.
type InventoryTransaction struct {
	ID          string    `json:"id" bson:"_id"`
	ProductID   string    `json:"product_id" bson:"product_id"`
	Delta       int       `json:"delta" bson:"delta"`
	StockBefore int       `json:"stock_before" bson:"stock_before"`
	StockAfter  int       `json:"stock_after" bson:"stock_after"`
	Reason      string    `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}
