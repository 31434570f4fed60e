package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// The types below are owned by external collaborators. The core only caches
// them on the client side and carries them inside event payloads.

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

type Order struct {
	ID         string          `json:"id" validate:"required"`
	UserID     string          `json:"user_id"`
	Status     OrderStatus     `json:"status"`
	Total      decimal.Decimal `json:"total"`
	CouponCode string          `json:"coupon_code,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type Notification struct {
	ID        string    `json:"id" validate:"required"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type,omitempty"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type Answer struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	UserID     string `json:"user_id"`
	Text       string `json:"text"`
	Upvotes    int    `json:"upvotes"`
	Downvotes  int    `json:"downvotes"`
	Helpful    bool   `json:"helpful"`
}

// Question is a product Q&A thread; answers are keyed by id.
type Question struct {
	ID        string             `json:"id"`
	ProductID string             `json:"product_id"`
	UserID    string             `json:"user_id"`
	Text      string             `json:"text"`
	Answers   map[string]*Answer `json:"answers"`
}

type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

type ModerationFlag struct {
	ID          string           `json:"id"`
	ContentType string           `json:"content_type"`
	ContentID   string           `json:"content_id"`
	Reason      string           `json:"reason"`
	Status      ModerationStatus `json:"status"`
}

type ActivityEntry struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	ActionType  string         `json:"action_type"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type Return struct {
	ID        string    `json:"id" validate:"required"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Seller struct {
	ID        string    `json:"id" validate:"required"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
