package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event payloads, one per Tag. Field names follow the wire contract.

type NewNotificationPayload struct {
	Notification Notification `json:"notification"`
}

type NotificationReadPayload struct {
	NotificationID string `json:"notification_id" validate:"required"`
	UserID         string `json:"user_id" validate:"required"`
}

type NotificationDeletedPayload struct {
	NotificationID string `json:"notification_id" validate:"required"`
	UserID         string `json:"user_id" validate:"required"`
}

type OrderStatusUpdatePayload struct {
	OrderID   string      `json:"order_id" validate:"required"`
	Status    OrderStatus `json:"status" validate:"required"`
	UserID    string      `json:"user_id" validate:"required"`
	UpdatedAt time.Time   `json:"updated_at" validate:"required"`
}

type PriceUpdatePayload struct {
	ProductID    string          `json:"product_id" validate:"required"`
	BasePrice    decimal.Decimal `json:"base_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Reason       string          `json:"reason"`
}

type NewQuestionPayload struct {
	QuestionID string `json:"question_id" validate:"required"`
	ProductID  string `json:"product_id" validate:"required"`
	Text       string `json:"text" validate:"required"`
	UserID     string `json:"user_id" validate:"required"`
}

type NewAnswerPayload struct {
	QuestionID string `json:"question_id" validate:"required"`
	AnswerID   string `json:"answer_id" validate:"required"`
	Text       string `json:"text" validate:"required"`
	UserID     string `json:"user_id" validate:"required"`
}

type VoteUpdatePayload struct {
	QuestionID string `json:"question_id" validate:"required"`
	AnswerID   string `json:"answer_id" validate:"required"`
	VoteType   string `json:"vote_type" validate:"required,oneof=up down"`
}

type HelpfulAnswerPayload struct {
	QuestionID string `json:"question_id" validate:"required"`
	AnswerID   string `json:"answer_id" validate:"required"`
}

type NewModerationFlagPayload struct {
	FlagID      string `json:"flag_id" validate:"required"`
	ContentType string `json:"content_type" validate:"required"`
	ContentID   string `json:"content_id" validate:"required"`
	Reason      string `json:"reason"`
}

type ModerationStatusUpdatePayload struct {
	FlagID string           `json:"flag_id" validate:"required"`
	Status ModerationStatus `json:"status" validate:"required"`
}

type UserActivityLogPayload struct {
	ActivityID  string         `json:"activity_id" validate:"required"`
	UserID      string         `json:"user_id" validate:"required"`
	ActionType  string         `json:"action_type" validate:"required"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp" validate:"required"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type LowStockPayload struct {
	Product Product `json:"product"`
	AlertID string  `json:"alert_id" validate:"required"`
}

type RestockPayload struct {
	Product Product `json:"product"`
	AlertID string  `json:"alert_id" validate:"required"`
}

type LowStockAcknowledgedPayload struct {
	AlertID   string `json:"alert_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
}

type NewOrderPayload struct {
	Order Order `json:"order"`
}

type NewReturnPayload struct {
	Return Return `json:"return"`
}

type ReturnStatusUpdatePayload struct {
	ID     string `json:"id" validate:"required"`
	Status string `json:"status" validate:"required"`
}

type NewSellerPayload struct {
	Seller Seller `json:"seller"`
}

type SellerStatusUpdatePayload struct {
	ID     string `json:"id" validate:"required"`
	Status string `json:"status" validate:"required"`
}

type CouponAppliedPayload struct {
	CouponCode string `json:"coupon_code" validate:"required"`
	OrderID    string `json:"order_id" validate:"required"`
}

// DeletedPayload removes the entity with ID from every cached collection.
type DeletedPayload struct {
	ID string `json:"id" validate:"required"`
}
