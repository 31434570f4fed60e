package handler

import "time"

// stockChangeRequest is one element of POST /v1/inventory/stock-changes.
// Exactly one of delta (relative) or stock (absolute) is set.
type stockChangeRequest struct {
	ProductID string    `json:"product_id" validate:"required"`
	Delta     *int      `json:"delta"      validate:"required_without=Stock,excluded_with=Stock"`
	Stock     *int      `json:"stock"      validate:"omitempty,gte=0"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// listQuery carries the snapshot filters shared by the alert and ledger reads.
type listQuery struct {
	ProductID string
	Status    string
	From      time.Time
	To        time.Time
	Limit     int
}

// listResponse wraps every snapshot read.
type listResponse[T any] struct {
	Data []T `json:"data"`
}
