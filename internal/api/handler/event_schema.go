package handler

import (
	"encoding/json"
	"time"
)

const maxBatchSize = 100

type publishRequest struct {
	Tag    string          `json:"type"   validate:"required"`
	Target string          `json:"target" validate:"required"`
	Data   json.RawMessage `json:"data"   validate:"required"`
}

// batchPublishRequest is one element of POST /v1/events/batch. The
// idempotency key travels in the body since one header cannot cover a batch.
type batchPublishRequest struct {
	publishRequest
	IdempotencyKey string `json:"idempotency_key"`
}

type publishResponse struct {
	ID          string     `json:"id,omitempty"`
	Seq         uint64     `json:"seq,omitempty"`
	Tag         string     `json:"type"`
	Target      string     `json:"target"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Duplicate   bool       `json:"duplicate,omitempty"`
}

type acceptedResponse struct {
	Message string            `json:"message"`
	Count   int               `json:"count,omitempty"`
	Events  []publishResponse `json:"events,omitempty"`
}
