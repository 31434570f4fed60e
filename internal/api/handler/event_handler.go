package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/storefront/realtime/internal/core/ports"
)

// EventHandler handles collaborator event publishing.
type EventHandler struct {
	service ports.EventService
}

// NewEventHandler creates an EventHandler backed by the given service.
func NewEventHandler(service ports.EventService) *EventHandler {
	return &EventHandler{service: service}
}

// Publish handles POST /v1/events: validates one event and fans it out.
// An optional Idempotency-Key header makes retries safe.
func (h *EventHandler) Publish(c echo.Context) error {
	var req publishRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	in := toPublishInput(req, c.Request().Header.Get("Idempotency-Key"))
	res, err := h.service.Publish(c.Request().Context(), in)
	if err != nil {
		return err
	}

	status := http.StatusAccepted
	if res.Duplicate {
		status = http.StatusOK
	}
	return c.JSON(status, toPublishResponse(in, res))
}

// PublishBatch handles POST /v1/events/batch. Every event is validated before
// any is published, then they are published in request order.
func (h *EventHandler) PublishBatch(c echo.Context) error {
	var reqs []batchPublishRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch cannot be empty")
	}
	if len(reqs) > maxBatchSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch exceeds %d events", maxBatchSize))
	}

	inputs := make([]ports.PublishInput, 0, len(reqs))
	for i, req := range reqs {
		if err := c.Validate(&req.publishRequest); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity,
				fmt.Sprintf("event[%d]: %s", i, err.Error()))
		}
		in := toPublishInput(req.publishRequest, req.IdempotencyKey)
		if err := h.service.Validate(in); err != nil {
			return fmt.Errorf("event[%d]: %w", i, err)
		}
		inputs = append(inputs, in)
	}

	events := make([]publishResponse, 0, len(inputs))
	for _, in := range inputs {
		res, err := h.service.Publish(c.Request().Context(), in)
		if err != nil {
			return err
		}
		events = append(events, toPublishResponse(in, res))
	}

	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "events accepted",
		Count:   len(events),
		Events:  events,
	})
}

func toPublishInput(r publishRequest, idempotencyKey string) ports.PublishInput {
	return ports.PublishInput{
		Tag:            r.Tag,
		Target:         r.Target,
		Data:           r.Data,
		IdempotencyKey: idempotencyKey,
	}
}

func toPublishResponse(in ports.PublishInput, res *ports.PublishResult) publishResponse {
	if res.Duplicate {
		return publishResponse{Tag: in.Tag, Target: in.Target, Duplicate: true}
	}
	at := res.Event.PublishedAt
	return publishResponse{
		ID:          res.Event.ID,
		Seq:         res.Event.Seq,
		Tag:         string(res.Event.Tag),
		Target:      string(res.Event.Target),
		PublishedAt: &at,
	}
}
