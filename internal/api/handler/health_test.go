package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

type stubHubStats struct{}

func (stubHubStats) SessionCount() int { return 3 }
func (stubHubStats) LastSeq() uint64   { return 42 }

func TestHealthHandler_Liveness(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/health", "", nil)
	if err := NewHealthHandler().Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHealthDependencies_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }
	h := NewHealthDependenciesHandler(map[string]Pinger{"mongodb": ok, "redis": ok}, stubHubStats{})

	c, rec := newContext(http.MethodGet, "/health/ready", "", nil)
	if err := h.Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Status != "ok" || resp.Hub == nil || resp.Hub.Sessions != 3 || resp.Hub.LastSeq != 42 {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestHealthDependencies_Degraded(t *testing.T) {
	h := NewHealthDependenciesHandler(map[string]Pinger{
		"mongodb": func(context.Context) error { return nil },
		"redis":   func(context.Context) error { return errors.New("connection refused") },
	}, nil)

	c, rec := newContext(http.MethodGet, "/health/ready", "", nil)
	if err := h.Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp readinessResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "degraded" || resp.Dependencies["redis"].Status != "unhealthy" || resp.Dependencies["mongodb"].Status != "ok" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
