package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/hub"
)

func TestWSHandler_DeliversPublishedEvents(t *testing.T) {
	h := hub.New(hub.Options{ServerSideFilter: true}, zerolog.Nop())
	defer h.Close()

	e := echo.New()
	e.GET("/v1/ws", NewWSHandler(h, zerolog.Nop()).Connect)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.SessionCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("session was not attached")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Anonymous sessions see public events only.
	private, _ := domain.NewEvent(domain.TagNotificationRead, domain.TargetUser("u-1"),
		domain.NotificationReadPayload{NotificationID: "n-1", UserID: "u-1"})
	public, _ := domain.NewEvent(domain.TagPriceUpdate, domain.TargetAll,
		domain.PriceUpdatePayload{ProductID: "p-1"})
	h.Publish(private)
	sent := h.Publish(public)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got domain.DomainEvent
	if err := json.Unmarshal(frame, &got); err != nil {
		t.Fatalf("invalid frame: %v", err)
	}
	if got.ID != sent.ID || got.Tag != domain.TagPriceUpdate || got.Seq != sent.Seq {
		t.Fatalf("unexpected event: %+v", got)
	}
}

func TestWSHandler_RejectsPlainHTTP(t *testing.T) {
	h := hub.New(hub.Options{}, zerolog.Nop())
	defer h.Close()

	c, rec := newContext(http.MethodGet, "/v1/ws", "", nil)
	if err := NewWSHandler(h, zerolog.Nop()).Connect(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if h.SessionCount() != 0 {
		t.Fatalf("no session should be attached")
	}
}
