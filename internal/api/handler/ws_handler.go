package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/hub"
)

// SessionHub is the hub as seen by the websocket endpoint.
type SessionHub interface {
	Attach(conn hub.Conn, identity *domain.Identity) (*hub.Session, error)
}

// WSHandler upgrades GET /v1/ws into a hub session.
type WSHandler struct {
	hub      SessionHub
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewWSHandler returns a WSHandler. Origins are not checked; sessions are
// authorised by token, and anonymous sessions only see public events.
func NewWSHandler(h SessionHub, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  4096,
			HandshakeTimeout: 10 * time.Second,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Connect handles GET /v1/ws. The session runs on its own pumps after the
// upgrade; the handler returns as soon as it is registered.
func (h *WSHandler) Connect(c echo.Context) error {
	identity := ctxIdentity(c)

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	if _, err := h.hub.Attach(conn, identity); err != nil {
		// The hub closes conn when it refuses a session.
		h.log.Debug().Err(err).Msg("websocket session refused")
	}
	return nil
}
