package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/storefront/realtime/internal/core/domain"
)

// Conn is the subset of *websocket.Conn a session needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	ReadMessage() (messageType int, p []byte, err error)
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Session is one subscriber connection. Frames are queued on a bounded
// buffer and written by a single goroutine, so a session never blocks the
// publisher.
type Session struct {
	id       string
	identity *domain.Identity
	conn     Conn
	out      chan []byte
	done     chan struct{}

	writeTimeout time.Duration
	pingInterval time.Duration
	log          zerolog.Logger

	closeOnce sync.Once
	onClose   func(*Session)
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Identity returns the session holder, nil for anonymous visitors.
func (s *Session) Identity() *domain.Identity { return s.identity }

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// enqueue offers a frame without blocking. It returns false if the buffer
// is full or the session is already closed.
func (s *Session) enqueue(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

// Close tears the session down. Safe to call more than once and from any
// goroutine.
func (s *Session) Close() {
	s.closeWith(websocket.CloseNormalClosure, "")
}

func (s *Session) closeWith(code int, reason string) {
	if s.stop() {
		s.teardown(code, reason)
	}
}

// stop marks the session closed and detaches it from the hub. It reports
// whether this call performed the stop.
func (s *Session) stop() bool {
	stopped := false
	s.closeOnce.Do(func() {
		stopped = true
		if s.onClose != nil {
			s.onClose(s)
		}
		close(s.done)
	})
	return stopped
}

// teardown sends a close frame and releases the connection. It may block
// for up to the write timeout.
func (s *Session) teardown(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.writeTimeout))
	_ = s.conn.Close()
}

// writePump drains the outbound buffer and keeps the connection alive.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case frame := <-s.out:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.log.Debug().Err(err).Str("session_id", s.id).Msg("write failed, closing session")
				s.closeWith(websocket.CloseAbnormalClosure, "write failed")
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout)); err != nil {
				s.log.Debug().Err(err).Str("session_id", s.id).Msg("ping failed, closing session")
				s.closeWith(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		}
	}
}

// readPump consumes inbound frames until the peer goes away. The stream is
// one-way, so client messages are discarded; reading is still required to
// process pongs and close frames.
func (s *Session) readPump() {
	defer s.Close()

	pongWait := 2 * s.pingInterval
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Str("session_id", s.id).Msg("session read error")
			}
			return
		}
	}
}
