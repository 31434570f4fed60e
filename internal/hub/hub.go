// Package hub fans committed domain events out to connected sessions.
//
// Every published event receives the next sequence number and is offered to
// each session under a single lock, so all sessions observe events in the
// same relative order. Delivery to a session never blocks: a session whose
// buffer is full is closed and removed, and its client recovers through a
// snapshot read after reconnecting.
package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/storefront/realtime/internal/core/domain"
	"github.com/storefront/realtime/internal/metrics"
)

const (
	defaultSendBuffer   = 64
	defaultWriteTimeout = 10 * time.Second
	defaultPingInterval = 30 * time.Second
)

// ErrClosed is returned when a session attaches to a hub that is shutting down.
var ErrClosed = errors.New("hub closed")

// Options tunes the hub.
type Options struct {
	// SendBuffer is the per-session outbound frame capacity.
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
	// ServerSideFilter skips sessions an event is not addressed to.
	ServerSideFilter bool
}

func (o *Options) normalize() {
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
}

// Hub is the in-process publish/subscribe broker.
type Hub struct {
	opts Options
	log  zerolog.Logger

	// publishMu serialises sequencing and enqueueing.
	publishMu sync.Mutex
	seq       Sequencer
	reg       *registry
	closed    atomic.Bool

	now   func() time.Time
	newID func() string
}

// New returns a Hub ready to accept sessions.
func New(opts Options, log zerolog.Logger) *Hub {
	opts.normalize()
	return &Hub{
		opts:  opts,
		log:   log,
		reg:   newRegistry(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Attach registers conn as a session for identity and starts its pumps.
// The returned session's Done channel closes when the connection ends.
func (h *Hub) Attach(conn Conn, identity *domain.Identity) (*Session, error) {
	if h.closed.Load() {
		_ = conn.Close()
		return nil, ErrClosed
	}
	s := &Session{
		id:           h.newID(),
		identity:     identity,
		conn:         conn,
		out:          make(chan []byte, h.opts.SendBuffer),
		done:         make(chan struct{}),
		writeTimeout: h.opts.WriteTimeout,
		pingInterval: h.opts.PingInterval,
		log:          h.log,
		onClose:      h.detach,
	}
	h.reg.add(s)
	metrics.HubSessions.Inc()
	if h.closed.Load() {
		// Lost the race with Close.
		s.closeWith(websocket.CloseGoingAway, "server shutting down")
		return nil, ErrClosed
	}

	go s.writePump()
	go s.readPump()

	ev := h.log.Debug().Str("session_id", s.id)
	if identity != nil {
		ev = ev.Str("user_id", identity.UserID).Str("role", identity.Role)
	}
	ev.Msg("session attached")
	return s, nil
}

func (h *Hub) detach(s *Session) {
	if h.reg.remove(s) {
		metrics.HubSessions.Dec()
		h.log.Debug().Str("session_id", s.id).Msg("session detached")
	}
}

// Publish stamps ev with an id, the next sequence number and the publish
// time, then offers it to every addressed session. It returns the stamped
// event.
func (h *Hub) Publish(ev domain.DomainEvent) domain.DomainEvent {
	start := time.Now()
	defer func() { metrics.PublishDuration.Observe(time.Since(start).Seconds()) }()

	ev, slow := h.fanOut(ev)

	// Sockets of dropped sessions are released outside the publish lock;
	// a blocked peer must not stall the next publish.
	for _, s := range slow {
		h.log.Warn().Str("session_id", s.id).Uint64("seq", ev.Seq).Msg("session buffer full, dropping session")
		s.teardown(websocket.ClosePolicyViolation, "slow consumer")
	}
	return ev
}

func (h *Hub) fanOut(ev domain.DomainEvent) (domain.DomainEvent, []*Session) {
	h.publishMu.Lock()
	defer h.publishMu.Unlock()

	if ev.ID == "" {
		ev.ID = h.newID()
	}
	ev.Seq = h.seq.Next()
	ev.PublishedAt = h.now()

	frame, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("event_id", ev.ID).Str("tag", string(ev.Tag)).Msg("failed to encode event")
		return ev, nil
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(ev.Tag)).Inc()

	var slow []*Session
	for _, s := range h.reg.snapshot() {
		if h.opts.ServerSideFilter && !ev.Target.Matches(s.identity) {
			metrics.EventDeliveriesTotal.WithLabelValues("filtered").Inc()
			continue
		}
		if s.enqueue(frame) {
			metrics.EventDeliveriesTotal.WithLabelValues("sent").Inc()
			continue
		}
		metrics.EventDeliveriesTotal.WithLabelValues("dropped").Inc()
		// Stopped under the lock so no later event reaches it out of order.
		if s.stop() {
			slow = append(slow, s)
		}
	}
	return ev, slow
}

// SessionCount returns the number of registered sessions.
func (h *Hub) SessionCount() int {
	return h.reg.len()
}

// LastSeq returns the sequence number of the most recent event.
func (h *Hub) LastSeq() uint64 {
	return h.seq.Last()
}

// Close stops accepting sessions and closes the open ones.
func (h *Hub) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	sessions := h.reg.snapshot()
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.closeWith(websocket.CloseGoingAway, "server shutting down")
		}(s)
	}
	wg.Wait()
	h.log.Info().Int("sessions", len(sessions)).Msg("hub closed")
}
