package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/realtime/internal/core/domain"
)

const (
	defaultReconnectInterval = 3 * time.Second
	defaultMaxAttempts       = 5
)

// ErrGaveUp is returned by Client.Run once the reconnect budget is spent.
// Real-time updates stay unavailable until the client is restarted.
var ErrGaveUp = errors.New("real-time updates unavailable")

// ConnectionError reports a transport failure. It is recovered by the
// reconnect loop and never surfaces past Client.Run except through ErrGaveUp.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string { return fmt.Sprintf("connection %s: %v", e.Op, e.Err) }

func (e *ConnectionError) Unwrap() error { return e.Err }

// Stream is one live connection to the hub.
type Stream interface {
	// Read blocks until the next frame arrives or the stream fails.
	Read() ([]byte, error)
	Close() error
}

// Dialer opens streams to the hub.
type Dialer interface {
	Dial(ctx context.Context) (Stream, error)
}

// State is the transport state of a Client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateGaveUp
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateGaveUp:
		return "gave_up"
	default:
		return "unknown"
	}
}

// ClientOptions bounds the reconnect schedule.
type ClientOptions struct {
	// Interval is the fixed pause between connection attempts.
	Interval time.Duration
	// MaxAttempts is the number of consecutive failed dials after which the
	// client gives up.
	MaxAttempts int
}

// Client owns the connection lifecycle of one Reconciler:
//
//	Disconnected → Connecting → Connected → Disconnected → …
//	Connecting → GaveUp after MaxAttempts consecutive failures
//
// Every successful connect re-hydrates the cache before consuming frames,
// since events published while disconnected are not replayed.
type Client struct {
	dialer Dialer
	rec    *Reconciler
	opts   ClientOptions
	log    zerolog.Logger

	state    atomic.Int32
	onState  func(State)
	attempts int
}

// NewClient returns a Client in the Disconnected state.
func NewClient(dialer Dialer, rec *Reconciler, opts ClientOptions, log zerolog.Logger) *Client {
	if opts.Interval <= 0 {
		opts.Interval = defaultReconnectInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return &Client{dialer: dialer, rec: rec, opts: opts, log: log}
}

// OnStateChange registers fn to observe transitions. Set it before Run.
func (c *Client) OnStateChange(fn func(State)) { c.onState = fn }

// State returns the current transport state.
func (c *Client) State() State { return State(c.state.Load()) }

// Unavailable reports whether the client has given up reconnecting.
func (c *Client) Unavailable() bool { return c.State() == StateGaveUp }

func (c *Client) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	c.log.Debug().Str("state", s.String()).Msg("transport state changed")
	if c.onState != nil {
		c.onState(s)
	}
}

// Run connects and consumes the stream until ctx is cancelled or the
// reconnect budget is exhausted. It returns ctx.Err() on cancellation and
// ErrGaveUp when giving up.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			c.setState(StateDisconnected)
			return err
		}

		c.setState(StateConnecting)
		stream, err := c.dialer.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.setState(StateDisconnected)
				return ctx.Err()
			}
			c.attempts++
			c.log.Warn().Err(err).Int("attempt", c.attempts).Int("max_attempts", c.opts.MaxAttempts).Msg("connect failed")
			if c.attempts >= c.opts.MaxAttempts {
				c.setState(StateGaveUp)
				c.log.Error().Int("attempts", c.attempts).Msg("giving up, real-time updates unavailable")
				return ErrGaveUp
			}
			c.setState(StateDisconnected)
			if err := c.wait(ctx); err != nil {
				return err
			}
			continue
		}

		c.attempts = 0
		c.setState(StateConnected)
		c.log.Info().Msg("connected to hub")

		// The stream may have gaps; server state is the source of truth.
		_ = c.rec.Hydrate(ctx)

		err = c.consume(ctx, stream)
		c.setState(StateDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("connection lost")
		if err := c.wait(ctx); err != nil {
			return err
		}
	}
}

// consume applies frames until the stream fails or ctx is cancelled.
func (c *Client) consume(ctx context.Context, stream Stream) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = stream.Close()
		case <-done:
		}
	}()
	defer stream.Close()

	for {
		frame, err := stream.Read()
		if err != nil {
			return err
		}
		if err := c.rec.Apply(frame); err != nil {
			if domain.IsMalformed(err) {
				c.log.Warn().Err(err).Msg("dropping malformed event")
				continue
			}
			c.log.Error().Err(err).Msg("failed to apply event")
		}
	}
}

func (c *Client) wait(ctx context.Context) error {
	t := time.NewTimer(c.opts.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		c.setState(StateDisconnected)
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
