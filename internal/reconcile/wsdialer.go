package reconcile

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// WSDialer connects to the hub's websocket endpoint.
type WSDialer struct {
	url    string
	token  string
	dialer *websocket.Dialer
}

// NewWSDialer returns a dialer for url. A non-empty token is sent as a
// bearer credential; without one the session is anonymous.
func NewWSDialer(url, token string, handshakeTimeout time.Duration) *WSDialer {
	return &WSDialer{
		url:   url,
		token: token,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Dial opens a stream. Failures are reported as *ConnectionError.
func (d *WSDialer) Dial(ctx context.Context) (Stream, error) {
	header := http.Header{}
	if d.token != "" {
		header.Set("Authorization", "Bearer "+d.token)
	}
	conn, resp, err := d.dialer.DialContext(ctx, d.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}
	return &wsStream{conn: conn}, nil
}

type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) Read() ([]byte, error) {
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			return nil, &ConnectionError{Op: "read", Err: err}
		}
		if kind == websocket.TextMessage {
			return data, nil
		}
	}
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}
