package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/realtime/internal/core/domain"
)

var errConnClosed = errors.New("use of closed connection")

// fakeConn is an in-memory Conn. When block is set, data writes wait until
// the connection is closed.
type fakeConn struct {
	mu        sync.Mutex
	frames    [][]byte
	controls  []int
	block     bool
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	if c.block {
		<-c.closed
		return errConnClosed
	}
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	c.mu.Lock()
	c.frames = append(c.frames, data)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) WriteControl(messageType int, _ []byte, _ time.Time) error {
	c.mu.Lock()
	c.controls = append(c.controls, messageType)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errConnClosed
}

func (c *fakeConn) SetWriteDeadline(time.Time) error          { return nil }
func (c *fakeConn) SetReadDeadline(time.Time) error           { return nil }
func (c *fakeConn) SetPongHandler(func(appData string) error) {}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) events(t *testing.T) []domain.DomainEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.DomainEvent, 0, len(c.frames))
	for _, f := range c.frames {
		var ev domain.DomainEvent
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev)
	}
	return out
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func newTestHub(opts Options) *Hub {
	return New(opts, zerolog.Nop())
}

func event(t *testing.T, target domain.Target, id string) domain.DomainEvent {
	t.Helper()
	ev, err := domain.NewEvent(domain.TagNotificationRead, target, domain.NotificationReadPayload{NotificationID: id, UserID: "u-1"})
	require.NoError(t, err)
	return ev
}

func attach(t *testing.T, h *Hub, identity *domain.Identity) (*Session, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	s, err := h.Attach(conn, identity)
	require.NoError(t, err)
	return s, conn
}

func TestHub_PublishStampsEvent(t *testing.T) {
	h := newTestHub(Options{ServerSideFilter: true})
	defer h.Close()

	first := h.Publish(event(t, domain.TargetAll, "n-1"))
	second := h.Publish(event(t, domain.TargetAll, "n-2"))

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	assert.False(t, first.PublishedAt.IsZero())
	assert.Equal(t, uint64(2), h.LastSeq())
}

func TestHub_SessionsObserveTheSameOrder(t *testing.T) {
	h := newTestHub(Options{SendBuffer: 1024})
	defer h.Close()

	const sessions, publishers, perPublisher = 4, 8, 25
	conns := make([]*fakeConn, sessions)
	for i := range conns {
		_, conns[i] = attach(t, h, &domain.Identity{UserID: fmt.Sprintf("u-%d", i), Role: domain.RoleUser})
	}

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				h.Publish(event(t, domain.TargetAll, fmt.Sprintf("n-%d-%d", p, i)))
			}
		}(p)
	}
	wg.Wait()

	total := publishers * perPublisher
	for _, c := range conns {
		require.Eventually(t, func() bool { return c.count() == total }, 2*time.Second, 5*time.Millisecond)
	}

	reference := conns[0].events(t)
	for i := 1; i < len(reference); i++ {
		assert.Greater(t, reference[i].Seq, reference[i-1].Seq, "sequence must increase")
	}
	for _, c := range conns[1:] {
		got := c.events(t)
		for i := range reference {
			assert.Equal(t, reference[i].ID, got[i].ID, "position %d", i)
		}
	}
}

func TestHub_ServerSideFiltering(t *testing.T) {
	h := newTestHub(Options{ServerSideFilter: true})
	defer h.Close()

	_, anon := attach(t, h, nil)
	_, alice := attach(t, h, &domain.Identity{UserID: "u-1", Role: domain.RoleUser})
	_, bob := attach(t, h, &domain.Identity{UserID: "u-2", Role: domain.RoleUser})
	_, admin := attach(t, h, &domain.Identity{UserID: "a-1", Role: domain.RoleAdmin})

	h.Publish(event(t, domain.TargetAll, "all"))
	h.Publish(event(t, domain.TargetUser("u-1"), "alice"))
	h.Publish(event(t, domain.TargetAdmins, "admins"))
	h.Publish(event(t, domain.TargetUsers, "users"))

	expect := map[*fakeConn][]domain.Target{
		anon:  {domain.TargetAll},
		alice: {domain.TargetAll, domain.TargetUser("u-1"), domain.TargetUsers},
		bob:   {domain.TargetAll, domain.TargetUsers},
		admin: {domain.TargetAll, domain.TargetAdmins},
	}
	for conn, want := range expect {
		require.Eventually(t, func() bool { return conn.count() == len(want) }, time.Second, 5*time.Millisecond)
		got := conn.events(t)
		for i := range want {
			assert.Equal(t, want[i], got[i].Target)
		}
	}
}

func TestHub_FilterDisabledDeliversEverything(t *testing.T) {
	h := newTestHub(Options{ServerSideFilter: false})
	defer h.Close()

	_, anon := attach(t, h, nil)
	h.Publish(event(t, domain.TargetAdmins, "admins"))
	h.Publish(event(t, domain.TargetUser("u-9"), "u9"))

	require.Eventually(t, func() bool { return anon.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestHub_SlowSessionIsDropped(t *testing.T) {
	h := newTestHub(Options{SendBuffer: 2})
	defer h.Close()

	slowConn := newFakeConn()
	slowConn.block = true
	slow, err := h.Attach(slowConn, nil)
	require.NoError(t, err)
	_, fast := attach(t, h, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			h.Publish(event(t, domain.TargetAll, fmt.Sprintf("n-%d", i)))
			time.Sleep(time.Millisecond)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked by a slow session")
	}

	select {
	case <-slow.Done():
	case <-time.After(time.Second):
		t.Fatal("slow session was not closed")
	}
	require.Eventually(t, slowConn.isClosed, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return fast.count() == 20 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.SessionCount())
}

func TestHub_PeerDisconnectDetachesSession(t *testing.T) {
	h := newTestHub(Options{})
	defer h.Close()

	s, conn := attach(t, h, nil)
	require.Equal(t, 1, h.SessionCount())

	_ = conn.Close()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not observe disconnect")
	}
	assert.Equal(t, 0, h.SessionCount())

	// Publishing after the peer left is harmless.
	h.Publish(event(t, domain.TargetAll, "n-1"))
}

func TestHub_ConcurrentAttachDetach(t *testing.T) {
	h := newTestHub(Options{SendBuffer: 256})
	defer h.Close()

	stop := make(chan struct{})
	var pub sync.WaitGroup
	pub.Add(1)
	go func() {
		defer pub.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				h.Publish(event(t, domain.TargetAll, fmt.Sprintf("n-%d", i)))
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn := newFakeConn()
			s, err := h.Attach(conn, &domain.Identity{UserID: fmt.Sprintf("u-%d", i), Role: domain.RoleUser})
			if err != nil {
				return
			}
			time.Sleep(time.Millisecond)
			s.Close()
		}(i)
	}
	wg.Wait()
	close(stop)
	pub.Wait()

	assert.Equal(t, 0, h.SessionCount())
}

func TestHub_CloseRejectsNewSessions(t *testing.T) {
	h := newTestHub(Options{})

	s, conn := attach(t, h, nil)
	h.Close()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("open session not closed on shutdown")
	}
	assert.True(t, conn.isClosed())

	_, err := h.Attach(newFakeConn(), nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, 0, h.SessionCount())
}
