package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
)

type recordingSink struct {
	mu     sync.Mutex
	events []types.Event
}

func (s *recordingSink) Apply(ev types.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return true
}

func (s *recordingSink) Events() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Event(nil), s.events...)
}

// backend is a fake push endpoint recording every accepted socket
type backend struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader
	reject   atomic.Int32

	mu    sync.Mutex
	conns []*websocket.Conn
	paths []string
	pings atomic.Int32
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	b.srv = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) handle(w http.ResponseWriter, r *http.Request) {
	if b.reject.Load() > 0 {
		b.reject.Add(-1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.conns = append(b.conns, conn)
	b.paths = append(b.paths, r.URL.Path)
	b.mu.Unlock()

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if strings.Contains(string(data), `"ping"`) {
				b.pings.Add(1)
			}
		}
	}()
}

func (b *backend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func (b *backend) conn(i int) *websocket.Conn {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conns[i]
}

func (b *backend) path(i int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paths[i]
}

func (b *backend) push(t *testing.T, i int, frame string) {
	t.Helper()
	require.NoError(t, b.conn(i).WriteMessage(websocket.TextMessage, []byte(frame)))
}

func newTestChannel(t *testing.T, b *backend, sink Sink, reconnectDelay time.Duration) *Channel {
	t.Helper()
	ch := New(sink, Options{
		BaseURL:           b.srv.URL,
		KeepaliveInterval: time.Hour,
		ReconnectDelay:    reconnectDelay,
		HandshakeTimeout:  time.Second,
		Metrics:           monitoring.NewMetrics(),
	})
	t.Cleanup(ch.Disconnect)
	return ch
}

func waitConnected(t *testing.T, ch *Channel) {
	t.Helper()
	require.Eventually(t, func() bool { return ch.State() == StateConnected }, 2*time.Second, 5*time.Millisecond)
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "ws://127.0.0.1:8765/ws/updates", Endpoint("http://127.0.0.1:8765/", ""))
	assert.Equal(t, "wss://host/ws/updates/f1", Endpoint("https://host", "f1"))
	assert.Equal(t, "ws://host/ws/updates/f1", Endpoint("ws://host", "f1"))
}

func TestFramesReachSink(t *testing.T) {
	b := newBackend(t)
	sink := &recordingSink{}
	ch := newTestChannel(t, b, sink, time.Hour)

	ch.Connect("f1")
	waitConnected(t, ch)
	assert.Equal(t, "/ws/updates/f1", b.path(0))

	b.push(t, 0, `{"type":"progress","data":{"fileId":"f1","currentPage":5,"totalPages":20,"batchNumber":1,"percentage":25}}`)
	b.push(t, 0, `{"type":"pong"}`)
	b.push(t, 0, `{"type":"mystery","data":{}}`)
	b.push(t, 0, `not json`)
	b.push(t, 0, `{"type":"status","data":{"fileId":"f1","status":"paused","message":""}}`)

	require.Eventually(t, func() bool { return len(sink.Events()) == 2 }, 2*time.Second, 5*time.Millisecond)
	events := sink.Events()
	assert.Equal(t, types.ProgressEvent{FileID: "f1", CurrentPage: 5, TotalPages: 20, BatchNumber: 1, Percentage: 25}, events[0])
	assert.Equal(t, types.StatusEvent{FileID: "f1", Status: types.StatusPaused}, events[1])
}

func TestKeepaliveSendsPing(t *testing.T) {
	b := newBackend(t)
	ch := New(&recordingSink{}, Options{
		BaseURL:           b.srv.URL,
		KeepaliveInterval: 20 * time.Millisecond,
		ReconnectDelay:    time.Hour,
	})
	t.Cleanup(ch.Disconnect)

	ch.Connect("")
	waitConnected(t, ch)
	require.Eventually(t, func() bool { return b.pings.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestUnexpectedCloseReconnectsOnce(t *testing.T) {
	b := newBackend(t)
	ch := newTestChannel(t, b, &recordingSink{}, 50*time.Millisecond)

	ch.Connect("f1")
	waitConnected(t, ch)

	require.NoError(t, b.conn(0).Close())
	require.Eventually(t, func() bool { return ch.State() == StateReconnectScheduled }, 2*time.Second, time.Millisecond)

	require.Eventually(t, func() bool { return b.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	waitConnected(t, ch)
	assert.Equal(t, "/ws/updates/f1", b.path(1))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 2, b.count())
}

func TestDisconnectSuppressesReconnect(t *testing.T) {
	b := newBackend(t)
	ch := newTestChannel(t, b, &recordingSink{}, 20*time.Millisecond)

	ch.Connect("f1")
	waitConnected(t, ch)
	gen := ch.Generation()

	ch.Disconnect()
	assert.Equal(t, StateDisconnected, ch.State())
	assert.Greater(t, ch.Generation(), gen)

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, b.count())
	assert.Equal(t, StateDisconnected, ch.State())
}

func TestConnectSupersedesPendingReconnect(t *testing.T) {
	b := newBackend(t)
	ch := newTestChannel(t, b, &recordingSink{}, 150*time.Millisecond)

	ch.Connect("f1")
	waitConnected(t, ch)

	require.NoError(t, b.conn(0).Close())
	require.Eventually(t, func() bool { return ch.State() == StateReconnectScheduled }, 2*time.Second, time.Millisecond)

	ch.Connect("f2")
	waitConnected(t, ch)
	assert.Equal(t, "f2", ch.FileID())

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 2, b.count())
	assert.Equal(t, "/ws/updates/f2", b.path(1))
}

func TestRetargetClosesPreviousSocket(t *testing.T) {
	b := newBackend(t)
	ch := newTestChannel(t, b, &recordingSink{}, 20*time.Millisecond)

	ch.Connect("f1")
	waitConnected(t, ch)
	ch.Connect("f2")
	require.Eventually(t, func() bool { return b.count() == 2 }, 2*time.Second, 5*time.Millisecond)
	waitConnected(t, ch)

	// the old socket's close belongs to a stale generation
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 2, b.count())
	assert.Equal(t, "/ws/updates/f2", b.path(1))
}

func TestDialFailureSchedulesReconnect(t *testing.T) {
	b := newBackend(t)
	b.reject.Store(1)
	ch := newTestChannel(t, b, &recordingSink{}, 30*time.Millisecond)

	ch.Connect("f1")
	waitConnected(t, ch)
	assert.Equal(t, 1, b.count())
}

func TestStateChangeHook(t *testing.T) {
	b := newBackend(t)

	var mu sync.Mutex
	var seen []State
	ch := New(&recordingSink{}, Options{
		BaseURL:        b.srv.URL,
		ReconnectDelay: time.Hour,
		OnStateChange: func(s State) {
			mu.Lock()
			seen = append(seen, s)
			mu.Unlock()
		},
	})

	ch.Connect("f1")
	waitConnected(t, ch)
	ch.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateConnecting, StateConnected, StateDisconnected}, seen)
}

func TestSupersededFrameNeverReachesSink(t *testing.T) {
	sink := &recordingSink{}
	ch := New(sink, DefaultOptions("http://127.0.0.1:1"))
	frame := []byte(`{"type":"progress","data":{"fileId":"f1","currentPage":1,"totalPages":23,"batchNumber":1,"percentage":4.3}}`)

	gen := ch.Generation()
	ch.dispatch(gen, frame, zap.NewNop())
	require.Len(t, sink.Events(), 1)

	ch.Disconnect()
	ch.dispatch(gen, frame, zap.NewNop())
	assert.Len(t, sink.Events(), 1)
}

func TestDisconnectDoesNotWaitForPendingWrite(t *testing.T) {
	b := newBackend(t)
	ch := newTestChannel(t, b, &recordingSink{}, time.Hour)

	ch.Connect("f1")
	waitConnected(t, ch)

	// simulate a keepalive write stuck on its deadline
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()

	done := make(chan struct{})
	go func() {
		ch.Disconnect()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Disconnect blocked behind the write lock")
	}
	assert.Equal(t, StateDisconnected, ch.State())
}
