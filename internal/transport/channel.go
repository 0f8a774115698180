package transport

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/MangaColor/coordinator/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/id"
	"github.com/GriffinCanCode/MangaColor/coordinator/internal/shared/types"
)

// State is the connection lifecycle state
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnectScheduled
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnectScheduled:
		return "reconnect_scheduled"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Sink receives decoded events. Apply runs with the channel lock held and must
// not call back into the Channel.
type Sink interface {
	Apply(ev types.Event) bool
}

// Options configures a Channel
type Options struct {
	// BaseURL is the backend HTTP or websocket base URL
	BaseURL           string
	KeepaliveInterval time.Duration
	ReconnectDelay    time.Duration
	HandshakeTimeout  time.Duration
	Header            http.Header
	// OnStateChange is called with the channel lock held and must not call
	// back into the Channel
	OnStateChange func(State)
	Logger        *zap.Logger
	Metrics       *monitoring.Metrics
}

// DefaultOptions returns the standard timings
func DefaultOptions(baseURL string) Options {
	return Options{
		BaseURL:           baseURL,
		KeepaliveInterval: 30 * time.Second,
		ReconnectDelay:    3 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// Channel manages the push connection
type Channel struct {
	opts   Options
	sink   Sink
	dialer *websocket.Dialer
	logger *zap.Logger

	mu          sync.Mutex
	generation  uint64
	fileID      string
	conn        *websocket.Conn
	state       State
	noReconnect bool
	stopPing    chan struct{}
	reconnect   *time.Timer

	// writeMu serializes data writes on conn
	writeMu sync.Mutex
}

// New creates a disconnected channel delivering events to sink
func New(sink Sink, opts Options) *Channel {
	defaults := DefaultOptions(opts.BaseURL)
	if opts.KeepaliveInterval <= 0 {
		opts.KeepaliveInterval = defaults.KeepaliveInterval
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaults.ReconnectDelay
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaults.HandshakeTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Channel{
		opts: opts,
		sink: sink,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		},
		logger: logger,
	}
}

// Endpoint returns the websocket URL for fileID, or the global stream when
// fileID is empty
func Endpoint(baseURL, fileID string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	if fileID == "" {
		return base + "/ws/updates"
	}
	return base + "/ws/updates/" + url.PathEscape(fileID)
}

// Connect opens a connection scoped to fileID, superseding any previous
// socket or pending reconnect. It returns immediately; dialing happens in the
// background.
func (c *Channel) Connect(fileID string) {
	c.mu.Lock()
	c.noReconnect = false
	c.fileID = fileID
	gen := c.advanceLocked()
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	go c.run(gen, fileID)
}

// Disconnect closes the connection and suppresses any further reconnect
func (c *Channel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.noReconnect = true
	c.advanceLocked()
	c.setStateLocked(StateDisconnected)
}

// State returns the lifecycle state
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FileID returns the file the channel is scoped to
func (c *Channel) FileID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fileID
}

// Generation returns the current connection generation
func (c *Channel) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// advanceLocked bumps the generation and tears down everything the previous
// generation owned
func (c *Channel) advanceLocked() uint64 {
	c.generation++
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	c.releaseLocked()
	return c.generation
}

// releaseLocked stops the keepalive and closes the socket
func (c *Channel) releaseLocked() {
	if c.stopPing != nil {
		close(c.stopPing)
		c.stopPing = nil
	}
	if c.conn != nil {
		conn := c.conn
		c.conn = nil
		// WriteControl and Close are safe alongside a pending keepalive write
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}
}

func (c *Channel) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.opts.Metrics.SetChannelState(int(s))
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}

// run dials and then reads until the socket closes
func (c *Channel) run(gen uint64, fileID string) {
	endpoint := Endpoint(c.opts.BaseURL, fileID)
	log := c.logger.With(zap.Uint64("generation", gen), zap.String("endpoint", endpoint))

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.HandshakeTimeout)
	conn, _, err := c.dialer.DialContext(ctx, endpoint, c.opts.Header)
	cancel()
	if err != nil {
		log.Warn("Push channel dial failed", zap.Error(err))
		c.closed(gen)
		return
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		log.Debug("Discarding superseded connection")
		_ = conn.Close()
		return
	}
	c.conn = conn
	stop := make(chan struct{})
	c.stopPing = stop
	c.setStateLocked(StateConnected)
	c.mu.Unlock()

	c.opts.Metrics.IncChannelConnects()
	log = log.With(zap.String("connection_id", id.NewConnectionID().String()))
	log.Info("Push channel connected")

	go c.keepalive(conn, stop, log)
	c.read(gen, conn, log)
}

func (c *Channel) read(gen uint64, conn *websocket.Conn, log *zap.Logger) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("Push channel closed", zap.Error(err))
			} else {
				log.Warn("Push channel read failed", zap.Error(err))
			}
			c.closed(gen)
			return
		}
		c.dispatch(gen, data, log)
	}
}

func (c *Channel) dispatch(gen uint64, data []byte, log *zap.Logger) {
	if c.Generation() != gen {
		return
	}

	ev, err := DecodeFrame(data)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, ErrUnknownFrame) {
			reason = "unknown"
		}
		c.opts.Metrics.RecordDropped(reason)
		log.Warn("Dropping inbound frame", zap.Error(err))
		return
	}

	c.opts.Metrics.RecordFrame(string(ev.Kind()))
	if ev.Kind() == types.EventPong {
		return
	}
	if c.sink == nil {
		return
	}

	// a frame from a superseded socket must not reach the sink
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.sink.Apply(ev)
}

// closed handles the end of a socket owned by gen
func (c *Channel) closed(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}
	c.releaseLocked()

	if c.noReconnect {
		c.setStateLocked(StateDisconnected)
		return
	}

	c.setStateLocked(StateReconnectScheduled)
	c.opts.Metrics.IncChannelReconnects()
	c.logger.Info("Push channel reconnect scheduled",
		zap.Uint64("generation", gen),
		zap.Duration("delay", c.opts.ReconnectDelay))

	c.reconnect = time.AfterFunc(c.opts.ReconnectDelay, func() {
		c.fire(gen)
	})
}

// fire runs a scheduled reconnect unless it was superseded
func (c *Channel) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || c.noReconnect {
		c.mu.Unlock()
		return
	}
	c.reconnect = nil
	next := c.advanceLocked()
	fileID := c.fileID
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	c.run(next, fileID)
}

func (c *Channel) keepalive(conn *websocket.Conn, stop <-chan struct{}, log *zap.Logger) {
	ticker := time.NewTicker(c.opts.KeepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(c.opts.KeepaliveInterval))
			err := conn.WriteMessage(websocket.TextMessage, pingFrame)
			c.writeMu.Unlock()
			if err != nil {
				log.Debug("Keepalive ping failed", zap.Error(err))
				return
			}
		}
	}
}
